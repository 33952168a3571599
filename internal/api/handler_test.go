package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/punchamoorthee/ledgerbook/internal/domain"
	"github.com/punchamoorthee/ledgerbook/internal/service"
	"github.com/punchamoorthee/ledgerbook/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mem := store.NewMemory()
	r := mux.NewRouter()
	NewHandler(service.NewLedger(mem, mem, service.DefaultPolicy)).Routes(r.PathPrefix("/api/v1").Subrouter())
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	resp := do(t, srv, "POST", "/users", map[string]any{
		"name": "Sam", "email": "sam@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusCreated, resp.Code)
	return srv
}

type result struct {
	Code int
	Body []byte
}

func (r result) decode(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Body, v), string(r.Body))
}

func do(t *testing.T, srv *httptest.Server, method, path string, body any) result {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+"/api/v1"+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out bytes.Buffer
	_, err = out.ReadFrom(resp.Body)
	require.NoError(t, err)
	return result{Code: resp.StatusCode, Body: out.Bytes()}
}

func balanceOf(t *testing.T, srv *httptest.Server) decimal.Decimal {
	t.Helper()
	resp := do(t, srv, "GET", "/balance?email=sam@example.com", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var body struct {
		Balance decimal.Decimal `json:"balance"`
	}
	resp.decode(t, &body)
	return body.Balance
}

func TestRegisterAndGetUser(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, srv, "GET", "/users/sam@example.com", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.NotContains(t, string(resp.Body), "password")

	resp = do(t, srv, "POST", "/users", map[string]any{
		"name": "Sam", "email": "sam@example.com", "password": "password123",
	})
	assert.Equal(t, http.StatusConflict, resp.Code)

	resp = do(t, srv, "GET", "/users/nobody@example.com", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestRecordEndpoints(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, srv, "POST", "/transactions/in", map[string]any{
		"email": "sam@example.com", "amount": 100, "date": "2025-08-01",
	})
	require.Equal(t, http.StatusCreated, resp.Code, string(resp.Body))
	var txn domain.Transaction
	resp.decode(t, &txn)
	assert.Equal(t, domain.KindIn, txn.Kind)

	resp = do(t, srv, "POST", "/transactions", map[string]any{
		"email": "sam@example.com", "type": "out", "amount": "40.50", "notes": "groceries",
	})
	require.Equal(t, http.StatusCreated, resp.Code, string(resp.Body))
	assert.True(t, decimal.RequireFromString("59.50").Equal(balanceOf(t, srv)))

	resp = do(t, srv, "POST", "/transactions/out", map[string]any{
		"email": "sam@example.com", "amount": 60,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	resp = do(t, srv, "GET", "/transactions?email=sam@example.com&type=out", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var list []domain.Transaction
	resp.decode(t, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "groceries", list[0].Notes)
}

func TestErrorStatuses(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"missing amount", "POST", "/transactions/in", map[string]any{"email": "sam@example.com"}, http.StatusBadRequest},
		{"zero amount", "POST", "/transactions/in", map[string]any{"email": "sam@example.com", "amount": 0}, http.StatusBadRequest},
		{"bad kind", "POST", "/transactions", map[string]any{"email": "sam@example.com", "type": "gift", "amount": 1}, http.StatusBadRequest},
		{"bad date", "POST", "/transactions/in", map[string]any{"email": "sam@example.com", "amount": 1, "date": "soon"}, http.StatusBadRequest},
		{"unknown user", "POST", "/transactions/in", map[string]any{"email": "x@example.com", "amount": 1}, http.StatusNotFound},
		{"unknown lend", "POST", "/transactions/clear-full", map[string]any{"transactionId": "nope", "amount": 1, "date": "2025-08-01"}, http.StatusNotFound},
		{"bad month", "GET", "/summary/monthly?email=sam@example.com&year=2025&month=13", nil, http.StatusBadRequest},
		{"non-numeric month", "GET", "/summary/monthly?email=sam@example.com&year=2025&month=aug", nil, http.StatusBadRequest},
		{"reversed range", "GET", "/summary/weekly?email=sam@example.com&start=2025-08-10&end=2025-08-01", nil, http.StatusBadRequest},
		{"emi payment without funds", "POST", "/emis/nope/pay", map[string]any{"email": "sam@example.com", "month": "2025-08", "amount": 0.01}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, srv, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, resp.Code, string(resp.Body))
			var body map[string]string
			resp.decode(t, &body)
			assert.NotEmpty(t, body["error"])
		})
	}

	req, err := http.NewRequest("POST", srv.URL+"/api/v1/transactions/in", bytes.NewBufferString("{"))
	require.NoError(t, err)
	raw, err := srv.Client().Do(req)
	require.NoError(t, err)
	raw.Body.Close()
	assert.Equal(t, http.StatusBadRequest, raw.StatusCode)
}

func TestSettlementEndpoints(t *testing.T) {
	srv := newTestServer(t)
	require.Equal(t, http.StatusCreated, do(t, srv, "POST", "/transactions/in", map[string]any{"email": "sam@example.com", "amount": 100}).Code)

	resp := do(t, srv, "POST", "/transactions/lend", map[string]any{"email": "sam@example.com", "amount": 80, "notes": "Trip"})
	require.Equal(t, http.StatusCreated, resp.Code)
	var lend domain.Transaction
	resp.decode(t, &lend)

	resp = do(t, srv, "POST", "/transactions/clear-partial", map[string]any{
		"transactionId": lend.ID, "clearAmount": 30, "remainingAmount": 50, "date": "2025-08-10",
	})
	require.Equal(t, http.StatusOK, resp.Code, string(resp.Body))
	var partial domain.Settlement
	resp.decode(t, &partial)
	assert.True(t, partial.Success)
	require.NotNil(t, partial.Lend)
	assert.True(t, decimal.NewFromInt(50).Equal(partial.Lend.Amount))
	assert.Equal(t, "Partial clear from lent • Trip", partial.Transaction.Notes)

	resp = do(t, srv, "POST", "/transactions/clear-full", map[string]any{
		"transactionId": lend.ID, "amount": 50, "date": "2025-08-20", "note": "done",
	})
	require.Equal(t, http.StatusOK, resp.Code, string(resp.Body))
	var full domain.Settlement
	resp.decode(t, &full)
	assert.Equal(t, "Cleared from lent • Trip • done", full.Transaction.Notes)
	assert.True(t, decimal.NewFromInt(100).Equal(balanceOf(t, srv)))
}

func TestInstallmentEndpoints(t *testing.T) {
	srv := newTestServer(t)
	require.Equal(t, http.StatusCreated, do(t, srv, "POST", "/transactions/in", map[string]any{"email": "sam@example.com", "amount": 100}).Code)

	resp := do(t, srv, "POST", "/emis", map[string]any{
		"email": "sam@example.com", "name": "Phone", "amount": 25, "months": []string{"2025-08", "2025-09", "2025-10"},
	})
	require.Equal(t, http.StatusCreated, resp.Code, string(resp.Body))
	var o domain.Obligation
	resp.decode(t, &o)

	resp = do(t, srv, "POST", fmt.Sprintf("/emis/%s/pay", o.ID), map[string]any{
		"email": "sam@example.com", "month": "2025-08", "amount": 25,
	})
	require.Equal(t, http.StatusOK, resp.Code, string(resp.Body))
	var p domain.Payment
	resp.decode(t, &p)
	assert.Equal(t, []string{"2025-09", "2025-10"}, p.Obligation.Periods)
	assert.Equal(t, domain.KindOut, p.Transaction.Kind)

	resp = do(t, srv, "POST", fmt.Sprintf("/emis/%s/clear", o.ID), map[string]any{"month": "2025-09"})
	require.Equal(t, http.StatusOK, resp.Code, string(resp.Body))

	resp = do(t, srv, "GET", "/emis?email=sam@example.com", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var list []domain.Obligation
	resp.decode(t, &list)
	require.Len(t, list, 1)
	assert.Equal(t, []string{"2025-10"}, list[0].Periods)
	assert.True(t, decimal.NewFromInt(75).Equal(balanceOf(t, srv)))
}

func TestSummaryEndpoints(t *testing.T) {
	srv := newTestServer(t)
	for _, rec := range []map[string]any{
		{"email": "sam@example.com", "type": "in", "amount": 100, "date": "2025-08-01"},
		{"email": "sam@example.com", "type": "out", "amount": 30, "date": "2025-08-07T23:59:00"},
		{"email": "sam@example.com", "type": "in", "amount": 5, "date": "2025-09-01"},
	} {
		require.Equal(t, http.StatusCreated, do(t, srv, "POST", "/transactions", rec).Code)
	}

	resp := do(t, srv, "GET", "/summary/monthly?email=sam@example.com&year=2025&month=8", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"lend":0,"in":100,"out":30}`, string(resp.Body))
	var sum domain.Summary
	resp.decode(t, &sum)
	assert.True(t, decimal.NewFromInt(100).Equal(sum.In))
	assert.True(t, decimal.NewFromInt(30).Equal(sum.Out))
	assert.True(t, sum.Lend.IsZero())

	resp = do(t, srv, "GET", "/summary/weekly?email=sam@example.com&start=2025-08-01&end=2025-08-07", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	resp.decode(t, &sum)
	assert.True(t, decimal.NewFromInt(30).Equal(sum.Out))

	resp = do(t, srv, "POST", "/transactions/delete-range", map[string]any{
		"email": "sam@example.com", "startDate": "2025-08-01", "endDate": "2025-08-31",
	})
	require.Equal(t, http.StatusOK, resp.Code)
	var deleted map[string]int64
	resp.decode(t, &deleted)
	assert.Equal(t, int64(2), deleted["deleted"])
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(domain.ErrObligationNotFound))
	assert.Equal(t, http.StatusConflict, statusFor(fmt.Errorf("%w: 2025-08", domain.ErrPeriodNotPending)))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(domain.ErrInsufficientBalance))
	assert.Equal(t, http.StatusBadRequest, statusFor(domain.ErrNotesTooLong))
	assert.Equal(t, http.StatusInternalServerError, statusFor(fmt.Errorf("%w: %w", domain.ErrStorage, errors.New("conn reset"))))
}
