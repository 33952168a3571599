package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/punchamoorthee/ledgerbook/internal/domain"
	"github.com/punchamoorthee/ledgerbook/internal/service"
	"github.com/shopspring/decimal"
)

// Metrics
var (
	httpReqTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_http_request_duration_seconds",
		Help:    "Request latency",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"method", "endpoint"})
)

const maxBodyBytes = 1 << 20

func init() {
	// Amounts go out as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

type Handler struct {
	ledger *service.Ledger
}

func NewHandler(l *service.Ledger) *Handler {
	return &Handler{ledger: l}
}

// Routes mounts the ledger endpoints on r, normally the /api/v1 subrouter.
func (h *Handler) Routes(r *mux.Router) {
	r.HandleFunc("/users", h.Register).Methods("POST")
	r.HandleFunc("/users/{email}", h.GetUser).Methods("GET")

	r.HandleFunc("/transactions", h.RecordTransaction).Methods("POST")
	r.HandleFunc("/transactions", h.ListTransactions).Methods("GET")
	r.HandleFunc("/transactions/delete-range", h.DeleteRange).Methods("POST")
	r.HandleFunc("/transactions/clear-full", h.SettleFull).Methods("POST")
	r.HandleFunc("/transactions/clear-partial", h.SettlePartial).Methods("POST")
	r.HandleFunc("/transactions/{kind:lend|in|out}", h.RecordKind).Methods("POST")

	r.HandleFunc("/balance", h.GetBalance).Methods("GET")
	r.HandleFunc("/summary/monthly", h.MonthlySummary).Methods("GET")
	r.HandleFunc("/summary/weekly", h.WeeklySummary).Methods("GET")

	r.HandleFunc("/emis", h.CreateObligation).Methods("POST")
	r.HandleFunc("/emis", h.ListObligations).Methods("GET")
	r.HandleFunc("/emis/{id}/pay", h.PayInstallment).Methods("POST")
	r.HandleFunc("/emis/{id}/clear", h.ClearPeriod).Methods("POST")
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpLatency.WithLabelValues("POST", "/users"))
	defer timer.ObserveDuration()

	var req domain.RegisterRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error(), "POST", "/users")
		return
	}
	u, err := h.ledger.Register(r.Context(), req)
	if err != nil {
		h.fail(w, err, "POST", "/users")
		return
	}
	w.Header().Set("Location", "/api/v1/users/"+u.Email)
	h.respondJSON(w, http.StatusCreated, u, "POST", "/users")
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpLatency.WithLabelValues("GET", "/users/{email}"))
	defer timer.ObserveDuration()

	u, err := h.ledger.User(r.Context(), mux.Vars(r)["email"])
	if err != nil {
		h.fail(w, err, "GET", "/users/{email}")
		return
	}
	h.respondJSON(w, http.StatusOK, u, "GET", "/users/{email}")
}

func (h *Handler) RecordTransaction(w http.ResponseWriter, r *http.Request) {
	h.record(w, r, "", "/transactions")
}

// RecordKind records a movement whose kind comes from the path.
func (h *Handler) RecordKind(w http.ResponseWriter, r *http.Request) {
	h.record(w, r, domain.Kind(mux.Vars(r)["kind"]), "/transactions/{kind}")
}

func (h *Handler) record(w http.ResponseWriter, r *http.Request, kind domain.Kind, endpoint string) {
	timer := prometheus.NewTimer(httpLatency.WithLabelValues("POST", endpoint))
	defer timer.ObserveDuration()

	var req domain.RecordRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error(), "POST", endpoint)
		return
	}
	if kind != "" {
		req.Kind = kind
	}
	txn, err := h.ledger.Record(r.Context(), req)
	if err != nil {
		h.fail(w, err, "POST", endpoint)
		return
	}
	h.respondJSON(w, http.StatusCreated, txn, "POST", endpoint)
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpLatency.WithLabelValues("GET", "/transactions"))
	defer timer.ObserveDuration()

	q := r.URL.Query()
	txns, err := h.ledger.Transactions(r.Context(), q.Get("email"), q.Get("type"))
	if err != nil {
		h.fail(w, err, "GET", "/transactions")
		return
	}
	h.respondJSON(w, http.StatusOK, txns, "GET", "/transactions")
}

func (h *Handler) DeleteRange(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpLatency.WithLabelValues("POST", "/transactions/delete-range"))
	defer timer.ObserveDuration()

	var req domain.DeleteRangeRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error(), "POST", "/transactions/delete-range")
		return
	}
	n, err := h.ledger.DeleteRange(r.Context(), req)
	if err != nil {
		h.fail(w, err, "POST", "/transactions/delete-range")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]int64{"deleted": n}, "POST", "/transactions/delete-range")
}

func (h *Handler) SettleFull(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpLatency.WithLabelValues("POST", "/transactions/clear-full"))
	defer timer.ObserveDuration()

	var req domain.SettleFullRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error(), "POST", "/transactions/clear-full")
		return
	}
	res, err := h.ledger.SettleFull(r.Context(), req)
	if err != nil {
		h.fail(w, err, "POST", "/transactions/clear-full")
		return
	}
	h.respondJSON(w, http.StatusOK, res, "POST", "/transactions/clear-full")
}

func (h *Handler) SettlePartial(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpLatency.WithLabelValues("POST", "/transactions/clear-partial"))
	defer timer.ObserveDuration()

	var req domain.SettlePartialRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error(), "POST", "/transactions/clear-partial")
		return
	}
	res, err := h.ledger.SettlePartial(r.Context(), req)
	if err != nil {
		h.fail(w, err, "POST", "/transactions/clear-partial")
		return
	}
	h.respondJSON(w, http.StatusOK, res, "POST", "/transactions/clear-partial")
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpLatency.WithLabelValues("GET", "/balance"))
	defer timer.ObserveDuration()

	email := r.URL.Query().Get("email")
	bal, err := h.ledger.Balance(r.Context(), email)
	if err != nil {
		h.fail(w, err, "GET", "/balance")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"email": email, "balance": bal}, "GET", "/balance")
}

func (h *Handler) MonthlySummary(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpLatency.WithLabelValues("GET", "/summary/monthly"))
	defer timer.ObserveDuration()

	q := r.URL.Query()
	year, errY := strconv.Atoi(q.Get("year"))
	month, errM := strconv.Atoi(q.Get("month"))
	if errY != nil || errM != nil {
		h.fail(w, fmt.Errorf("%w: year and month must be integers", domain.ErrInvalidDate), "GET", "/summary/monthly")
		return
	}
	sum, err := h.ledger.MonthlySummary(r.Context(), q.Get("email"), year, month)
	if err != nil {
		h.fail(w, err, "GET", "/summary/monthly")
		return
	}
	h.respondJSON(w, http.StatusOK, sum, "GET", "/summary/monthly")
}

func (h *Handler) WeeklySummary(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpLatency.WithLabelValues("GET", "/summary/weekly"))
	defer timer.ObserveDuration()

	q := r.URL.Query()
	sum, err := h.ledger.RangeSummary(r.Context(), q.Get("email"), q.Get("start"), q.Get("end"))
	if err != nil {
		h.fail(w, err, "GET", "/summary/weekly")
		return
	}
	h.respondJSON(w, http.StatusOK, sum, "GET", "/summary/weekly")
}

func (h *Handler) CreateObligation(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpLatency.WithLabelValues("POST", "/emis"))
	defer timer.ObserveDuration()

	var req domain.CreateObligationRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error(), "POST", "/emis")
		return
	}
	o, err := h.ledger.CreateObligation(r.Context(), req)
	if err != nil {
		h.fail(w, err, "POST", "/emis")
		return
	}
	w.Header().Set("Location", "/api/v1/emis/"+o.ID)
	h.respondJSON(w, http.StatusCreated, o, "POST", "/emis")
}

func (h *Handler) ListObligations(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpLatency.WithLabelValues("GET", "/emis"))
	defer timer.ObserveDuration()

	list, err := h.ledger.Obligations(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		h.fail(w, err, "GET", "/emis")
		return
	}
	h.respondJSON(w, http.StatusOK, list, "GET", "/emis")
}

func (h *Handler) PayInstallment(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpLatency.WithLabelValues("POST", "/emis/{id}/pay"))
	defer timer.ObserveDuration()

	var req domain.PayInstallmentRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error(), "POST", "/emis/{id}/pay")
		return
	}
	req.ObligationID = mux.Vars(r)["id"]
	p, err := h.ledger.PayInstallment(r.Context(), req)
	if err != nil {
		h.fail(w, err, "POST", "/emis/{id}/pay")
		return
	}
	h.respondJSON(w, http.StatusOK, p, "POST", "/emis/{id}/pay")
}

func (h *Handler) ClearPeriod(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpLatency.WithLabelValues("POST", "/emis/{id}/clear"))
	defer timer.ObserveDuration()

	var req struct {
		Month string `json:"month"`
	}
	if err := decode(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error(), "POST", "/emis/{id}/clear")
		return
	}
	o, err := h.ledger.ClearPeriod(r.Context(), mux.Vars(r)["id"], req.Month)
	if err != nil {
		h.fail(w, err, "POST", "/emis/{id}/clear")
		return
	}
	h.respondJSON(w, http.StatusOK, o, "POST", "/emis/{id}/clear")
}

// Helpers
func decode(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return errors.New("Unreadable body")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errors.New("Invalid JSON")
	}
	return nil
}

// statusFor maps the domain error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity
	case domain.IsConflict(err):
		return http.StatusConflict
	case domain.IsInvalidInput(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(w http.ResponseWriter, err error, method, endpoint string) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		log.Printf("%s %s failed: %v", method, endpoint, err)
		msg = domain.ErrStorage.Error()
	}
	h.respondError(w, code, msg, method, endpoint)
}

func (h *Handler) respondJSON(w http.ResponseWriter, code int, payload interface{}, method, endpoint string) {
	httpReqTotal.WithLabelValues(method, endpoint, strconv.Itoa(code)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func (h *Handler) respondError(w http.ResponseWriter, code int, msg, method, endpoint string) {
	h.respondJSON(w, code, map[string]string{"error": msg}, method, endpoint)
}
