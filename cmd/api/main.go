package main

import (
	"context"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/punchamoorthee/ledgerbook/internal/api"
	"github.com/punchamoorthee/ledgerbook/internal/config"
	"github.com/punchamoorthee/ledgerbook/internal/reports"
	"github.com/punchamoorthee/ledgerbook/internal/service"
	"github.com/punchamoorthee/ledgerbook/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	dbPool, err := store.Connect(ctx, cfg.DBSource, cfg.MaxConns)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer dbPool.Close()

	if cfg.AutoMigrate {
		if err := store.Migrate(ctx, dbPool); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
	}

	rep, err := reports.Open(cfg.ReadDBSource, int(cfg.MaxConns))
	if err != nil {
		log.Fatalf("Unable to connect to read database: %v", err)
	}
	defer rep.Close()

	// Initialize Layers
	ledgerStore := store.NewLedgerStore(dbPool)
	ledger := service.NewLedger(ledgerStore, rep, service.Policy{
		Repay:   service.RepayPolicy(cfg.RepayPolicy),
		Partial: service.PartialPolicy(cfg.PartialPolicy),
	})
	handler := api.NewHandler(ledger)

	// Router
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	handler.Routes(r.PathPrefix("/api/v1").Subrouter())

	log.Printf("Server starting on :%s (%s, repay=%s, partial=%s)", cfg.Port, cfg.Env, cfg.RepayPolicy, cfg.PartialPolicy)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal(err)
	}
}
