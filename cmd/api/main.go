package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/Dan9191/bank-ledger/internal/auth"
	"github.com/Dan9191/bank-ledger/internal/config"
	"github.com/Dan9191/bank-ledger/internal/handler"
	"github.com/Dan9191/bank-ledger/internal/integrations/keyrate"
	"github.com/Dan9191/bank-ledger/internal/ledger"
	"github.com/Dan9191/bank-ledger/internal/middleware"
	"github.com/Dan9191/bank-ledger/internal/service"
	"github.com/Dan9191/bank-ledger/internal/storage"
	"github.com/Dan9191/bank-ledger/internal/utils/email"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Initialize storage backend
	var store storage.Store
	switch cfg.StorageBackend {
	case "memory":
		store = storage.NewMemoryStore()
	case "file":
		store, err = storage.NewFileStore(cfg.DataDir)
		if err != nil {
			logger.Fatalf("Failed to open data directory: %v", err)
		}
	case "postgres":
		db, err := sql.Open("postgres", cfg.DBConn)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Fatalf("Failed to ping database: %v", err)
		}
		store = storage.NewPostgresStore(db)
	}

	// Initialize layers
	sessions := auth.NewRegistry(logger)
	engine := ledger.NewEngine(store, sessions, logger)
	ledgerSvc := service.NewLedger(engine)
	var mail *email.Sender
	if cfg.SMTPHost != "" {
		mail = email.NewSender(cfg, logger)
	}
	svc := service.NewService(store, sessions, mail, logger, cfg)
	h := handler.NewHandler(svc, ledgerSvc)
	rates := keyrate.NewClient(cfg, logger)

	// Setup router
	r := mux.NewRouter()
	// Public routes
	r.HandleFunc("/register", h.Register).Methods("POST")
	r.HandleFunc("/login", h.Login).Methods("POST")
	// Key rate endpoint
	r.HandleFunc("/key-rate", func(w http.ResponseWriter, r *http.Request) {
		rate, err := rates.Current()
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to get key rate: %v", err), http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]float64{"key_rate": rate})
	}).Methods("GET")
	// Protected routes
	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(middleware.AuthMiddleware(cfg, sessions))
	authRouter.HandleFunc("/logout", h.Logout).Methods("POST")
	authRouter.HandleFunc("/balance", h.Balance).Methods("GET")
	authRouter.HandleFunc("/transactions", h.Transactions).Methods("GET")
	authRouter.HandleFunc("/transactions", h.AddTransaction).Methods("POST")
	authRouter.HandleFunc("/transactions/clear", h.ClearTransactions).Methods("POST")
	authRouter.HandleFunc("/transactions/{id}", h.UpdateTransaction).Methods("PUT")
	authRouter.HandleFunc("/transactions/{id}", h.DeleteTransaction).Methods("DELETE")
	authRouter.HandleFunc("/users/profile", h.UpdateProfile).Methods("PUT")
	authRouter.HandleFunc("/users/password", h.ChangePassword).Methods("PUT")

	// Prune expired sessions in the background
	scheduler := cron.New()
	if _, err := scheduler.AddFunc("@hourly", func() {
		if n := sessions.PruneExpired(); n > 0 {
			logger.Infof("Pruned %d expired sessions", n)
		}
	}); err != nil {
		logger.Fatalf("Failed to schedule session pruning: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	logger.Infof("Starting server on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server failed: %v", err)
	}
}
