// Integration tests for the HTTP layer: full request flows through the
// router, middleware, services, and the ledger engine, backed by the
// in-memory store.
package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Dan9191/bank-ledger/internal/auth"
	"github.com/Dan9191/bank-ledger/internal/config"
	"github.com/Dan9191/bank-ledger/internal/ledger"
	"github.com/Dan9191/bank-ledger/internal/middleware"
	"github.com/Dan9191/bank-ledger/internal/service"
	"github.com/Dan9191/bank-ledger/internal/storage"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	cfg := &config.Config{JWTSecret: "test-secret"}

	store := storage.NewMemoryStore()
	sessions := auth.NewRegistry(log)
	engine := ledger.NewEngine(store, sessions, log)
	h := NewHandler(
		service.NewService(store, sessions, nil, log, cfg),
		service.NewLedger(engine),
	)

	r := mux.NewRouter()
	r.HandleFunc("/register", h.Register).Methods("POST")
	r.HandleFunc("/login", h.Login).Methods("POST")
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

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

// doJSON sends a JSON request, checks the status code, and decodes the
// response into out when it is non-nil.
func doJSON(t *testing.T, method, url, token string, body any, wantCode int, out any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantCode {
		t.Fatalf("%s %s: status = %d, want %d", method, url, resp.StatusCode, wantCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
	}
}

// registerAndLogin creates a user and returns a bearer token for it.
func registerAndLogin(t *testing.T, srv *httptest.Server) string {
	t.Helper()

	doJSON(t, "POST", srv.URL+"/register", "", map[string]string{
		"name": "Alice", "username": "alice", "email": "alice@example.com", "password": "s3cret",
	}, http.StatusCreated, nil)

	var login struct {
		Token string `json:"token"`
	}
	doJSON(t, "POST", srv.URL+"/login", "", map[string]string{
		"username": "alice", "password": "s3cret",
	}, http.StatusOK, &login)
	if login.Token == "" {
		t.Fatal("login returned no token")
	}
	return login.Token
}

func TestDepositWithdrawFlow(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv)

	var balance struct {
		Balance decimal.Decimal `json:"balance"`
	}
	doJSON(t, "GET", srv.URL+"/balance", token, nil, http.StatusOK, &balance)
	if !balance.Balance.IsZero() {
		t.Errorf("initial balance = %s, want 0", balance.Balance)
	}

	doJSON(t, "POST", srv.URL+"/transactions", token, map[string]any{
		"type": "deposit", "amount": 500, "description": "salary",
	}, http.StatusCreated, nil)

	doJSON(t, "GET", srv.URL+"/balance", token, nil, http.StatusOK, &balance)
	if !balance.Balance.Equal(decimal.NewFromInt(500)) {
		t.Errorf("balance = %s, want 500", balance.Balance)
	}

	// Overdrawing is refused with a conflict and leaves the balance alone.
	doJSON(t, "POST", srv.URL+"/transactions", token, map[string]any{
		"type": "withdraw", "amount": 600,
	}, http.StatusConflict, nil)
	doJSON(t, "GET", srv.URL+"/balance", token, nil, http.StatusOK, &balance)
	if !balance.Balance.Equal(decimal.NewFromInt(500)) {
		t.Errorf("balance after failed withdrawal = %s, want 500", balance.Balance)
	}

	doJSON(t, "POST", srv.URL+"/transactions", token, map[string]any{
		"type": "withdraw", "amount": 200,
	}, http.StatusCreated, nil)
	doJSON(t, "GET", srv.URL+"/balance", token, nil, http.StatusOK, &balance)
	if !balance.Balance.Equal(decimal.NewFromInt(300)) {
		t.Errorf("balance = %s, want 300", balance.Balance)
	}

	var transactions []struct {
		ID   int64  `json:"id"`
		Type string `json:"type"`
	}
	doJSON(t, "GET", srv.URL+"/transactions", token, nil, http.StatusOK, &transactions)
	if len(transactions) != 2 {
		t.Fatalf("got %d transactions, want 2", len(transactions))
	}
	if transactions[0].Type != "withdraw" {
		t.Errorf("most recent transaction first: got %q at head", transactions[0].Type)
	}
}

func TestUpdateAndDeleteTransaction(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv)

	var created struct {
		ID int64 `json:"id"`
	}
	doJSON(t, "POST", srv.URL+"/transactions", token, map[string]any{
		"type": "deposit", "amount": 500,
	}, http.StatusCreated, &created)

	doJSON(t, "PUT", srv.URL+"/transactions/"+jsonID(created.ID), token, map[string]any{
		"amount": 200, "description": "corrected",
	}, http.StatusOK, nil)

	var balance struct {
		Balance decimal.Decimal `json:"balance"`
	}
	doJSON(t, "GET", srv.URL+"/balance", token, nil, http.StatusOK, &balance)
	if !balance.Balance.Equal(decimal.NewFromInt(200)) {
		t.Errorf("balance after edit = %s, want 200", balance.Balance)
	}

	doJSON(t, "DELETE", srv.URL+"/transactions/"+jsonID(created.ID), token, nil, http.StatusOK, nil)
	doJSON(t, "GET", srv.URL+"/balance", token, nil, http.StatusOK, &balance)
	if !balance.Balance.IsZero() {
		t.Errorf("balance after delete = %s, want 0", balance.Balance)
	}

	doJSON(t, "DELETE", srv.URL+"/transactions/42", token, nil, http.StatusNotFound, nil)
}

func TestClearEndpoint(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv)

	doJSON(t, "POST", srv.URL+"/transactions", token, map[string]any{
		"type": "deposit", "amount": 100,
	}, http.StatusCreated, nil)
	doJSON(t, "POST", srv.URL+"/transactions/clear", token, nil, http.StatusOK, nil)

	var transactions []json.RawMessage
	doJSON(t, "GET", srv.URL+"/transactions", token, nil, http.StatusOK, &transactions)
	if len(transactions) != 0 {
		t.Errorf("got %d transactions after clear, want 0", len(transactions))
	}
}

func TestValidationErrors(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv)

	// Unknown type.
	doJSON(t, "POST", srv.URL+"/transactions", token, map[string]any{
		"type": "transfer", "amount": 10,
	}, http.StatusBadRequest, nil)
	// Negative amount.
	doJSON(t, "POST", srv.URL+"/transactions", token, map[string]any{
		"type": "deposit", "amount": -1,
	}, http.StatusBadRequest, nil)
	// Over the ceiling.
	doJSON(t, "POST", srv.URL+"/transactions", token, map[string]any{
		"type": "deposit", "amount": 100000.01,
	}, http.StatusBadRequest, nil)
	// At the ceiling is fine.
	doJSON(t, "POST", srv.URL+"/transactions", token, map[string]any{
		"type": "deposit", "amount": 100000,
	}, http.StatusCreated, nil)
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t)

	doJSON(t, "GET", srv.URL+"/balance", "", nil, http.StatusUnauthorized, nil)
	doJSON(t, "POST", srv.URL+"/transactions", "garbage-token", map[string]any{
		"type": "deposit", "amount": 10,
	}, http.StatusUnauthorized, nil)
}

func TestLogoutEndsSession(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv)

	doJSON(t, "POST", srv.URL+"/logout", token, nil, http.StatusOK, nil)
	// The JWT is still unexpired, but the session is gone.
	doJSON(t, "GET", srv.URL+"/balance", token, nil, http.StatusUnauthorized, nil)
}

func TestDuplicateRegistration(t *testing.T) {
	srv := newTestServer(t)
	registerAndLogin(t, srv)

	doJSON(t, "POST", srv.URL+"/register", "", map[string]string{
		"name": "Imposter", "username": "alice", "email": "other@example.com", "password": "pw",
	}, http.StatusConflict, nil)
}

func TestProfileAndPassword(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv)

	var profile struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	doJSON(t, "PUT", srv.URL+"/users/profile", token, map[string]string{
		"name": "Alice B", "email": "aliceb@example.com",
	}, http.StatusOK, &profile)
	if profile.Name != "Alice B" || profile.Email != "aliceb@example.com" {
		t.Errorf("profile = %+v", profile)
	}

	doJSON(t, "PUT", srv.URL+"/users/password", token, map[string]string{
		"current_password": "wrong", "new_password": "next",
	}, http.StatusUnauthorized, nil)
	doJSON(t, "PUT", srv.URL+"/users/password", token, map[string]string{
		"current_password": "s3cret", "new_password": "next",
	}, http.StatusOK, nil)

	doJSON(t, "POST", srv.URL+"/login", "", map[string]string{
		"username": "alice", "password": "next",
	}, http.StatusOK, nil)
}

func jsonID(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
