package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	apperrors "github.com/manumarlats408/stocks/internal/errors"
	"github.com/manumarlats408/stocks/internal/models"
)

const testAnonKey = "anon-test-key"

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	sessionPath := filepath.Join(t.TempDir(), "session.json")
	client, err := New(server.URL, testAnonKey, sessionPath, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client, server
}

func authHandler(t *testing.T) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("apikey") != testAnonKey {
			http.Error(w, `{"message":"missing apikey"}`, http.StatusUnauthorized)
			return
		}
		var creds map[string]string
		json.NewDecoder(r.Body).Decode(&creds)
		if creds["password"] != "correct" {
			http.Error(w, `{"error_description":"Invalid login credentials"}`, http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":  "token-abc",
			"refresh_token": "refresh-abc",
			"expires_in":    3600,
			"user":          map[string]string{"id": "user-1", "email": creds["email"]},
		})
	})
	mux.HandleFunc("/auth/v1/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func TestNew_RejectsMissingConfig(t *testing.T) {
	cases := []struct {
		name    string
		url     string
		anonKey string
	}{
		{"empty url", "", testAnonKey},
		{"placeholder url", "your_supabase_url_here", testAnonKey},
		{"invalid url", "not a url", testAnonKey},
		{"empty key", "https://example.supabase.co", ""},
		{"placeholder key", "https://example.supabase.co", "your_supabase_anon_key_here"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.url, tc.anonKey, "", zerolog.Nop())
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !apperrors.IsConfig(err) {
				t.Errorf("expected ConfigError, got %T: %v", err, err)
			}
		})
	}
}

func TestSignIn_StoresSessionAndNotifies(t *testing.T) {
	client, _ := newTestClient(t, authHandler(t))

	var notified *models.User
	client.OnAuthChange(func(u *models.User) { notified = u })

	user, err := client.SignIn(context.Background(), "me@example.com", "correct")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if user.Email != "me@example.com" || user.ID != "user-1" {
		t.Errorf("unexpected user: %+v", user)
	}
	if !client.IsAuthenticated() {
		t.Error("expected authenticated client after sign-in")
	}
	if notified == nil || notified.ID != "user-1" {
		t.Errorf("expected auth-change notification with user, got %+v", notified)
	}

	// The session file survives for the next process.
	if _, err := os.Stat(client.sessionPath); err != nil {
		t.Errorf("expected session file at %s: %v", client.sessionPath, err)
	}
}

func TestSignIn_BadCredentials(t *testing.T) {
	client, _ := newTestClient(t, authHandler(t))

	_, err := client.SignIn(context.Background(), "me@example.com", "wrong")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var perr *apperrors.PersistenceError
	if !apperrors.As(err, &perr) {
		t.Fatalf("expected PersistenceError, got %T", err)
	}
	if perr.Message != "Invalid login credentials" {
		t.Errorf("expected backend message, got %q", perr.Message)
	}
	if client.IsAuthenticated() {
		t.Error("client must not be authenticated after failed sign-in")
	}
}

func TestSignOut_ClearsStateAndNotifiesNil(t *testing.T) {
	client, _ := newTestClient(t, authHandler(t))
	if _, err := client.SignIn(context.Background(), "me@example.com", "correct"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	notifications := 0
	var last *models.User
	client.OnAuthChange(func(u *models.User) {
		notifications++
		last = u
	})

	if err := client.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if client.IsAuthenticated() {
		t.Error("expected signed-out client")
	}
	if notifications != 1 || last != nil {
		t.Errorf("expected one nil notification, got %d (%+v)", notifications, last)
	}
	if _, err := os.Stat(client.sessionPath); !os.IsNotExist(err) {
		t.Error("expected session file removed after sign-out")
	}
	if _, err := client.CurrentUser(); !apperrors.Is(err, apperrors.ErrNotAuthenticated) {
		t.Errorf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestSessionPersistsAcrossClients(t *testing.T) {
	server := httptest.NewServer(authHandler(t))
	t.Cleanup(server.Close)

	sessionPath := filepath.Join(t.TempDir(), "session.json")
	first, err := New(server.URL, testAnonKey, sessionPath, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := first.SignIn(context.Background(), "me@example.com", "correct"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	second, err := New(server.URL, testAnonKey, sessionPath, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	user, err := second.CurrentUser()
	if err != nil {
		t.Fatalf("CurrentUser on restored session: %v", err)
	}
	if user.Email != "me@example.com" {
		t.Errorf("unexpected restored user: %+v", user)
	}
}

func TestRest_RequiresSessionBeforeNetwork(t *testing.T) {
	calls := 0
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))

	_, err := client.ListHoldings(context.Background())
	if !apperrors.Is(err, apperrors.ErrNotAuthenticated) {
		t.Errorf("expected ErrNotAuthenticated, got %v", err)
	}
	if _, err := client.InsertHolding(context.Background(), models.Holding{Symbol: "AAPL"}); !apperrors.Is(err, apperrors.ErrNotAuthenticated) {
		t.Errorf("expected ErrNotAuthenticated, got %v", err)
	}
	if calls != 0 {
		t.Errorf("expected no network calls without a session, got %d", calls)
	}
}

func TestInsertHolding_SendsUserIDAndReturnsRow(t *testing.T) {
	var captured map[string]interface{}
	mux := http.NewServeMux()
	mux.Handle("/auth/v1/", authHandler(t))
	mux.HandleFunc("/rest/v1/portfolio", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token-abc" {
			t.Errorf("unexpected Authorization header %q", got)
		}
		if got := r.Header.Get("Prefer"); got != "return=representation" {
			t.Errorf("expected return=representation, got %q", got)
		}
		json.NewDecoder(r.Body).Decode(&captured)
		json.NewEncoder(w).Encode([]map[string]interface{}{{
			"id":             "h-1",
			"user_id":        captured["user_id"],
			"symbol":         captured["symbol"],
			"name":           captured["name"],
			"shares":         captured["shares"],
			"purchase_price": captured["purchase_price"],
		}})
	})

	client, _ := newTestClient(t, mux)
	if _, err := client.SignIn(context.Background(), "me@example.com", "correct"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	row, err := client.InsertHolding(context.Background(), models.Holding{
		Symbol: "AAPL", Name: "Apple Inc", Shares: 10, PurchasePrice: 150,
	})
	if err != nil {
		t.Fatalf("InsertHolding: %v", err)
	}
	if captured["user_id"] != "user-1" {
		t.Errorf("expected user_id in payload, got %v", captured["user_id"])
	}
	if row.ID != "h-1" || row.Symbol != "AAPL" {
		t.Errorf("unexpected stored row: %+v", row)
	}
}

func TestUpdateAlert_StampsUpdatedAt(t *testing.T) {
	var captured map[string]interface{}
	mux := http.NewServeMux()
	mux.Handle("/auth/v1/", authHandler(t))
	mux.HandleFunc("/rest/v1/price_alerts", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("expected PATCH, got %s", r.Method)
		}
		if got := r.URL.Query().Get("id"); got != "eq.a-1" {
			t.Errorf("expected id=eq.a-1 filter, got %q", got)
		}
		json.NewDecoder(r.Body).Decode(&captured)
		json.NewEncoder(w).Encode([]map[string]interface{}{{
			"id": "a-1", "symbol": "AAPL", "alert_type": captured["alert_type"],
			"target_price": captured["target_price"], "triggered": false,
		}})
	})

	client, _ := newTestClient(t, mux)
	if _, err := client.SignIn(context.Background(), "me@example.com", "correct"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	alert, err := client.UpdateAlert(context.Background(), "a-1", models.AlertConditionBelow, 180)
	if err != nil {
		t.Fatalf("UpdateAlert: %v", err)
	}
	if captured["updated_at"] == nil || captured["updated_at"] == "" {
		t.Error("expected updated_at stamp in payload")
	}
	if alert.Condition != models.AlertConditionBelow || alert.TargetPrice != 180 {
		t.Errorf("unexpected row: %+v", alert)
	}
}

func TestRest_UnauthorizedMapsToSessionExpired(t *testing.T) {
	mux := http.NewServeMux()
	mux.Handle("/auth/v1/", authHandler(t))
	mux.HandleFunc("/rest/v1/portfolio", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"JWT expired"}`, http.StatusUnauthorized)
	})

	client, _ := newTestClient(t, mux)
	if _, err := client.SignIn(context.Background(), "me@example.com", "correct"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	_, err := client.ListHoldings(context.Background())
	if !apperrors.Is(err, apperrors.ErrSessionExpired) {
		t.Errorf("expected wrapped ErrSessionExpired, got %v", err)
	}
}

func TestMarkAlertTriggered_SendsTrueOnly(t *testing.T) {
	var captured map[string]interface{}
	mux := http.NewServeMux()
	mux.Handle("/auth/v1/", authHandler(t))
	mux.HandleFunc("/rest/v1/price_alerts", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		w.WriteHeader(http.StatusNoContent)
	})

	client, _ := newTestClient(t, mux)
	if _, err := client.SignIn(context.Background(), "me@example.com", "correct"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	if err := client.MarkAlertTriggered(context.Background(), "a-1"); err != nil {
		t.Fatalf("MarkAlertTriggered: %v", err)
	}
	if captured["triggered"] != true {
		t.Errorf("expected triggered:true, got %v", captured["triggered"])
	}
}
