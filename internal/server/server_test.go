package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/freshweekly/internal/shared"
	"golang.org/x/oauth2"
)

// tokenServer returns a fake token endpoint that records the posted form.
func tokenServer(t *testing.T, forms chan<- url.Values) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse token request: %v", err)
		}
		if r.Form.Get("code") == "bad" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		forms <- r.Form
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"access","refresh_token":"refresh","token_type":"Bearer","expires_in":3600}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(tokenURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:    "client",
		Endpoint:    oauth2.Endpoint{AuthURL: "http://example.com/auth", TokenURL: tokenURL, AuthStyle: oauth2.AuthStyleInParams},
		RedirectURL: "http://127.0.0.1:3000/callback",
	}
}

func TestOAuthHandler(t *testing.T) {
	t.Run("exchanges code with verifier", func(t *testing.T) {
		forms := make(chan url.Values, 1)
		ts := tokenServer(t, forms)
		handler := NewOAuthHandler(testConfig(ts.URL), "state123", "verifier-abc")

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=state123&code=good", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		result := <-handler.Result()
		if result.Error() != nil || result.Token == nil || result.Token.AccessToken != "access" {
			t.Fatalf("unexpected result: %+v %v", result.Token, result.Error())
		}

		form := <-forms
		if form.Get("code_verifier") != "verifier-abc" {
			t.Errorf("expected code_verifier to be sent, got %q", form.Get("code_verifier"))
		}
		if form.Get("client_id") != "client" {
			t.Errorf("expected client_id in params, got %q", form.Get("client_id"))
		}
	})

	t.Run("failures", func(t *testing.T) {
		tests := []struct {
			name   string
			query  string
			status int
		}{
			{name: "invalid state", query: "state=wrong&code=good", status: http.StatusBadRequest},
			{name: "denied", query: "state=s&error=access_denied&error_description=nope", status: http.StatusBadRequest},
			{name: "exchange failed", query: "state=s&code=bad", status: http.StatusInternalServerError},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				ts := tokenServer(t, make(chan url.Values, 1))
				handler := NewOAuthHandler(testConfig(ts.URL), "s", "")

				rec := httptest.NewRecorder()
				handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?"+tt.query, nil))
				if rec.Code != tt.status {
					t.Errorf("expected %d, got %d", tt.status, rec.Code)
				}

				result := <-handler.Result()
				if result.Error() == nil {
					t.Error("expected error result")
				}
			})
		}
	})

	t.Run("second callback rejected", func(t *testing.T) {
		ts := tokenServer(t, make(chan url.Values, 1))
		handler := NewOAuthHandler(testConfig(ts.URL), "s", "")

		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/callback?state=s&code=good", nil))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s&code=good", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected replay to be rejected, got %d", rec.Code)
		}
	})
}

func TestBasicRouter(t *testing.T) {
	t.Run("method patterns", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "pong")
		}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if rec.Body.String() != "pong" {
			t.Errorf("expected pong, got %q", rec.Body.String())
		}

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ping", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})

	t.Run("middleware order", func(t *testing.T) {
		var order []string
		mark := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		router := NewBasicRouter()
		router.Use(mark("first"), mark("second"))
		router.Handle("", "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "handler")
		}))
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		if strings.Join(order, ",") != "first,second,handler" {
			t.Errorf("unexpected order %v", order)
		}
	})
}

func TestMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := shared.NewLogger(&buf)
	shared.SetLogLevel(logger, log.DebugLevel)

	router := NewBasicRouter()
	router.Use(Recover(logger), Logging(logger))
	router.Handle(http.MethodGet, "/boom", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	}))
	router.Handle(http.MethodGet, "/teapot", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 after panic, got %d", rec.Code)
	}

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/teapot?code=secret", nil))
	out := buf.String()
	if !strings.Contains(out, "kaboom") || !strings.Contains(out, "418") {
		t.Errorf("expected panic and status in logs, got %q", out)
	}
	if strings.Contains(out, "secret") {
		t.Error("query string must not be logged")
	}
}

func TestCallbackServer(t *testing.T) {
	t.Run("delivers token", func(t *testing.T) {
		ts := tokenServer(t, make(chan url.Values, 1))
		handler := NewOAuthHandler(testConfig(ts.URL), "s", "v")

		srv := NewCallbackServer("127.0.0.1:0", handler, nil)
		if err := srv.Start(); err != nil {
			t.Fatalf("failed to start: %v", err)
		}

		go handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/callback?state=s&code=good", nil))

		token, err := srv.Wait(context.Background(), 5*time.Second)
		if err != nil {
			t.Fatalf("expected token, got %v", err)
		}
		if token.RefreshToken != "refresh" {
			t.Errorf("unexpected token %+v", token)
		}
	})

	t.Run("times out", func(t *testing.T) {
		srv := NewCallbackServer("127.0.0.1:0", NewOAuthHandler(testConfig("http://unused"), "s", ""), nil)
		if err := srv.Start(); err != nil {
			t.Fatalf("failed to start: %v", err)
		}

		if _, err := srv.Wait(context.Background(), 10*time.Millisecond); !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
	})

	t.Run("callback error", func(t *testing.T) {
		handler := NewOAuthHandler(testConfig("http://unused"), "s", "")
		srv := NewCallbackServer("127.0.0.1:0", handler, nil)
		if err := srv.Start(); err != nil {
			t.Fatalf("failed to start: %v", err)
		}

		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/callback?state=wrong", nil))
		if _, err := srv.Wait(context.Background(), time.Second); !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})
}
