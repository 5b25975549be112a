package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/vpnhouse/console/internal/domain"
	"github.com/vpnhouse/console/internal/log"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func TestBearerHeaderAttached(t *testing.T) {
	t.Parallel()

	var gotAuth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := New(srv.URL, staticToken("the-token"), log.Discard())
	if _, err := c.ListPeers(context.Background()); err != nil {
		t.Fatalf("ListPeers: %v", err)
	}
	if gotAuth.Load() != "Bearer the-token" {
		t.Fatalf("Authorization = %q", gotAuth.Load())
	}
}

func TestLoginUsesBasicAuthWithEmptyUser(t *testing.T) {
	t.Parallel()

	var gotAuth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"access_token":"tok-123"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, staticToken(""), log.Discard())
	token, err := c.Login(context.Background(), "hunter2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if token != "tok-123" {
		t.Fatalf("token = %q", token)
	}
	// base64(":hunter2") — single-admin model, empty user.
	if gotAuth.Load() != "Basic Omh1bnRlcjI=" {
		t.Fatalf("Authorization = %q", gotAuth.Load())
	}
}

func TestUnauthorizedHookFiresOnBearer401(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"token expired"}`))
	}))
	defer srv.Close()

	var fired atomic.Int64
	c := New(srv.URL, staticToken("stale"), log.Discard())
	c.SetUnauthorizedHook(func() { fired.Add(1) })

	_, err := c.ListPeers(context.Background())
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	if fired.Load() != 1 {
		t.Fatalf("hook fired %d times, want 1", fired.Load())
	}

	// Basic-auth logins must not trip the hook; a wrong password is not a
	// stale session.
	if _, err := c.Login(context.Background(), "wrong"); err == nil {
		t.Fatal("expected login failure")
	}
	if fired.Load() != 1 {
		t.Fatalf("hook fired on basic auth, count %d", fired.Load())
	}
}

func TestRejectionDecodesStructuredBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid address","field":"ipv4","details":"out of subnet"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, staticToken("tok"), log.Discard())
	_, err := c.ListPeers(context.Background())

	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *domain.APIError", err)
	}
	if apiErr.Status != http.StatusBadRequest || apiErr.Message != "invalid address" || apiErr.Field != "ipv4" {
		t.Fatalf("unexpected APIError %+v", apiErr)
	}
	if got := apiErr.FieldText(); got != "invalid address out of subnet" {
		t.Fatalf("FieldText = %q", got)
	}
}

func TestRejectionFallsBackToRawBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream gone\n"))
	}))
	defer srv.Close()

	c := New(srv.URL, staticToken("tok"), log.Discard())
	_, err := c.ListPeers(context.Background())

	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *domain.APIError", err)
	}
	if apiErr.Message != "upstream gone" {
		t.Fatalf("Message = %q, want trimmed raw body", apiErr.Message)
	}
}

func TestRejectionEmptyBodyUsesStatusText(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.URL, staticToken("tok"), log.Discard())
	_, err := c.ListPeers(context.Background())

	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *domain.APIError", err)
	}
	if apiErr.Message != http.StatusText(http.StatusServiceUnavailable) {
		t.Fatalf("Message = %q", apiErr.Message)
	}
}

func TestCheckSetupMapsStatuses(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"configured and signed out", http.StatusUnauthorized, `{"error":"unauthorized"}`, nil},
		{"configured and open", http.StatusOK, `{}`, nil},
		{"awaiting setup", http.StatusConflict, `{"error":"initial setup required"}`, domain.ErrSetupRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c := New(srv.URL, staticToken(""), log.Discard())
			err := c.CheckSetup(context.Background())
			if tc.want == nil && err != nil {
				t.Fatalf("CheckSetup: %v", err)
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestDeleteMapsNotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"no such peer"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, staticToken("tok"), log.Discard())
	if err := c.DeletePeer(context.Background(), 99); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
