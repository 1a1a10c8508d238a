package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, handler http.Handler, token string) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(srv.URL, func() string { return token }, nil)
	return client, srv
}

func TestClientSendsBearerToken(t *testing.T) {
	var gotAuth string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`[]`))
	}), "tok-123")

	if _, err := client.Tasks(context.Background()); err != nil {
		t.Fatalf("tasks: %v", err)
	}
	if gotAuth != "Bearer tok-123" {
		t.Fatalf("Authorization = %q, want Bearer tok-123", gotAuth)
	}
}

func TestClientOmitsAuthHeaderWithoutToken(t *testing.T) {
	var gotAuth string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"user":{"email":"a@b.c"},"token":"t"}`))
	}), "")

	if _, err := client.Login(context.Background(), "a@b.c", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if gotAuth != "" {
		t.Fatalf("Authorization = %q, want empty", gotAuth)
	}
}

func TestClient401MapsToErrUnauthorized(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}), "stale")

	_, err := client.Tasks(context.Background())
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestClientErrorMessageParsing(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "message field", body: `{"message":"User already exists"}`, want: "User already exists"},
		{name: "detail field", body: `{"detail":"Not found"}`, want: "Not found"},
		{name: "unparseable body", body: `<html>`, want: "400 Bad Request"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(tc.body))
			}), "tok")

			_, err := client.CreateTask(context.Background(), CreateTaskRequest{Title: "x"})
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("err = %v, want *APIError", err)
			}
			if apiErr.Status != http.StatusBadRequest || apiErr.Message != tc.want {
				t.Fatalf("got status=%d message=%q, want message=%q", apiErr.Status, apiErr.Message, tc.want)
			}
		})
	}
}

func TestClientTransportErrorMentionsHost(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", func() string { return "" }, nil)
	_, err := client.Tasks(context.Background())
	if err == nil {
		t.Fatalf("expected transport error")
	}
	if errors.Is(err, ErrUnauthorized) {
		t.Fatalf("transport error must not look like a 401: %v", err)
	}
	if !strings.Contains(err.Error(), "unable to reach") {
		t.Fatalf("error should name the unreachable host: %v", err)
	}
}

func TestCreateTaskAlwaysSendsTagsAndDueDate(t *testing.T) {
	var body []byte
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"id":"t1","title":"x","priority":"medium","tags":[]}`))
	}), "tok")

	_, err := client.CreateTask(context.Background(), CreateTaskRequest{
		Title:    "x",
		Priority: "medium",
		Tags:     []string{},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	payload := string(body)
	for _, key := range []string{`"tags":[]`, `"due_date":null`} {
		if !strings.Contains(payload, key) {
			t.Fatalf("payload %s missing %s", payload, key)
		}
	}
}
