package session

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"taskflow/internal/api"
	"taskflow/internal/app"
	"taskflow/internal/store"
)

func newTestStore(t *testing.T) (*Store, *store.Store, *store.CookieFile) {
	t.Helper()
	dir := t.TempDir()
	kv := store.New(dir)
	t.Cleanup(func() { kv.Close() })
	cookies := store.NewCookieFile(dir)
	logger := app.NewLogger(io.Discard, false)
	return NewStore(kv, cookies, logger), kv, cookies
}

func newBackend(t *testing.T, status int) *api.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		if status == http.StatusOK {
			w.Write([]byte(`[]`))
		}
	}))
	t.Cleanup(srv.Close)
	return api.NewClient(srv.URL, func() string { return "tok" }, nil)
}

func TestSetPersistsAndRedirectsHome(t *testing.T) {
	sess, kv, cookies := newTestStore(t)
	var gotPath string
	sess.Redirect = func(path string) { gotPath = path }

	user := api.User{Email: "a@b.c", Name: "A"}
	if err := sess.Set(user, "tok-1"); err != nil {
		t.Fatalf("set: %v", err)
	}

	if gotPath != "/home" {
		t.Fatalf("redirect = %q, want /home", gotPath)
	}
	if !sess.IsAuthenticated() {
		t.Fatalf("expected authenticated status")
	}
	if got := sess.Token(); got != "tok-1" {
		t.Fatalf("token = %q", got)
	}

	stored, err := kv.Get(store.KeyAccessToken)
	if err != nil || stored != "tok-1" {
		t.Fatalf("persisted token = (%q, %v)", stored, err)
	}
	var storedUser api.User
	found, err := kv.GetJSON(store.KeyUser, &storedUser)
	if err != nil || !found || storedUser.Email != "a@b.c" {
		t.Fatalf("persisted user = (%+v, %v, %v)", storedUser, found, err)
	}
	if value, ok := cookies.Read(); !ok || value != "tok-1" {
		t.Fatalf("cookie = (%q, %v)", value, ok)
	}
}

func TestClearWipesEverythingOnce(t *testing.T) {
	sess, kv, cookies := newTestStore(t)
	var redirects int32
	sess.Redirect = func(string) { atomic.AddInt32(&redirects, 1) }

	if err := sess.Set(api.User{Email: "a@b.c"}, "tok"); err != nil {
		t.Fatalf("set: %v", err)
	}
	atomic.StoreInt32(&redirects, 0)

	sess.Clear()
	sess.Clear()

	if got := atomic.LoadInt32(&redirects); got != 1 {
		t.Fatalf("redirects = %d, want 1", got)
	}
	if sess.Token() != "" || sess.User() != nil {
		t.Fatalf("session not emptied")
	}
	if value, _ := kv.Get(store.KeyAccessToken); value != "" {
		t.Fatalf("token survived clear: %q", value)
	}
	if _, ok := cookies.Read(); ok {
		t.Fatalf("cookie survived clear")
	}
}

func TestConcurrentUnauthorizedCollapsesToOneClear(t *testing.T) {
	sess, _, _ := newTestStore(t)
	var redirects int32
	sess.Redirect = func(string) { atomic.AddInt32(&redirects, 1) }

	if err := sess.Set(api.User{Email: "a@b.c"}, "tok"); err != nil {
		t.Fatalf("set: %v", err)
	}
	atomic.StoreInt32(&redirects, 0)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess.HandleUnauthorized(api.ErrUnauthorized)
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&redirects); got != 1 {
		t.Fatalf("redirects = %d, want exactly 1", got)
	}
}

func TestHandleUnauthorizedIgnoresOtherErrors(t *testing.T) {
	sess, _, _ := newTestStore(t)
	if err := sess.Set(api.User{Email: "a@b.c"}, "tok"); err != nil {
		t.Fatalf("set: %v", err)
	}

	if sess.HandleUnauthorized(&api.APIError{Status: 500}) {
		t.Fatalf("500 must not clear the session")
	}
	if sess.Token() != "tok" {
		t.Fatalf("session was cleared by a non-401 error")
	}
}

func TestHydrateWithoutCredentialsIsAnonymous(t *testing.T) {
	sess, _, _ := newTestStore(t)
	client := newBackend(t, http.StatusOK)

	if err := sess.Hydrate(context.Background(), client); err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	if sess.Status() != StatusAnonymous {
		t.Fatalf("status = %v, want anonymous", sess.Status())
	}
}

func TestHydrateConfirmsValidSession(t *testing.T) {
	sess, kv, _ := newTestStore(t)
	if err := kv.Set(store.KeyAccessToken, "tok"); err != nil {
		t.Fatalf("seed token: %v", err)
	}
	if err := kv.SetJSON(store.KeyUser, api.User{Email: "a@b.c"}); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	client := newBackend(t, http.StatusOK)
	if err := sess.Hydrate(context.Background(), client); err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	if !sess.IsAuthenticated() {
		t.Fatalf("status = %v, want authenticated", sess.Status())
	}
	if user := sess.User(); user == nil || user.Email != "a@b.c" {
		t.Fatalf("user = %+v", user)
	}
}

func TestHydrateRejectedTokenClearsSession(t *testing.T) {
	sess, kv, _ := newTestStore(t)
	var gotPath string
	sess.Redirect = func(path string) { gotPath = path }
	if err := kv.Set(store.KeyAccessToken, "stale"); err != nil {
		t.Fatalf("seed token: %v", err)
	}
	if err := kv.SetJSON(store.KeyUser, api.User{Email: "a@b.c"}); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	client := newBackend(t, http.StatusUnauthorized)
	if err := sess.Hydrate(context.Background(), client); err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	if sess.Status() != StatusAnonymous || sess.Token() != "" {
		t.Fatalf("rejected token must clear the session")
	}
	if gotPath != "/login" {
		t.Fatalf("redirect = %q, want /login", gotPath)
	}
	if value, _ := kv.Get(store.KeyAccessToken); value != "" {
		t.Fatalf("stale token survived: %q", value)
	}
}

func TestHydrateNetworkFailureKeepsCredentials(t *testing.T) {
	sess, kv, _ := newTestStore(t)
	if err := kv.Set(store.KeyAccessToken, "tok"); err != nil {
		t.Fatalf("seed token: %v", err)
	}
	if err := kv.SetJSON(store.KeyUser, api.User{Email: "a@b.c"}); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	client := api.NewClient("http://127.0.0.1:1", func() string { return "tok" }, nil)
	if err := sess.Hydrate(context.Background(), client); err == nil {
		t.Fatalf("expected transport error")
	}
	if sess.Status() != StatusUnknown {
		t.Fatalf("status = %v, want unknown", sess.Status())
	}
	if sess.Token() != "tok" {
		t.Fatalf("network blip must not drop the credential")
	}
	if value, _ := kv.Get(store.KeyAccessToken); value != "tok" {
		t.Fatalf("persisted token lost: %q", value)
	}
}

func TestTokenReaderTracksStore(t *testing.T) {
	_, kv, _ := newTestStore(t)
	read := TokenReader(kv)

	if got := read(); got != "" {
		t.Fatalf("empty store token = %q", got)
	}
	if err := kv.Set(store.KeyAccessToken, "fresh"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := read(); got != "fresh" {
		t.Fatalf("token = %q, want fresh", got)
	}
}
