package tasks

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"taskflow/internal/api"
	"taskflow/internal/app"
	"taskflow/internal/session"
	"taskflow/internal/store"
)

func newTestNotifier(t *testing.T, handler http.Handler) *Notifier {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	kv := store.New(dir)
	t.Cleanup(func() { kv.Close() })
	logger := app.NewLogger(io.Discard, false)
	sess := session.NewStore(kv, store.NewCookieFile(dir), logger)
	if err := sess.Set(api.User{Email: "a@b.c"}, "tok"); err != nil {
		t.Fatalf("seed session: %v", err)
	}

	client := api.NewClient(srv.URL, session.TokenReader(kv), nil)
	return NewNotifier(client, sess, logger)
}

func TestPollReportsOnlyUnseenTasks(t *testing.T) {
	var round int32
	n := newTestNotifier(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&round, 1) == 1 {
			w.Write([]byte(`[{"id":"t1","title":"one","priority":"low","tags":[]}]`))
			return
		}
		w.Write([]byte(`[{"id":"t1","title":"one","priority":"low","tags":[]},{"id":"t2","title":"two","priority":"low","tags":[]}]`))
	}))

	fresh, err := n.Poll(context.Background())
	if err != nil {
		t.Fatalf("first poll: %v", err)
	}
	if len(fresh) != 1 || fresh[0].ID != "t1" {
		t.Fatalf("first poll fresh = %+v", fresh)
	}

	fresh, err = n.Poll(context.Background())
	if err != nil {
		t.Fatalf("second poll: %v", err)
	}
	if len(fresh) != 1 || fresh[0].ID != "t2" {
		t.Fatalf("second poll should surface only t2, got %+v", fresh)
	}
	if got := n.Current(); len(got) != 2 {
		t.Fatalf("current = %+v", got)
	}
}

func TestPollForgetsTasksThatDropOut(t *testing.T) {
	var round int32
	n := newTestNotifier(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&round, 1) {
		case 1:
			w.Write([]byte(`[{"id":"t1","title":"one","priority":"low","tags":[]}]`))
		case 2:
			w.Write([]byte(`[]`))
		default:
			w.Write([]byte(`[{"id":"t1","title":"one","priority":"low","tags":[]}]`))
		}
	}))

	for i := 0; i < 2; i++ {
		if _, err := n.Poll(context.Background()); err != nil {
			t.Fatalf("poll %d: %v", i, err)
		}
	}
	// t1 left the due-soon window and came back; it notifies again.
	fresh, err := n.Poll(context.Background())
	if err != nil {
		t.Fatalf("third poll: %v", err)
	}
	if len(fresh) != 1 || fresh[0].ID != "t1" {
		t.Fatalf("returning task should notify again, got %+v", fresh)
	}
}

func TestPollCallsOnNew(t *testing.T) {
	n := newTestNotifier(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"t1","title":"one","priority":"low","tags":[]}]`))
	}))

	var got []string
	n.OnNew = func(task api.Task) { got = append(got, task.ID) }
	if _, err := n.Poll(context.Background()); err != nil {
		t.Fatalf("poll: %v", err)
	}
	if len(got) != 1 || got[0] != "t1" {
		t.Fatalf("OnNew calls = %v", got)
	}
}
