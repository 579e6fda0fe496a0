package snapshot

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/floatdeck/datasync/internal/api"
	"github.com/floatdeck/datasync/internal/classify"
	"github.com/floatdeck/datasync/internal/link"
	"github.com/floatdeck/datasync/internal/queue"
	"github.com/floatdeck/datasync/internal/reconcile"
)

// snapshotServer serves the five bootstrap endpoints with canned data.
// responses maps path to raw data JSON; missing paths serve success=false.
func snapshotServer(t *testing.T, responses map[string]string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		data, ok := responses[r.URL.Path]
		if !ok {
			fmt.Fprint(w, `{"success":false,"error":"backend unavailable"}`)
			return
		}
		fmt.Fprintf(w, `{"success":true,"data":%s}`, data)
	}))
}

func fullResponses() map[string]string {
	return map[string]string{
		"/api/orders":       `[{"OrderID":"ord-1","ticker":"AAPL","status":"NEW"},{"OrderID":"ord-2","ticker":"TSLA","status":"PAR"}]`,
		"/api/float-lists":  `{"cfg-1":[{"ticker":"AAPL","price":187.2}]}`,
		"/api/toplists":     `{"momo":[{"ticker":"NVDA","rank":1}]}`,
		"/api/buy-feed":     `[{"ticker":"TSLA","price":242.0,"reason":"breakout"}]`,
		"/api/trigger-mode": `{"mode":"auto"}`,
	}
}

func TestLoad_InstallsAllSnapshots(t *testing.T) {
	server := snapshotServer(t, fullResponses())
	defer server.Close()

	stores := reconcile.NewStores()
	loader := New(api.NewClient(server.URL, ""), stores, nil)

	if err := loader.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := stores.Orders.Len(); got != 2 {
		t.Errorf("orders = %d, want 2", got)
	}
	if got := stores.Floats.Group("cfg-1"); len(got) != 1 || got[0].Ticker != "AAPL" {
		t.Errorf("float group = %+v, want [AAPL]", got)
	}
	if got := stores.Toplists.Group("momo"); len(got) != 1 || got[0].Ticker != "NVDA" {
		t.Errorf("toplist group = %+v, want [NVDA]", got)
	}
	if got := stores.Signals.Feed(); len(got) != 1 || got[0].Ticker != "TSLA" {
		t.Errorf("feed = %+v, want [TSLA]", got)
	}
	if mode := loader.TriggerMode(); mode != "auto" {
		t.Errorf("TriggerMode = %q, want %q", mode, "auto")
	}
}

func TestLoad_PartialFailureInstallsTheRest(t *testing.T) {
	responses := fullResponses()
	delete(responses, "/api/float-lists") // served as success=false

	server := snapshotServer(t, responses)
	defer server.Close()

	stores := reconcile.NewStores()
	loader := New(api.NewClient(server.URL, ""), stores, nil)

	err := loader.Load(context.Background())
	if err == nil {
		t.Fatal("Load succeeded despite failed endpoint")
	}
	if !strings.Contains(err.Error(), "float lists snapshot") {
		t.Errorf("err = %v, want it to name the failed endpoint", err)
	}

	// Every cleanly fetched snapshot is still installed.
	if got := stores.Orders.Len(); got != 2 {
		t.Errorf("orders = %d, want 2 despite float-list failure", got)
	}
	if got := stores.Signals.Len(); got != 1 {
		t.Errorf("feed = %d, want 1 despite float-list failure", got)
	}
	if got := stores.Floats.Len(); got != 0 {
		t.Errorf("float groups = %d, want 0", got)
	}
}

func TestLoad_IdempotentAfterSuccess(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		data := fullResponses()[r.URL.Path]
		fmt.Fprintf(w, `{"success":true,"data":%s}`, data)
	}))
	defer server.Close()

	loader := New(api.NewClient(server.URL, ""), reconcile.NewStores(), nil)

	if err := loader.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	after := calls

	if err := loader.Load(context.Background()); err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if calls != after {
		t.Errorf("second Load issued %d extra requests, want 0", calls-after)
	}
}

func TestLoad_SnapshotThenStreamUpdate(t *testing.T) {
	server := snapshotServer(t, fullResponses())
	defer server.Close()

	stores := reconcile.NewStores()
	loader := New(api.NewClient(server.URL, ""), stores, nil)

	frames := queue.New[link.Frame](8)
	cl := classify.New(frames, nil)
	reconcile.New(stores, nil).Bind(cl)

	// Frames queued during the snapshot fetch are held until dispatch
	// starts after the install.
	frames.Send(link.Frame{Data: []byte(`{"OrderID":"ord-1","ticker":"AAPL","status":"DON"}`)})

	if err := loader.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	ctx := context.Background()
	if err := cl.Start(ctx); err != nil {
		t.Fatalf("classifier start failed: %v", err)
	}

	// An order update for a snapshotted order replaces it without growing
	// the set.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if o, ok := stores.Orders.Get("ord-1"); ok && o.Status == "DON" {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	cl.Stop(ctx)

	if got := stores.Orders.Len(); got != 2 {
		t.Errorf("orders = %d, want 2 after in-place update", got)
	}
	o, ok := stores.Orders.Get("ord-1")
	if !ok || o.Status != "DON" {
		t.Errorf("ord-1 = %+v, want status DON applied over the snapshot", o)
	}
}
