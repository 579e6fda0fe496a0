package classify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/floatdeck/datasync/internal/link"
	"github.com/floatdeck/datasync/internal/queue"
)

func newTestClassifier() *Classifier {
	return New(queue.New[link.Frame](8), nil)
}

func TestClassify_DispatchByKind(t *testing.T) {
	c := newTestClassifier()

	var got json.RawMessage
	c.Handle(KindBuySignal, func(payload json.RawMessage) error {
		got = payload
		return nil
	})

	c.classify([]byte(`{"type":"BUY_SIGNAL","data":{"ticker":"AAPL","price":12.5}}`))

	if string(got) != `{"ticker":"AAPL","price":12.5}` {
		t.Errorf("payload = %s, want inner data object", got)
	}

	stats := c.Stats()
	if stats.Dispatched != 1 || stats.Received != 1 {
		t.Errorf("stats = %+v, want 1 received, 1 dispatched", stats)
	}
}

func TestClassify_ControlFramesInert(t *testing.T) {
	c := newTestClassifier()

	called := false
	c.Handle(KindBuySignal, func(json.RawMessage) error {
		called = true
		return nil
	})
	c.HandleOrder(func(json.RawMessage) error {
		called = true
		return nil
	})

	c.classify([]byte(`{"Heartbeat":true}`))
	c.classify([]byte(`{"StreamStatus":{"connected":true,"uptime":120}}`))

	if called {
		t.Error("control frames must not reach any handler")
	}

	stats := c.Stats()
	if stats.Control != 2 {
		t.Errorf("Control = %d, want 2", stats.Control)
	}
	if stats.Dispatched != 0 {
		t.Errorf("Dispatched = %d, want 0", stats.Dispatched)
	}
}

func TestClassify_MalformedFrameDropped(t *testing.T) {
	c := newTestClassifier()
	c.Handle(KindToplist, func(json.RawMessage) error {
		t.Error("malformed frame reached a handler")
		return nil
	})

	c.classify([]byte(`{"type":"TOPLIST_UPDATE","data":`))
	c.classify([]byte(`not json at all`))

	stats := c.Stats()
	if stats.ParseErrors != 2 {
		t.Errorf("ParseErrors = %d, want 2", stats.ParseErrors)
	}
}

func TestClassify_UnknownKindDropped(t *testing.T) {
	c := newTestClassifier()
	c.Handle(KindBuySignal, func(json.RawMessage) error {
		t.Error("unknown kind reached the wrong handler")
		return nil
	})

	c.classify([]byte(`{"type":"FUTURE_FEATURE","data":{}}`))

	stats := c.Stats()
	if stats.Unknown != 1 {
		t.Errorf("Unknown = %d, want 1", stats.Unknown)
	}
}

func TestClassify_OrderShapeFallback(t *testing.T) {
	c := newTestClassifier()

	frame := []byte(`{"OrderID":"ord-9","ticker":"TSLA","status":"FIL"}`)

	var got json.RawMessage
	c.HandleOrder(func(payload json.RawMessage) error {
		got = payload
		return nil
	})

	c.classify(frame)

	// The order family has no envelope; the handler sees the whole frame.
	if string(got) != string(frame) {
		t.Errorf("payload = %s, want whole frame", got)
	}
	if stats := c.Stats(); stats.Dispatched != 1 {
		t.Errorf("Dispatched = %d, want 1", stats.Dispatched)
	}
}

func TestClassify_NoDiscriminantNoOrderID(t *testing.T) {
	c := newTestClassifier()
	c.HandleOrder(func(json.RawMessage) error {
		t.Error("frame without OrderID reached the order handler")
		return nil
	})

	c.classify([]byte(`{"something":"else"}`))

	if stats := c.Stats(); stats.Unknown != 1 {
		t.Errorf("Unknown = %d, want 1", stats.Unknown)
	}
}

func TestClassify_HandlerErrorSkipsFrame(t *testing.T) {
	c := newTestClassifier()
	c.Handle(KindFloatList, func(json.RawMessage) error {
		return errors.New("missing group key")
	})

	c.classify([]byte(`{"type":"FLOAT_LIST_VALIDATED","data":{}}`))

	stats := c.Stats()
	if stats.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", stats.Skipped)
	}
	if stats.Dispatched != 0 {
		t.Errorf("Dispatched = %d, want 0", stats.Dispatched)
	}
}

func TestClassifier_StartStop(t *testing.T) {
	in := queue.New[link.Frame](8)
	c := New(in, nil)

	done := make(chan string, 1)
	c.Handle(KindBuySignal, func(payload json.RawMessage) error {
		done <- string(payload)
		return nil
	})

	ctx := context.Background()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	in.Send(link.Frame{Data: []byte(`{"type":"BUY_SIGNAL","data":{"id":"s1"}}`)})

	got := <-done
	if got != `{"id":"s1"}` {
		t.Errorf("payload = %s, want signal data", got)
	}

	if err := c.Stop(ctx); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
}
