package status

import (
	"errors"
	"testing"
	"time"

	"github.com/solmesh/trade-engine/internal/domain"
)

func collect(t *testing.T, ch <-chan domain.StatusEvent, n int) []domain.StatusEvent {
	t.Helper()
	var out []domain.StatusEvent
	for len(out) < n {
		select {
		case event, ok := <-ch:
			if !ok {
				t.Fatalf("channel closed after %d events, want %d", len(out), n)
			}
			out = append(out, event)
		case <-time.After(time.Second):
			t.Fatalf("timed out after %d events, want %d", len(out), n)
		}
	}
	return out
}

func TestPublishOrdersEvents(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe("trade-1")
	defer cancel()

	h.Publish("trade-1", domain.PhaseQuoting, "", nil)
	h.Publish("trade-1", domain.PhaseBuilding, "aggregator", nil)
	h.Publish("trade-1", domain.PhaseEstimating, "", nil)

	events := collect(t, ch, 3)
	wantPhases := []domain.TradePhase{domain.PhaseQuoting, domain.PhaseBuilding, domain.PhaseEstimating}
	for i, event := range events {
		if event.Phase != wantPhases[i] {
			t.Errorf("event %d phase = %s, want %s", i, event.Phase, wantPhases[i])
		}
		if event.Seq != uint64(i+1) {
			t.Errorf("event %d seq = %d, want %d", i, event.Seq, i+1)
		}
	}
	if events[1].Detail != "aggregator" {
		t.Errorf("detail = %q, want aggregator", events[1].Detail)
	}
}

func TestLateSubscriberGetsReplay(t *testing.T) {
	h := NewHub()
	h.Publish("trade-1", domain.PhaseQuoting, "", nil)
	h.Publish("trade-1", domain.PhaseBuilding, "", nil)

	ch, cancel := h.Subscribe("trade-1")
	defer cancel()

	events := collect(t, ch, 2)
	if events[0].Phase != domain.PhaseQuoting || events[1].Phase != domain.PhaseBuilding {
		t.Errorf("replay out of order: %v", events)
	}

	h.Publish("trade-1", domain.PhaseEstimating, "", nil)
	live := collect(t, ch, 1)
	if live[0].Seq != 3 {
		t.Errorf("live event seq = %d, want 3", live[0].Seq)
	}
}

func TestTerminalPhaseClosesStream(t *testing.T) {
	h := NewHub()
	ch, _ := h.Subscribe("trade-1")

	h.Publish("trade-1", domain.PhaseConfirming, "", nil)
	h.Publish("trade-1", domain.PhaseConfirmed, "", nil)

	collect(t, ch, 2)
	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel after terminal phase")
		}
	case <-time.After(time.Second):
		t.Error("channel not closed after terminal phase")
	}

	// publishing after the terminal phase is a no-op
	h.Publish("trade-1", domain.PhaseFailed, "", errors.New("late"))
	if got := len(h.Events("trade-1")); got != 2 {
		t.Errorf("events after post-terminal publish = %d, want 2", got)
	}
}

func TestSubscribeAfterTerminalReplaysAndCloses(t *testing.T) {
	h := NewHub()
	h.Publish("trade-1", domain.PhaseQuoting, "", nil)
	h.Publish("trade-1", domain.PhaseFailed, "", errors.New("no venue"))

	ch, cancel := h.Subscribe("trade-1")
	defer cancel()

	events := collect(t, ch, 2)
	if events[1].Phase != domain.PhaseFailed || events[1].Error == "" {
		t.Errorf("terminal event = %+v, want failed with error text", events[1])
	}
	if _, ok := <-ch; ok {
		t.Error("stream for a finished trade must come pre-closed")
	}
}

func TestCancelDetachesSubscriber(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe("trade-1")
	cancel()

	if _, ok := <-ch; ok {
		t.Error("cancel should close the subscriber channel")
	}

	// must not panic on a detached channel
	h.Publish("trade-1", domain.PhaseQuoting, "", nil)
}

func TestDrop(t *testing.T) {
	h := NewHub()
	h.Publish("trade-1", domain.PhaseQuoting, "", nil)
	h.Drop("trade-1")

	if h.Events("trade-1") != nil {
		t.Error("dropped trade should have no events")
	}
}

func TestStreamsAreIndependent(t *testing.T) {
	h := NewHub()
	ch1, cancel1 := h.Subscribe("trade-1")
	ch2, cancel2 := h.Subscribe("trade-2")
	defer cancel1()
	defer cancel2()

	h.Publish("trade-1", domain.PhaseQuoting, "", nil)
	h.Publish("trade-2", domain.PhaseQuoting, "", nil)
	h.Publish("trade-2", domain.PhaseBuilding, "", nil)

	if events := collect(t, ch1, 1); events[0].TradeID != "trade-1" {
		t.Errorf("trade-1 stream got %s", events[0].TradeID)
	}
	events := collect(t, ch2, 2)
	if events[1].Seq != 2 {
		t.Errorf("trade-2 seq = %d, want its own counter", events[1].Seq)
	}
}
