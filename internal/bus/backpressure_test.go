package bus

import (
	"errors"
	"testing"
	"time"
)

func TestNewBackpressureFloorsNegativeRetryAfter(t *testing.T) {
	bp := NewBackpressure("trades", 2, -5*time.Second)
	if bp.RetryAfter != 0 {
		t.Errorf("got RetryAfter %s, want 0", bp.RetryAfter)
	}
}

func TestAsBackpressureUnwraps(t *testing.T) {
	bp := NewBackpressure("candles", 0, 3*time.Second)
	var err error = bp

	got, ok := AsBackpressure(err)
	if !ok {
		t.Fatal("expected AsBackpressure to recognize a *Backpressure")
	}
	if got != bp {
		t.Errorf("got %+v, want the same instance %+v", got, bp)
	}
}

func TestAsBackpressureRejectsPlainError(t *testing.T) {
	_, ok := AsBackpressure(errors.New("boom"))
	if ok {
		t.Error("expected AsBackpressure to reject a plain error")
	}
}

func TestBackpressureErrorMessage(t *testing.T) {
	bp := NewBackpressure("news", 1, time.Second)
	msg := bp.Error()
	if msg == "" {
		t.Error("expected non-empty error message")
	}
}
