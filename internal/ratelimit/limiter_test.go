package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestAllowConsumesTokensThenDenies(t *testing.T) {
	l := New(2, time.Hour)
	if !l.Allow() {
		t.Fatal("expected first Allow to succeed")
	}
	if !l.Allow() {
		t.Fatal("expected second Allow to succeed")
	}
	if l.Allow() {
		t.Fatal("expected third Allow to fail: bucket exhausted")
	}
}

func TestAllowRefillsOverTime(t *testing.T) {
	l := New(1, 10*time.Millisecond)
	if !l.Allow() {
		t.Fatal("expected first Allow to succeed")
	}
	time.Sleep(20 * time.Millisecond)
	if !l.Allow() {
		t.Fatal("expected Allow to succeed after refill")
	}
}

func TestWaitRespectsContextCancellation(t *testing.T) {
	l := New(1, time.Hour)
	l.Allow() // exhaust the only token

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	if err := l.Wait(ctx); err == nil {
		t.Fatal("expected Wait to return context error")
	}
}

func TestJitteredBackoffStaysWithinBounds(t *testing.T) {
	base := 100 * time.Millisecond
	for i := 0; i < 50; i++ {
		d := JitteredBackoff(base, 0.3)
		if d < 70*time.Millisecond || d > 130*time.Millisecond {
			t.Errorf("JitteredBackoff = %v, out of [70ms,130ms]", d)
		}
	}
}

func TestJitteredBackoffZeroPctIsIdentity(t *testing.T) {
	base := 50 * time.Millisecond
	if got := JitteredBackoff(base, 0); got != base {
		t.Errorf("JitteredBackoff(0 pct) = %v, want %v", got, base)
	}
}
