package ratelimit

import (
	"testing"
	"time"
)

func TestTokenBucketAllow(t *testing.T) {
	tb := NewTokenBucket(3, time.Hour)

	for i := 0; i < 3; i++ {
		if !tb.Allow() {
			t.Fatalf("Request %d should be allowed", i+1)
		}
	}

	if tb.Allow() {
		t.Error("Fourth request should be denied")
	}
}

func TestTokenBucketRefill(t *testing.T) {
	tb := NewTokenBucket(2, 50*time.Millisecond)

	tb.Allow()
	tb.Allow()
	if tb.Allow() {
		t.Fatal("Bucket should be empty")
	}

	time.Sleep(60 * time.Millisecond)

	if !tb.Allow() {
		t.Error("Bucket should have refilled after the period")
	}
}

func TestTokenBucketReset(t *testing.T) {
	tb := NewTokenBucket(1, time.Hour)

	tb.Allow()
	if tb.Allow() {
		t.Fatal("Bucket should be empty")
	}

	tb.Reset()

	if !tb.Allow() {
		t.Error("Reset should restore the budget")
	}
}

func TestTokenBucketWait(t *testing.T) {
	tb := NewTokenBucket(1, 30*time.Millisecond)
	tb.Allow()

	start := time.Now()
	tb.Wait()
	elapsed := time.Since(start)

	if elapsed < 10*time.Millisecond {
		t.Errorf("Wait returned too quickly: %v", elapsed)
	}
	if elapsed > 500*time.Millisecond {
		t.Errorf("Wait took too long: %v", elapsed)
	}
}

func TestUnlimited(t *testing.T) {
	var l Limiter = Unlimited{}

	for i := 0; i < 1000; i++ {
		if !l.Allow() {
			t.Fatal("Unlimited must always allow")
		}
	}

	done := make(chan struct{})
	go func() {
		l.Wait()
		l.Reset()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Unlimited.Wait must not block")
	}
}
