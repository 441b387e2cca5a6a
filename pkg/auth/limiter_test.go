package auth

import "testing"

func TestLimiterPoolDefaults(t *testing.T) {
	p := newLimiterPool(SecConfig{})
	if p.rps != defaultRPS || p.burst != defaultBurst {
		t.Fatalf("defaults not applied: rps=%v burst=%d", p.rps, p.burst)
	}
}

func TestLimiterPoolBurstPerKey(t *testing.T) {
	p := newLimiterPool(SecConfig{RPS: 1, Burst: 2})
	for i := 0; i < 2; i++ {
		if !p.Allow("key-a") {
			t.Fatalf("request %d within burst should be allowed", i)
		}
	}
	if p.Allow("key-a") {
		t.Fatal("request beyond burst should be limited")
	}
	// a different key has its own untouched bucket
	if !p.Allow("key-b") {
		t.Fatal("independent key should not share key-a's bucket")
	}
}
