package acmecore

import "testing"

func TestNonceReservoirEmpty(t *testing.T) {
	var r nonceReservoir
	if !r.empty() {
		t.Fatal("fresh reservoir should be empty")
	}
	if _, ok := r.consume(); ok {
		t.Fatal("consume on empty reservoir should fail")
	}
}

func TestNonceReservoirObserveConsume(t *testing.T) {
	var r nonceReservoir
	r.observe("abc123")
	if r.empty() {
		t.Fatal("reservoir should not be empty after observe")
	}
	n, ok := r.consume()
	if !ok || n != "abc123" {
		t.Fatalf("consume() = %q, %v; want %q, true", n, ok, "abc123")
	}
	if !r.empty() {
		t.Fatal("reservoir should be empty after consume")
	}
}

func TestNonceReservoirObserveOverwrites(t *testing.T) {
	var r nonceReservoir
	r.observe("first")
	r.observe("second")
	n, ok := r.consume()
	if !ok || n != "second" {
		t.Fatalf("consume() = %q, %v; want %q, true", n, ok, "second")
	}
}

func TestNonceReservoirObserveEmptyIgnored(t *testing.T) {
	var r nonceReservoir
	r.observe("kept")
	r.observe("")
	n, ok := r.consume()
	if !ok || n != "kept" {
		t.Fatalf("observing an empty nonce should not clear the reservoir, got %q, %v", n, ok)
	}
}
