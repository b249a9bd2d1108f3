package acmecore

import "sync"

// nonceReservoir holds at most one unused replay nonce (spec.md §3, §4.2).
//
// Unlike hlandau-acmeapi's nonce.go, which pools nonces because RealmClient
// is safe for concurrent use, this holds a single scalar: spec.md §5 makes
// single-engine use strictly sequential, so there is never more than one
// nonce in flight. This mirrors mod_md's single acme->nonce field
// (original_source/src/md_acme.c, req_update_nonce/http_update_nonce)
// directly.
type nonceReservoir struct {
	mu    sync.Mutex
	nonce string
}

// observe records a nonce seen in a response header, overwriting whatever
// was previously held (spec.md testable property 2: nonce monotonicity).
func (r *nonceReservoir) observe(nonce string) {
	if nonce == "" {
		return
	}
	r.mu.Lock()
	r.nonce = nonce
	r.mu.Unlock()
}

// consume returns the held nonce, if any, and clears the reservoir.
func (r *nonceReservoir) consume() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.nonce == "" {
		return "", false
	}
	n := r.nonce
	r.nonce = ""
	return n, true
}

// empty reports whether the reservoir currently holds no nonce.
func (r *nonceReservoir) empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.nonce == ""
}
