package acmecore

import (
	"context"
	"crypto"
)

// Account is the storage collaborator's view of an ACME account (spec.md
// §6). Unlike hlandau-acmeapi's Account, which mirrors the full RFC 8555
// account resource (status, contacts, orders URL, agreement flag), this
// engine only needs enough to address and sign requests as the account;
// everything else is the concern of a higher-level orchestrator built on
// top of this package.
type Account struct {
	// URL is the account resource URL returned by the server (the "kid"
	// used in ACMEv2 signed requests).
	URL string

	// CAURL is the directory URL of the realm this account was registered
	// against. UseAccount refuses to bind an account whose CAURL does not
	// match the engine's own directory URL.
	CAURL string

	// State is an opaque blob the storage collaborator may use to persist
	// whatever additional account state its caller cares about (contacts,
	// agreement timestamp, etc). The engine never inspects it.
	State []byte
}

// AccountStore is the storage collaborator (spec.md §6): it knows how to
// load and save an (Account, private key) pair by an opaque id. The engine
// never defines what an id means; that is entirely up to the store.
type AccountStore interface {
	LoadAccount(ctx context.Context, id string) (*Account, crypto.PrivateKey, error)

	// SaveAccount persists acct/key under id, or allocates a new id if id
	// is "". It returns the id the pair was saved under.
	SaveAccount(ctx context.Context, id string, acct *Account, key crypto.PrivateKey) (string, error)
}

// AccountValidator is the optional account-validation collaborator invoked
// by UseAccount after a candidate account has passed the CA-URL check
// (spec.md §4.6). A typical implementation confirms the account is still
// in good standing by making a signed POST-as-GET against its URL.
type AccountValidator interface {
	ValidateAccount(ctx context.Context, e *Engine) error
}
