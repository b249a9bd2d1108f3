package acmecore

import (
	"context"
	"crypto"
)

// GetJSON performs an unauthenticated GET against url and decodes a JSON
// response body into out (spec.md §4.6, grounded on md_acme_get_json).
// out may be nil if the caller only cares about success/failure.
func (e *Engine) GetJSON(ctx context.Context, url string, out interface{}) error {
	req := e.newRequest("GET", url)
	return e.send(ctx, req, false, out)
}

// GET performs an unauthenticated GET against url without presuming a JSON
// body, returning the raw response bytes (spec.md §4.6, md_acme_GET).
func (e *Engine) GET(ctx context.Context, url string) ([]byte, error) {
	req := e.newRequest("GET", url)
	if err := e.send(ctx, req, false, nil); err != nil {
		return nil, err
	}
	return req.ResponseBody, nil
}

// POST performs a signed POST of payload against url and, if out is
// non-nil, decodes the JSON response into it (spec.md §4.6, md_acme_POST).
// The engine must already have an account bound (see UseAccount,
// BindAccount); otherwise this returns ErrNoAccountBound.
func (e *Engine) POST(ctx context.Context, url string, payload interface{}, out interface{}) (*Request, error) {
	if e.account == nil {
		return nil, ErrNoAccountBound
	}
	req := e.newRequest("POST", url)
	req.Payload = payload
	if err := e.send(ctx, req, true, out); err != nil {
		return req, err
	}
	return req, nil
}

// POSTNewAccount signs payload with key and posts it to the realm's
// newAccount/new-reg endpoint, decoding the response into out (spec.md
// §4.6, md_acme_POST_new_account). Unlike POST, this does not require an
// account to already be bound: ACMEv2 new-account requests are signed with
// an embedded JWK, and ACMEv1 new-reg requests always are.
//
// On success, the caller is expected to bind the resulting account (whose
// URL is found in the response's Location header) via BindAccount before
// making further signed requests.
func (e *Engine) POSTNewAccount(ctx context.Context, payload interface{}, key crypto.PrivateKey, out interface{}) (*Request, error) {
	if e.strategy == nil {
		if err := e.Setup(ctx); err != nil {
			return nil, err
		}
	}

	url := e.strategy.newAccountURL()
	if !ValidURL(url) {
		return nil, ErrInvalidURL
	}

	req := e.newRequest("POST", url)
	req.Payload = payload
	req.embedJWKOverride = true

	prevKey := e.accountKey
	e.accountKey = key
	defer func() { e.accountKey = prevKey }()

	if err := e.send(ctx, req, true, out); err != nil {
		return req, err
	}
	return req, nil
}
