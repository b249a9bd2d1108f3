package acmecore

import (
	"context"
	"encoding/json"
	"fmt"
)

// Version identifies the ACME protocol dialect an Engine has bootstrapped
// against (spec.md §3).
type Version int

const (
	// VersionUnknown is the initial state, before Setup has run.
	VersionUnknown Version = iota
	// VersionV1 is the pre-RFC8555 ACME dialect (new-reg/new-authz/new-cert).
	VersionV1
	// VersionV2 is the RFC8555 ACME dialect (newAccount/newOrder/newNonce).
	VersionV2
)

func (v Version) String() string {
	switch v {
	case VersionV1:
		return "v1"
	case VersionV2:
		return "v2"
	default:
		return "unknown"
	}
}

// EndpointsV1 is the ACMEv1 endpoint table (spec.md §3).
type EndpointsV1 struct {
	NewAuthz       string
	NewCert        string
	NewReg         string
	RevokeCert     string
	TermsOfService string
}

func (e EndpointsV1) complete() bool {
	return e.NewAuthz != "" && e.NewCert != "" && e.NewReg != "" && e.RevokeCert != ""
}

// EndpointsV2 is the ACMEv2 (RFC 8555) endpoint table (spec.md §3).
type EndpointsV2 struct {
	NewAccount     string
	NewOrder       string
	RevokeCert     string
	KeyChange      string
	NewNonce       string
	TermsOfService string
}

func (e EndpointsV2) complete() bool {
	return e.NewAccount != "" && e.NewOrder != "" && e.RevokeCert != "" &&
		e.KeyChange != "" && e.NewNonce != ""
}

// versionStrategy is the per-version behaviour mod_md selects via function
// pointers (new_nonce_fn/req_init_fn/post_new_account_fn in md_acme.c).
// spec.md §9 directs re-architecting that dispatch as a tagged variant; in
// Go the natural shape is this small interface, with one implementation per
// Version, set once by Setup and never mutated afterwards.
type versionStrategy interface {
	// newNonceURL returns the URL to HEAD to refill the nonce reservoir.
	newNonceURL() string
	// buildProtected returns the version-specific protected header
	// additions (embedded JWK vs kid) for a signed request.
	buildProtected(e *Engine, req *Request) (protected map[string]interface{}, embedJWK bool, err error)
	// newAccountURL returns the endpoint POST_new_account dispatches to.
	newAccountURL() string
	// termsOfService returns the realm's terms-of-service URL, if any.
	termsOfService() string
}

type v1Strategy struct {
	endpoints EndpointsV1
}

func (s *v1Strategy) newNonceURL() string { return s.endpoints.NewReg }

func (s *v1Strategy) buildProtected(e *Engine, req *Request) (map[string]interface{}, bool, error) {
	if e.account == nil {
		return nil, false, ErrNoAccountBound
	}
	// ACMEv1 signs with an embedded JWK; there is no "url" protected header.
	return map[string]interface{}{}, true, nil
}

func (s *v1Strategy) newAccountURL() string  { return s.endpoints.NewReg }
func (s *v1Strategy) termsOfService() string { return s.endpoints.TermsOfService }

type v2Strategy struct {
	endpoints EndpointsV2
}

func (s *v2Strategy) newNonceURL() string { return s.endpoints.NewNonce }

func (s *v2Strategy) buildProtected(e *Engine, req *Request) (map[string]interface{}, bool, error) {
	if e.account == nil {
		return nil, false, ErrNoAccountBound
	}
	return map[string]interface{}{
		"kid": e.account.URL,
		"url": req.URL,
	}, false, nil
}

func (s *v2Strategy) newAccountURL() string  { return s.endpoints.NewAccount }
func (s *v2Strategy) termsOfService() string { return s.endpoints.TermsOfService }

// directoryDoc is the raw JSON shape of an ACME directory document; it
// carries both the V1 and V2 field sets (spec.md §6) so a single decode can
// discriminate on which are present, exactly as md_acme_setup does by
// probing for "new-authz" then "newAccount".
type directoryDoc struct {
	// V1 fields.
	NewAuthz   string `json:"new-authz"`
	NewCert    string `json:"new-cert"`
	NewReg     string `json:"new-reg"`
	RevokeCert string `json:"revoke-cert"`

	// V2 fields.
	NewAccount  string `json:"newAccount"`
	NewOrder    string `json:"newOrder"`
	RevokeCert2 string `json:"revokeCert"`
	KeyChange   string `json:"keyChange"`
	NewNonce    string `json:"newNonce"`

	Meta struct {
		TermsOfServiceV1 string `json:"terms-of-service"`
		TermsOfServiceV2 string `json:"termsOfService"`
	} `json:"meta"`
}

// Setup performs directory bootstrap (C3, spec.md §4.3). It is idempotent
// on success: calling it again re-fetches and re-commits the directory.
//
// Setup first resets the engine to VersionUnknown with no strategy, so on
// any failure path the engine is left unbootstrapped (the endpoint tables
// from an earlier successful Setup are not cleared, but are no longer
// reported by EndpointsV1/EndpointsV2). Failure to reach the directory is
// reported as-is (a transport error); per spec.md §4.3 the resolver does
// not itself loop on network errors.
func (e *Engine) Setup(ctx context.Context) error {
	e.version = VersionUnknown
	e.strategy = nil

	var doc directoryDoc
	raw, err := e.getJSONRaw(ctx, e.directoryURL)
	if err != nil {
		log.Warnf("unsuccessful in contacting ACME server at %s; check network connectivity "+
			"and that the server is reachable; this may be transient", e.directoryURL)
		return err
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("acmecore: decoding directory document: %w", err)
	}

	switch {
	case doc.NewAuthz != "":
		eps := EndpointsV1{
			NewAuthz:       doc.NewAuthz,
			NewCert:        doc.NewCert,
			NewReg:         doc.NewReg,
			RevokeCert:     doc.RevokeCert,
			TermsOfService: doc.Meta.TermsOfServiceV1,
		}
		if !eps.complete() {
			return ErrMissingEndpoints
		}
		e.endpointsV1 = eps
		e.strategy = &v1Strategy{endpoints: eps}
		e.version = VersionV1

	case doc.NewAccount != "":
		eps := EndpointsV2{
			NewAccount:     doc.NewAccount,
			NewOrder:       doc.NewOrder,
			RevokeCert:     doc.RevokeCert2,
			KeyChange:      doc.KeyChange,
			NewNonce:       doc.NewNonce,
			TermsOfService: doc.Meta.TermsOfServiceV2,
		}
		if !eps.complete() {
			return ErrMissingEndpoints
		}
		e.endpointsV2 = eps
		e.strategy = &v2Strategy{endpoints: eps}
		e.version = VersionV2

	default:
		log.Warnf("unable to understand ACME server response at %s: no recognised directory keys", e.directoryURL)
		return &RequestError{Kind: KindBadRequest}
	}

	return nil
}

// getJSONRaw performs an unauthenticated GET and returns the raw JSON body,
// without going through the full Request executor (the directory fetch
// itself cannot depend on a version having already been resolved).
func (e *Engine) getJSONRaw(ctx context.Context, url string) ([]byte, error) {
	if !ValidURL(url) {
		return nil, ErrInvalidURL
	}
	res, err := e.transport().Do(ctx, "GET", url, nil, nil)
	if err != nil {
		return nil, err
	}
	e.nonces.observe(res.Header.Get("Replay-Nonce"))
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("acmecore: directory fetch returned status %d", res.StatusCode)
	}
	return res.Body, nil
}

// TermsOfServiceURL returns the realm's current terms-of-service URL, if
// known. Returns "" before Setup has run successfully.
func (e *Engine) TermsOfServiceURL() string {
	if e.strategy == nil {
		return ""
	}
	return e.strategy.termsOfService()
}

// EndpointsV1 returns the resolved V1 endpoint table and true, or the zero
// value and false if the engine is not bootstrapped against V1.
func (e *Engine) EndpointsV1() (EndpointsV1, bool) {
	return e.endpointsV1, e.version == VersionV1
}

// EndpointsV2 returns the resolved V2 endpoint table and true, or the zero
// value and false if the engine is not bootstrapped against V2.
func (e *Engine) EndpointsV2() (EndpointsV2, bool) {
	return e.endpointsV2, e.version == VersionV2
}
