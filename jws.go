package acmecore

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"encoding/json"
	"fmt"

	"gopkg.in/square/go-jose.v2"
)

// Signer is the crypto collaborator (spec.md §6): deterministic JWS signing
// over a payload, a set of extra protected headers, and a signing key.
// Callers may supply their own (e.g. to sign with an HSM-backed key); the
// default implementation, joseSigner, wraps go-jose.v2, the same library
// hlandau-acmeapi/api.go uses.
type Signer interface {
	// Sign produces the compact-or-full JWS serialization of payload,
	// merging extraProtected into the protected header. If embedJWK is
	// true, the public key is embedded (ACMEv1 style); otherwise the
	// caller is expected to have already set "kid" in extraProtected
	// (ACMEv2 style).
	Sign(payload []byte, extraProtected map[string]interface{}, key crypto.PrivateKey, embedJWK bool) ([]byte, error)
}

type joseSigner struct{}

// DefaultSigner is the package-provided Signer, backed by go-jose.v2.
var DefaultSigner Signer = joseSigner{}

func (joseSigner) Sign(payload []byte, extraProtected map[string]interface{}, key crypto.PrivateKey, embedJWK bool) ([]byte, error) {
	alg, err := algorithmFromKey(key)
	if err != nil {
		return nil, err
	}

	headers := map[jose.HeaderKey]interface{}{}
	for k, v := range extraProtected {
		headers[jose.HeaderKey(k)] = v
	}

	signKey := jose.SigningKey{Algorithm: alg, Key: key}
	opts := &jose.SignerOptions{
		EmbedJWK:     embedJWK,
		ExtraHeaders: headers,
	}

	signer, err := jose.NewSigner(signKey, opts)
	if err != nil {
		return nil, err
	}

	sig, err := signer.Sign(payload)
	if err != nil {
		return nil, err
	}

	return []byte(sig.FullSerialize()), nil
}

// algorithmFromKey picks the JWS algorithm for a private key, grounded on
// hlandau-acmeapi/api.go's algorithmFromKey.
func algorithmFromKey(key crypto.PrivateKey) (jose.SignatureAlgorithm, error) {
	switch k := key.(type) {
	case *rsa.PrivateKey:
		return jose.RS256, nil
	case *ecdsa.PrivateKey:
		switch k.Curve.Params().Name {
		case "P-256":
			return jose.ES256, nil
		case "P-384":
			return jose.ES384, nil
		case "P-521":
			return jose.ES512, nil
		default:
			return "", fmt.Errorf("acmecore: unsupported ECDSA curve: %s", k.Curve.Params().Name)
		}
	default:
		return "", fmt.Errorf("acmecore: unsupported private key type: %T", key)
	}
}

// Sign is the JWS Envelope Builder (C4, spec.md §4.4). The executor
// (sendOnce) calls it once the nonce has been stamped into the request's
// protected headers; the version strategy then adds kid/url (V2) or selects
// an embedded JWK (V1). payload is marshalled compactly, matching mod_md's
// MD_JSON_FMT_COMPACT (original_source/src/md_acme.c, acmev1_req_init /
// acmev2_req_init).
func (req *Request) Sign(payload interface{}) error {
	e := req.engine

	body, err := json.Marshal(payload)
	if err != nil {
		return &RequestError{Kind: KindBadRequest}
	}

	var versionHeaders map[string]interface{}
	var embedJWK bool
	if req.embedJWKOverride {
		// New-account requests (both ACME dialects) sign with the public
		// key embedded directly, since no account URL exists yet to use
		// as "kid" (original_source/src/md_acme.c, POST_new_account).
		versionHeaders = map[string]interface{}{"url": req.URL}
		embedJWK = true
	} else {
		if e.account == nil {
			return &RequestError{Kind: KindBadRequest}
		}
		versionHeaders, embedJWK, err = e.strategy.buildProtected(e, req)
		if err != nil {
			return &RequestError{Kind: KindBadRequest}
		}
	}
	for k, v := range req.protected {
		versionHeaders[k] = v
	}

	key := e.accountKey
	signer := e.signer
	if signer == nil {
		signer = DefaultSigner
	}

	out, err := signer.Sign(body, versionHeaders, key, embedJWK)
	if err != nil {
		return &RequestError{Kind: KindBadRequest}
	}

	req.reqBody = out
	return nil
}
