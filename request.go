package acmecore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gnet "github.com/hlandau/goutils/net"
)

// Request is the Request Executor's (C5, spec.md §4.5) unit of work: one
// logical ACME operation, possibly retried several times in place before
// it resolves.
//
// A Request is built and discarded per call; it is not reused across
// Engine.send invocations.
type Request struct {
	engine *Engine

	Method string
	URL    string

	// protected carries protected-header entries stamped by the executor
	// (the nonce). During signing they are merged into the version
	// strategy's own additions (kid/url), taking precedence on a clash.
	protected map[string]interface{}

	// embedJWKOverride forces Sign to use an embedded-JWK protected header
	// instead of consulting the version strategy, for new-account requests
	// that predate having an account URL (see Engine.POSTNewAccount).
	embedJWKOverride bool

	// Payload is the request body before serialization. For a signed
	// request it is marshalled compactly and signed, so a nil Payload is
	// signed as the JSON literal null. For an unsigned request a non-nil
	// Payload is sent as plain JSON and a nil Payload sends no body.
	Payload interface{}

	// reqBody holds the final serialized (and, for signed requests, JWS
	// wrapped) request body, computed during send.
	reqBody []byte

	// Accept, if set, overrides the default JSON Accept header (used for
	// certificate-chain downloads by a higher-level caller, say).
	Accept string

	// Result, ResponseHeader and ResponseBody are populated once send
	// returns, successfully or not, for callers that want the raw
	// response alongside any decoded value.
	Result         ErrorKind
	ResponseStatus int
	ResponseHeader map[string][]string
	ResponseBody   []byte
}

// newRequest allocates a Request bound to e.
func (e *Engine) newRequest(method, url string) *Request {
	return &Request{
		engine:    e,
		Method:    method,
		URL:       url,
		protected: map[string]interface{}{},
	}
}

// send is the Request Executor (C5, spec.md §4.5), grounded on
// original_source/src/md_acme.c's md_acme_req_send and on
// hlandau-acmeapi/api.go's doReqAccept/doReqOneTry for the retry-loop and
// JWS-assembly idiom.
//
// signed requests must have e.accountKey set and, unless
// req.embedJWKOverride is set (new-account requests), e.account bound;
// unsigned (anonymous GET) requests pass signed=false.
func (e *Engine) send(ctx context.Context, req *Request, signed bool, out interface{}) error {
	backoff := gnet.Backoff{
		MaxTries:           e.maxRetries,
		InitialDelay:       100 * time.Millisecond,
		MaxDelay:           1 * time.Second,
		MaxDelayAfterTries: 4,
		Jitter:             0.10,
	}

	for {
		// Only non-idempotent (non-GET/HEAD) requests force directory
		// bootstrap; a plain GET/GetJSON against an already-known URL has
		// no need of the directory (spec.md §4.5 step 2).
		if signed && e.strategy == nil {
			if err := e.Setup(ctx); err != nil {
				return err
			}
		}

		err := e.sendOnce(ctx, req, signed, out)
		if err == nil {
			return nil
		}

		if rerr, ok := err.(*RequestError); ok {
			req.Result = rerr.Kind
			// A zero budget means no retries; gnet.Backoff treats MaxTries 0
			// as unlimited, so it is not consulted in that case.
			if rerr.Kind.Recoverable() && e.maxRetries > 0 && backoff.Sleep() {
				log.Debugf("retrying request to %s after %s: %v", req.URL, rerr.Kind, rerr)
				continue
			}
		}

		return err
	}
}

// sendOnce performs a single attempt: nonce refill, signing, dispatch,
// response handling and problem inspection, without any retry logic of
// its own (spec.md §4.5, one iteration of the bounded loop).
func (e *Engine) sendOnce(ctx context.Context, req *Request, signed bool, out interface{}) error {
	if !ValidURL(req.URL) {
		return ErrInvalidURL
	}

	// Only signed (POST) requests carry a nonce; GET/HEAD are never
	// protected by one (spec.md §4.2).
	if signed {
		if e.nonces.empty() {
			if err := e.refillNonce(ctx); err != nil {
				return err
			}
		}

		nonce, ok := e.nonces.consume()
		if !ok {
			return &RequestError{Kind: KindTransport}
		}
		req.protected["nonce"] = nonce
	}

	var body []byte
	switch {
	case signed:
		if err := req.Sign(req.Payload); err != nil {
			return err
		}
		body = req.reqBody
	case req.Payload != nil:
		b, err := json.Marshal(req.Payload)
		if err != nil {
			return &RequestError{Kind: KindBadRequest}
		}
		body = b
	}

	headers := map[string]string{}
	if body != nil {
		if signed {
			headers["Content-Type"] = "application/jose+json"
		} else {
			headers["Content-Type"] = "application/json"
		}
	}
	accept := req.Accept
	if accept == "" {
		accept = "application/json"
	}
	headers["Accept"] = accept

	switch req.Method {
	case "GET", "POST", "HEAD":
	default:
		return &RequestError{Kind: KindNotImplemented}
	}

	res, err := e.transport().Do(ctx, req.Method, req.URL, headers, body)
	if err != nil {
		return &RequestError{Kind: KindTransport}
	}

	e.nonces.observe(res.Header.Get("Replay-Nonce"))

	req.ResponseStatus = res.StatusCode
	req.ResponseHeader = map[string][]string(res.Header)
	req.ResponseBody = res.Body

	if res.StatusCode >= 200 && res.StatusCode < 300 {
		req.Result = KindNone
		if out != nil && len(res.Body) > 0 {
			if err := json.Unmarshal(res.Body, out); err != nil {
				return fmt.Errorf("acmecore: decoding response body: %w", err)
			}
		}
		return nil
	}

	return e.inspectProblem(res.StatusCode, res.Body, res.Header.Get("Content-Type"))
}

// refillNonce performs an unauthenticated HEAD against the bootstrapped
// version's new-nonce endpoint (spec.md §4.2), grounded on
// hlandau-acmeapi's obtainNewNonce and md_acme.c's acme->nonce refill via
// a HEAD against new_nonce_fn's URL.
func (e *Engine) refillNonce(ctx context.Context) error {
	url := e.strategy.newNonceURL()
	if !ValidURL(url) {
		return ErrInvalidURL
	}
	res, err := e.transport().Do(ctx, "HEAD", url, nil, nil)
	if err != nil {
		return &RequestError{Kind: KindTransport}
	}
	nonce := res.Header.Get("Replay-Nonce")
	if nonce == "" {
		return &RequestError{Kind: KindTransport}
	}
	e.nonces.observe(nonce)
	return nil
}

// inspectProblem is the Problem Inspector (spec.md §4.5, §7), grounded on
// md_acme.c's inspect_problem: parse an RFC 7807 body if the content type
// says so, classify its "type" member and log it at DEBUG (recoverable) or
// WARNING (surfaced); fall back to a bare status-keyed classification, with
// its own WARNING on the unrecognised-status case, when the body isn't a
// problem document at all.
func (e *Engine) inspectProblem(status int, body []byte, contentType string) error {
	var p *Problem
	if mediaType(contentType) == "application/problem+json" && len(body) > 0 {
		p = &Problem{}
		if err := json.Unmarshal(body, p); err != nil {
			p = nil
		}
	}

	if p != nil && p.Type != "" {
		kind := Classify(p.Type)
		if kind.Recoverable() {
			log.Debugf("acme reports %s: %s", p.Type, p.Detail)
		} else {
			log.Warnf("acme problem %s: %s", p.Type, p.Detail)
		}
		return &RequestError{Kind: kind, Status: status, Problem: p}
	}

	return &RequestError{Kind: classifyStatus(status), Status: status}
}

// mediaType strips any parameters (e.g. "; charset=utf-8") from a
// Content-Type header value, matching md_acme.c's inspect_problem doing a
// bare strcmp against "application/problem+json".
func mediaType(contentType string) string {
	for i, c := range contentType {
		if c == ';' {
			return contentType[:i]
		}
	}
	return contentType
}

// classifyStatus provides a fallback classification for error responses
// that did not carry a recognisable RFC 7807 problem document, grounded on
// md_acme.c's inspect_problem falling back to apr_status codes keyed off
// the raw HTTP status when the body cannot be parsed as a problem+json:
// 400/403/404 map directly, and anything else is Generic with a WARNING
// naming the status, exactly as inspect_problem's final switch does.
func classifyStatus(status int) ErrorKind {
	switch status {
	case 400:
		return KindBadRequest
	case 403:
		return KindForbidden
	case 404:
		return KindNotFound
	default:
		log.Warnf("acme problem unknown: http status %d", status)
		return KindGeneric
	}
}
