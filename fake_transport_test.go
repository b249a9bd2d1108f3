package acmecore

import (
	"context"
	"encoding/json"
)

// fakeTransport is a scripted Transport double for exercising the
// directory resolver and request executor without a network, following
// the same stand-in-for-the-network style as hlandau-acmeapi's
// pebbletest package, but fully in-process and deterministic.
type fakeTransport struct {
	calls []fakeCall
	steps []func(method, url string, headers map[string]string, body []byte) (*Response, error)
}

type fakeCall struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

func (f *fakeTransport) Do(ctx context.Context, method, url string, headers map[string]string, body []byte) (*Response, error) {
	f.calls = append(f.calls, fakeCall{Method: method, URL: url, Headers: headers, Body: body})
	idx := len(f.calls) - 1
	if idx >= len(f.steps) {
		panic("fakeTransport: no script step for call " + method + " " + url)
	}
	return f.steps[idx](method, url, headers, body)
}

func jsonResponse(status int, nonce string, v interface{}) (*Response, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	h := map[string][]string{"Content-Type": {"application/json"}}
	if nonce != "" {
		h["Replay-Nonce"] = []string{nonce}
	}
	return &Response{StatusCode: status, Header: h, Body: b}, nil
}

func problemResponse(status int, nonce, urn, detail string) (*Response, error) {
	b, err := json.Marshal(Problem{Type: urn, Detail: detail})
	if err != nil {
		return nil, err
	}
	h := map[string][]string{"Content-Type": {"application/problem+json"}}
	if nonce != "" {
		h["Replay-Nonce"] = []string{nonce}
	}
	return &Response{StatusCode: status, Header: h, Body: b}, nil
}

func nonceOnlyResponse(status int, nonce string) (*Response, error) {
	h := map[string][]string{}
	if nonce != "" {
		h["Replay-Nonce"] = []string{nonce}
	}
	return &Response{StatusCode: status, Header: h, Body: nil}, nil
}
