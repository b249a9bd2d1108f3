package acmecore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"

	denet "github.com/hlandau/goutils/net"
	"golang.org/x/net/context/ctxhttp"
)

// responseSizeCap is the maximum response body size the default transport
// will read (spec.md §5: "Response size is capped at 1 MiB; oversize
// responses are transport errors").
const responseSizeCap = 1024 * 1024

// Response is the HTTP collaborator's view of a completed exchange
// (spec.md §6).
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport is the HTTP collaborator (spec.md §6): GET/HEAD/POST with a
// response size cap, configurable user agent and proxy. The engine owns
// exactly one Transport instance for its full lifetime (spec.md §5).
type Transport interface {
	Do(ctx context.Context, method, targetURL string, headers map[string]string, body []byte) (*Response, error)
}

// httpTransport is the default Transport, built on net/http and
// ctxhttp.Do, the same combination hlandau-acmeapi/api.go's doReqActual
// uses for context-cancellable requests.
type httpTransport struct {
	client    *http.Client
	userAgent string
}

func newHTTPTransport(userAgent string, proxyURL *url.URL) (*httpTransport, error) {
	base := *http.DefaultTransport.(*http.Transport)
	if proxyURL != nil {
		u := proxyURL
		base.Proxy = http.ProxyURL(u)
	}
	return &httpTransport{
		client:    &http.Client{Transport: &base},
		userAgent: userAgent,
	}, nil
}

func (t *httpTransport) Do(ctx context.Context, method, targetURL string, headers map[string]string, body []byte) (*Response, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, targetURL, rdr)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", t.userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	res, err := ctxhttp.Do(ctx, t.client, req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	data, err := ioutil.ReadAll(denet.LimitReader(res.Body, responseSizeCap))
	if err != nil {
		return nil, fmt.Errorf("acmecore: reading response body: %w", err)
	}

	return &Response{
		StatusCode: res.StatusCode,
		Header:     res.Header,
		Body:       data,
	}, nil
}
