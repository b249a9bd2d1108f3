// Package pebbletest provides facilities for exercising acmecore against a
// local Pebble ACME server during integration testing. Pebble's TLS
// certificate is not publicly trusted, so the transport it provides
// disables certificate verification; it must never be used outside tests.
package pebbletest

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"

	"github.com/hlandau/acmecore"
	denet "github.com/hlandau/goutils/net"
	"golang.org/x/net/context/ctxhttp"
)

// DirectoryURL is Pebble's default local directory URL.
const DirectoryURL = "https://localhost:14000/dir"

// HTTPClient talks to Pebble with certificate verification disabled.
var HTTPClient *http.Client

func init() {
	httpTransport := *http.DefaultTransport.(*http.Transport)
	httpTransport.TLSClientConfig = &tls.Config{
		InsecureSkipVerify: true,
	}
	HTTPClient = &http.Client{
		Transport: &httpTransport,
	}
}

// Transport implements acmecore.Transport on top of HTTPClient, letting a
// test bind an *acmecore.Engine directly to a local Pebble instance via
// acmecore.EngineConfig.Transport.
type Transport struct {
	UserAgent string
}

func (t Transport) Do(ctx context.Context, method, targetURL string, headers map[string]string, body []byte) (*acmecore.Response, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, targetURL, rdr)
	if err != nil {
		return nil, err
	}
	if t.UserAgent != "" {
		req.Header.Set("User-Agent", t.UserAgent)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	res, err := ctxhttp.Do(ctx, HTTPClient, req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	data, err := ioutil.ReadAll(denet.LimitReader(res.Body, 1024*1024))
	if err != nil {
		return nil, fmt.Errorf("pebbletest: reading response body: %w", err)
	}

	return &acmecore.Response{
		StatusCode: res.StatusCode,
		Header:     res.Header,
		Body:       data,
	}, nil
}

// NewEngine creates an Engine bound to directoryURL (defaulting to
// DirectoryURL) using Transport, for use in integration tests.
func NewEngine(directoryURL string) (*acmecore.Engine, error) {
	if directoryURL == "" {
		directoryURL = DirectoryURL
	}
	return acmecore.Create(acmecore.EngineConfig{
		DirectoryURL: directoryURL,
		Transport:    Transport{UserAgent: "pebbletest"},
	})
}
