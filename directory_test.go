package acmecore

import (
	"context"
	"testing"
)

func TestSetupV2(t *testing.T) {
	ft := &fakeTransport{
		steps: []func(string, string, map[string]string, []byte) (*Response, error){
			func(method, url string, headers map[string]string, body []byte) (*Response, error) {
				return jsonResponse(200, "", directoryDoc{
					NewAccount: "https://example.test/acme/new-account",
					NewOrder:   "https://example.test/acme/new-order",
					RevokeCert2: "https://example.test/acme/revoke-cert",
					KeyChange:  "https://example.test/acme/key-change",
					NewNonce:   "https://example.test/acme/new-nonce",
				})
			},
		},
	}

	e, err := Create(EngineConfig{DirectoryURL: "https://example.test/directory", Transport: ft})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := e.Setup(context.Background()); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if e.Version() != VersionV2 {
		t.Fatalf("Version() = %v, want VersionV2", e.Version())
	}
	eps, ok := e.EndpointsV2()
	if !ok || eps.NewOrder != "https://example.test/acme/new-order" {
		t.Fatalf("EndpointsV2() = %+v, %v", eps, ok)
	}
}

func TestSetupV1(t *testing.T) {
	ft := &fakeTransport{
		steps: []func(string, string, map[string]string, []byte) (*Response, error){
			func(method, url string, headers map[string]string, body []byte) (*Response, error) {
				return jsonResponse(200, "", directoryDoc{
					NewAuthz:   "https://example.test/acme/new-authz",
					NewCert:    "https://example.test/acme/new-cert",
					NewReg:     "https://example.test/acme/new-reg",
					RevokeCert: "https://example.test/acme/revoke-cert",
				})
			},
		},
	}

	e, err := Create(EngineConfig{DirectoryURL: "https://example.test/directory", Transport: ft})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := e.Setup(context.Background()); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if e.Version() != VersionV1 {
		t.Fatalf("Version() = %v, want VersionV1", e.Version())
	}
}

func TestSetupMissingEndpoints(t *testing.T) {
	ft := &fakeTransport{
		steps: []func(string, string, map[string]string, []byte) (*Response, error){
			func(method, url string, headers map[string]string, body []byte) (*Response, error) {
				return jsonResponse(200, "", directoryDoc{
					NewAccount: "https://example.test/acme/new-account",
					// NewOrder/RevokeCert2/KeyChange/NewNonce deliberately missing.
				})
			},
		},
	}

	e, err := Create(EngineConfig{DirectoryURL: "https://example.test/directory", Transport: ft})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := e.Setup(context.Background()); err != ErrMissingEndpoints {
		t.Fatalf("Setup() err = %v, want ErrMissingEndpoints", err)
	}
	if e.Version() != VersionUnknown {
		t.Fatalf("Version() = %v, want VersionUnknown after failed setup", e.Version())
	}
}

func TestSetupUnrecognizedDirectory(t *testing.T) {
	ft := &fakeTransport{
		steps: []func(string, string, map[string]string, []byte) (*Response, error){
			func(method, url string, headers map[string]string, body []byte) (*Response, error) {
				return jsonResponse(200, "", struct {
					Unrelated string `json:"unrelated"`
				}{"nothing acme about this"})
			},
		},
	}

	e, err := Create(EngineConfig{DirectoryURL: "https://example.test/directory", Transport: ft})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	err = e.Setup(context.Background())
	rerr, ok := err.(*RequestError)
	if !ok || rerr.Kind != KindBadRequest {
		t.Fatalf("Setup() err = %#v, want *RequestError{Kind: KindBadRequest}", err)
	}
}

func TestCreateRejectsNonHTTPSDirectory(t *testing.T) {
	_, err := Create(EngineConfig{DirectoryURL: "http://example.test/directory"})
	if err == nil {
		t.Fatal("Create should reject a non-HTTPS directory URL")
	}
}

func TestCreateDefaultsMaxRetries(t *testing.T) {
	e, err := Create(EngineConfig{DirectoryURL: "https://example.test/directory"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if e.maxRetries != 3 {
		t.Fatalf("maxRetries = %d, want 3", e.maxRetries)
	}
}
