package acmecore

import (
	"context"
	"crypto"
	"fmt"
	"net/url"
	"sync"

	"github.com/hlandau/acmecore/acmeendpoints"
	"github.com/hlandau/xlog"
)

// log/Log follow hlandau-acmeapi/api.go's package-scoped quiet-logger
// pattern: var log, Log = xlog.NewQuiet("acmeapi").
var log, Log = xlog.NewQuiet("acmecore")

// TestingAllowHTTP permits "http" directory/request URLs in addition to
// "https", for use against local test servers (e.g. Pebble) that do not
// terminate TLS. Mirrors hlandau-acmeapi's TestingAllowHTTP.
var TestingAllowHTTP = false

// ValidURL reports whether u is a (potentially) valid ACME resource URL:
// an absolute HTTPS URL, or HTTP if TestingAllowHTTP is set.
func ValidURL(u string) bool {
	ur, err := url.Parse(u)
	return err == nil && ur.IsAbs() && (ur.Scheme == "https" || (TestingAllowHTTP && ur.Scheme == "http"))
}

// EngineConfig configures a new Engine (spec.md §4.6 create).
type EngineConfig struct {
	// DirectoryURL is the realm's ACME directory URL. Required; must be an
	// absolute HTTPS URL (or HTTP if TestingAllowHTTP is set), or a short
	// code registered in package acmeendpoints (e.g. "LetsEncryptLiveV2"),
	// which is resolved to its directory URL before validation.
	DirectoryURL string

	// Transport is the HTTP collaborator. If nil, a default net/http-backed
	// Transport is created lazily on first use.
	Transport Transport

	// Signer is the crypto collaborator. If nil, DefaultSigner is used.
	Signer Signer

	// Product is a string identifying the invoking application, folded
	// into the User-Agent as "<Product> mod_md/<version>", matching
	// original_source/src/md_acme.c's md_acme_create user-agent format.
	// Optional.
	Product string

	// ProxyURL, if set, routes outbound HTTP through the given proxy.
	ProxyURL *url.URL

	// MaxRetries is the per-request retry budget for recoverable ACME
	// errors (spec.md §7). A nil pointer (the default) selects 3, matching
	// mod_md's acme->max_retries default; pass a pointer to 0 for an
	// engine that must never retry (spec.md §8 testable property 4).
	MaxRetries *int

	// AccountValidator, if set, is invoked after UseAccount successfully
	// loads and binds an account (spec.md §4.6, "On acceptance, invoke the
	// account-validation collaborator").
	AccountValidator AccountValidator
}

// engineVersion is the module version folded into the User-Agent string.
// A real build would stamp this via -ldflags or debug.ReadBuildInfo; a
// fixed literal keeps this core dependency-free of its own release process.
const engineVersion = "1.0.0"

// Engine is the process-scoped value bound to exactly one ACME directory
// URL and at most one account (spec.md §3). It is not safe for concurrent
// use (spec.md §5); callers needing parallelism create distinct Engines.
//
// Use Create to construct one, Setup to bootstrap it against its
// directory, and the GET/POST/POSTNewAccount/GetJSON methods to make
// requests through it.
type Engine struct {
	directoryURL string
	proxyURL     *url.URL
	userAgent    string
	shortHost    string
	maxRetries   int

	version     Version
	endpointsV1 EndpointsV1
	endpointsV2 EndpointsV2
	strategy    versionStrategy

	nonces nonceReservoir

	accountID  string
	account    *Account
	accountKey crypto.PrivateKey

	signer          Signer
	validator       AccountValidator
	transportImpl   Transport
	transportOnce   sync.Once
	configTransport Transport
}

// Create constructs a new Engine. It validates cfg.DirectoryURL but does
// not contact the network (spec.md §4.6). Call Setup to bootstrap.
func Create(cfg EngineConfig) (*Engine, error) {
	directoryURL := cfg.DirectoryURL
	if !ValidURL(directoryURL) {
		if ep, err := acmeendpoints.ByCode(directoryURL); err == nil {
			directoryURL = ep.DirectoryURL
		}
	}
	if !ValidURL(directoryURL) {
		return nil, fmt.Errorf("acmecore: not a valid directory URL or known endpoint code: %q", cfg.DirectoryURL)
	}

	u, err := url.Parse(directoryURL)
	if err != nil {
		return nil, err
	}

	host := u.Hostname()
	shortHost := host
	if len(host) > 16 {
		shortHost = host[len(host)-16:]
	}

	maxRetries := 3
	if cfg.MaxRetries != nil {
		maxRetries = *cfg.MaxRetries
	}

	e := &Engine{
		directoryURL:    directoryURL,
		proxyURL:        cfg.ProxyURL,
		userAgent:       formUserAgent(cfg.Product),
		shortHost:       shortHost,
		maxRetries:      maxRetries,
		version:         VersionUnknown,
		signer:          cfg.Signer,
		validator:       cfg.AccountValidator,
		configTransport: cfg.Transport,
	}
	return e, nil
}

// formUserAgent builds "<product> mod_md/<version>" (just "mod_md/<version>"
// when product is empty), matching original_source/src/md_acme.c's
// md_acme_create:
//
//	acme->user_agent = apr_psprintf(p, "%s mod_md/%s", base_product, MOD_MD_VERSION);
func formUserAgent(product string) string {
	if product != "" {
		product += " "
	}
	return fmt.Sprintf("%smod_md/%s", product, engineVersion)
}

// transport returns the engine's HTTP collaborator, creating the default
// implementation lazily on first use (spec.md §3: "created lazily with a
// 1 MiB response size cap").
func (e *Engine) transport() Transport {
	e.transportOnce.Do(func() {
		if e.configTransport != nil {
			e.transportImpl = e.configTransport
			return
		}
		t, err := newHTTPTransport(e.userAgent, e.proxyURL)
		if err != nil {
			// newHTTPTransport does not return an error (the proxy URL
			// arrives already parsed as a *url.URL); this path is
			// unreachable in practice.
			panic(err)
		}
		e.transportImpl = t
	})
	return e.transportImpl
}

// Version returns the protocol version the engine has bootstrapped
// against, or VersionUnknown before Setup succeeds.
func (e *Engine) Version() Version { return e.version }

// DirectoryURL returns the directory URL this engine is bound to.
func (e *Engine) DirectoryURL() string { return e.directoryURL }

// ShortHost returns the last 16 characters of the directory URL's
// hostname, used for logging/namespacing (spec.md §3).
func (e *Engine) ShortHost() string { return e.shortHost }

// AccountID returns the identifier of the currently bound account, or ""
// if none is bound.
func (e *Engine) AccountID() string { return e.accountID }

// AccountURL returns the bound account's URL, or "" if none is bound.
func (e *Engine) AccountURL() string {
	if e.account == nil {
		return ""
	}
	return e.account.URL
}

// UseAccount loads (account, key) from store under id and binds them to
// the engine, provided the account's CA URL matches this engine's
// directory URL (spec.md §4.6, §6). On a mismatch it fails with a
// *RequestError of kind KindNotFound (spec.md testable property 6) without
// mutating engine state.
func (e *Engine) UseAccount(ctx context.Context, store AccountStore, id string) error {
	acct, key, err := store.LoadAccount(ctx, id)
	if err != nil {
		return err
	}

	if acct.CAURL != e.directoryURL {
		return &RequestError{Kind: KindNotFound}
	}

	e.accountID = id
	e.account = acct
	e.accountKey = key

	if e.validator != nil {
		if err := e.validator.ValidateAccount(ctx, e); err != nil {
			e.accountID = ""
			e.account = nil
			e.accountKey = nil
			return err
		}
	}

	return nil
}

// SaveAccount persists the bound account triple back to store, allocating
// an id if one was not yet assigned.
func (e *Engine) SaveAccount(ctx context.Context, store AccountStore) error {
	if e.account == nil {
		return ErrNoAccountBound
	}

	id, err := store.SaveAccount(ctx, e.accountID, e.account, e.accountKey)
	if err != nil {
		return err
	}
	e.accountID = id
	return nil
}

// ClearAccount unbinds the current account triple, if any.
func (e *Engine) ClearAccount() {
	e.accountID = ""
	e.account = nil
	e.accountKey = nil
}

// BindAccount binds an account/key pair directly, without going through an
// AccountStore. Used by callers that already hold the account (e.g. just
// registered it via POSTNewAccount) and want to start making signed
// requests with it immediately.
func (e *Engine) BindAccount(id string, acct *Account, key crypto.PrivateKey) error {
	if acct.CAURL != "" && acct.CAURL != e.directoryURL {
		return ErrAccountForeign
	}
	if acct.CAURL == "" {
		acct.CAURL = e.directoryURL
	}
	e.accountID = id
	e.account = acct
	e.accountKey = key
	return nil
}
