// Package acmeendpoints provides information on known ACME servers, for
// callers that want to resolve a short code or a directory URL to a
// well-known realm before calling acmecore.Create.
package acmeendpoints

import (
	"fmt"
	"regexp"
	"sync"
)

// Endpoint describes a known ACME directory.
type Endpoint struct {
	// Title is a short, single-line, title-case human readable description
	// of the endpoint.
	Title string

	// Code is a short unique endpoint identifier. Must match
	// ^[a-zA-Z][a-zA-Z0-9_]*$ and should use CamelCase.
	Code string

	// DirectoryURL is the ACME directory URL, suitable for passing as
	// acmecore.EngineConfig.DirectoryURL. Must be an HTTPS URL.
	DirectoryURL string

	// Live is true if the endpoint issues publicly trusted certificates.
	Live bool

	// DeprecatedDirectoryURLRegexp, if not "", matches directory URLs this
	// endpoint supersedes, letting callers transparently upgrade a
	// previously-configured v1 directory URL to this endpoint's v2 one.
	DeprecatedDirectoryURLRegexp string
	deprecatedDirectoryURLRegexp *regexp.Regexp

	initOnce sync.Once
}

func (e *Endpoint) String() string {
	return fmt.Sprintf("Endpoint(%v)", e.DirectoryURL)
}

func (e *Endpoint) init() {
	e.initOnce.Do(func() {
		if e.DeprecatedDirectoryURLRegexp != "" {
			e.deprecatedDirectoryURLRegexp = regexp.MustCompile(e.DeprecatedDirectoryURLRegexp)
		}
	})
}

var endpoints []*Endpoint

// Visit calls f for every registered endpoint, stopping at the first error.
func Visit(f func(p *Endpoint) error) error {
	for _, p := range endpoints {
		if err := f(p); err != nil {
			return err
		}
	}
	return nil
}

// RegisterEndpoint adds a new endpoint to the registry.
func RegisterEndpoint(p *Endpoint) {
	p.init()
	endpoints = append(endpoints, p)
}

func init() {
	for _, p := range builtinEndpoints {
		RegisterEndpoint(p)
	}
}
