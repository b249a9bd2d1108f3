// Package acmecore provides the request engine at the heart of an ACME
// client: directory bootstrap, protocol-version dispatch (ACMEv1/ACMEv2),
// JWS envelope construction, replay-nonce handling, RFC 7807 problem
// interpretation, and bounded retry of recoverable failures.
//
// It deliberately does not implement challenge solving, CSR construction,
// certificate parsing, account persistence, or renewal scheduling; those
// are the responsibility of callers, which consume this engine through
// Engine's exported methods and the Transport/Signer/AccountStore
// collaborator interfaces.
//
// See Engine for introductory documentation.
package acmecore // import "github.com/hlandau/acmecore"
