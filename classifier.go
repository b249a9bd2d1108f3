package acmecore

import "strings"

// problemKinds maps the suffix of an RFC 7807 problem type URN (with any
// "urn:ietf:params:" or "urn:" prefix stripped) to its abstract ErrorKind.
//
// The table and the prefix-stripping rule are taken directly from mod_md's
// problem_status_get/Problems[] (original_source/src/md_acme.c): badNonce
// and userActionRequired are the only recoverable kinds, matching that
// table's two APR_EAGAIN entries.
var problemKinds = map[string]ErrorKind{
	"acme:error:badnonce":              KindBadNonce,
	"acme:error:useractionrequired":    KindUserActionRequired,
	"acme:error:badcsr":                KindBadRequest,
	"acme:error:malformed":             KindBadRequest,
	"acme:error:badsignaturealgorithm": KindBadRequest,
	"acme:error:badrevocationreason":   KindBadRequest,
	"acme:error:unauthorized":          KindForbidden,
	"acme:error:ratelimited":           KindRateLimited,
	"acme:error:rejectedidentifier":    KindBadRequest,
	"acme:error:unsupportedidentifier": KindBadRequest,
	"acme:error:invalidcontact":        KindBadRequest,
	"acme:error:serverinternal":        KindGeneric,
	"acme:error:caa":                   KindGeneric,
	"acme:error:dns":                   KindGeneric,
	"acme:error:connection":            KindGeneric,
	"acme:error:tls":                   KindGeneric,
	"acme:error:incorrectresponse":     KindGeneric,
	"acme:error:unsupportedcontact":    KindGeneric,
}

// Classify maps an RFC 7807 problem "type" URN to an abstract ErrorKind
// (spec.md §4.1, C1). It is pure: no I/O, no engine state.
func Classify(urn string) ErrorKind {
	rest := urn
	switch {
	case strings.HasPrefix(rest, "urn:ietf:params:"):
		rest = rest[len("urn:ietf:params:"):]
	case strings.HasPrefix(rest, "urn:"):
		rest = rest[len("urn:"):]
	}

	if kind, ok := problemKinds[strings.ToLower(rest)]; ok {
		return kind
	}
	return KindGeneric
}
