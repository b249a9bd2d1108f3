package acmeendpoints

var (
	// LetsEncryptLiveV2 issues publicly trusted certificates.
	LetsEncryptLiveV2 = Endpoint{
		Code:                         "LetsEncryptLiveV2",
		Title:                        "Let's Encrypt (Live v2)",
		DirectoryURL:                 "https://acme-v02.api.letsencrypt.org/directory",
		DeprecatedDirectoryURLRegexp: `^https://acme-v01\.api\.letsencrypt\.org/directory$`,
		Live:                         true,
	}

	// LetsEncryptStagingV2 issues certificates for testing, not trusted by
	// any browser.
	LetsEncryptStagingV2 = Endpoint{
		Code:         "LetsEncryptStagingV2",
		Title:        "Let's Encrypt (Staging v2)",
		DirectoryURL: "https://acme-staging-v02.api.letsencrypt.org/directory",
		Live:         false,
	}
)

// DefaultEndpoint is the suggested default endpoint.
var DefaultEndpoint = &LetsEncryptLiveV2

var builtinEndpoints = []*Endpoint{
	&LetsEncryptLiveV2,
	&LetsEncryptStagingV2,
}
