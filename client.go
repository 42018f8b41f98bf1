package connect

import "github.com/petrijr/connect/internal/remote"

type (
	// ClientConfig configures an HTTP client for the remote API.
	ClientConfig = remote.Config

	// APIError is an error response of the remote API.
	APIError = remote.APIError

	HTTPClient   = remote.HTTPClient
	MemorySource = remote.MemorySource
	Approval     = remote.Approval
)

// NewHTTPClient returns a client listing and approving requests over
// HTTP.
func NewHTTPClient(cfg ClientConfig) (*HTTPClient, error) {
	return remote.NewHTTPClient(cfg)
}

// NewMemorySource returns a source serving reqs from memory. It approves
// requests in place, which makes it useful for tests and dry runs.
func NewMemorySource(reqs ...*Request) (*MemorySource, error) {
	return remote.NewMemorySource(reqs...)
}

// LoadFixtures returns a MemorySource holding the JSON array of requests
// stored at path.
func LoadFixtures(path string) (*MemorySource, error) {
	return remote.LoadFixtures(path)
}
