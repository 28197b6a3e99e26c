// Package version carries build metadata for restkit binaries and the
// default User-Agent of the HTTP client.
//
// Values are stamped at link time:
//
//	go build -ldflags "-X github.com/kbukum/restkit/version.Version=1.0.0" ./cmd/restfetch
package version
