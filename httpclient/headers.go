package httpclient

import (
	"net/http"
	"sort"
	"strings"

	"github.com/kbukum/restkit/textbuf"
)

const redacted = "[REDACTED]"

var sensitiveHeaders = map[string]bool{
	"Authorization":       true,
	"Proxy-Authorization": true,
	"Cookie":              true,
	"Set-Cookie":          true,
	"X-Api-Key":           true,
}

// DumpHeaders renders h one header per line in key order. Credentials are
// redacted.
func DumpHeaders(h http.Header) string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var scratch [512]byte
	b := textbuf.New(scratch[:])
	for _, k := range keys {
		b.AppendString(k)
		b.AppendString(": ")
		if sensitiveHeaders[http.CanonicalHeaderKey(k)] {
			b.AppendLine(redacted)
			continue
		}
		b.AppendLine(strings.Join(h[k], ", "))
	}
	return b.String()
}
