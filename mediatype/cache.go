package mediatype

import (
	"github.com/puzpuzpuz/xsync/v4"
)

// maxCacheEntries bounds the parse cache. Headers carrying per-message
// parameters (multipart boundaries) would otherwise grow it without limit.
const maxCacheEntries = 1024

type cacheEntry struct {
	mt  MediaType
	err error
}

var parseCache = xsync.NewMap[string, cacheEntry]()

// ParseCached is Parse backed by a process-wide concurrent cache keyed on the
// raw header value. Both successful and failed parses are cached.
func ParseCached(s string) (MediaType, error) {
	if e, ok := parseCache.Load(s); ok {
		return e.mt, e.err
	}
	mt, err := Parse(s)
	if parseCache.Size() < maxCacheEntries {
		parseCache.Store(s, cacheEntry{mt: mt, err: err})
	}
	return mt, err
}

// ParseOrDefault parses s and substitutes def when s is empty or malformed.
// The boolean reports whether s was usable.
func ParseOrDefault(s string, def MediaType) (MediaType, bool) {
	if s == "" {
		return def, false
	}
	mt, err := ParseCached(s)
	if err != nil {
		return def, false
	}
	return mt, true
}
