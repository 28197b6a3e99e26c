package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	apperrors "github.com/kbukum/restkit/errors"
	"github.com/kbukum/restkit/mediatype"
)

// ErrNotFound is wrapped by Download when no object exists at the key.
var ErrNotFound = errors.New("storage: object not found")

// FileInfo describes a stored object.
type FileInfo struct {
	Path         string
	Size         int64
	LastModified time.Time
	ContentType  string
}

// Storage is an object store that downloads are streamed into. Keys are
// slash separated; backends normalize them with CleanKey.
type Storage interface {
	// Upload streams reader to key. The object becomes visible only once
	// the whole stream has been written; a failed or cancelled upload
	// leaves no partial object behind.
	Upload(ctx context.Context, key string, reader io.Reader) error

	// Download returns the object's content. The caller closes it. A
	// missing object yields an error wrapping ErrNotFound.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether an object is stored at key.
	Exists(ctx context.Context, key string) (bool, error)

	// URL returns where the object can be fetched from.
	URL(ctx context.Context, key string) (string, error)

	// List returns the objects whose key starts with prefix.
	List(ctx context.Context, prefix string) ([]FileInfo, error)
}

// SignedURLProvider is implemented by backends that can hand out
// time-limited URLs for private objects.
type SignedURLProvider interface {
	SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// CleanKey normalizes an object key: backslashes become slashes, "." and
// ".." segments are resolved without climbing above the root, and the
// leading slash is dropped. A key that cleans to nothing is INVALID_INPUT.
func CleanKey(key string) (string, error) {
	k := path.Clean("/" + strings.ReplaceAll(key, `\`, "/"))
	k = strings.TrimPrefix(k, "/")
	if k == "" {
		return "", apperrors.Validation(fmt.Sprintf("storage: object key %q is empty", key))
	}
	return k, nil
}

// ContentTypeFor guesses the media type of key from its extension.
func ContentTypeFor(key string) string {
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		return ct
	}
	return mediatype.OctetStream.String()
}

// NotFound returns the error Download reports for a missing key.
func NotFound(key string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, key)
}
