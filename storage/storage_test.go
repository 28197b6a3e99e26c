package storage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/kbukum/restkit/errors"
)

func TestCleanKey(t *testing.T) {
	tests := map[string]string{
		"reports/a.json":       "reports/a.json",
		"/reports/a.json":      "reports/a.json",
		`reports\2026\a.json`:  "reports/2026/a.json",
		"reports/./x/../a.txt": "reports/a.txt",
		"../../escape.txt":     "escape.txt",
		"reports//a.txt/":      "reports/a.txt",
	}
	for in, want := range tests {
		got, err := CleanKey(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "/", "..", "./"} {
		_, err := CleanKey(in)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidInput), "%q: got %v", in, err)
	}
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "application/json", ContentTypeFor("reports/a.json"))
	assert.Equal(t, "application/octet-stream", ContentTypeFor("blob"))
	assert.Equal(t, "application/octet-stream", ContentTypeFor("data.unknownext"))
}

func TestNotFound(t *testing.T) {
	err := NotFound("reports/a.json")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "reports/a.json")
}
