// Package storage defines the object store that downloads can be streamed
// into, with pluggable backends:
//
//   - storage/local: local filesystem, written through a temp file and renamed
//   - storage/s3: Amazon S3 and S3-compatible services
//   - storage/supabase: Supabase Storage over the restkit HTTP client
//
// Backends register a factory on import; New selects one by Config.Provider:
//
//	import _ "github.com/kbukum/restkit/storage/local"
//
//	store, err := storage.New(storage.Config{Provider: "local", BasePath: "./downloads"}, log)
package storage
