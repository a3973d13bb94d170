// Package fetch downloads media files referenced by transcription
// requests. HTTP(S) URLs stream to a local temp file with a size cap;
// minio:// URLs resolve against object storage.
package fetch
