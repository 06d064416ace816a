package storage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"io"
	"regexp"
	"time"
)

// Package storage contains the blob storage capability for submitted
// documents, backed by an S3-compatible object store. Implementations must
// rely on streaming I/O only; no local disk.

// ResourceKind tells the backend how a payload should be persisted. It never
// leaks into the document model; it only affects the storage key and the
// stored content type.
type ResourceKind string

const (
	// KindImage is the default for camera captures and image files.
	KindImage ResourceKind = "image"
	// KindRaw is used for binary documents (PDFs) where the bytes must be
	// stored untouched.
	KindRaw ResourceKind = "raw"
)

// PutObjectOptions define optional parameters for uploading objects.
// Size should be the exact number of bytes if known; -1 lets the backend
// buffer/chunk as supported.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
}

// Storage is the blob persistence capability consumed by upload ingestion.
type Storage interface {
	// Put uploads an object under the given key using the provided reader.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// PresignGet returns a time-limited URL for downloading the object
	// without credentials.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// BuildKey derives a collision-free storage key for one uploaded document.
// The key is content-address independent: a sanitized doc type plus a random
// hex suffix, prefixed by kind. Raw documents keep a .pdf extension so the
// backend serves them unmangled.
func BuildKey(kind ResourceKind, docType string) string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)

	name := unsafeKeyChars.ReplaceAllString(docType, "_")
	suffix := hex.EncodeToString(buf)

	if kind == KindRaw {
		return "raw/" + name + "_" + suffix + ".pdf"
	}
	return "images/" + name + "_" + suffix
}
