// Package storage keeps uploaded PDF files in a blob store, either a local
// directory or an S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Get when no object exists under the key.
var ErrNotFound = errors.New("storage: object not found")

// BlobStore stores opaque objects by key.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// DocumentKey returns a fresh key for an uploaded PDF: pdfs/<uuid>-<name>.
func DocumentKey(filename string) string {
	return "pdfs/" + uuid.NewString() + "-" + SanitizeName(filename)
}

// SanitizeName strips directories and replaces anything outside [A-Za-z0-9._-] with "_".
func SanitizeName(filename string) string {
	name := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	name = unsafeName.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "document.pdf"
	}
	return name
}
