// Package storage persists finished recordings. A Sink stores a blob under
// a name and hands back where it went, so that a recording can be fetched
// again later.
package storage

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/talky/callmedia"
	"github.com/talky/callmedia/pkg/container"
)

// Sink is the interface recordings are saved through.
//
// Names are forward-slash separated and relative to the sink root.
// Implementations must be safe for concurrent use.
type Sink interface {
	// Save stores blob under name and returns its location. An empty name
	// is replaced by a generated one, see ObjectName.
	Save(ctx context.Context, name string, blob *callmedia.Blob) (string, error)

	// Open opens a saved recording for reading.
	// If it does not exist, an error wrapping os.ErrNotExist is returned.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// ObjectName returns a unique name under prefix for a recording of the
// given MIME type, e.g. "calls/0b6c....cmr".
func ObjectName(prefix, mimeType string) string {
	name := uuid.NewString() + container.Extension(mimeType)
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

func nameFor(name string, blob *callmedia.Blob) string {
	if name == "" {
		return ObjectName("", blob.Type)
	}
	return cleanName(name)
}

// cleanName makes name relative to the sink root. Leading slashes and ".."
// elements cannot climb above the root.
func cleanName(name string) string {
	return strings.TrimPrefix(path.Clean("/"+name), "/")
}
