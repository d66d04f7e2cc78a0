// Package container provides the recording container formats a
// MediaRecorder can write, keyed by MIME type.
package container

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/pion/webrtc/v4/pkg/media"
)

// ErrNotSupported is returned when no muxer is registered for a MIME type.
var ErrNotSupported = errors.New("container: mime type is not supported")

// TrackInfo describes one track of a recording.
type TrackInfo struct {
	ID       string `msgpack:"id"`
	Kind     string `msgpack:"kind"`
	Label    string `msgpack:"label"`
	MimeType string `msgpack:"mime"`
}

// Muxer writes samples of several tracks into one byte stream.
type Muxer interface {
	// WriteHeader must be called once before any sample is written.
	WriteHeader(tracks []TrackInfo) error
	WriteSample(trackID string, s media.Sample) error
	// Close finishes the stream. It does not close the underlying writer.
	Close() error
}

// Factory creates a Muxer writing to w.
type Factory func(w io.Writer) (Muxer, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes a muxer available for mimeType. Registering the same type
// twice replaces the previous factory.
func Register(mimeType string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[normalize(mimeType)] = f
}

// Unregister removes mimeType from the registry.
func Unregister(mimeType string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, normalize(mimeType))
}

// IsSupported reports whether a muxer is registered for mimeType.
func IsSupported(mimeType string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[normalize(mimeType)]
	return ok
}

// Supported lists the registered MIME types in sorted order.
func Supported() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	types := make([]string, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// New creates a muxer for mimeType writing to w.
func New(mimeType string, w io.Writer) (Muxer, error) {
	registryMu.RLock()
	f, ok := registry[normalize(mimeType)]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotSupported, mimeType)
	}
	return f(w)
}

// normalize lower-cases a MIME type and drops the whitespace around its
// parameters, so "Video/WebM; codecs=vp9" equals "video/webm;codecs=vp9".
func normalize(mimeType string) string {
	parts := strings.Split(mimeType, ";")
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return strings.Join(parts, ";")
}

// Extension returns the file extension conventionally used for mimeType,
// including the leading dot.
func Extension(mimeType string) string {
	base := normalize(mimeType)
	if i := strings.IndexByte(base, ';'); i >= 0 {
		base = base[:i]
	}
	switch base {
	case DefaultMimeType:
		return ".cmr"
	case "video/webm", "audio/webm":
		return ".webm"
	case "video/mp4", "audio/mp4":
		return ".mp4"
	case "audio/ogg":
		return ".ogg"
	}
	return ".bin"
}
