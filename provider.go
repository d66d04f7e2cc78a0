package callmedia

import "context"

// MediaCaptureProvider is the capture surface a call session depends on. It
// is satisfied by *MediaDevices and can be replaced in tests.
type MediaCaptureProvider interface {
	GetUserMedia(ctx context.Context, constraints MediaStreamConstraints) (MediaStream, error)
	GetDisplayMedia(ctx context.Context, constraints MediaStreamConstraints) (MediaStream, error)
	IsTypeSupported(mimeType string) bool
	NewRecorder(stream MediaStream, opts RecorderOptions) (Recorder, error)
}
