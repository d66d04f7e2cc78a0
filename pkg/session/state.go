package session

import (
	"github.com/talky/callmedia"
)

// VideoMode tells where the video of a session comes from.
type VideoMode int

const (
	// VideoOff means no video is captured.
	VideoOff VideoMode = iota
	// VideoCamera means the camera is captured.
	VideoCamera
	// VideoScreen means a display is captured and the camera is not wanted
	// once sharing stops.
	VideoScreen
	// VideoScreenOverCamera means a display is captured in place of the
	// camera, which is resumed once sharing stops.
	VideoScreenOverCamera
)

func (m VideoMode) String() string {
	switch m {
	case VideoOff:
		return "off"
	case VideoCamera:
		return "camera"
	case VideoScreen:
		return "screen"
	case VideoScreenOverCamera:
		return "screen-over-camera"
	}
	return "unknown"
}

// CameraWanted reports whether the user asked for camera video.
func (m VideoMode) CameraWanted() bool {
	return m == VideoCamera || m == VideoScreenOverCamera
}

// Screen reports whether a display is being captured.
func (m VideoMode) Screen() bool {
	return m == VideoScreen || m == VideoScreenOverCamera
}

// State is a snapshot of a session. It is never modified after it was
// handed out.
type State struct {
	// Stream is the owned capture stream, nil when nothing is captured.
	Stream       callmedia.MediaStream
	VideoMode    VideoMode
	AudioEnabled bool
	Recording    callmedia.RecordingState
	// RecordedChunks holds the data of the current or last recording.
	RecordedChunks [][]byte
	// Err is the last device failure. It is cleared when the next start or
	// stop operation runs.
	Err     error
	Loading bool
}

// IsVideoEnabled reports whether camera video is wanted, also while a display covers it.
func (s State) IsVideoEnabled() bool {
	return s.VideoMode.CameraWanted()
}

// IsAudioEnabled reports whether the microphone is captured.
func (s State) IsAudioEnabled() bool {
	return s.AudioEnabled
}

// IsScreenSharing reports whether a display track is the active video.
func (s State) IsScreenSharing() bool {
	return s.VideoMode.Screen()
}

// IsRecording reports whether a recording is active or paused.
func (s State) IsRecording() bool {
	return s.Recording != callmedia.RecordingInactive
}
