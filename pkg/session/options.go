package session

import (
	"time"

	"github.com/talky/callmedia"
	"github.com/talky/callmedia/pkg/container"
	"github.com/talky/callmedia/pkg/prop"
)

// PreferredMimeType is the recording type asked for first.
const PreferredMimeType = "video/webm;codecs=vp9,opus"

type options struct {
	video             callmedia.MediaOption
	audio             callmedia.MediaOption
	display           callmedia.MediaOption
	preferredMimeType string
	fallbackMimeType  string
	timeSlice         time.Duration
	queueSize         int
}

func defaultOptions() options {
	return options{
		video: func(c *callmedia.MediaTrackConstraints) {
			c.Width = prop.Int(1280)
			c.Height = prop.Int(720)
			c.FrameRate = prop.Float(30)
		},
		audio: func(c *callmedia.MediaTrackConstraints) {
			c.EchoCancellation = prop.Bool(true)
			c.NoiseSuppression = prop.Bool(true)
			c.AutoGainControl = prop.Bool(true)
		},
		display:           func(*callmedia.MediaTrackConstraints) {},
		preferredMimeType: PreferredMimeType,
		fallbackMimeType:  container.DefaultMimeType,
		timeSlice:         time.Second,
		queueSize:         16,
	}
}

// Option configures a Manager.
type Option func(*options)

// WithVideoConstraints replaces the camera constraints.
func WithVideoConstraints(o callmedia.MediaOption) Option {
	return func(opts *options) {
		opts.video = o
	}
}

// WithAudioConstraints replaces the microphone constraints.
func WithAudioConstraints(o callmedia.MediaOption) Option {
	return func(opts *options) {
		opts.audio = o
	}
}

// WithDisplayConstraints replaces the display-capture constraints.
func WithDisplayConstraints(o callmedia.MediaOption) Option {
	return func(opts *options) {
		opts.display = o
	}
}

// WithMimeTypes sets the recording type asked for first and the one used
// when the provider does not support it.
func WithMimeTypes(preferred, fallback string) Option {
	return func(opts *options) {
		opts.preferredMimeType = preferred
		opts.fallbackMimeType = fallback
	}
}

// WithTimeSlice sets how often the recorder delivers data. Zero delivers
// everything at stop.
func WithTimeSlice(d time.Duration) Option {
	return func(opts *options) {
		opts.timeSlice = d
	}
}

// WithQueueSize sets how many commands may wait for the session.
func WithQueueSize(n int) Option {
	return func(opts *options) {
		opts.queueSize = n
	}
}
