package driver

import (
	"github.com/talky/callmedia/pkg/io/audio"
	"github.com/talky/callmedia/pkg/io/video"
	"github.com/talky/callmedia/pkg/prop"
)

// OpenCloser is an interface for hardware that has to be opened
// before use and closed to release it.
type OpenCloser interface {
	Open() error
	Close() error
}

// Properter is an interface that can report the settings a device supports.
type Properter interface {
	Properties() []prop.Media
}

// Adapter is the interface every device adapter implements.
type Adapter interface {
	OpenCloser
	Properter
}

// Info represents a device's static information
type Info struct {
	Label      string
	DeviceType DeviceType
	Priority   Priority
}

// VideoRecorder is an interface to encapsulate the video recording process
type VideoRecorder interface {
	VideoRecord(p prop.Media) (r video.Reader, err error)
}

// AudioRecorder is an interface to encapsulate the audio recording process
type AudioRecorder interface {
	AudioRecord(p prop.Media) (r audio.Reader, err error)
}

// Driver represents an adapter that is registered to the manager,
// together with its identity and its state.
type Driver interface {
	Adapter
	ID() string
	Info() Info
	Status() State
}
