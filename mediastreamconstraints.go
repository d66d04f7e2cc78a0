package callmedia

import (
	"github.com/talky/callmedia/pkg/prop"
)

// MediaStreamConstraints represents https://w3c.github.io/mediacapture-main/#dom-mediastreamconstraints.
// A nil option means the kind is not requested.
type MediaStreamConstraints struct {
	Audio MediaOption
	Video MediaOption
}

// MediaTrackConstraints represents https://w3c.github.io/mediacapture-main/#dom-mediatrackconstraints
type MediaTrackConstraints struct {
	prop.MediaConstraints
}

// MediaOption is a function that sets the track constraints.
type MediaOption func(*MediaTrackConstraints)

func (o MediaOption) resolve() MediaTrackConstraints {
	var c MediaTrackConstraints
	if o != nil {
		o(&c)
	}
	return c
}
