package prop

import (
	"fmt"
	"strings"
	"time"
)

// MediaConstraints represents set of media property constraints.
// Each field constrains property by min/ideal/max range, exact match, or oneof match.
type MediaConstraints struct {
	DeviceID string
	VideoConstraints
	AudioConstraints
}

// String prints a human readable constraints.
func (m *MediaConstraints) String() string {
	return prettifyStruct(m)
}

// Media stores single set of media properties.
type Media struct {
	DeviceID string
	Video
	Audio
}

// String prints a human readable media properties.
func (m *Media) String() string {
	return prettifyStruct(m)
}

// VideoConstraints represents a video's constraints
type VideoConstraints struct {
	Width, Height IntConstraint
	FrameRate     FloatConstraint
}

// Video represents a video's properties
type Video struct {
	Width, Height int
	FrameRate     float32
}

// AudioConstraints represents an audio's constraints
type AudioConstraints struct {
	ChannelCount     IntConstraint
	SampleRate       IntConstraint
	EchoCancellation BoolConstraint
	NoiseSuppression BoolConstraint
	AutoGainControl  BoolConstraint
}

// Audio represents an audio's properties
type Audio struct {
	ChannelCount     int
	SampleRate       int
	Latency          time.Duration
	EchoCancellation bool
	NoiseSuppression bool
	AutoGainControl  bool
}

// FitnessDistance calculates fitness of media property and media constraints.
// If no media satisfies the constraints, second return value will be false.
// NoiseSuppression and AutoGainControl are not compared since they are
// provided in software on top of any device.
func (m *MediaConstraints) FitnessDistance(o Media) (float64, bool) {
	cmps := comparisons{}
	cmps.add(m.DeviceID, o.DeviceID)
	cmps.add(m.Width, o.Width)
	cmps.add(m.Height, o.Height)
	cmps.add(m.FrameRate, o.FrameRate)
	cmps.add(m.ChannelCount, o.ChannelCount)
	cmps.add(m.SampleRate, o.SampleRate)
	cmps.add(m.EchoCancellation, o.EchoCancellation)
	return cmps.fitnessDistance()
}

// Apply returns the settings a track runs with when it is backed by base.
// Ideal and exact values override the device values, so that video is
// scaled and throttled to what was asked for.
func (m *MediaConstraints) Apply(base Media) Media {
	out := base
	if m.Width != nil {
		if v, ok := m.Width.Value(); ok && v > 0 {
			out.Width = v
		}
	}
	if m.Height != nil {
		if v, ok := m.Height.Value(); ok && v > 0 {
			out.Height = v
		}
	}
	if m.FrameRate != nil {
		// Frames can be dropped but never made up.
		if v, ok := m.FrameRate.Value(); ok && v > 0 && (base.FrameRate == 0 || v < base.FrameRate) {
			out.FrameRate = v
		}
	}
	if m.NoiseSuppression != nil {
		out.NoiseSuppression = m.NoiseSuppression.Value()
	}
	if m.AutoGainControl != nil {
		out.AutoGainControl = m.AutoGainControl.Value()
	}
	return out
}

type comparisons []struct {
	desired, actual interface{}
}

func (c *comparisons) add(desired, actual interface{}) {
	if desired != nil {
		*c = append(*c,
			struct{ desired, actual interface{} }{
				desired, actual,
			},
		)
	}
}

// fitnessDistance is an implementation for https://w3c.github.io/mediacapture-main/#dfn-fitness-distance
func (c *comparisons) fitnessDistance() (float64, bool) {
	var dist float64
	for _, field := range *c {
		var d float64
		var ok bool
		switch desired := field.desired.(type) {
		case IntConstraint:
			if actual, typeOK := field.actual.(int); typeOK {
				d, ok = desired.Compare(actual)
			} else {
				panic("wrong type of actual value")
			}
		case FloatConstraint:
			if actual, typeOK := field.actual.(float32); typeOK {
				d, ok = desired.Compare(actual)
			} else {
				panic("wrong type of actual value")
			}
		case BoolConstraint:
			if actual, typeOK := field.actual.(bool); typeOK {
				d, ok = desired.Compare(actual)
			} else {
				panic("wrong type of actual value")
			}
		case string:
			if desired == "" {
				continue
			}
			if actual, typeOK := field.actual.(string); typeOK {
				if desired == actual {
					d, ok = 0, true
				} else {
					d, ok = 1, false
				}
			} else {
				panic("wrong type of actual value")
			}
		default:
			panic("unsupported constraint type")
		}
		dist += d
		if !ok {
			return 0, false
		}
	}
	return dist, true
}

func prettifyStruct(i interface{}) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%+v", i)
	return strings.ReplaceAll(sb.String(), "<nil>", "any")
}
