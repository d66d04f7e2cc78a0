package prop

import (
	"testing"
)

func TestFitnessDistance(t *testing.T) {
	testCases := map[string]struct {
		props MediaConstraints
		media Media
		dist  float64
		ok    bool
	}{
		"NoConstraints": {
			props: MediaConstraints{},
			media: Media{Video: Video{Width: 640, Height: 480}},
			dist:  0,
			ok:    true,
		},
		"IdealMatch": {
			props: MediaConstraints{VideoConstraints: VideoConstraints{Width: Int(640), Height: Int(480)}},
			media: Media{Video: Video{Width: 640, Height: 480}},
			dist:  0,
			ok:    true,
		},
		"IdealMismatch": {
			props: MediaConstraints{VideoConstraints: VideoConstraints{Width: Int(1280), Height: Int(480)}},
			media: Media{Video: Video{Width: 640, Height: 480}},
			dist:  0.5,
			ok:    true,
		},
		"ExactMismatch": {
			props: MediaConstraints{VideoConstraints: VideoConstraints{Width: IntExact(1280)}},
			media: Media{Video: Video{Width: 640}},
			ok:    false,
		},
		"RangeOutside": {
			props: MediaConstraints{VideoConstraints: VideoConstraints{Width: IntRanged{Min: 800, Max: 1920}}},
			media: Media{Video: Video{Width: 640}},
			ok:    false,
		},
		"DeviceIDMismatch": {
			props: MediaConstraints{DeviceID: "cam-1"},
			media: Media{DeviceID: "cam-2"},
			ok:    false,
		},
		"EchoCancellationIdeal": {
			props: MediaConstraints{AudioConstraints: AudioConstraints{EchoCancellation: Bool(true)}},
			media: Media{Audio: Audio{EchoCancellation: false}},
			dist:  1,
			ok:    true,
		},
		"NoiseSuppressionIgnored": {
			props: MediaConstraints{AudioConstraints: AudioConstraints{NoiseSuppression: BoolExact(true)}},
			media: Media{},
			dist:  0,
			ok:    true,
		},
	}

	for name, c := range testCases {
		c := c
		t.Run(name, func(t *testing.T) {
			dist, ok := c.props.FitnessDistance(c.media)
			if ok != c.ok {
				t.Fatalf("Expected ok=%v, got %v", c.ok, ok)
			}
			if ok && dist != c.dist {
				t.Errorf("Expected distance %v, got %v", c.dist, dist)
			}
		})
	}
}

func TestApply(t *testing.T) {
	c := MediaConstraints{
		VideoConstraints: VideoConstraints{
			Width:     Int(1280),
			Height:    Int(720),
			FrameRate: Float(60),
		},
		AudioConstraints: AudioConstraints{
			NoiseSuppression: Bool(true),
			AutoGainControl:  Bool(true),
		},
	}
	base := Media{
		DeviceID: "dev",
		Video:    Video{Width: 640, Height: 480, FrameRate: 30},
	}

	got := c.Apply(base)
	if got.Width != 1280 || got.Height != 720 {
		t.Errorf("Expected 1280x720, got %dx%d", got.Width, got.Height)
	}
	if got.FrameRate != 30 {
		t.Errorf("Frame rate must not exceed the device rate, got %v", got.FrameRate)
	}
	if !got.NoiseSuppression || !got.AutoGainControl {
		t.Error("Expected software audio processing to be enabled")
	}
	if got.DeviceID != "dev" {
		t.Errorf("Expected device id to be kept, got %q", got.DeviceID)
	}
}

func TestRangedValue(t *testing.T) {
	if _, ok := (IntRanged{Min: 1, Max: 2}).Value(); ok {
		t.Error("Range without ideal must not report a value")
	}
	if v, ok := (IntRanged{Min: 1, Max: 20, Ideal: 10}).Value(); !ok || v != 10 {
		t.Errorf("Expected ideal 10, got %d (%v)", v, ok)
	}
	if d, ok := (IntRanged{Min: 1, Max: 20, Ideal: 10}).Compare(10); !ok || d != 0 {
		t.Errorf("Expected exact ideal match, got %v (%v)", d, ok)
	}
}
