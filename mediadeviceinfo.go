package callmedia

import "github.com/talky/callmedia/pkg/driver"

// MediaDeviceType enumerates type of media device.
type MediaDeviceType int

// MediaDeviceType definitions.
const (
	VideoInput MediaDeviceType = iota + 1
	AudioInput
	AudioOutput
)

func (t MediaDeviceType) String() string {
	switch t {
	case VideoInput:
		return "video"
	case AudioInput:
		return "audio"
	case AudioOutput:
		return "audiooutput"
	}
	return "unknown"
}

// MediaDeviceInfo represents https://w3c.github.io/mediacapture-main/#dom-mediadeviceinfo
type MediaDeviceInfo struct {
	DeviceID   string
	Kind       MediaDeviceType
	Label      string
	DeviceType driver.DeviceType
}
