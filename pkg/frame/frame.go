// Package frame decodes raw capture buffers into images.
//
// Every decoder copies its input, so the returned image stays valid after
// the driver reuses the buffer it was decoded from.
package frame

import (
	"fmt"
	"image"
)

type Format string

const (
	// FormatI420 https://www.fourcc.org/pixel-format/yuv-i420/
	FormatI420 Format = "I420"
	// FormatNV21 https://www.fourcc.org/pixel-format/yuv-nv21/
	FormatNV21 Format = "NV21"
	// FormatYUY2 https://www.fourcc.org/pixel-format/yuv-yuy2/
	FormatYUY2 Format = "YUY2"
	// FormatUYVY https://www.fourcc.org/pixel-format/yuv-uyvy/
	FormatUYVY Format = "UYVY"
	// FormatMJPEG https://www.fourcc.org/mjpg/
	FormatMJPEG Format = "MJPEG"
)

// FormatYUYV is an alias of FormatYUY2
const FormatYUYV = FormatYUY2

type Decoder interface {
	Decode(frame []byte, width, height int) (image.Image, error)
}

type decoderFunc func(frame []byte, width, height int) (image.Image, error)

func (f decoderFunc) Decode(frame []byte, width, height int) (image.Image, error) {
	return f(frame, width, height)
}

func NewDecoder(f Format) (Decoder, error) {
	switch f {
	case FormatI420:
		return decoderFunc(decodeI420), nil
	case FormatNV21:
		return decoderFunc(decodeNV21), nil
	case FormatYUY2:
		return decoderFunc(decodeYUY2), nil
	case FormatUYVY:
		return decoderFunc(decodeUYVY), nil
	case FormatMJPEG:
		return decoderFunc(decodeMJPEG), nil
	}
	return nil, fmt.Errorf("frame: %s is not supported", f)
}

// FromFourCC maps a little-endian V4L2 fourcc code to a Format.
func FromFourCC(code uint32) (Format, bool) {
	b := []byte{byte(code), byte(code >> 8), byte(code >> 16), byte(code >> 24)}
	switch string(b) {
	case "YU12":
		return FormatI420, true
	case "NV21":
		return FormatNV21, true
	case "YUYV":
		return FormatYUY2, true
	case "UYVY":
		return FormatUYVY, true
	case "MJPG":
		return FormatMJPEG, true
	}
	return "", false
}

func errShortFrame(f Format, got, want int) error {
	return fmt.Errorf("frame: short %s frame: got %d bytes, want %d", f, got, want)
}
