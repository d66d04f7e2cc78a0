package frame

import (
	"bytes"
	"image"
	"image/jpeg"
)

func decodeI420(frame []byte, width, height int) (image.Image, error) {
	yi := width * height
	cbi := yi + yi/4
	cri := cbi + yi/4

	if len(frame) < cri {
		return nil, errShortFrame(FormatI420, len(frame), cri)
	}

	img := image.NewYCbCr(image.Rect(0, 0, width, height), image.YCbCrSubsampleRatio420)
	copy(img.Y, frame[:yi])
	copy(img.Cb, frame[yi:cbi])
	copy(img.Cr, frame[cbi:cri])
	return img, nil
}

func decodeNV21(frame []byte, width, height int) (image.Image, error) {
	yi := width * height
	ci := yi + yi/2

	if len(frame) < ci {
		return nil, errShortFrame(FormatNV21, len(frame), ci)
	}

	img := image.NewYCbCr(image.Rect(0, 0, width, height), image.YCbCrSubsampleRatio420)
	copy(img.Y, frame[:yi])
	// Chroma plane is interleaved V then U.
	for i, j := yi, 0; i < ci; i, j = i+2, j+1 {
		img.Cr[j] = frame[i]
		img.Cb[j] = frame[i+1]
	}
	return img, nil
}

func decodeYUY2(frame []byte, width, height int) (image.Image, error) {
	return decodePacked422(FormatYUY2, frame, width, height, 0, 1, 3)
}

func decodeUYVY(frame []byte, width, height int) (image.Image, error) {
	return decodePacked422(FormatUYVY, frame, width, height, 1, 0, 2)
}

// decodePacked422 unpacks a 4:2:2 macropixel layout. y is the offset of the
// first luma byte, the second one is always y+2.
func decodePacked422(f Format, frame []byte, width, height, y, cb, cr int) (image.Image, error) {
	n := width * height * 2
	if len(frame) < n {
		return nil, errShortFrame(f, len(frame), n)
	}

	img := image.NewYCbCr(image.Rect(0, 0, width, height), image.YCbCrSubsampleRatio422)
	fast, slow := 0, 0
	for i := 0; i < n; i += 4 {
		img.Y[fast] = frame[i+y]
		img.Y[fast+1] = frame[i+y+2]
		img.Cb[slow] = frame[i+cb]
		img.Cr[slow] = frame[i+cr]
		fast += 2
		slow++
	}
	return img, nil
}

func decodeMJPEG(frame []byte, width, height int) (image.Image, error) {
	return jpeg.Decode(bytes.NewReader(frame))
}
