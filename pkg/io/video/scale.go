package video

import (
	"image"

	"golang.org/x/image/draw"
)

// Scaler represents scaling algorithm
type Scaler draw.Scaler

// List of scaling algorithms
var (
	ScalerNearestNeighbor = Scaler(draw.NearestNeighbor)
	ScalerApproxBiLinear  = Scaler(draw.ApproxBiLinear)
	ScalerBiLinear        = Scaler(draw.BiLinear)
	ScalerCatmullRom      = Scaler(draw.CatmullRom)
)

// Scale returns video scaling transform.
// Setting scaler=nil to use default scaler. (ScalerApproxBiLinear)
// Non-positive width or height value will keep the aspect ratio of incoming image.
func Scale(width, height int, scaler Scaler) TransformFunc {
	return func(r Reader) Reader {
		if scaler == nil {
			scaler = ScalerApproxBiLinear
		}
		if width <= 0 && height <= 0 {
			return r
		}

		var dst *image.RGBA
		return ReaderFunc(func() (image.Image, func(), error) {
			img, release, err := r.Read()
			if err != nil {
				return nil, func() {}, err
			}
			defer release()

			b := img.Bounds()
			rect := targetRect(b, width, height)
			if dst == nil || dst.Rect != rect {
				dst = image.NewRGBA(rect)
			}
			if rect.Dx() == b.Dx() && rect.Dy() == b.Dy() {
				// Copy since the source is released on return.
				draw.Draw(dst, rect, img, b.Min, draw.Src)
				return dst, func() {}, nil
			}
			scaler.Scale(dst, rect, img, b, draw.Src, nil)
			return dst, func() {}, nil
		})
	}
}

func targetRect(src image.Rectangle, width, height int) image.Rectangle {
	switch {
	case height <= 0:
		height = src.Dy() * width / src.Dx()
	case width <= 0:
		width = src.Dx() * height / src.Dy()
	}
	return image.Rect(0, 0, width, height)
}
