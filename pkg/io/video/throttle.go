package video

import (
	"image"
	"time"
)

var now = time.Now

// Throttle returns video throttling transform.
// This transform drops some of the incoming frames to achieve given framerate in fps.
func Throttle(rate float32) TransformFunc {
	return func(r Reader) Reader {
		if rate <= 0 {
			return r
		}
		interval := time.Duration(float64(time.Second) / float64(rate))
		var last time.Time
		return ReaderFunc(func() (image.Image, func(), error) {
			for {
				img, release, err := r.Read()
				if err != nil {
					return nil, func() {}, err
				}
				t := now()
				// 10% jitter allowance, otherwise a source running at exactly
				// the target rate gets halved.
				if last.IsZero() || t.Sub(last) >= interval*9/10 {
					last = t
					return img, release, nil
				}
				release()
			}
		})
	}
}
