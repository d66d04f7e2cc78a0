package audio

import "math"

const maxGain = 8.0

// AutoGain returns a transform that scales the signal towards targetPeak
// (0 < targetPeak <= 1, relative to full scale). The gain adapts slowly:
// it drops immediately on clipping peaks and rises by at most 5% per chunk.
func AutoGain(targetPeak float64) TransformFunc {
	return func(r Reader) Reader {
		gain := 1.0
		var buf []int16
		return ReaderFunc(func() (Chunk, func(), error) {
			c, release, err := r.Read()
			if err != nil {
				return Chunk{}, func() {}, err
			}
			defer release()

			var peak int
			for _, s := range c.Samples {
				v := int(s)
				if v < 0 {
					v = -v
				}
				if v > peak {
					peak = v
				}
			}
			if peak > 0 {
				want := targetPeak * math.MaxInt16 / float64(peak)
				switch {
				case want < gain:
					gain = want
				case want > gain:
					gain = math.Min(gain*1.05, want)
				}
				gain = math.Min(gain, maxGain)
			}

			if cap(buf) < len(c.Samples) {
				buf = make([]int16, len(c.Samples))
			}
			buf = buf[:len(c.Samples)]
			for i, s := range c.Samples {
				buf[i] = clamp(float64(s) * gain)
			}
			c.Samples = buf
			return c, func() {}, nil
		})
	}
}

func clamp(v float64) int16 {
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	default:
		return int16(v)
	}
}
