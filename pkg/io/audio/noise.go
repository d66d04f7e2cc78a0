package audio

import "math"

// NoiseGate returns a transform that silences chunks whose RMS level is below
// threshold (relative to full scale).
func NoiseGate(threshold float64) TransformFunc {
	return func(r Reader) Reader {
		var silence []int16
		return ReaderFunc(func() (Chunk, func(), error) {
			c, release, err := r.Read()
			if err != nil {
				return Chunk{}, func() {}, err
			}
			if len(c.Samples) == 0 || rms(c.Samples) >= threshold {
				return c, release, nil
			}
			release()

			if cap(silence) < len(c.Samples) {
				silence = make([]int16, len(c.Samples))
			}
			c.Samples = silence[:len(c.Samples)]
			return c, func() {}, nil
		})
	}
}

func rms(samples []int16) float64 {
	var sum float64
	for _, s := range samples {
		v := float64(s) / math.MaxInt16
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}
