package audio

import "time"

// Chunk is a block of interleaved signed 16-bit PCM samples.
type Chunk struct {
	Samples    []int16
	Channels   int
	SampleRate int
}

// Frames returns the number of sample frames, i.e. samples per channel.
func (c Chunk) Frames() int {
	if c.Channels == 0 {
		return 0
	}
	return len(c.Samples) / c.Channels
}

// Duration returns the playback duration of the chunk.
func (c Chunk) Duration() time.Duration {
	if c.SampleRate == 0 {
		return 0
	}
	return time.Duration(c.Frames()) * time.Second / time.Duration(c.SampleRate)
}

type Reader interface {
	// Read reads data from the source. The caller is not allowed to modify nor
	// hold the samples after release is called.
	Read() (chunk Chunk, release func(), err error)
}

type ReaderFunc func() (chunk Chunk, release func(), err error)

func (rf ReaderFunc) Read() (chunk Chunk, release func(), err error) {
	chunk, release, err = rf()
	return
}

// TransformFunc produces a new Reader that will produces a transformed audio
type TransformFunc func(r Reader) Reader

// Merge merges transforms and produces a new TransformFunc that will execute
// transforms in order
func Merge(transforms ...TransformFunc) TransformFunc {
	return func(r Reader) Reader {
		for _, transform := range transforms {
			if transform == nil {
				continue
			}

			r = transform(r)
		}

		return r
	}
}
