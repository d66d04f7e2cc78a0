// Package audiotest provides dummy audio driver for testing.
package audiotest

import (
	"context"
	"io"
	"math"
	"time"

	"github.com/talky/callmedia/pkg/driver"
	"github.com/talky/callmedia/pkg/io/audio"
	"github.com/talky/callmedia/pkg/prop"
)

// Label of the registered driver.
const Label = "AudioTest"

func init() {
	driver.GetManager().Register(
		&dummy{}, driver.Info{Label: Label, DeviceType: driver.Microphone},
	)
}

type dummy struct {
	closed <-chan struct{}
	cancel func()
}

func (d *dummy) Open() error {
	ctx, cancel := context.WithCancel(context.Background())
	d.closed = ctx.Done()
	d.cancel = cancel
	return nil
}

func (d *dummy) Close() error {
	d.cancel()
	return nil
}

func (d *dummy) AudioRecord(p prop.Media) (audio.Reader, error) {
	var sin [100]int16
	for i := range sin {
		sin[i] = int16(math.Sin(2*math.Pi*float64(i)/100) * 0.25 * math.MaxInt16) // 480 Hz
	}

	if p.Latency == 0 {
		p.Latency = 20 * time.Millisecond
	}
	if p.ChannelCount == 0 {
		p.ChannelCount = 1
	}
	nSample := int(uint64(p.SampleRate) * uint64(p.Latency) / uint64(time.Second))

	nextReadTime := time.Now()
	var phase int

	closed := d.closed

	reader := audio.ReaderFunc(func() (audio.Chunk, func(), error) {
		select {
		case <-closed:
			return audio.Chunk{}, func() {}, io.EOF
		case <-time.After(time.Until(nextReadTime)):
		}
		nextReadTime = nextReadTime.Add(p.Latency)

		samples := make([]int16, nSample*p.ChannelCount)
		for i := 0; i < nSample; i++ {
			phase++
			if phase >= len(sin) {
				phase = 0
			}
			for ch := 0; ch < p.ChannelCount; ch++ {
				samples[i*p.ChannelCount+ch] = sin[phase]
			}
		}
		return audio.Chunk{
			Samples:    samples,
			Channels:   p.ChannelCount,
			SampleRate: p.SampleRate,
		}, func() {}, nil
	})
	return reader, nil
}

func (d *dummy) Properties() []prop.Media {
	return []prop.Media{
		{
			Audio: prop.Audio{
				SampleRate:   48000,
				Latency:      time.Millisecond * 20,
				ChannelCount: 1,
			},
		},
		{
			Audio: prop.Audio{
				SampleRate:   48000,
				Latency:      time.Millisecond * 20,
				ChannelCount: 2,
			},
		},
	}
}
