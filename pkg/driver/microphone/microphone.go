// Package microphone provides an audio capture driver backed by miniaudio.
package microphone

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/talky/callmedia/internal/logging"
	"github.com/talky/callmedia/pkg/driver"
	"github.com/talky/callmedia/pkg/driver/availability"
	"github.com/talky/callmedia/pkg/io/audio"
	"github.com/talky/callmedia/pkg/prop"
)

const (
	// miniaudio resamples, so one rate is advertised for every device.
	sampleRate = 48000
	latency    = 20 * time.Millisecond
)

var (
	logger = logging.NewLogger("callmedia/driver/microphone")
	ctx    *malgo.AllocatedContext

	errDeviceStopped = errors.New("microphone: device stopped")
)

type microphone struct {
	malgo.DeviceInfo
	chunkChan chan []byte
	device    *malgo.Device
}

func init() {
	var err error
	ctx, err = malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logger.Debugf("%v", message)
	})
	if err != nil {
		logger.Warnf("failed to initialize audio context: %v", err)
		return
	}

	devices, err := ctx.Devices(malgo.Capture)
	if err != nil {
		logger.Warnf("failed to list capture devices: %v", err)
		return
	}

	for _, device := range devices {
		priority := driver.PriorityNormal
		if device.IsDefault > 0 {
			priority = driver.PriorityHigh
		}
		err := driver.GetManager().Register(newMicrophone(device), driver.Info{
			Label:      device.Name(),
			DeviceType: driver.Microphone,
			Priority:   priority,
		})
		if err != nil {
			logger.Warnf("failed to register %s: %v", device.Name(), err)
		}
	}
}

func newMicrophone(info malgo.DeviceInfo) *microphone {
	return &microphone{
		DeviceInfo: info,
	}
}

func (m *microphone) Open() error {
	if ctx == nil {
		return availability.ErrNoDevice
	}
	m.chunkChan = make(chan []byte, 8)
	return nil
}

func (m *microphone) Close() error {
	if m.device != nil {
		m.device.Uninit()
		m.device = nil
	}
	if m.chunkChan != nil {
		close(m.chunkChan)
		m.chunkChan = nil
	}
	return nil
}

func (m *microphone) AudioRecord(p prop.Media) (audio.Reader, error) {
	channels := p.ChannelCount
	if channels == 0 {
		channels = 1
	}

	config := malgo.DefaultDeviceConfig(malgo.Capture)
	config.Capture.Format = malgo.FormatS16
	config.Capture.Channels = uint32(channels)
	config.Capture.DeviceID = m.ID.Pointer()
	config.SampleRate = sampleRate
	config.PeriodSizeInMilliseconds = uint32(latency / time.Millisecond)

	chunkChan := m.chunkChan
	onRecvChunk := func(_, chunk []byte, _ uint32) {
		// miniaudio reuses the buffer after the callback returns
		b := make([]byte, len(chunk))
		copy(b, chunk)
		select {
		case chunkChan <- b:
		default:
			logger.Debug("dropping audio chunk, reader is too slow")
		}
	}

	device, err := malgo.InitDevice(ctx.Context, config, malgo.DeviceCallbacks{Data: onRecvChunk})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", availability.ErrBusy, err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, fmt.Errorf("%w: %v", availability.ErrBusy, err)
	}
	m.device = device

	reader := audio.ReaderFunc(func() (audio.Chunk, func(), error) {
		chunk, ok := <-chunkChan
		if !ok {
			return audio.Chunk{}, func() {}, io.EOF
		}
		if !device.IsStarted() {
			return audio.Chunk{}, func() {}, errDeviceStopped
		}

		// FormatS16 is delivered in host byte order, which is little endian
		// on every platform miniaudio supports here.
		samples := make([]int16, len(chunk)/2)
		for i := range samples {
			samples[i] = int16(binary.LittleEndian.Uint16(chunk[i*2:]))
		}
		return audio.Chunk{
			Samples:    samples,
			Channels:   channels,
			SampleRate: sampleRate,
		}, func() {}, nil
	})
	return reader, nil
}

func (m *microphone) Properties() []prop.Media {
	var supportedProps []prop.Media
	for _, ch := range []int{1, 2} {
		supportedProps = append(supportedProps, prop.Media{
			Audio: prop.Audio{
				ChannelCount: ch,
				SampleRate:   sampleRate,
				Latency:      latency,
			},
		})
	}
	return supportedProps
}
