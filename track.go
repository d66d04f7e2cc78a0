package callmedia

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image/jpeg"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/talky/callmedia/pkg/driver"
	"github.com/talky/callmedia/pkg/io/audio"
	"github.com/talky/callmedia/pkg/io/video"
	"github.com/talky/callmedia/pkg/prop"
)

const (
	// MimeTypeJPEG is the sample format of video tracks.
	MimeTypeJPEG = "image/jpeg"

	sampleReaderBufferSize = 64
)

// TrackState represents https://w3c.github.io/mediacapture-main/#dom-mediastreamtrackstate
type TrackState string

// TrackState definitions.
const (
	TrackStateLive  TrackState = "live"
	TrackStateEnded TrackState = "ended"
)

// Track is an interface that represent MediaStreamTrack
// Reference: https://w3c.github.io/mediacapture-main/#mediastreamtrack
type Track interface {
	ID() string
	Kind() MediaDeviceType
	// Source is the type of device feeding the track.
	Source() driver.DeviceType
	Label() string
	// MimeType is the format of the samples the track produces.
	MimeType() string
	Settings() prop.Media
	ReadyState() TrackState
	// OnEnded registers a handler that is called once the source ends on its
	// own, for example when the device is unplugged or display capture is
	// revoked. Handlers registered after the end are called immediately.
	// Stopping the track through Stop does not call the handlers.
	OnEnded(handler func(error))
	// NewSampleReader subscribes to the encoded samples of the track.
	NewSampleReader() SampleReader
	// Stop implements https://w3c.github.io/mediacapture-main/#dom-mediastreamtrack-stop
	// and releases the device. Stop is idempotent.
	Stop()
}

// SampleReader reads encoded samples from a track. Read returns io.EOF once
// the track was stopped or the reader closed, and the source error when the
// track ended on its own.
type SampleReader interface {
	Read() (media.Sample, error)
	Close() error
}

type baseTrack struct {
	id       string
	kind     MediaDeviceType
	label    string
	mimeType string
	settings prop.Media
	d        driver.Driver

	mu      sync.Mutex
	state   TrackState
	stopped bool
	err     error
	onEnded []func(error)
	readers map[*sampleReader]struct{}
}

func newBaseTrack(d driver.Driver, kind MediaDeviceType, settings prop.Media, mimeType string) *baseTrack {
	return &baseTrack{
		id:       uuid.NewString(),
		kind:     kind,
		label:    d.Info().Label,
		mimeType: mimeType,
		settings: settings,
		d:        d,
		state:    TrackStateLive,
		readers:  make(map[*sampleReader]struct{}),
	}
}

func (t *baseTrack) ID() string {
	return t.id
}

func (t *baseTrack) Kind() MediaDeviceType {
	return t.kind
}

func (t *baseTrack) Source() driver.DeviceType {
	return t.d.Info().DeviceType
}

func (t *baseTrack) Label() string {
	return t.label
}

func (t *baseTrack) MimeType() string {
	return t.mimeType
}

func (t *baseTrack) Settings() prop.Media {
	return t.settings
}

func (t *baseTrack) ReadyState() TrackState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *baseTrack) String() string {
	return fmt.Sprintf("%s track %s (%s)", t.kind, t.id, t.label)
}

func (t *baseTrack) OnEnded(handler func(error)) {
	t.mu.Lock()
	if t.state == TrackStateEnded {
		stopped, err := t.stopped, t.err
		t.mu.Unlock()
		if !stopped {
			go handler(err)
		}
		return
	}
	t.onEnded = append(t.onEnded, handler)
	t.mu.Unlock()
}

func (t *baseTrack) Stop() {
	t.mu.Lock()
	if t.stopped || t.state == TrackStateEnded {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	t.mu.Unlock()

	t.end(io.EOF)
}

// end moves the track to the ended state, releases the device and wakes up
// all readers. Only the first call has an effect.
func (t *baseTrack) end(err error) {
	t.mu.Lock()
	if t.state == TrackStateEnded {
		t.mu.Unlock()
		return
	}
	t.state = TrackStateEnded
	t.err = err
	handlers := t.onEnded
	t.onEnded = nil
	readers := t.readers
	t.readers = nil
	stopped := t.stopped
	t.mu.Unlock()

	if closeErr := t.d.Close(); closeErr != nil {
		logger.Warnf("%s: failed to release device: %v", t, closeErr)
	}

	for r := range readers {
		r.finish(err)
	}

	if stopped {
		return
	}
	logger.Infof("%s ended: %v", t, err)
	for _, h := range handlers {
		h(err)
	}
}

func (t *baseTrack) hasReaders() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.readers) > 0
}

func (t *baseTrack) broadcast(s media.Sample) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for r := range t.readers {
		r.push(s)
	}
}

func (t *baseTrack) NewSampleReader() SampleReader {
	r := &sampleReader{
		t:    t,
		ch:   make(chan media.Sample, sampleReaderBufferSize),
		done: make(chan struct{}),
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == TrackStateEnded {
		r.finish(t.err)
		return r
	}
	t.readers[r] = struct{}{}
	return r
}

func (t *baseTrack) removeReader(r *sampleReader) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.readers, r)
}

type sampleReader struct {
	t    *baseTrack
	ch   chan media.Sample
	once sync.Once
	done chan struct{}
	err  error
	// accessed with t.mu held
	dropped int
}

// push must be called with t.mu held.
func (r *sampleReader) push(s media.Sample) {
	select {
	case r.ch <- s:
	default:
		r.dropped++
		if r.dropped%sampleReaderBufferSize == 1 {
			logger.Warnf("%s: reader is too slow, %d samples dropped", r.t, r.dropped)
		}
	}
}

func (r *sampleReader) finish(err error) {
	r.once.Do(func() {
		r.err = err
		close(r.done)
	})
}

func (r *sampleReader) Read() (media.Sample, error) {
	select {
	case s := <-r.ch:
		return s, nil
	default:
	}

	select {
	case s := <-r.ch:
		return s, nil
	case <-r.done:
		// Drain what was buffered before the end.
		select {
		case s := <-r.ch:
			return s, nil
		default:
		}
		return media.Sample{}, r.err
	}
}

func (r *sampleReader) Close() error {
	r.t.removeReader(r)
	r.finish(io.EOF)
	return nil
}

// VideoTrack is a specific track type that contains video source which allows multiple readers to access, and manipulate.
type VideoTrack struct {
	*baseTrack
	quality int
}

func newVideoTrack(opts *MediaDevicesOptions, d driver.Driver, driverProp prop.Media, constraints MediaTrackConstraints) (*VideoTrack, error) {
	recorder, ok := d.(driver.VideoRecorder)
	if !ok {
		return nil, fmt.Errorf("callmedia: driver %s is not a video recorder", d.ID())
	}

	if err := d.Open(); err != nil {
		return nil, err
	}

	settings := constraints.Apply(driverProp)
	settings.DeviceID = d.ID()

	r, err := recorder.VideoRecord(driverProp)
	if err != nil {
		d.Close()
		return nil, err
	}

	var transforms []video.TransformFunc
	if settings.FrameRate > 0 && settings.FrameRate < driverProp.FrameRate {
		transforms = append(transforms, video.Throttle(settings.FrameRate))
	}
	if settings.Width != driverProp.Width || settings.Height != driverProp.Height {
		transforms = append(transforms, video.Scale(settings.Width, settings.Height, nil))
	}
	transforms = append(transforms, opts.videoTransform)
	r = video.Merge(transforms...)(r)

	t := &VideoTrack{
		baseTrack: newBaseTrack(d, VideoInput, settings, MimeTypeJPEG),
		quality:   opts.jpegQuality,
	}
	go t.run(r)
	return t, nil
}

func (t *VideoTrack) run(r video.Reader) {
	var buf bytes.Buffer
	var last time.Time
	frameDuration := time.Second / 30
	if t.settings.FrameRate > 0 {
		frameDuration = time.Duration(float32(time.Second) / t.settings.FrameRate)
	}

	for {
		img, release, err := r.Read()
		if err != nil {
			t.end(err)
			return
		}

		now := time.Now()
		if !t.hasReaders() {
			release()
			last = now
			continue
		}

		buf.Reset()
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: t.quality})
		release()
		if err != nil {
			t.end(fmt.Errorf("callmedia: encode frame: %w", err))
			return
		}

		duration := frameDuration
		if !last.IsZero() {
			duration = now.Sub(last)
		}
		last = now

		t.broadcast(media.Sample{
			Data:      bytes.Clone(buf.Bytes()),
			Timestamp: now,
			Duration:  duration,
		})
	}
}

// AudioTrack is a specific track type that contains audio source which allows multiple readers to access, and
// manipulate.
type AudioTrack struct {
	*baseTrack
}

func newAudioTrack(opts *MediaDevicesOptions, d driver.Driver, driverProp prop.Media, constraints MediaTrackConstraints) (*AudioTrack, error) {
	recorder, ok := d.(driver.AudioRecorder)
	if !ok {
		return nil, fmt.Errorf("callmedia: driver %s is not an audio recorder", d.ID())
	}

	if err := d.Open(); err != nil {
		return nil, err
	}

	settings := constraints.Apply(driverProp)
	settings.DeviceID = d.ID()

	r, err := recorder.AudioRecord(driverProp)
	if err != nil {
		d.Close()
		return nil, err
	}

	var transforms []audio.TransformFunc
	if settings.NoiseSuppression {
		transforms = append(transforms, audio.NoiseGate(opts.noiseGateThreshold))
	}
	if settings.AutoGainControl {
		transforms = append(transforms, audio.AutoGain(opts.autoGainTarget))
	}
	transforms = append(transforms, opts.audioTransform)
	r = audio.Merge(transforms...)(r)

	mimeType := fmt.Sprintf("audio/L16;rate=%d;channels=%d", driverProp.SampleRate, driverProp.ChannelCount)
	t := &AudioTrack{
		baseTrack: newBaseTrack(d, AudioInput, settings, mimeType),
	}
	go t.run(r)
	return t, nil
}

func (t *AudioTrack) run(r audio.Reader) {
	for {
		chunk, release, err := r.Read()
		if err != nil {
			t.end(err)
			return
		}

		if !t.hasReaders() {
			release()
			continue
		}

		// audio/L16 is big endian, see RFC 2586
		data := make([]byte, len(chunk.Samples)*2)
		for i, s := range chunk.Samples {
			binary.BigEndian.PutUint16(data[i*2:], uint16(s))
		}
		duration := chunk.Duration()
		release()

		t.broadcast(media.Sample{
			Data:      data,
			Timestamp: time.Now(),
			Duration:  duration,
		})
	}
}
