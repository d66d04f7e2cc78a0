package callmedia

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/talky/callmedia/internal/logging"
	"github.com/talky/callmedia/pkg/container"
	"github.com/talky/callmedia/pkg/driver"
	"github.com/talky/callmedia/pkg/driver/availability"
	"github.com/talky/callmedia/pkg/io/audio"
	"github.com/talky/callmedia/pkg/io/video"
	"github.com/talky/callmedia/pkg/prop"
)

var logger = logging.NewLogger("callmedia")

var (
	// ErrNotFound is returned when no registered device fits the constraints.
	ErrNotFound = errors.New("callmedia: failed to find the best driver that fits the constraints")
	// ErrNoConstraints is returned when neither audio nor video was requested.
	ErrNoConstraints = errors.New("callmedia: at least one of audio and video must be requested")
)

// MediaDevices provides access to connected media input devices like cameras and
// microphones, as well as screen sharing.
// Reference: https://developer.mozilla.org/en-US/docs/Web/API/MediaDevices
type MediaDevices struct {
	opts MediaDevicesOptions
}

// MediaDevicesOptions stores parameters used by MediaDevices.
type MediaDevicesOptions struct {
	videoTransform     video.TransformFunc
	audioTransform     audio.TransformFunc
	jpegQuality        int
	noiseGateThreshold float64
	autoGainTarget     float64
}

// MediaDevicesOption is a type of MediaDevices functional option.
type MediaDevicesOption func(*MediaDevicesOptions)

// WithVideoTransformers will be used to transform the video that's coming from the driver.
// So, basically it'll look like following: driver -> VideoTransform -> encoder
func WithVideoTransformers(transformFuncs ...video.TransformFunc) MediaDevicesOption {
	return func(o *MediaDevicesOptions) {
		o.videoTransform = video.Merge(transformFuncs...)
	}
}

// WithAudioTransformers will be used to transform the audio that's coming from the driver.
// So, basically it'll look like following: driver -> AudioTransform -> encoder
func WithAudioTransformers(transformFuncs ...audio.TransformFunc) MediaDevicesOption {
	return func(o *MediaDevicesOptions) {
		o.audioTransform = audio.Merge(transformFuncs...)
	}
}

// WithJPEGQuality sets the quality, 1 to 100, video frames are encoded with.
func WithJPEGQuality(quality int) MediaDevicesOption {
	return func(o *MediaDevicesOptions) {
		o.jpegQuality = min(max(quality, 1), 100)
	}
}

// WithNoiseGate sets the RMS level, relative to full scale, under which
// audio is muted when noise suppression is on.
func WithNoiseGate(threshold float64) MediaDevicesOption {
	return func(o *MediaDevicesOptions) {
		o.noiseGateThreshold = threshold
	}
}

// WithAutoGain sets the peak level, relative to full scale, auto gain
// control aims for.
func WithAutoGain(targetPeak float64) MediaDevicesOption {
	return func(o *MediaDevicesOptions) {
		o.autoGainTarget = targetPeak
	}
}

// NewMediaDevices creates a MediaDevices backed by the drivers registered to
// the driver manager.
func NewMediaDevices(opts ...MediaDevicesOption) *MediaDevices {
	mdo := MediaDevicesOptions{
		videoTransform:     video.Merge(),
		audioTransform:     audio.Merge(),
		jpegQuality:        80,
		noiseGateThreshold: 0.01,
		autoGainTarget:     0.5,
	}
	for _, o := range opts {
		o(&mdo)
	}
	return &MediaDevices{opts: mdo}
}

var _ MediaCaptureProvider = (*MediaDevices)(nil)

// GetDisplayMedia prompts the user to select and grant permission to capture the contents
// of a display or portion thereof (such as a window) as a MediaStream.
// Reference: https://developer.mozilla.org/en-US/docs/Web/API/MediaDevices/getDisplayMedia
func (m *MediaDevices) GetDisplayMedia(ctx context.Context, constraints MediaStreamConstraints) (MediaStream, error) {
	if constraints.Video == nil {
		return nil, ErrNoConstraints
	}
	return m.getMedia(ctx, []trackRequest{
		{kind: VideoInput, screen: true, constraints: constraints.Video.resolve()},
	})
}

// GetUserMedia prompts the user for permission to use a media input which produces a MediaStream
// with tracks containing the requested types of media.
// Reference: https://developer.mozilla.org/en-US/docs/Web/API/MediaDevices/getUserMedia
func (m *MediaDevices) GetUserMedia(ctx context.Context, constraints MediaStreamConstraints) (MediaStream, error) {
	var requests []trackRequest
	if constraints.Video != nil {
		requests = append(requests, trackRequest{kind: VideoInput, constraints: constraints.Video.resolve()})
	}
	if constraints.Audio != nil {
		requests = append(requests, trackRequest{kind: AudioInput, constraints: constraints.Audio.resolve()})
	}
	if len(requests) == 0 {
		return nil, ErrNoConstraints
	}
	return m.getMedia(ctx, requests)
}

type trackRequest struct {
	kind        MediaDeviceType
	screen      bool
	constraints MediaTrackConstraints
}

func (r trackRequest) filter() driver.FilterFn {
	var filters []driver.FilterFn
	switch {
	case r.screen:
		filters = append(filters, driver.FilterVideoRecorder(), driver.FilterDeviceType(driver.Screen))
	case r.kind == VideoInput:
		filters = append(filters, driver.FilterVideoRecorder(), driver.FilterNot(driver.FilterDeviceType(driver.Screen)))
	default:
		filters = append(filters, driver.FilterAudioRecorder())
	}
	if r.constraints.DeviceID != "" {
		filters = append(filters, driver.FilterID(r.constraints.DeviceID))
	}
	return driver.FilterAnd(filters...)
}

func (m *MediaDevices) getMedia(ctx context.Context, requests []trackRequest) (MediaStream, error) {
	tracks := make([]Track, 0, len(requests))

	cleanTracks := func() {
		for _, t := range tracks {
			t.Stop()
		}
	}

	for _, r := range requests {
		if err := ctx.Err(); err != nil {
			cleanTracks()
			return nil, err
		}

		t, err := m.selectTrack(r)
		if err != nil {
			cleanTracks()
			return nil, fmt.Errorf("callmedia: %s: %w", r.kind, err)
		}
		tracks = append(tracks, t)
	}

	if err := ctx.Err(); err != nil {
		cleanTracks()
		return nil, err
	}

	s, err := NewMediaStream(tracks...)
	if err != nil {
		cleanTracks()
		return nil, err
	}

	return s, nil
}

func (m *MediaDevices) selectTrack(r trackRequest) (Track, error) {
	d, p, err := selectBestDriver(r.filter(), r.constraints)
	if err != nil {
		return nil, err
	}

	if r.kind == AudioInput {
		return newAudioTrack(&m.opts, d, p, r.constraints)
	}
	return newVideoTrack(&m.opts, d, p, r.constraints)
}

type driverProperties struct {
	d     driver.Driver
	props []prop.Media
}

// queryDriverProperties opens the idle drivers matching filter to read what
// they support. Drivers already in use are counted as busy. The first open
// error is returned so that a denied permission is not reported as a missing
// device.
func queryDriverProperties(filter driver.FilterFn) (results []driverProperties, busy int, openErr error) {
	for _, d := range driver.GetManager().Query(filter) {
		if d.Status() != driver.StateClosed {
			busy++
			continue
		}

		if err := d.Open(); err != nil {
			logger.Debugf("skip driver %s: %v", d.ID(), err)
			if openErr == nil {
				openErr = err
			}
			continue
		}
		results = append(results, driverProperties{d: d, props: d.Properties()})
		// Since it was closed, we should close it to avoid a leak
		d.Close()
	}
	return results, busy, openErr
}

// select implements SelectSettings algorithm.
// Reference: https://w3c.github.io/mediacapture-main/#dfn-selectsettings
func selectBestDriver(filter driver.FilterFn, constraints MediaTrackConstraints) (driver.Driver, prop.Media, error) {
	var bestDriver driver.Driver
	var bestProp prop.Media
	minFitnessDist := math.Inf(1)

	candidates, busy, openErr := queryDriverProperties(filter)
	for _, c := range candidates {
		priority := float64(c.d.Info().Priority)
		for _, p := range c.props {
			p.DeviceID = c.d.ID()
			fitnessDist, ok := constraints.FitnessDistance(p)
			if !ok {
				continue
			}
			fitnessDist -= priority
			if fitnessDist < minFitnessDist {
				minFitnessDist = fitnessDist
				bestDriver = c.d
				bestProp = p
			}
		}
	}

	if bestDriver != nil {
		return bestDriver, bestProp, nil
	}

	switch {
	case openErr != nil:
		return nil, prop.Media{}, openErr
	case busy > 0:
		return nil, prop.Media{}, fmt.Errorf("%w: %d matching device(s) in use", availability.ErrBusy, busy)
	}
	return nil, prop.Media{}, ErrNotFound
}

// EnumerateDevices lists the registered input devices.
// Reference: https://developer.mozilla.org/en-US/docs/Web/API/MediaDevices/enumerateDevices
func (m *MediaDevices) EnumerateDevices() []MediaDeviceInfo {
	drivers := driver.GetManager().Query(
		driver.FilterFn(func(driver.Driver) bool { return true }))
	info := make([]MediaDeviceInfo, 0, len(drivers))
	for _, d := range drivers {
		var kind MediaDeviceType
		switch {
		case driver.FilterVideoRecorder()(d):
			kind = VideoInput
		case driver.FilterAudioRecorder()(d):
			kind = AudioInput
		default:
			continue
		}
		driverInfo := d.Info()
		info = append(info, MediaDeviceInfo{
			DeviceID:   d.ID(),
			Kind:       kind,
			Label:      driverInfo.Label,
			DeviceType: driverInfo.DeviceType,
		})
	}
	return info
}

// IsTypeSupported reports whether a recorder can be created for mimeType.
// Reference: https://developer.mozilla.org/en-US/docs/Web/API/MediaRecorder/isTypeSupported_static
func (m *MediaDevices) IsTypeSupported(mimeType string) bool {
	return container.IsSupported(mimeType)
}

// NewRecorder creates a MediaRecorder for stream.
func (m *MediaDevices) NewRecorder(stream MediaStream, opts RecorderOptions) (Recorder, error) {
	r, err := NewMediaRecorder(stream, opts)
	if err != nil {
		return nil, err
	}
	return r, nil
}

var defaultMediaDevices = NewMediaDevices()

// GetUserMedia calls GetUserMedia on a MediaDevices with default options.
func GetUserMedia(ctx context.Context, constraints MediaStreamConstraints) (MediaStream, error) {
	return defaultMediaDevices.GetUserMedia(ctx, constraints)
}

// GetDisplayMedia calls GetDisplayMedia on a MediaDevices with default options.
func GetDisplayMedia(ctx context.Context, constraints MediaStreamConstraints) (MediaStream, error) {
	return defaultMediaDevices.GetDisplayMedia(ctx, constraints)
}

// EnumerateDevices lists the registered input devices.
func EnumerateDevices() []MediaDeviceInfo {
	return defaultMediaDevices.EnumerateDevices()
}

// IsTypeSupported reports whether a recorder can be created for mimeType.
func IsTypeSupported(mimeType string) bool {
	return container.IsSupported(mimeType)
}
