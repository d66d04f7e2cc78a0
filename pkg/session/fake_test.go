package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/talky/callmedia"
	"github.com/talky/callmedia/pkg/driver"
	"github.com/talky/callmedia/pkg/prop"
)

var trackSeq atomic.Int64

type fakeTrack struct {
	id     string
	kind   callmedia.MediaDeviceType
	source driver.DeviceType

	mu      sync.Mutex
	stopped bool
	onEnded []func(error)
}

func newFakeTrack(kind callmedia.MediaDeviceType, source driver.DeviceType) *fakeTrack {
	return &fakeTrack{
		id:     fmt.Sprintf("%s-%d", source, trackSeq.Add(1)),
		kind:   kind,
		source: source,
	}
}

func (t *fakeTrack) ID() string                      { return t.id }
func (t *fakeTrack) Kind() callmedia.MediaDeviceType { return t.kind }
func (t *fakeTrack) Source() driver.DeviceType       { return t.source }
func (t *fakeTrack) Label() string                   { return string(t.source) }
func (t *fakeTrack) MimeType() string                { return "" }
func (t *fakeTrack) Settings() prop.Media            { return prop.Media{} }

func (t *fakeTrack) ReadyState() callmedia.TrackState {
	if t.isStopped() {
		return callmedia.TrackStateEnded
	}
	return callmedia.TrackStateLive
}

func (t *fakeTrack) OnEnded(handler func(error)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onEnded = append(t.onEnded, handler)
}

func (t *fakeTrack) NewSampleReader() callmedia.SampleReader { return nil }

func (t *fakeTrack) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

func (t *fakeTrack) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// end simulates the source ending on its own.
func (t *fakeTrack) end(err error) {
	t.mu.Lock()
	t.stopped = true
	handlers := t.onEnded
	t.mu.Unlock()
	for _, h := range handlers {
		h(err)
	}
}

type userMediaCall struct {
	video, audio bool
}

type fakeProvider struct {
	mu           sync.Mutex
	userCalls    []userMediaCall
	displayCalls int
	userErr      error
	displayErr   error
	delay        time.Duration
	inFlight     int
	maxInFlight  int
	tracks       []*fakeTrack
	supported    map[string]bool
	recorders    []*fakeRecorder
	chunks       [][]byte
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{supported: make(map[string]bool)}
}

func (p *fakeProvider) enter() {
	p.mu.Lock()
	p.inFlight++
	p.maxInFlight = max(p.maxInFlight, p.inFlight)
	delay := p.delay
	p.mu.Unlock()
	time.Sleep(delay)
}

func (p *fakeProvider) leave() {
	p.mu.Lock()
	p.inFlight--
	p.mu.Unlock()
}

func (p *fakeProvider) GetUserMedia(ctx context.Context, c callmedia.MediaStreamConstraints) (callmedia.MediaStream, error) {
	p.enter()
	defer p.leave()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.userCalls = append(p.userCalls, userMediaCall{video: c.Video != nil, audio: c.Audio != nil})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.userErr != nil {
		return nil, p.userErr
	}

	var tracks []callmedia.Track
	if c.Video != nil {
		t := newFakeTrack(callmedia.VideoInput, driver.Camera)
		p.tracks = append(p.tracks, t)
		tracks = append(tracks, t)
	}
	if c.Audio != nil {
		t := newFakeTrack(callmedia.AudioInput, driver.Microphone)
		p.tracks = append(p.tracks, t)
		tracks = append(tracks, t)
	}
	return callmedia.NewMediaStream(tracks...)
}

func (p *fakeProvider) GetDisplayMedia(ctx context.Context, c callmedia.MediaStreamConstraints) (callmedia.MediaStream, error) {
	p.enter()
	defer p.leave()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.displayCalls++
	if p.displayErr != nil {
		return nil, p.displayErr
	}
	t := newFakeTrack(callmedia.VideoInput, driver.Screen)
	p.tracks = append(p.tracks, t)
	return callmedia.NewMediaStream(t)
}

func (p *fakeProvider) IsTypeSupported(mimeType string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.supported[mimeType]
}

func (p *fakeProvider) NewRecorder(stream callmedia.MediaStream, opts callmedia.RecorderOptions) (callmedia.Recorder, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	r := &fakeRecorder{mimeType: opts.MimeType, chunks: p.chunks, done: make(chan struct{})}
	p.recorders = append(p.recorders, r)
	return r, nil
}

func (p *fakeProvider) calls() []userMediaCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]userMediaCall(nil), p.userCalls...)
}

func (p *fakeProvider) recorderCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.recorders)
}

// fakeRecorder delivers its chunks when stopped.
type fakeRecorder struct {
	mimeType string
	chunks   [][]byte
	done     chan struct{}

	mu     sync.Mutex
	state  callmedia.RecordingState
	onData []func([]byte)
	onStop []func()
}

func (r *fakeRecorder) MimeType() string { return r.mimeType }

func (r *fakeRecorder) State() callmedia.RecordingState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *fakeRecorder) OnDataAvailable(h func([]byte)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onData = append(r.onData, h)
}

func (r *fakeRecorder) OnStop(h func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onStop = append(r.onStop, h)
}

func (r *fakeRecorder) Start() error {
	return r.transition(callmedia.RecordingInactive, callmedia.RecordingActive)
}

func (r *fakeRecorder) Pause() error {
	return r.transition(callmedia.RecordingActive, callmedia.RecordingPaused)
}

func (r *fakeRecorder) Resume() error {
	return r.transition(callmedia.RecordingPaused, callmedia.RecordingActive)
}

func (r *fakeRecorder) transition(from, to callmedia.RecordingState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != from {
		return callmedia.ErrInvalidState
	}
	r.state = to
	return nil
}

func (r *fakeRecorder) Stop() error {
	r.mu.Lock()
	if r.state == callmedia.RecordingInactive {
		r.mu.Unlock()
		return callmedia.ErrInvalidState
	}
	r.state = callmedia.RecordingInactive
	onData, onStop := r.onData, r.onStop
	r.mu.Unlock()

	go func() {
		for _, c := range r.chunks {
			for _, h := range onData {
				h(c)
			}
		}
		for _, h := range onStop {
			h()
		}
		close(r.done)
	}()
	return nil
}

func (r *fakeRecorder) Done() <-chan struct{} { return r.done }
