package callmedia

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/talky/callmedia/internal/logging"
	"github.com/talky/callmedia/pkg/container"
)

var recorderLogger = logging.NewLogger("callmedia/recorder")

var (
	// ErrInvalidState is returned when a recorder operation is not allowed in
	// the current recording state.
	ErrInvalidState = errors.New("callmedia: recorder is in an invalid state for the operation")
	// ErrNotSupported is returned for a MIME type no container is registered for.
	ErrNotSupported = container.ErrNotSupported
	// ErrNoTracks is returned when recording a stream without tracks.
	ErrNoTracks = errors.New("callmedia: stream has no tracks")
)

// RecordingState represents https://w3c.github.io/mediacapture-record/#recordingstate
type RecordingState int

// RecordingState definitions.
const (
	RecordingInactive RecordingState = iota
	RecordingActive
	RecordingPaused
)

func (s RecordingState) String() string {
	switch s {
	case RecordingInactive:
		return "inactive"
	case RecordingActive:
		return "recording"
	case RecordingPaused:
		return "paused"
	}
	return "unknown"
}

// RecorderOptions configures a recorder.
type RecorderOptions struct {
	// MimeType of the recording. Empty picks container.DefaultMimeType.
	MimeType string
	// TimeSlice is the interval data is delivered at. Zero delivers
	// everything when the recorder stops.
	TimeSlice time.Duration
}

// Recorder is an interface that represent MediaRecorder
// Reference: https://w3c.github.io/mediacapture-record/#mediarecorder-api
type Recorder interface {
	MimeType() string
	State() RecordingState
	// OnDataAvailable registers the handler chunks of recorded data are
	// delivered to. Handlers are called from a single goroutine at a time.
	OnDataAvailable(handler func([]byte))
	// OnStop registers a handler called after the last chunk was delivered.
	OnStop(handler func())
	Start() error
	Pause() error
	Resume() error
	// Stop asks the recorder to stop. The final chunk and the stop handlers
	// are delivered asynchronously, Done is closed afterwards.
	Stop() error
	Done() <-chan struct{}
}

// MediaRecorder records the tracks of a MediaStream into a container.
type MediaRecorder struct {
	stream    MediaStream
	mimeType  string
	timeSlice time.Duration

	mu    sync.Mutex
	state RecordingState
	// accepting is false while paused. Stop leaves it untouched so that
	// samples captured before the stop are still drained into the muxer.
	accepting bool
	onData    []func([]byte)
	onStop    []func()
	buf       bytes.Buffer
	muxer     container.Muxer
	readers   []SampleReader
	stopCh    chan struct{}
	done      chan struct{}

	// serializes data delivery
	deliverMu sync.Mutex
}

// NewMediaRecorder creates a recorder for stream. The tracks are read from
// the stream when recording starts.
func NewMediaRecorder(stream MediaStream, opts RecorderOptions) (*MediaRecorder, error) {
	mimeType := opts.MimeType
	if mimeType == "" {
		mimeType = container.DefaultMimeType
	}
	if !container.IsSupported(mimeType) {
		return nil, fmt.Errorf("%w: %q", ErrNotSupported, mimeType)
	}

	done := make(chan struct{})
	close(done)
	return &MediaRecorder{
		stream:    stream,
		mimeType:  mimeType,
		timeSlice: opts.TimeSlice,
		done:      done,
	}, nil
}

func (r *MediaRecorder) MimeType() string {
	return r.mimeType
}

func (r *MediaRecorder) State() RecordingState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *MediaRecorder) OnDataAvailable(handler func([]byte)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onData = append(r.onData, handler)
}

func (r *MediaRecorder) OnStop(handler func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onStop = append(r.onStop, handler)
}

// Done returns a channel closed once the recorder has delivered its last
// chunk. It is closed before the first Start.
func (r *MediaRecorder) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

func (r *MediaRecorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != RecordingInactive {
		return ErrInvalidState
	}
	select {
	case <-r.done:
	default:
		// the previous recording is still flushing
		return ErrInvalidState
	}

	tracks := r.stream.GetTracks()
	if len(tracks) == 0 {
		return ErrNoTracks
	}

	r.buf.Reset()
	muxer, err := container.New(r.mimeType, &r.buf)
	if err != nil {
		return err
	}
	infos := make([]container.TrackInfo, 0, len(tracks))
	for _, t := range tracks {
		infos = append(infos, container.TrackInfo{
			ID:       t.ID(),
			Kind:     t.Kind().String(),
			Label:    t.Label(),
			MimeType: t.MimeType(),
		})
	}
	if err := muxer.WriteHeader(infos); err != nil {
		return err
	}

	r.muxer = muxer
	r.state = RecordingActive
	r.accepting = true
	r.stopCh = make(chan struct{})
	r.done = make(chan struct{})
	r.readers = r.readers[:0]

	var wg sync.WaitGroup
	for _, t := range tracks {
		reader := t.NewSampleReader()
		r.readers = append(r.readers, reader)
		wg.Add(1)
		go func(trackID string, reader SampleReader) {
			defer wg.Done()
			r.pump(trackID, reader)
		}(t.ID(), reader)
	}

	tickDone := make(chan struct{})
	go r.tick(r.stopCh, tickDone)
	go r.finalize(r.stopCh, &wg, tickDone, r.done)

	recorderLogger.Infof("recording %d track(s) as %s", len(tracks), r.mimeType)
	return nil
}

func (r *MediaRecorder) pump(trackID string, reader SampleReader) {
	for {
		s, err := reader.Read()
		if err != nil {
			return
		}

		r.mu.Lock()
		if r.accepting && r.muxer != nil {
			if err := r.muxer.WriteSample(trackID, s); err != nil {
				recorderLogger.Warnf("failed to write sample of track %s: %v", trackID, err)
			}
		}
		r.mu.Unlock()
	}
}

func (r *MediaRecorder) tick(stopCh <-chan struct{}, tickDone chan<- struct{}) {
	defer close(tickDone)
	if r.timeSlice <= 0 {
		<-stopCh
		return
	}

	ticker := time.NewTicker(r.timeSlice)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			r.deliver(r.takeBuffered(false), false)
		}
	}
}

func (r *MediaRecorder) finalize(stopCh <-chan struct{}, wg *sync.WaitGroup, tickDone <-chan struct{}, done chan struct{}) {
	<-stopCh

	r.mu.Lock()
	readers := r.readers
	r.readers = nil
	r.mu.Unlock()
	for _, reader := range readers {
		reader.Close()
	}
	wg.Wait()
	<-tickDone

	r.deliver(r.takeBuffered(true), true)
	close(done)
}

// takeBuffered returns the bytes muxed since the last call. With last set
// the muxer is closed first.
func (r *MediaRecorder) takeBuffered(last bool) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	if last && r.muxer != nil {
		if err := r.muxer.Close(); err != nil {
			recorderLogger.Warnf("failed to close muxer: %v", err)
		}
		r.muxer = nil
	}
	if r.buf.Len() == 0 {
		return nil
	}
	chunk := bytes.Clone(r.buf.Bytes())
	r.buf.Reset()
	return chunk
}

func (r *MediaRecorder) deliver(chunk []byte, stopped bool) {
	r.deliverMu.Lock()
	defer r.deliverMu.Unlock()

	r.mu.Lock()
	onData := append([]func([]byte){}, r.onData...)
	onStop := append([]func(){}, r.onStop...)
	r.mu.Unlock()

	if len(chunk) > 0 {
		for _, h := range onData {
			h(chunk)
		}
	}
	if stopped {
		for _, h := range onStop {
			h()
		}
	}
}

func (r *MediaRecorder) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case RecordingInactive:
		return ErrInvalidState
	case RecordingActive:
		r.state = RecordingPaused
		r.accepting = false
	}
	return nil
}

func (r *MediaRecorder) Resume() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case RecordingInactive:
		return ErrInvalidState
	case RecordingPaused:
		r.state = RecordingActive
		r.accepting = true
	}
	return nil
}

func (r *MediaRecorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == RecordingInactive {
		return ErrInvalidState
	}
	r.state = RecordingInactive
	close(r.stopCh)
	return nil
}
