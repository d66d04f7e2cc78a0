// Package session manages the capture session of a call: camera,
// microphone, screen share and recording, driven from a call UI.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/talky/callmedia"
	"github.com/talky/callmedia/internal/logging"
)

var logger = logging.NewLogger("callmedia/session")

var (
	// ErrClosed is returned by operations on a closed Manager.
	ErrClosed = errors.New("session: manager is closed")
	// ErrNoStream is returned when recording is started without a capture
	// stream.
	ErrNoStream = errors.New("session: no capture stream to record")
	// ErrAlreadyRecording is returned when recording is started twice.
	ErrAlreadyRecording = errors.New("session: already recording")
)

type command struct {
	ctx  context.Context
	fn   func(ctx context.Context) error
	done chan error
}

// Manager owns the capture stream of a call. Every operation is queued and
// executed one at a time, so that only one device request is in flight.
// Device and permission failures are reported through State().Err, the
// returned errors are reserved for misuse, ctx errors and ErrClosed.
type Manager struct {
	provider callmedia.MediaCaptureProvider
	opts     options

	cmds      chan command
	closed    chan struct{}
	closeOnce sync.Once
	loopDone  chan struct{}

	mu       sync.Mutex
	state    State
	chunks   [][]byte
	handlers []func(State)
	// serializes state change notifications
	notifyMu sync.Mutex

	// owned by the loop goroutine
	stream    callmedia.MediaStream
	display   callmedia.Track
	recorder  callmedia.Recorder
	videoMode VideoMode
	audio     bool
	recState  callmedia.RecordingState
}

// NewManager creates a Manager capturing through provider.
func NewManager(provider callmedia.MediaCaptureProvider, opts ...Option) *Manager {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	m := &Manager{
		provider: provider,
		opts:     o,
		cmds:     make(chan command, o.queueSize),
		closed:   make(chan struct{}),
		loopDone: make(chan struct{}),
	}
	go m.loop()
	return m
}

func (m *Manager) loop() {
	defer close(m.loopDone)
	for {
		select {
		case cmd := <-m.cmds:
			if err := cmd.ctx.Err(); err != nil {
				cmd.done <- err
				continue
			}
			cmd.done <- cmd.fn(cmd.ctx)
		case <-m.closed:
			m.teardown()
			for {
				select {
				case cmd := <-m.cmds:
					cmd.done <- ErrClosed
				default:
					return
				}
			}
		}
	}
}

// do queues fn and waits for its result. When ctx is done while fn is
// running, fn still completes with a cancelled ctx.
func (m *Manager) do(ctx context.Context, fn func(ctx context.Context) error) error {
	cmd := command{ctx: ctx, fn: fn, done: make(chan error, 1)}

	select {
	case <-m.closed:
		return ErrClosed
	default:
	}

	select {
	case m.cmds <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	case <-m.closed:
		return ErrClosed
	}

	select {
	case err := <-cmd.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-m.loopDone:
		// The loop may have exited before draining cmd.
		select {
		case err := <-cmd.done:
			return err
		default:
			return ErrClosed
		}
	}
}

// Close stops every track and the recorder, and waits for the queued
// operations to be rejected. Close is idempotent.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		close(m.closed)
	})
	<-m.loopDone
	return nil
}

func (m *Manager) teardown() {
	if m.recorder != nil {
		if err := m.recorder.Stop(); err != nil {
			logger.Debugf("stop recorder: %v", err)
		}
		m.recorder = nil
		m.recState = callmedia.RecordingInactive
	}
	m.releaseStream()
	m.display = nil
	m.videoMode = VideoOff
	m.audio = false
	m.update(func(s *State) {
		s.Loading = false
	})
	logger.Info("session closed")
}

// State returns the current snapshot.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot()
}

// OnStateChange registers a handler called with every new snapshot.
// Handlers are called one at a time and must not call back into the
// Manager synchronously.
func (m *Manager) OnStateChange(handler func(State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, handler)
}

// snapshot must be called with mu held.
func (m *Manager) snapshot() State {
	s := m.state
	s.RecordedChunks = append([][]byte(nil), m.chunks...)
	return s
}

// update publishes the loop-owned fields together with the changes made by
// fn, then notifies the handlers.
func (m *Manager) update(fn func(s *State)) {
	m.mu.Lock()
	m.state.Stream = m.stream
	m.state.VideoMode = m.videoMode
	m.state.AudioEnabled = m.audio
	m.state.Recording = m.recState
	if fn != nil {
		fn(&m.state)
	}
	m.mu.Unlock()

	m.notify()
}

func (m *Manager) notify() {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	s := m.snapshot()
	handlers := append([]func(State){}, m.handlers...)
	m.mu.Unlock()

	for _, h := range handlers {
		h(s)
	}
}

// begin marks the start of a device request.
func (m *Manager) begin() {
	m.update(func(s *State) {
		s.Err = nil
		s.Loading = true
	})
}

// fail ends a device request with err. ctx errors are returned to the
// caller, anything else is recorded in the state.
func (m *Manager) fail(ctx context.Context, err error) error {
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		m.update(func(s *State) {
			s.Loading = false
		})
		return err
	}

	logger.Warnf("device request failed: %v", err)
	m.update(func(s *State) {
		s.Err = err
		s.Loading = false
	})
	return nil
}

// clearErr drops the last failure when an operation starts.
func clearErr(s *State) {
	s.Err = nil
}

// finish ends a successful device request.
func (m *Manager) finish() {
	m.update(func(s *State) {
		s.Loading = false
	})
}
