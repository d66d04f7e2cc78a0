package session

import (
	"context"
	"fmt"

	"github.com/talky/callmedia"
)

// StartRecording records the owned stream. ErrNoStream is returned when
// nothing is captured and ErrAlreadyRecording while a recording runs. The
// data of the previous recording is cleared.
func (m *Manager) StartRecording(ctx context.Context) error {
	return m.do(ctx, m.startRecording)
}

// StopRecording stops the recording, waits until the recorder delivered its
// last data and returns everything recorded as one blob. The blob is nil
// when nothing is being recorded or no data was delivered.
func (m *Manager) StopRecording(ctx context.Context) (*callmedia.Blob, error) {
	var blob *callmedia.Blob
	err := m.do(ctx, func(ctx context.Context) error {
		var err error
		blob, err = m.stopRecording(ctx)
		return err
	})
	return blob, err
}

// PauseRecording pauses the recording. It is a no-op when nothing is being
// recorded.
func (m *Manager) PauseRecording(ctx context.Context) error {
	return m.do(ctx, func(context.Context) error {
		if m.recorder == nil || m.recState != callmedia.RecordingActive {
			return nil
		}
		if err := m.recorder.Pause(); err != nil {
			return err
		}
		m.recState = callmedia.RecordingPaused
		m.update(nil)
		return nil
	})
}

// ResumeRecording resumes a paused recording. It is a no-op when nothing is
// being recorded.
func (m *Manager) ResumeRecording(ctx context.Context) error {
	return m.do(ctx, func(context.Context) error {
		if m.recorder == nil || m.recState != callmedia.RecordingPaused {
			return nil
		}
		if err := m.recorder.Resume(); err != nil {
			return err
		}
		m.recState = callmedia.RecordingActive
		m.update(nil)
		return nil
	})
}

func (m *Manager) recordingMimeType() string {
	if m.provider.IsTypeSupported(m.opts.preferredMimeType) {
		return m.opts.preferredMimeType
	}
	logger.Debugf("%s is not supported, recording as %s", m.opts.preferredMimeType, m.opts.fallbackMimeType)
	return m.opts.fallbackMimeType
}

func (m *Manager) startRecording(ctx context.Context) error {
	if m.stream == nil {
		return ErrNoStream
	}
	if m.recorder != nil {
		return ErrAlreadyRecording
	}

	rec, err := m.provider.NewRecorder(m.stream, callmedia.RecorderOptions{
		MimeType:  m.recordingMimeType(),
		TimeSlice: m.opts.timeSlice,
	})
	if err != nil {
		return m.fail(ctx, fmt.Errorf("session: create recorder: %w", err))
	}

	m.mu.Lock()
	m.chunks = nil
	m.mu.Unlock()

	rec.OnDataAvailable(func(b []byte) {
		m.mu.Lock()
		m.chunks = append(m.chunks, b)
		m.mu.Unlock()
		m.notify()
	})

	if err := rec.Start(); err != nil {
		return m.fail(ctx, fmt.Errorf("session: start recorder: %w", err))
	}

	m.recorder = rec
	m.recState = callmedia.RecordingActive
	m.update(func(s *State) {
		s.Err = nil
	})
	logger.Infof("recording as %s", rec.MimeType())
	return nil
}

func (m *Manager) stopRecording(ctx context.Context) (*callmedia.Blob, error) {
	rec := m.recorder
	if rec == nil {
		return nil, nil
	}
	m.recorder = nil
	m.recState = callmedia.RecordingInactive

	if err := rec.Stop(); err != nil {
		logger.Debugf("stop recorder: %v", err)
	}

	select {
	case <-rec.Done():
	case <-ctx.Done():
		m.update(nil)
		return nil, ctx.Err()
	}

	m.update(nil)

	m.mu.Lock()
	chunks := append([][]byte(nil), m.chunks...)
	m.mu.Unlock()
	if len(chunks) == 0 {
		return nil, nil
	}
	return callmedia.NewBlob(chunks, rec.MimeType()), nil
}
