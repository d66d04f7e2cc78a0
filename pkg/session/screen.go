package session

import (
	"context"
	"errors"

	"github.com/talky/callmedia"
)

var errNoDisplayTrack = errors.New("session: display capture returned no video track")

// StartScreenShare captures a display. The display track takes the place of
// the camera track inside the owned stream, so consumers bound to the stream
// keep rendering. When the display capture ends on its own the share is
// stopped as if StopScreenShare was called.
func (m *Manager) StartScreenShare(ctx context.Context) error {
	return m.do(ctx, m.startScreenShare)
}

// StopScreenShare stops the display capture and, when camera video was
// enabled, captures the camera again.
func (m *Manager) StopScreenShare(ctx context.Context) error {
	return m.do(ctx, m.stopScreenShare)
}

func (m *Manager) startScreenShare(ctx context.Context) error {
	if m.display != nil {
		return nil
	}
	m.begin()

	ds, err := m.provider.GetDisplayMedia(ctx, callmedia.MediaStreamConstraints{Video: m.opts.display})
	if err != nil {
		return m.fail(ctx, err)
	}
	videos := ds.GetVideoTracks()
	if len(videos) == 0 {
		for _, t := range ds.GetTracks() {
			t.Stop()
		}
		return m.fail(ctx, errNoDisplayTrack)
	}
	display := videos[0]

	if m.stream != nil {
		// Substitute in place, the stream may be bound to a consumer.
		for _, t := range m.cameraTracks() {
			t.Stop()
			m.stream.RemoveTrack(t)
		}
		m.stream.AddTrack(display)
	} else {
		m.stream = ds
	}
	m.display = display

	if m.videoMode == VideoCamera {
		m.videoMode = VideoScreenOverCamera
	} else {
		m.videoMode = VideoScreen
	}

	display.OnEnded(func(err error) {
		logger.Infof("display capture ended: %v", err)
		go m.do(context.Background(), func(ctx context.Context) error {
			if m.display != display {
				return nil
			}
			return m.stopScreenShare(ctx)
		})
	})

	m.finish()
	return nil
}

func (m *Manager) stopScreenShare(ctx context.Context) error {
	if m.display == nil {
		return nil
	}

	display := m.display
	m.display = nil
	if m.stream != nil {
		m.stopTracks([]callmedia.Track{display})
	} else {
		display.Stop()
	}

	resume := m.videoMode == VideoScreenOverCamera
	m.videoMode = VideoOff
	if resume {
		return m.acquire(ctx, true, m.audio)
	}
	m.update(clearErr)
	return nil
}
