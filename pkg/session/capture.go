package session

import (
	"context"
	"fmt"

	"github.com/talky/callmedia"
)

// StartVideo captures the camera together with the microphone when audio is
// enabled. The owned stream is torn down before the devices are requested.
// While a display is shared the camera is only marked to be resumed once
// sharing stops.
func (m *Manager) StartVideo(ctx context.Context) error {
	return m.do(ctx, m.startVideo)
}

// StopVideo stops the camera. The stream is kept while it still carries
// other tracks.
func (m *Manager) StopVideo(ctx context.Context) error {
	return m.do(ctx, func(context.Context) error {
		m.stopVideo()
		return nil
	})
}

// StartAudio captures the microphone together with the camera when video is
// enabled. A shared display is carried over into the new stream.
func (m *Manager) StartAudio(ctx context.Context) error {
	return m.do(ctx, m.startAudio)
}

// StopAudio stops the microphone. The stream is kept while it still carries
// other tracks.
func (m *Manager) StopAudio(ctx context.Context) error {
	return m.do(ctx, func(context.Context) error {
		m.stopAudio()
		return nil
	})
}

// ToggleVideo starts or stops video depending on the state at the time the
// operation runs.
func (m *Manager) ToggleVideo(ctx context.Context) error {
	return m.do(ctx, func(ctx context.Context) error {
		if m.videoMode.CameraWanted() {
			m.stopVideo()
			return nil
		}
		return m.startVideo(ctx)
	})
}

// ToggleAudio starts or stops audio depending on the state at the time the
// operation runs.
func (m *Manager) ToggleAudio(ctx context.Context) error {
	return m.do(ctx, func(ctx context.Context) error {
		if m.audio {
			m.stopAudio()
			return nil
		}
		return m.startAudio(ctx)
	})
}

func (m *Manager) startVideo(ctx context.Context) error {
	if m.videoMode.Screen() {
		m.videoMode = VideoScreenOverCamera
		m.update(nil)
		return nil
	}
	return m.acquire(ctx, true, m.audio)
}

func (m *Manager) stopVideo() {
	switch m.videoMode {
	case VideoCamera:
		m.stopTracks(m.cameraTracks())
		m.videoMode = VideoOff
	case VideoScreenOverCamera:
		m.videoMode = VideoScreen
	}
	m.update(clearErr)
}

func (m *Manager) startAudio(ctx context.Context) error {
	return m.acquire(ctx, m.videoMode == VideoCamera, true)
}

func (m *Manager) stopAudio() {
	if m.stream != nil {
		m.stopTracks(m.stream.GetAudioTracks())
	}
	m.audio = false
	m.update(clearErr)
}

// acquire replaces the owned stream with a new capture of the camera and
// microphone. A shared display track is moved into the new stream.
func (m *Manager) acquire(ctx context.Context, video, audio bool) error {
	m.begin()

	m.releaseCapture()
	m.audio = false
	if m.videoMode == VideoCamera {
		m.videoMode = VideoOff
	}

	constraints := callmedia.MediaStreamConstraints{}
	if video {
		constraints.Video = m.opts.video
	}
	if audio {
		constraints.Audio = m.opts.audio
	}

	logger.Debugf("requesting capture video=%t audio=%t", video, audio)
	stream, err := m.provider.GetUserMedia(ctx, constraints)
	if err != nil {
		return m.fail(ctx, err)
	}

	if m.display != nil {
		stream.AddTrack(m.display)
	}
	m.stream = stream
	for _, t := range stream.GetTracks() {
		if t != m.display {
			m.watch(t)
		}
	}

	if video {
		m.videoMode = VideoCamera
	}
	m.audio = audio
	m.finish()
	return nil
}

// releaseCapture stops the camera and microphone tracks. The stream is
// dropped unless a display track is left in it.
func (m *Manager) releaseCapture() {
	if m.stream == nil {
		return
	}
	for _, t := range m.stream.GetTracks() {
		if t != m.display {
			t.Stop()
		}
	}
	if m.display != nil {
		s, _ := callmedia.NewMediaStream(m.display)
		m.stream = s
		return
	}
	m.stream = nil
}

// releaseStream stops every owned track.
func (m *Manager) releaseStream() {
	if m.stream == nil {
		return
	}
	for _, t := range m.stream.GetTracks() {
		t.Stop()
	}
	m.stream = nil
}

// stopTracks stops tracks and removes them from the owned stream, dropping
// the stream once it is empty.
func (m *Manager) stopTracks(tracks []callmedia.Track) {
	if m.stream == nil {
		return
	}
	for _, t := range tracks {
		t.Stop()
		m.stream.RemoveTrack(t)
	}
	if len(m.stream.GetTracks()) == 0 {
		m.stream = nil
	}
}

func (m *Manager) cameraTracks() []callmedia.Track {
	if m.stream == nil {
		return nil
	}
	var tracks []callmedia.Track
	for _, t := range m.stream.GetVideoTracks() {
		if t != m.display {
			tracks = append(tracks, t)
		}
	}
	return tracks
}

// watch turns the end of a camera or microphone track, for example an
// unplugged device, into a state change.
func (m *Manager) watch(t callmedia.Track) {
	t.OnEnded(func(err error) {
		go m.do(context.Background(), func(context.Context) error {
			m.trackEnded(t, err)
			return nil
		})
	})
}

func (m *Manager) trackEnded(t callmedia.Track, err error) {
	if m.stream == nil || !contains(m.stream.GetTracks(), t) {
		return
	}

	m.stream.RemoveTrack(t)
	if len(m.stream.GetTracks()) == 0 {
		m.stream = nil
	}
	switch {
	case t.Kind() == callmedia.AudioInput:
		m.audio = false
	case m.videoMode == VideoCamera:
		m.videoMode = VideoOff
	}

	logger.Warnf("%s track %s ended: %v", t.Kind(), t.Label(), err)
	m.update(func(s *State) {
		s.Err = fmt.Errorf("session: %s %q ended: %w", t.Kind(), t.Label(), err)
	})
}

func contains(tracks []callmedia.Track, t callmedia.Track) bool {
	for _, track := range tracks {
		if track == t {
			return true
		}
	}
	return false
}
