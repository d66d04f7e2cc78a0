package callmedia

import (
	"sync"

	"github.com/google/uuid"
)

// MediaStream is an interface that represents a collection of existing tracks.
type MediaStream interface {
	// ID returns the stream identifier, stable for the life of the stream.
	ID() string
	// GetAudioTracks implements https://w3c.github.io/mediacapture-main/#dom-mediastream-getaudiotracks
	GetAudioTracks() []Track
	// GetVideoTracks implements https://w3c.github.io/mediacapture-main/#dom-mediastream-getvideotracks
	GetVideoTracks() []Track
	// GetTracks implements https://w3c.github.io/mediacapture-main/#dom-mediastream-gettracks
	GetTracks() []Track
	// AddTrack implements https://w3c.github.io/mediacapture-main/#dom-mediastream-addtrack
	AddTrack(t Track)
	// RemoveTrack implements https://w3c.github.io/mediacapture-main/#dom-mediastream-removetrack
	RemoveTrack(t Track)
}

type mediaStream struct {
	id     string
	tracks []Track
	l      sync.RWMutex
}

const trackTypeDefault MediaDeviceType = 0

// NewMediaStream creates a MediaStream interface that's defined in
// https://w3c.github.io/mediacapture-main/#dom-mediastream
func NewMediaStream(tracks ...Track) (MediaStream, error) {
	m := mediaStream{id: uuid.NewString()}

	for _, track := range tracks {
		m.add(track)
	}

	return &m, nil
}

func (m *mediaStream) ID() string {
	return m.id
}

func (m *mediaStream) GetAudioTracks() []Track {
	return m.queryTracks(AudioInput)
}

func (m *mediaStream) GetVideoTracks() []Track {
	return m.queryTracks(VideoInput)
}

func (m *mediaStream) GetTracks() []Track {
	return m.queryTracks(trackTypeDefault)
}

// queryTracks returns all tracks that are the same kind as t.
// If t is 0, which is the default, queryTracks will return all the tracks.
// Tracks are returned in insertion order.
func (m *mediaStream) queryTracks(t MediaDeviceType) []Track {
	m.l.RLock()
	defer m.l.RUnlock()

	result := make([]Track, 0)
	for _, track := range m.tracks {
		if track.Kind() == t || t == trackTypeDefault {
			result = append(result, track)
		}
	}

	return result
}

func (m *mediaStream) AddTrack(t Track) {
	m.l.Lock()
	defer m.l.Unlock()

	m.add(t)
}

func (m *mediaStream) add(t Track) {
	for _, track := range m.tracks {
		if track.ID() == t.ID() {
			return
		}
	}

	m.tracks = append(m.tracks, t)
}

func (m *mediaStream) RemoveTrack(t Track) {
	m.l.Lock()
	defer m.l.Unlock()

	for i, track := range m.tracks {
		if track.ID() == t.ID() {
			m.tracks = append(m.tracks[:i], m.tracks[i+1:]...)
			return
		}
	}
}
