package callmedia

import (
	"fmt"
	"testing"

	"github.com/talky/callmedia/pkg/driver"
	"github.com/talky/callmedia/pkg/prop"
)

type mockMediaStreamTrack struct {
	id   string
	kind MediaDeviceType
}

func (track *mockMediaStreamTrack) ID() string                  { return track.id }
func (track *mockMediaStreamTrack) Kind() MediaDeviceType       { return track.kind }
func (track *mockMediaStreamTrack) Source() driver.DeviceType   { return driver.Camera }
func (track *mockMediaStreamTrack) Label() string               { return "" }
func (track *mockMediaStreamTrack) MimeType() string            { return "" }
func (track *mockMediaStreamTrack) Settings() prop.Media        { return prop.Media{} }
func (track *mockMediaStreamTrack) ReadyState() TrackState      { return TrackStateLive }
func (track *mockMediaStreamTrack) OnEnded(handler func(error)) {}
func (track *mockMediaStreamTrack) NewSampleReader() SampleReader {
	return nil
}
func (track *mockMediaStreamTrack) Stop() {}

func newMockTracks(kind MediaDeviceType, n int) []Track {
	tracks := make([]Track, n)
	for i := range tracks {
		tracks[i] = &mockMediaStreamTrack{id: fmt.Sprintf("%s-%d", kind, i), kind: kind}
	}
	return tracks
}

func TestMediaStreamFilters(t *testing.T) {
	audioTracks := newMockTracks(AudioInput, 5)
	videoTracks := newMockTracks(VideoInput, 3)

	tracks := append(append([]Track{}, audioTracks...), videoTracks...)
	stream, err := NewMediaStream(tracks...)
	if err != nil {
		t.Fatal(err)
	}

	expect := func(t *testing.T, actual, expected []Track) {
		if len(actual) != len(expected) {
			t.Fatalf("%s: Expected to get %d tracks, but got %d tracks", t.Name(), len(expected), len(actual))
		}

		for i := range actual {
			if actual[i] != expected[i] {
				t.Fatalf("%s: Expected %s at %d, got %s", t.Name(), expected[i].ID(), i, actual[i].ID())
			}
		}
	}

	t.Run("GetAudioTracks", func(t *testing.T) {
		expect(t, stream.GetAudioTracks(), audioTracks)
	})

	t.Run("GetVideoTracks", func(t *testing.T) {
		expect(t, stream.GetVideoTracks(), videoTracks)
	})

	t.Run("GetTracks", func(t *testing.T) {
		expect(t, stream.GetTracks(), tracks)
	})
}

func TestMediaStreamAddRemove(t *testing.T) {
	video := newMockTracks(VideoInput, 2)
	audio := newMockTracks(AudioInput, 1)

	stream, err := NewMediaStream(video[0], audio[0])
	if err != nil {
		t.Fatal(err)
	}
	id := stream.ID()

	// Adding a track twice is a no-op
	stream.AddTrack(audio[0])
	if n := len(stream.GetTracks()); n != 2 {
		t.Fatalf("Expected 2 tracks, got %d", n)
	}

	stream.RemoveTrack(video[0])
	stream.RemoveTrack(video[0])
	stream.AddTrack(video[1])

	got := stream.GetVideoTracks()
	if len(got) != 1 || got[0] != video[1] {
		t.Fatalf("Expected the replaced video track, got %v", got)
	}
	if n := len(stream.GetTracks()); n != 2 {
		t.Errorf("Expected 2 tracks, got %d", n)
	}
	if stream.ID() != id {
		t.Error("Stream id changed after track substitution")
	}
}
