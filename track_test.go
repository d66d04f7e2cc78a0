package callmedia

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/talky/callmedia/pkg/driver"
	"github.com/talky/callmedia/pkg/io/audio"
	"github.com/talky/callmedia/pkg/io/video"
	"github.com/talky/callmedia/pkg/prop"
)

type fakeDriver struct {
	id   string
	info driver.Info

	mu     sync.Mutex
	state  driver.State
	closes int
}

func newFakeDriver(t driver.DeviceType) *fakeDriver {
	return &fakeDriver{
		id:    "fake-" + string(t),
		info:  driver.Info{Label: "Fake " + string(t), DeviceType: t},
		state: driver.StateClosed,
	}
}

func (d *fakeDriver) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = driver.StateOpened
	return nil
}

func (d *fakeDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = driver.StateClosed
	d.closes++
	return nil
}

func (d *fakeDriver) Properties() []prop.Media { return nil }
func (d *fakeDriver) ID() string               { return d.id }
func (d *fakeDriver) Info() driver.Info        { return d.info }

func (d *fakeDriver) Status() driver.State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *fakeDriver) closeCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closes
}

type fakeVideoDriver struct {
	*fakeDriver
	frames chan image.Image
	err    chan error
}

func newFakeVideoDriver() *fakeVideoDriver {
	return &fakeVideoDriver{
		fakeDriver: newFakeDriver(driver.Camera),
		frames:     make(chan image.Image),
		err:        make(chan error, 1),
	}
}

func (d *fakeVideoDriver) VideoRecord(prop.Media) (video.Reader, error) {
	return video.ReaderFunc(func() (image.Image, func(), error) {
		select {
		case img := <-d.frames:
			return img, func() {}, nil
		case err := <-d.err:
			return nil, func() {}, err
		}
	}), nil
}

type fakeAudioDriver struct {
	*fakeDriver
	chunks chan audio.Chunk
}

func (d *fakeAudioDriver) AudioRecord(prop.Media) (audio.Reader, error) {
	return audio.ReaderFunc(func() (audio.Chunk, func(), error) {
		c, ok := <-d.chunks
		if !ok {
			return audio.Chunk{}, func() {}, io.EOF
		}
		return c, func() {}, nil
	}), nil
}

func testFrame() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	return img
}

func newTestVideoTrack(t *testing.T) (*VideoTrack, *fakeVideoDriver) {
	t.Helper()
	d := newFakeVideoDriver()
	opts := NewMediaDevices().opts
	p := prop.Media{Video: prop.Video{Width: 16, Height: 16, FrameRate: 30}}
	track, err := newVideoTrack(&opts, d, p, MediaTrackConstraints{})
	if err != nil {
		t.Fatalf("Failed to create track: %v", err)
	}
	return track, d
}

func TestVideoTrackSamples(t *testing.T) {
	track, d := newTestVideoTrack(t)
	defer track.Stop()

	if track.Kind() != VideoInput {
		t.Errorf("Expected video kind, got %s", track.Kind())
	}
	if track.Source() != driver.Camera {
		t.Errorf("Expected camera source, got %s", track.Source())
	}
	if track.Settings().DeviceID != d.ID() {
		t.Errorf("Expected device id %s, got %s", d.ID(), track.Settings().DeviceID)
	}

	r := track.NewSampleReader()
	defer r.Close()

	d.frames <- testFrame()
	s, err := r.Read()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(s.Data))
	if err != nil {
		t.Fatalf("Sample is not a JPEG frame: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 16 || b.Dy() != 16 {
		t.Errorf("Unexpected frame size %v", b)
	}
	if s.Duration <= 0 {
		t.Errorf("Expected positive duration, got %v", s.Duration)
	}
}

func TestAudioTrackSamples(t *testing.T) {
	d := &fakeAudioDriver{
		fakeDriver: newFakeDriver(driver.Microphone),
		chunks:     make(chan audio.Chunk),
	}
	opts := NewMediaDevices().opts
	p := prop.Media{Audio: prop.Audio{ChannelCount: 1, SampleRate: 48000}}
	track, err := newAudioTrack(&opts, d, p, MediaTrackConstraints{})
	if err != nil {
		t.Fatalf("Failed to create track: %v", err)
	}
	defer track.Stop()

	if mime := track.MimeType(); mime != "audio/L16;rate=48000;channels=1" {
		t.Errorf("Unexpected mime type %q", mime)
	}

	r := track.NewSampleReader()
	defer r.Close()

	d.chunks <- audio.Chunk{Samples: []int16{1, -2}, Channels: 1, SampleRate: 48000}
	s, err := r.Read()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if expected := []byte{0x00, 0x01, 0xFF, 0xFE}; !bytes.Equal(s.Data, expected) {
		t.Errorf("Expected %v, got %v", expected, s.Data)
	}
	if expected := 2 * time.Second / 48000; s.Duration != expected {
		t.Errorf("Expected duration %v, got %v", expected, s.Duration)
	}
}

func TestOnEnded(t *testing.T) {
	errExpected := errors.New("an error")

	t.Run("ErrorAfterRegister", func(t *testing.T) {
		tr, d := newTestVideoTrack(t)

		called := make(chan error, 2)
		tr.OnEnded(func(err error) {
			called <- err
		})
		select {
		case <-called:
			t.Error("OnEnded handler is unexpectedly called")
		case <-time.After(10 * time.Millisecond):
		}

		d.err <- errExpected

		select {
		case err := <-called:
			if err != errExpected {
				t.Errorf("Expected to receive error: %v, got: %v", errExpected, err)
			}
		case <-time.After(time.Second):
			t.Fatal("Timeout")
		}
		if tr.ReadyState() != TrackStateEnded {
			t.Errorf("Expected ended track, got %s", tr.ReadyState())
		}
		if d.closeCount() != 1 {
			t.Errorf("Expected the device to be released once, got %d", d.closeCount())
		}

		// Stop after the end is a no-op
		tr.Stop()
		select {
		case <-called:
			t.Error("OnEnded handler is called twice")
		case <-time.After(10 * time.Millisecond):
		}
	})

	t.Run("ErrorBeforeRegister", func(t *testing.T) {
		tr, d := newTestVideoTrack(t)
		r := tr.NewSampleReader()

		d.err <- errExpected
		if _, err := r.Read(); err != errExpected {
			t.Fatalf("Expected reader to return %v, got %v", errExpected, err)
		}

		called := make(chan error, 1)
		tr.OnEnded(func(err error) {
			called <- err
		})
		select {
		case err := <-called:
			if err != errExpected {
				t.Errorf("Expected to receive error: %v, got: %v", errExpected, err)
			}
		case <-time.After(time.Second):
			t.Error("Timeout")
		}
	})

	t.Run("Stop", func(t *testing.T) {
		tr, d := newTestVideoTrack(t)
		r := tr.NewSampleReader()

		called := make(chan error, 1)
		tr.OnEnded(func(err error) {
			called <- err
		})

		tr.Stop()
		tr.Stop()

		if _, err := r.Read(); err != io.EOF {
			t.Errorf("Expected io.EOF, got %v", err)
		}
		if d.closeCount() != 1 {
			t.Errorf("Expected the device to be released once, got %d", d.closeCount())
		}
		select {
		case <-called:
			t.Error("OnEnded handler is called on Stop")
		case <-time.After(10 * time.Millisecond):
		}
	})
}

func TestSampleReaderClose(t *testing.T) {
	tr, d := newTestVideoTrack(t)
	defer tr.Stop()

	r := tr.NewSampleReader()
	if err := r.Close(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, err := r.Read(); err != io.EOF {
		t.Errorf("Expected io.EOF, got %v", err)
	}
	if tr.hasReaders() {
		t.Error("Closed reader is still subscribed")
	}

	// Frames are consumed without readers
	select {
	case d.frames <- testFrame():
	case <-time.After(time.Second):
		t.Fatal("Track does not consume frames")
	}
}
