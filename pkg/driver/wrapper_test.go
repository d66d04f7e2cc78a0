package driver

import (
	"fmt"
	"testing"

	"github.com/talky/callmedia/pkg/io/audio"
	"github.com/talky/callmedia/pkg/io/video"
	"github.com/talky/callmedia/pkg/prop"
)

var (
	recordErr = fmt.Errorf("failed to start recording")
)

type adapterMock struct{}

func (a *adapterMock) Open() error              { return nil }
func (a *adapterMock) Close() error             { return nil }
func (a *adapterMock) Properties() []prop.Media { return []prop.Media{{}} }

type videoAdapterMock struct{ adapterMock }

func (a *videoAdapterMock) VideoRecord(p prop.Media) (r video.Reader, err error) { return nil, nil }

type videoAdapterBrokenMock struct{ adapterMock }

func (a *videoAdapterBrokenMock) VideoRecord(p prop.Media) (r video.Reader, err error) {
	return nil, recordErr
}

type audioAdapterMock struct{ adapterMock }

func (a *audioAdapterMock) AudioRecord(p prop.Media) (r audio.Reader, err error) { return nil, nil }

type audioAdapterBrokenMock struct{ adapterMock }

func (a *audioAdapterBrokenMock) AudioRecord(p prop.Media) (r audio.Reader, err error) {
	return nil, recordErr
}

func TestVideoWrapperState(t *testing.T) {
	var a videoAdapterMock
	d := wrapAdapter(&a, Info{})

	if d.Properties() != nil {
		t.Errorf("expected nil, but got %v", d.Properties())
	}

	vr := d.(VideoRecorder)
	_, err := vr.VideoRecord(prop.Media{})
	if err == nil {
		t.Errorf("expected to get an invalid state")
	}

	err = d.Open()
	if err != nil {
		t.Errorf("expected to successfully open, but got %v", err)
	}

	if d.Status() != StateOpened {
		t.Errorf("expected %s, got %s", StateOpened, d.Status())
	}

	if d.Properties() == nil {
		t.Errorf("expected a list of properties, but got nil")
	}

	_, err = vr.VideoRecord(prop.Media{})
	if err != nil {
		t.Errorf("expected to successfully start recording, but got %v", err)
	}

	if d.Status() != StateRunning {
		t.Errorf("expected %s, got %s", StateRunning, d.Status())
	}

	err = d.Close()
	if err != nil {
		t.Errorf("expected to successfully close, but got %v", err)
	}

	if d.Status() != StateClosed {
		t.Errorf("expected %s, got %s", StateClosed, d.Status())
	}

	if err := d.Close(); err != nil {
		t.Errorf("closing twice must be a no-op, got %v", err)
	}
}

func TestVideoWrapperBroken(t *testing.T) {
	var a videoAdapterBrokenMock
	d := wrapAdapter(&a, Info{})

	if err := d.Open(); err != nil {
		t.Fatalf("expected to successfully open, but got %v", err)
	}

	if _, err := d.(VideoRecorder).VideoRecord(prop.Media{}); err != recordErr {
		t.Errorf("expected %v, got %v", recordErr, err)
	}

	if d.Status() != StateOpened {
		t.Errorf("expected %s, got %s", StateOpened, d.Status())
	}
}

func TestAudioWrapperState(t *testing.T) {
	var a audioAdapterMock
	d := wrapAdapter(&a, Info{})

	if _, ok := d.(VideoRecorder); ok {
		t.Fatal("audio adapter must not be exposed as a video recorder")
	}

	ar := d.(AudioRecorder)
	if _, err := ar.AudioRecord(prop.Media{}); err == nil {
		t.Errorf("expected to get an invalid state")
	}

	if err := d.Open(); err != nil {
		t.Fatalf("expected to successfully open, but got %v", err)
	}

	if _, err := ar.AudioRecord(prop.Media{}); err != nil {
		t.Errorf("expected to successfully start recording, but got %v", err)
	}

	if d.Status() != StateRunning {
		t.Errorf("expected %s, got %s", StateRunning, d.Status())
	}
}

func TestAudioWrapperBroken(t *testing.T) {
	var a audioAdapterBrokenMock
	d := wrapAdapter(&a, Info{})

	if err := d.Open(); err != nil {
		t.Fatalf("expected to successfully open, but got %v", err)
	}

	if _, err := d.(AudioRecorder).AudioRecord(prop.Media{}); err != recordErr {
		t.Errorf("expected %v, got %v", recordErr, err)
	}
}
