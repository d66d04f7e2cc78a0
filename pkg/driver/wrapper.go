package driver

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/talky/callmedia/pkg/io/audio"
	"github.com/talky/callmedia/pkg/io/video"
	"github.com/talky/callmedia/pkg/prop"
)

func wrapAdapter(a Adapter, info Info) Driver {
	generator, err := uuid.NewRandom()
	if err != nil {
		panic(err)
	}

	d := &adapterWrapper{
		Adapter: a,
		id:      generator.String(),
		info:    info,
		state:   StateClosed,
	}

	switch v := a.(type) {
	case VideoRecorder:
		// Only expose Video and Audio recorder interfaces when the adapter implements them
		return struct {
			Driver
			VideoRecorder
		}{d, recorderFunc(func(p prop.Media) (video.Reader, error) { return d.videoRecord(v, p) })}
	case AudioRecorder:
		return struct {
			Driver
			AudioRecorder
		}{d, audioRecorderFunc(func(p prop.Media) (audio.Reader, error) { return d.audioRecord(v, p) })}
	}

	return d
}

type recorderFunc func(p prop.Media) (video.Reader, error)

func (f recorderFunc) VideoRecord(p prop.Media) (video.Reader, error) { return f(p) }

type audioRecorderFunc func(p prop.Media) (audio.Reader, error)

func (f audioRecorderFunc) AudioRecord(p prop.Media) (audio.Reader, error) { return f(p) }

type adapterWrapper struct {
	Adapter
	id    string
	info  Info
	mu    sync.Mutex
	state State
}

func (w *adapterWrapper) ID() string {
	return w.id
}

func (w *adapterWrapper) Info() Info {
	return w.info
}

func (w *adapterWrapper) Status() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *adapterWrapper) Open() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.Update(StateOpened, w.Adapter.Open)
}

func (w *adapterWrapper) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == StateClosed {
		return nil
	}
	return w.state.Update(StateClosed, w.Adapter.Close)
}

func (w *adapterWrapper) Properties() []prop.Media {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == StateClosed {
		return nil
	}
	return w.Adapter.Properties()
}

func (w *adapterWrapper) videoRecord(r VideoRecorder, p prop.Media) (reader video.Reader, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	err = w.state.Update(StateRunning, func() error {
		reader, err = r.VideoRecord(p)
		return err
	})
	return
}

func (w *adapterWrapper) audioRecord(r AudioRecorder, p prop.Media) (reader audio.Reader, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	err = w.state.Update(StateRunning, func() error {
		reader, err = r.AudioRecord(p)
		return err
	})
	return
}

func (w *adapterWrapper) String() string {
	return fmt.Sprintf("%s (%s, %s)", w.info.Label, w.info.DeviceType, w.id)
}
