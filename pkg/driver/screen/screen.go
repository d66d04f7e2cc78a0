// Package screen provides a display-capture driver. Every active display is
// registered as one device; the primary display gets the highest priority so
// that it is picked when no device id is requested.
package screen

import (
	"fmt"
	"image"
	"io"
	"time"

	"github.com/kbinani/screenshot"
	"github.com/talky/callmedia/internal/logging"
	"github.com/talky/callmedia/pkg/driver"
	"github.com/talky/callmedia/pkg/driver/availability"
	"github.com/talky/callmedia/pkg/io/video"
	"github.com/talky/callmedia/pkg/prop"
)

const defaultFrameRate = 15

var logger = logging.NewLogger("callmedia/driver/screen")

type screen struct {
	displayIndex int
	doneCh       chan struct{}
	tick         *time.Ticker
}

func init() {
	activeDisplays := screenshot.NumActiveDisplays()
	for i := 0; i < activeDisplays; i++ {
		priority := driver.PriorityNormal
		if i == 0 {
			priority = driver.PriorityHigh
		}

		err := driver.GetManager().Register(newScreen(i), driver.Info{
			Label:      fmt.Sprintf("Screen%d", i),
			DeviceType: driver.Screen,
			Priority:   priority,
		})
		if err != nil {
			logger.Warnf("failed to register display %d: %v", i, err)
		}
	}
}

func newScreen(displayIndex int) *screen {
	return &screen{displayIndex: displayIndex}
}

func (s *screen) Open() error {
	if s.displayIndex >= screenshot.NumActiveDisplays() {
		return availability.ErrNoDevice
	}
	s.doneCh = make(chan struct{})
	return nil
}

func (s *screen) Close() error {
	close(s.doneCh)
	if s.tick != nil {
		s.tick.Stop()
	}
	return nil
}

func (s *screen) VideoRecord(selectedProp prop.Media) (video.Reader, error) {
	frameRate := selectedProp.FrameRate
	if frameRate <= 0 {
		frameRate = defaultFrameRate
	}
	s.tick = time.NewTicker(time.Duration(float32(time.Second) / frameRate))
	tick := s.tick
	doneCh := s.doneCh
	bounds := screenshot.GetDisplayBounds(s.displayIndex)

	r := video.ReaderFunc(func() (image.Image, func(), error) {
		select {
		case <-doneCh:
			return nil, func() {}, io.EOF
		case <-tick.C:
		}

		img, err := screenshot.CaptureRect(bounds)
		if err != nil {
			// The display went away or capturing was revoked; this ends the track.
			return nil, func() {}, fmt.Errorf("screen: capture display %d: %w", s.displayIndex, err)
		}
		return img, func() {}, nil
	})
	return r, nil
}

func (s *screen) Properties() []prop.Media {
	resolution := screenshot.GetDisplayBounds(s.displayIndex)
	return []prop.Media{
		{
			Video: prop.Video{
				Width:     resolution.Dx(),
				Height:    resolution.Dy(),
				FrameRate: defaultFrameRate,
			},
		},
	}
}
