package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/blackjack/webcam"
	"github.com/talky/callmedia/internal/logging"
	"github.com/talky/callmedia/pkg/driver"
	"github.com/talky/callmedia/pkg/driver/availability"
	"github.com/talky/callmedia/pkg/frame"
	"github.com/talky/callmedia/pkg/io/video"
	"github.com/talky/callmedia/pkg/prop"
)

const (
	maxEmptyFrameCount = 5
	// Seconds to wait for the next frame.
	frameTimeout = 5
)

// Formats in increasing order of preference. A frame size offered in several
// formats uses the last one.
var formatPreference = []frame.Format{
	frame.FormatI420,
	frame.FormatNV21,
	frame.FormatUYVY,
	frame.FormatYUY2,
	frame.FormatMJPEG,
}

var (
	errReadTimeout = errors.New("read timeout")
	errEmptyFrame  = errors.New("empty frame")

	logger = logging.NewLogger("callmedia/driver/camera")
)

// Camera implementation using v4l2
// Reference: https://linuxtv.org/downloads/v4l-dvb-apis/uapi/v4l/videodev.html#videodev
type camera struct {
	path string
	cam  *webcam.Webcam
	// pixel format to use for each supported frame size
	formats map[[2]int]webcam.PixelFormat
	mutex   sync.Mutex
	cancel  func()
}

func init() {
	discover("/dev/v4l/by-path/", "/dev/video*")
}

func discover(byPath, pattern string) {
	// Map of real device path to the labels it was found under.
	labels := make(map[string][]string)
	var order []string

	if entries, err := os.ReadDir(byPath); err == nil {
		for _, entry := range entries {
			real, err := filepath.EvalSymlinks(filepath.Join(byPath, entry.Name()))
			if err != nil {
				continue
			}
			if _, ok := labels[real]; !ok {
				order = append(order, real)
			}
			labels[real] = append(labels[real], entry.Name())
		}
	}

	devices, _ := filepath.Glob(pattern)
	for _, device := range devices {
		if _, ok := labels[device]; !ok {
			order = append(order, device)
		}
		labels[device] = append(labels[device], filepath.Base(device))
	}

	for _, device := range order {
		err := driver.GetManager().Register(newCamera(device), driver.Info{
			Label:      strings.Join(labels[device], LabelSeparator),
			DeviceType: driver.Camera,
		})
		if err != nil {
			logger.Warnf("failed to register %s: %v", device, err)
		}
	}
}

func newCamera(path string) *camera {
	return &camera{
		path:    path,
		formats: make(map[[2]int]webcam.PixelFormat),
	}
}

func (c *camera) Open() error {
	cam, err := webcam.Open(c.path)
	if err != nil {
		return openError(err)
	}

	c.cam = cam
	return nil
}

func openError(err error) error {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %v", availability.ErrPermissionDenied, err)
	case errors.Is(err, syscall.EBUSY):
		return fmt.Errorf("%w: %v", availability.ErrBusy, err)
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, syscall.ENODEV):
		return fmt.Errorf("%w: %v", availability.ErrNoDevice, err)
	}
	return err
}

func (c *camera) Close() error {
	if c.cam == nil {
		return nil
	}

	if c.cancel != nil {
		// Let the reader knows that the caller has closed the camera
		c.cancel()
		// Wait until the reader unref the buffer
		c.mutex.Lock()
		defer c.mutex.Unlock()

		// Note: StopStreaming frees frame buffers even if they are still used in Go code.
		//       Frames are decoded into Go memory before the lock is released.
		c.cam.StopStreaming()
		c.cancel = nil
	}
	err := c.cam.Close()
	c.cam = nil
	return err
}

func (c *camera) VideoRecord(p prop.Media) (video.Reader, error) {
	pf, ok := c.formats[[2]int{p.Width, p.Height}]
	if !ok {
		return nil, fmt.Errorf("camera: unsupported frame size %dx%d", p.Width, p.Height)
	}

	format, _ := frame.FromFourCC(uint32(pf))
	decoder, err := frame.NewDecoder(format)
	if err != nil {
		return nil, err
	}

	_, w, h, err := c.cam.SetImageFormat(pf, uint32(p.Width), uint32(p.Height))
	if err != nil {
		return nil, err
	}
	width, height := int(w), int(h)

	if err := c.cam.StartStreaming(); err != nil {
		return nil, openError(err)
	}

	cam := c.cam

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	r := video.ReaderFunc(func() (img image.Image, release func(), err error) {
		// Lock to avoid accessing the buffer after StopStreaming()
		c.mutex.Lock()
		defer c.mutex.Unlock()

		// Wait until a frame is ready
		for i := 0; i < maxEmptyFrameCount; i++ {
			if ctx.Err() != nil {
				// Return EOF if the camera is already closed.
				return nil, func() {}, io.EOF
			}

			err := cam.WaitForFrame(frameTimeout)
			switch err.(type) {
			case nil:
			case *webcam.Timeout:
				return nil, func() {}, errReadTimeout
			default:
				// Camera has been stopped.
				return nil, func() {}, err
			}

			b, err := cam.ReadFrame()
			if err != nil {
				// Camera has been stopped.
				return nil, func() {}, err
			}

			// Frame is empty.
			// Retry reading and return errEmptyFrame if it exceeds maxEmptyFrameCount.
			if len(b) == 0 {
				continue
			}

			// decoding copies the memory from mmap to Go, so nothing that leaves this
			// reader points into the driver buffers.
			img, err := decoder.Decode(b, width, height)
			return img, func() {}, err
		}
		return nil, func() {}, errEmptyFrame
	})

	return r, nil
}

func (c *camera) Properties() []prop.Media {
	properties := make([]prop.Media, 0)
	byFormat := make(map[frame.Format]webcam.PixelFormat)
	for pf := range c.cam.GetSupportedFormats() {
		if f, ok := frame.FromFourCC(uint32(pf)); ok {
			byFormat[f] = pf
		}
	}
	for _, f := range formatPreference {
		pf, ok := byFormat[f]
		if !ok {
			continue
		}
		for _, frameSize := range c.cam.GetSupportedFrameSizes(pf) {
			size := [2]int{int(frameSize.MaxWidth), int(frameSize.MaxHeight)}
			if _, seen := c.formats[size]; !seen {
				properties = append(properties, prop.Media{
					Video: prop.Video{
						Width:  size[0],
						Height: size[1],
					},
				})
			}
			c.formats[size] = pf
		}
	}
	return properties
}
