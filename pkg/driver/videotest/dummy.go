// Package videotest provides dummy video driver for testing.
package videotest

import (
	"context"
	"image"
	"io"
	"time"

	"github.com/talky/callmedia/pkg/driver"
	"github.com/talky/callmedia/pkg/io/video"
	"github.com/talky/callmedia/pkg/prop"
)

// Labels of the registered drivers.
const (
	CameraLabel = "VideoTest"
	ScreenLabel = "ScreenTest"
)

func init() {
	driver.GetManager().Register(
		&dummy{},
		driver.Info{Label: CameraLabel, DeviceType: driver.Camera},
	)
	driver.GetManager().Register(
		&dummy{},
		driver.Info{Label: ScreenLabel, DeviceType: driver.Screen},
	)
}

// SMPTE-like bars as YCbCr triples.
var bars = [][3]byte{
	{180, 128, 128},
	{162, 44, 142},
	{131, 156, 44},
	{112, 72, 58},
	{84, 184, 198},
	{65, 100, 212},
	{35, 212, 114},
}

type dummy struct {
	closed <-chan struct{}
	cancel func()
}

func (d *dummy) Open() error {
	ctx, cancel := context.WithCancel(context.Background())
	d.closed = ctx.Done()
	d.cancel = cancel
	return nil
}

func (d *dummy) Close() error {
	d.cancel()
	return nil
}

func (d *dummy) VideoRecord(p prop.Media) (video.Reader, error) {
	if p.FrameRate == 0 {
		p.FrameRate = 30
	}
	base := pattern(p.Width, p.Height)
	interval := time.Duration(float32(time.Second) / p.FrameRate)
	closed := d.closed

	var n int
	next := time.Now()
	r := video.ReaderFunc(func() (image.Image, func(), error) {
		next = next.Add(interval)
		timer := time.NewTimer(time.Until(next))
		defer timer.Stop()
		select {
		case <-closed:
			return nil, func() {}, io.EOF
		case <-timer.C:
		}

		img := &image.YCbCr{
			Y:              append([]byte(nil), base.Y...),
			YStride:        base.YStride,
			Cb:             base.Cb,
			Cr:             base.Cr,
			CStride:        base.CStride,
			SubsampleRatio: base.SubsampleRatio,
			Rect:           base.Rect,
		}
		marker(img, n)
		n++
		return img, func() {}, nil
	})

	return r, nil
}

// pattern draws color bars over the top three quarters and a luma ramp below.
func pattern(width, height int) *image.YCbCr {
	img := image.NewYCbCr(image.Rect(0, 0, width, height), image.YCbCrSubsampleRatio422)
	split := height * 3 / 4
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			yi := img.YOffset(x, y)
			ci := img.COffset(x, y)
			if y < split {
				c := bars[x*len(bars)/width]
				img.Y[yi], img.Cb[ci], img.Cr[ci] = c[0], c[1], c[2]
				continue
			}
			img.Y[yi] = uint8(x * 255 / width)
			img.Cb[ci], img.Cr[ci] = 128, 128
		}
	}
	return img
}

// marker moves a white block along the ramp so consecutive frames differ.
func marker(img *image.YCbCr, frame int) {
	b := img.Rect
	size := b.Dy() / 8
	if size == 0 {
		return
	}
	x0 := (frame * size) % b.Dx()
	for y := b.Max.Y - size; y < b.Max.Y; y++ {
		for x := x0; x < x0+size && x < b.Max.X; x++ {
			img.Y[img.YOffset(x, y)] = 235
		}
	}
}

func (d *dummy) Properties() []prop.Media {
	sizes := [][2]int{{640, 480}, {1280, 720}}
	props := make([]prop.Media, 0, len(sizes))
	for _, s := range sizes {
		props = append(props, prop.Media{
			Video: prop.Video{Width: s[0], Height: s[1], FrameRate: 30},
		})
	}
	return props
}
