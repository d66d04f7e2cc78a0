package video

import (
	"errors"
	"image"
	"testing"
	"time"
)

func TestScale(t *testing.T) {
	cases := map[string]struct {
		width, height int
		expected      image.Rectangle
	}{
		"Fixed":       {width: 320, height: 240, expected: image.Rect(0, 0, 320, 240)},
		"KeepAspectW": {width: 320, height: 0, expected: image.Rect(0, 0, 320, 240)},
		"KeepAspectH": {width: 0, height: 120, expected: image.Rect(0, 0, 160, 120)},
		"SameSize":    {width: 640, height: 480, expected: image.Rect(0, 0, 640, 480)},
		"Enlargement": {width: 1280, height: 720, expected: image.Rect(0, 0, 1280, 720)},
	}

	for name, c := range cases {
		c := c
		t.Run(name, func(t *testing.T) {
			src := image.NewYCbCr(image.Rect(0, 0, 640, 480), image.YCbCrSubsampleRatio420)
			var released bool
			r := Scale(c.width, c.height, nil)(ReaderFunc(func() (image.Image, func(), error) {
				return src, func() { released = true }, nil
			}))
			img, _, err := r.Read()
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if img.Bounds() != c.expected {
				t.Errorf("Expected bounds %v, got %v", c.expected, img.Bounds())
			}
			if !released {
				t.Error("Source frame is expected to be released")
			}
		})
	}
}

func TestThrottle(t *testing.T) {
	base := time.Unix(0, 0)
	var clock time.Duration
	now = func() time.Time { return base.Add(clock) }
	defer func() { now = time.Now }()

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	var cntPush int
	// 100fps source, 25fps target
	r := Throttle(25)(ReaderFunc(func() (image.Image, func(), error) {
		cntPush++
		clock += 10 * time.Millisecond
		return img, func() {}, nil
	}))

	for i := 0; i < 10; i++ {
		if _, _, err := r.Read(); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}
	// The first frame passes immediately, then every 4th frame.
	if cntPush != 37 {
		t.Errorf("Expected 37 source frames to be consumed, got %d", cntPush)
	}
}

func TestMergeSkipsNil(t *testing.T) {
	errExpected := errors.New("done")
	var order []int
	mk := func(i int) TransformFunc {
		return func(r Reader) Reader {
			return ReaderFunc(func() (image.Image, func(), error) {
				order = append(order, i)
				return r.Read()
			})
		}
	}
	r := Merge(mk(1), nil, mk(2))(ReaderFunc(func() (image.Image, func(), error) {
		return nil, func() {}, errExpected
	}))
	if _, _, err := r.Read(); err != errExpected {
		t.Fatalf("Expected %v, got %v", errExpected, err)
	}
	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Errorf("Unexpected transform order: %v", order)
	}
}
