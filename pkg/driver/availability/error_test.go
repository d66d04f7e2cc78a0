package availability

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsError(t *testing.T) {
	cases := map[string]struct {
		err      error
		expected bool
	}{
		"Busy":    {ErrBusy, true},
		"Wrapped": {fmt.Errorf("camera: %w", ErrPermissionDenied), true},
		"Custom":  {NewError("unplugged"), true},
		"Other":   {errors.New("random"), false},
		"Nil":     {nil, false},
	}
	for name, c := range cases {
		c := c
		t.Run(name, func(t *testing.T) {
			if got := IsError(c.err); got != c.expected {
				t.Errorf("Expected %v, got %v", c.expected, got)
			}
		})
	}
	if !errors.Is(fmt.Errorf("x: %w", ErrNoDevice), ErrNoDevice) {
		t.Error("Expected errors.Is to match the sentinel")
	}
}
