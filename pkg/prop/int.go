package prop

import (
	"fmt"
	"math"
)

// IntConstraint is an interface to represent integer value constraint.
type IntConstraint interface {
	Compare(int) (float64, bool)
	Value() (int, bool)
}

// Int specifies ideal int value.
// Any value may be selected, but closest value takes priority.
type Int int

// Compare implements IntConstraint.
func (i Int) Compare(a int) (float64, bool) {
	if a == int(i) {
		return 0.0, true
	}
	return math.Abs(float64(a-int(i))) / math.Max(math.Abs(float64(a)), math.Abs(float64(i))), true
}

// Value implements IntConstraint.
func (i Int) Value() (int, bool) { return int(i), true }

// String implements Stringify
func (i Int) String() string {
	return fmt.Sprintf("%d (ideal)", i)
}

// IntExact specifies exact int value.
type IntExact int

// Compare implements IntConstraint.
func (i IntExact) Compare(a int) (float64, bool) {
	if int(i) == a {
		return 0.0, true
	}
	return 1.0, false
}

// Value implements IntConstraint.
func (i IntExact) Value() (int, bool) { return int(i), true }

// String implements Stringify
func (i IntExact) String() string {
	return fmt.Sprintf("%d (exact)", i)
}

// IntRanged specifies range of expected int value.
// If Ideal is non-zero, closest value to Ideal takes priority.
type IntRanged struct {
	Min   int
	Max   int
	Ideal int
}

// Compare implements IntConstraint.
func (i IntRanged) Compare(a int) (float64, bool) {
	if i.Min != 0 && i.Min > a {
		// Out of range
		return 1.0, false
	}
	if i.Max != 0 && i.Max < a {
		// Out of range
		return 1.0, false
	}
	if i.Ideal == 0 {
		return 0.0, true
	}
	return Int(i.Ideal).Compare(a)
}

// Value implements IntConstraint.
func (i IntRanged) Value() (int, bool) {
	if i.Ideal == 0 {
		return 0, false
	}
	return i.Ideal, true
}

// String implements Stringify
func (i IntRanged) String() string {
	return fmt.Sprintf("%d - %d (range), %d (ideal)", i.Min, i.Max, i.Ideal)
}
