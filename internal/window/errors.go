package window

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidWindow is returned for windows that violate Start < End or
	// the minimum extension.
	ErrInvalidWindow = errors.New("invalid date window")

	// ErrRecalibrationExhausted matches every RecalibrationExhaustedError.
	ErrRecalibrationExhausted = errors.New("recalibration exhausted")
)

// RecalibrationExhaustedError is returned when the imagery stays too cloudy
// after the maximum number of retries or window width.
type RecalibrationExhaustedError struct {
	Direction Direction
	Window    DateWindow
	Attempts  int
	Reason    string
}

func (e *RecalibrationExhaustedError) Error() string {
	return fmt.Sprintf("recalibration exhausted for %s window %s after %d attempts: %s",
		e.Direction, e.Window, e.Attempts, e.Reason)
}

func (e *RecalibrationExhaustedError) Unwrap() error {
	return ErrRecalibrationExhausted
}
