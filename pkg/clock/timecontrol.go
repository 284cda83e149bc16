package clock

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidTimeControl is returned for strings that are not "minutes+incrementSeconds".
var ErrInvalidTimeControl = errors.New("invalid time control")

// TimeControl is the starting budget per player plus the per-move increment.
type TimeControl struct {
	Initial   time.Duration
	Increment time.Duration
}

// ParseTimeControl parses "minutes+incrementSeconds", e.g. "5+0" or "3+2".
// Minutes may be fractional ("0.5+0" is a 30 second game).
func ParseTimeControl(s string) (TimeControl, error) {
	parts := strings.Split(strings.TrimSpace(s), "+")
	if len(parts) != 2 {
		return TimeControl{}, fmt.Errorf("%w: %q", ErrInvalidTimeControl, s)
	}

	minutes, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil || minutes <= 0 {
		return TimeControl{}, fmt.Errorf("%w: bad minutes in %q", ErrInvalidTimeControl, s)
	}
	increment, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || increment < 0 {
		return TimeControl{}, fmt.Errorf("%w: bad increment in %q", ErrInvalidTimeControl, s)
	}

	return TimeControl{
		Initial:   time.Duration(minutes * float64(time.Minute)),
		Increment: time.Duration(increment) * time.Second,
	}, nil
}

// String renders the time control back into "minutes+incrementSeconds".
func (tc TimeControl) String() string {
	minutes := strconv.FormatFloat(tc.Initial.Minutes(), 'f', -1, 64)
	return fmt.Sprintf("%s+%d", minutes, int(tc.Increment/time.Second))
}
