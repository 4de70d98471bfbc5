package series

import (
	"fmt"
	"time"

	"github.com/sensorcloud-go/sensorcloud/errs"
)

// Point is a single time-series sample.
type Point struct {
	// Timestamp is nanoseconds since the Unix epoch.
	Timestamp uint64
	// Value is the sample value.
	Value float32
}

// NewPoint creates a point stamped at t. Times before the Unix epoch are rejected.
func NewPoint(t time.Time, value float32) (Point, error) {
	ts, err := Nanoseconds(t)
	if err != nil {
		return Point{}, err
	}

	return Point{Timestamp: ts, Value: value}, nil
}

// Time returns the point's timestamp in UTC.
func (p Point) Time() time.Time {
	return Time(p.Timestamp)
}

func (p Point) String() string {
	return fmt.Sprintf("Point(%s, %g)", p.Time().Format(time.RFC3339Nano), p.Value)
}

// Nanoseconds converts t into nanoseconds since the Unix epoch.
func Nanoseconds(t time.Time) (uint64, error) {
	ns := t.UnixNano()
	if ns < 0 || t.Before(time.Unix(0, 0)) {
		return 0, errs.Validationf("timestamp %s is before the Unix epoch", t.Format(time.RFC3339Nano))
	}

	return uint64(ns), nil
}

// Time converts nanoseconds since the Unix epoch into a UTC time.
func Time(ns uint64) time.Time {
	return time.Unix(0, int64(ns)).UTC() //nolint:gosec
}
