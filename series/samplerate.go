package series

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sensorcloud-go/sensorcloud/errs"
	"github.com/sensorcloud-go/sensorcloud/format"
)

// SampleRate is the nominal rate of a partition, either Rate samples per
// second or one sample every Rate seconds.
type SampleRate struct {
	Type format.SampleRateType
	Rate uint32
}

// Hertz returns a rate of n samples per second.
func Hertz(n uint32) SampleRate {
	return SampleRate{Type: format.SampleRateHertz, Rate: n}
}

// Seconds returns a rate of one sample every n seconds.
func Seconds(n uint32) SampleRate {
	return SampleRate{Type: format.SampleRateSeconds, Rate: n}
}

// String renders the canonical form "<rate> hertz" or "<rate> seconds".
func (r SampleRate) String() string {
	return strconv.FormatUint(uint64(r.Rate), 10) + " " + r.Type.String()
}

// Interval returns the time between consecutive samples. A zero hertz rate
// has no interval and returns 0.
func (r SampleRate) Interval() time.Duration {
	if r.Type == format.SampleRateHertz {
		if r.Rate == 0 {
			return 0
		}

		return time.Second / time.Duration(r.Rate)
	}

	return time.Duration(r.Rate) * time.Second
}

// ParseSampleRate parses the canonical string form produced by String.
func ParseSampleRate(s string) (SampleRate, error) {
	rateStr, typeStr, ok := strings.Cut(s, " ")
	if !ok {
		return SampleRate{}, errs.Formatf("sample rate %q: missing unit", s)
	}

	rate, err := strconv.ParseUint(rateStr, 10, 32)
	if err != nil {
		return SampleRate{}, fmt.Errorf("%w: sample rate %q: %w", errs.ErrFormat, s, err)
	}

	switch typeStr {
	case format.SampleRateHertz.String():
		return Hertz(uint32(rate)), nil
	case format.SampleRateSeconds.String():
		return Seconds(uint32(rate)), nil
	default:
		return SampleRate{}, errs.Formatf("sample rate %q: unknown unit %q", s, typeStr)
	}
}
