package ftx

import (
	"math"
	"time"

	"github.com/pkg/errors"
)

const DefaultTimezone = "Asia/Shanghai"

// LoadLocation resolves the zone all published timestamps are converted to.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, errors.Wrapf(err, "load timezone %q", name)
	}
	return loc, nil
}

// ParseExchangeTime parses ISO-8601 timestamps such as
// 2019-03-05T09:56:55.728933+00:00.
func ParseExchangeTime(value string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "parse exchange time %q", value)
	}
	return t.In(loc), nil
}

func EpochSecondsToTime(sec float64, loc *time.Location) time.Time {
	whole, frac := math.Modf(sec)
	return time.Unix(int64(whole), int64(math.Round(frac*1e6))*int64(time.Microsecond)).In(loc)
}

func EpochMillisToTime(ms float64, loc *time.Location) time.Time {
	return time.UnixMilli(int64(ms)).In(loc)
}
