// Package xtime provides the monotonic UTC timestamps and nanosecond
// durations shared by the reactor, simulator, and Kalman filter packages.
// It wraps time.Time/time.Duration rather than reimplementing them: the
// core needs total ordering and nanosecond arithmetic, both of which the
// standard library already gives it.
package xtime

import "time"

// Timestamp is a UTC instant with nanosecond resolution.
type Timestamp struct {
	t time.Time
}

// Now returns the current wall-clock time as a Timestamp.
func Now() Timestamp {
	return FromTime(time.Now())
}

// FromTime converts a time.Time to a Timestamp, normalizing to UTC.
func FromTime(t time.Time) Timestamp {
	return Timestamp{t: t.UTC()}
}

// Unix builds a Timestamp from a Unix second/nanosecond pair.
func Unix(sec int64, nsec int64) Timestamp {
	return FromTime(time.Unix(sec, nsec))
}

// Time returns the underlying time.Time, in UTC.
func (ts Timestamp) Time() time.Time { return ts.t }

// IsZero reports whether ts is the zero Timestamp.
func (ts Timestamp) IsZero() bool { return ts.t.IsZero() }

// Add returns ts advanced by d.
func (ts Timestamp) Add(d Duration) Timestamp {
	return Timestamp{t: ts.t.Add(time.Duration(d))}
}

// Sub returns the signed duration ts - other.
func (ts Timestamp) Sub(other Timestamp) Duration {
	return Duration(ts.t.Sub(other.t))
}

// Before reports whether ts occurs strictly before other.
func (ts Timestamp) Before(other Timestamp) bool { return ts.t.Before(other.t) }

// After reports whether ts occurs strictly after other.
func (ts Timestamp) After(other Timestamp) bool { return ts.t.After(other.t) }

// Equal reports whether ts and other denote the same instant.
func (ts Timestamp) Equal(other Timestamp) bool { return ts.t.Equal(other.t) }

// Compare returns -1, 0, or +1 as ts is before, equal to, or after other.
func (ts Timestamp) Compare(other Timestamp) int {
	switch {
	case ts.t.Before(other.t):
		return -1
	case ts.t.After(other.t):
		return 1
	default:
		return 0
	}
}

// String renders ts in RFC3339Nano form.
func (ts Timestamp) String() string {
	return ts.t.Format(time.RFC3339Nano)
}

// Duration is a signed nanosecond count.
type Duration time.Duration

// Nanos returns d as a signed nanosecond count.
func (d Duration) Nanos() int64 { return int64(d) }

// AsStdlib returns d as a time.Duration.
func (d Duration) AsStdlib() time.Duration { return time.Duration(d) }

// YearsFraction returns d expressed as a fraction of a 365.25-day year,
// the annualization convention used by BrownianMotion's volatility model.
func (d Duration) YearsFraction() float64 {
	const daysPerYear = 365.25
	const nanosPerDay = float64(24 * time.Hour)
	return (float64(d) / nanosPerDay) / daysPerYear
}
