package timeutil

import "time"

func NowUnix() int64 {
	return time.Now().Unix()
}

// UnixOrZero maps the zero time to 0 so unset timestamps persist as 0.
func UnixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

// FromUnix is the inverse of UnixOrZero.
func FromUnix(v int64) time.Time {
	if v <= 0 {
		return time.Time{}
	}
	return time.Unix(v, 0)
}
