package clock

import "time"

// Clock supplies the current time. Services take it instead of calling time.Now.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
