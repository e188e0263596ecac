package jsonstore

import (
	"errors"
	"time"
)

// joinErr composes a sentinel error kind with the underlying cause so
// callers can both errors.Is against the kind and see the original error
// text.
func joinErr(kind, cause error) error {
	return errors.Join(kind, cause)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}
