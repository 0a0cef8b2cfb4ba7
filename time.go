package auth

import (
	"time"

	"github.com/goliatone/go-errors"
)

// IsOutsideThresholdPeriod reports whether more than the given period has
// elapsed since t. The period uses time.ParseDuration syntax.
func IsOutsideThresholdPeriod(t time.Time, period string) (bool, error) {
	d, err := time.ParseDuration(period)
	if err != nil {
		return false, errors.Wrap(err, errors.CategoryBadInput, "invalid threshold period")
	}
	return time.Since(t) > d, nil
}
