package actionclient

import (
	"math"
	"time"
)

const DefaultTimeout = 20 * time.Second

type Config struct {
	BackendURL    string
	SigningSecret string
	Timeout       time.Duration
}

func NormalizeTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultTimeout
	}
	return d
}

// TimeoutFromMillis accepts a positive finite millisecond count and falls
// back to DefaultTimeout for anything else, including values too large to
// represent as a time.Duration.
func TimeoutFromMillis(ms float64) time.Duration {
	if math.IsNaN(ms) || math.IsInf(ms, 0) || ms <= 0 {
		return DefaultTimeout
	}
	if ms > float64(math.MaxInt64/int64(time.Millisecond)) {
		return DefaultTimeout
	}
	d := time.Duration(ms * float64(time.Millisecond))
	if d <= 0 {
		return DefaultTimeout
	}
	return d
}
