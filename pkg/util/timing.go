package util

import "time"

// TimeOperation runs op and reports its wall-clock duration.
func TimeOperation(op func()) time.Duration {
	start := time.Now()
	op()
	return time.Since(start)
}
