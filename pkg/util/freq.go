package util

import "fmt"

// HzToString formats a frequency with the largest unit that keeps it at or
// above 1, e.g. "40 kHz".
func HzToString(hz float64) string {
	switch {
	case hz >= 1e6 || hz <= -1e6:
		return fmt.Sprintf("%.6g MHz", hz/1e6)
	case hz >= 1e3 || hz <= -1e3:
		return fmt.Sprintf("%.6g kHz", hz/1e3)
	default:
		return fmt.Sprintf("%.6g Hz", hz)
	}
}
