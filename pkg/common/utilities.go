package common

import (
	"fmt"
)

func Mib2b(numMib uint64) uint64 {
	return numMib * OneMib
}

// FormatBytes renders a byte count for log lines.
func FormatBytes(numB uint64) string {
	switch {
	case numB >= OneMib*1024:
		return fmt.Sprintf("%.2fGiB", float64(numB)/float64(OneMib*1024))
	case numB >= OneMib:
		return fmt.Sprintf("%.2fMiB", float64(numB)/float64(OneMib))
	default:
		return fmt.Sprintf("%dB", numB)
	}
}
