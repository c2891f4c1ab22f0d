package helpers

import "fmt"

// FormatBytes formats a byte count in human-readable form
func FormatBytes(size int64) string {
	if size == 0 {
		return "0 B"
	}

	value := float64(size)
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if value < 1024.0 {
			return fmt.Sprintf("%.1f %s", value, unit)
		}
		value /= 1024.0
	}
	return fmt.Sprintf("%.1f TB", value)
}
