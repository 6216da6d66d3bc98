package service

import (
	"fmt"
	"time"
)

// FinishedLabel is shown for debates whose deadline has passed.
const FinishedLabel = "Finished"

// FormatTimeRemaining renders the time left until endAt. Each component is
// truncated, and hours are hours within the day when days are shown.
func FormatTimeRemaining(endAt, now time.Time) string {
	remaining := endAt.Sub(now)
	if remaining <= 0 {
		return FinishedLabel
	}

	days := int64(remaining / (24 * time.Hour))
	hours := int64(remaining/time.Hour) % 24
	minutes := int64(remaining/time.Minute) % 60

	switch {
	case days >= 1:
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	case hours >= 1:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}
