package diagnostics

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var english = message.NewPrinter(language.English)

// FormatThousands renders n with English digit grouping: 12345 -> "12,345".
func FormatThousands(n uint64) string {
	return english.Sprintf("%d", n)
}

// FormatUptime renders d as "H:MM:SS", or "ND H:MM:SS" once it spans a day.
func FormatUptime(d time.Duration) string {
	secs := uint64(d / time.Second)
	days := secs / 86400
	hours := secs / 3600 % 24
	minutes := secs % 3600 / 60
	seconds := secs % 60

	if days == 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%dD %d:%02d:%02d", days, hours, minutes, seconds)
}
