package cli

import (
	"fmt"
	"time"
)

// FormatDurationShort renders d rounded to the second as M:SS, or H:MM:SS
// from one hour up.
func FormatDurationShort(d time.Duration) string {
	d = d.Round(time.Second)
	h, m, s := int(d/time.Hour), int(d%time.Hour/time.Minute), int(d%time.Minute/time.Second)
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
