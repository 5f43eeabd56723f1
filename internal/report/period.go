package report

import (
	"fmt"
	"time"

	"ledgerreport/internal/core"
)

// PeriodKey formats the bucket d falls into. All formats are zero padded so
// that lexicographic order is chronological.
//
// Week numbers are ceil((dayOfYear + weekday(Jan 1)) / 7) with Sunday = 0.
// This is not ISO-8601 week numbering: the first days of January always
// belong to week 1 of their own calendar year.
func PeriodKey(d core.Date, g core.Granularity) string {
	switch g {
	case core.Day:
		return d.Format("2006-01-02")
	case core.Week:
		return fmt.Sprintf("%04d-W%02d", d.Year(), weekNumber(d))
	case core.Quarter:
		return fmt.Sprintf("%04d-Q%d", d.Year(), (int(d.Month())-1)/3+1)
	case core.Year:
		return fmt.Sprintf("%04d", d.Year())
	default:
		return d.Format("2006-01")
	}
}

func weekNumber(d core.Date) int {
	jan1 := time.Date(d.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	n := d.YearDay() + int(jan1.Weekday())
	return (n + 6) / 7
}
