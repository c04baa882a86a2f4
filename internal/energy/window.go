package energy

import "time"

// Frequency is the sampling frequency of a source series.
type Frequency string

const (
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// Window is the date range requested from the source. A zero End means open-ended.
type Window struct {
	Start     time.Time
	End       time.Time
	Frequency Frequency
}

// HasEnd reports whether the window is bounded on the right.
func (w Window) HasEnd() bool {
	return !w.End.IsZero()
}

// StartParam formats Start the way the source expects for the window's frequency.
func (w Window) StartParam() string {
	return formatPeriod(w.Start, w.Frequency)
}

// EndParam formats End, or returns "" for open-ended windows.
func (w Window) EndParam() string {
	if !w.HasEnd() {
		return ""
	}
	return formatPeriod(w.End, w.Frequency)
}

func formatPeriod(t time.Time, f Frequency) string {
	if f == FrequencyMonthly {
		return t.Format("2006-01")
	}
	return t.Format(dateLayout)
}

// WindowPolicy computes the request window for a run date.
type WindowPolicy func(now time.Time) Window

// MonthlyRollingWindow starts on the first day of the month two months before
// the run date and is open-ended.
func MonthlyRollingWindow(now time.Time) Window {
	y, m, _ := now.Date()
	return Window{
		Start:     time.Date(y, m-2, 1, 0, 0, 0, 0, time.UTC),
		Frequency: FrequencyMonthly,
	}
}

// WeeklyFixedWindow selects Monday through Sunday of the last complete week
// before the run date. A run on any day of the current week, Monday included,
// never selects the current partial week.
func WeeklyFixedWindow(now time.Time) Window {
	y, m, d := now.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	sinceMonday := (int(day.Weekday()) + 6) % 7
	thisMonday := day.AddDate(0, 0, -sinceMonday)

	return Window{
		Start:     thisMonday.AddDate(0, 0, -7),
		End:       thisMonday.AddDate(0, 0, -1),
		Frequency: FrequencyWeekly,
	}
}
