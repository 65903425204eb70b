package autotrader

import "time"

// usEastern is resolved once; options on US equities trade on the NYSE
// schedule regardless of where this process runs.
var usEastern = func() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.UTC
	}
	return loc
}()

// DefaultMarketOpen reports whether US equity options trade at t:
// weekdays 09:30-16:00 Eastern. Exchange holidays are not modeled; on a
// holiday the live quote refresh simply times out and execution proceeds
// with stored prices.
func DefaultMarketOpen(t time.Time) bool {
	et := t.In(usEastern)
	switch et.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	minutes := et.Hour()*60 + et.Minute()
	return minutes >= 9*60+30 && minutes < 16*60
}
