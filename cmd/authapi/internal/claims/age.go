package claims

import "time"

// DateLayout is the wire format of date claims (yyyy-MM-dd).
const DateLayout = "2006-01-02"

// Age returns the completed years between dob and today. A birthday that has
// not yet occurred this year (by month and day) does not count.
func Age(dob, today time.Time) int {
	years := today.Year() - dob.Year()
	if today.Month() < dob.Month() || (today.Month() == dob.Month() && today.Day() < dob.Day()) {
		years--
	}
	return years
}
