package utils

import (
	"time"
)

// IndiaLocation is the timezone for Indian markets.
var IndiaLocation *time.Location

func init() {
	var err error
	IndiaLocation, err = time.LoadLocation("Asia/Kolkata")
	if err != nil {
		// Fallback to UTC+5:30
		IndiaLocation = time.FixedZone("IST", 5*60*60+30*60)
	}
}

// NowIST returns the current time in the Indian market timezone.
func NowIST() time.Time {
	return time.Now().In(IndiaLocation)
}

// Timestamp formats a time as the HH:MM:SS wall-clock string used in
// snapshot payloads.
func Timestamp(t time.Time) string {
	return t.In(IndiaLocation).Format("15:04:05")
}

// IsMarketOpen reports whether the NSE/BSE cash session is running
// (09:15-15:30 IST on weekdays).
func IsMarketOpen() bool {
	now := NowIST()
	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		return false
	}
	minutes := now.Hour()*60 + now.Minute()
	return minutes >= 555 && minutes < 930
}

// DaysToExpiry returns calendar days from now until the 15:30 IST close on
// the expiry date (YYYY-MM-DD). Floored at 0.001 so time-to-expiry never
// reaches zero inside the pricing formulas; a malformed date falls back to
// one day.
func DaysToExpiry(expiry string) float64 {
	expDate, err := time.ParseInLocation("2006-01-02 15:04:05", expiry+" 15:30:00", IndiaLocation)
	if err != nil {
		return 1.0
	}
	days := expDate.Sub(NowIST()).Seconds() / 86400.0
	if days < 0.001 {
		return 0.001
	}
	return days
}
