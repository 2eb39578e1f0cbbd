// Package calendar answers session-clock questions for the order core.
package calendar

import "time"

// TradingCalendar reports how long the current trading session has left.
type TradingCalendar interface {
	// MinutesToClose returns whole minutes until session close, zero if the
	// session has already ended.
	MinutesToClose() int64
}

// SessionCalendar computes minutes-to-close against a fixed daily close
// time in a configured location.
type SessionCalendar struct {
	closeHour   int
	closeMinute int
	loc         *time.Location
	now         func() time.Time
}

func NewSessionCalendar(closeHour, closeMinute int, loc *time.Location) *SessionCalendar {
	if loc == nil {
		loc = time.Local
	}
	return &SessionCalendar{
		closeHour:   closeHour,
		closeMinute: closeMinute,
		loc:         loc,
		now:         time.Now,
	}
}

func (c *SessionCalendar) MinutesToClose() int64 {
	now := c.now().In(c.loc)
	close := time.Date(now.Year(), now.Month(), now.Day(), c.closeHour, c.closeMinute, 0, 0, c.loc)
	if !now.Before(close) {
		return 0
	}
	return int64(close.Sub(now) / time.Minute)
}
