package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage. An empty Path disables it.
type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means default
}

// User is a private-chat registration: which group the user follows and how
// they want daily notifications.
type User struct {
	UserID      int64
	Group       string
	Subgroup    int // 0 = both
	Username    string
	DailyNotify bool
	NotifyTime  string // "HH:MM", empty = config default
	CreatedAt   time.Time
}

// Chat is a group-chat registration bound to one student group.
type Chat struct {
	ChatID       int64
	Group        string
	RegisteredAt time.Time
}

// Holiday marks a day range without classes for one group or for "all".
// Dates are calendar dates, inclusive on both ends, stored as YYYY-MM-DD.
type Holiday struct {
	ID        int64
	Group     string // group number or "all"
	Kind      string // e.g. "праздник", "каникулы"
	StartDate string
	EndDate   string
}

// Feedback is a free-form message left by a user for the operators.
type Feedback struct {
	ID        int64
	UserID    int64
	Username  string
	Text      string
	CreatedAt time.Time
}
