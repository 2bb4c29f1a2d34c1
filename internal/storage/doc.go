// Package storage is raspbot's SQLite persistence layer: user and chat
// registrations, holidays, rate-limit bans and feedback.
//
// The store is optional. With no path configured Open returns (nil, nil) and
// features that need persistence degrade with a warning instead of failing.
package storage
