package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelPush  Channel = "push"
	ChannelInApp Channel = "in_app"
)

func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelPush, ChannelInApp:
		return true
	}
	return false
}

// NotificationPreference restricts delivery for one (user, type) pair.
// Absence of a row means all channels are enabled; a row only exists to
// express a restriction.
type NotificationPreference struct {
	UserID       uuid.UUID        `db:"user_id" json:"user_id"`
	Type         NotificationType `db:"type" json:"type"`
	EmailEnabled bool             `db:"email_enabled" json:"email_enabled"`
	PushEnabled  bool             `db:"push_enabled" json:"push_enabled"`
	InAppEnabled bool             `db:"in_app_enabled" json:"in_app_enabled"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updated_at"`
}

func (p *NotificationPreference) ChannelEnabled(c Channel) bool {
	switch c {
	case ChannelEmail:
		return p.EmailEnabled
	case ChannelPush:
		return p.PushEnabled
	case ChannelInApp:
		return p.InAppEnabled
	}
	return false
}

// NotificationSettings is the per-user envelope around all preferences:
// the global kill switch and the quiet-hours window.
type NotificationSettings struct {
	UserID            uuid.UUID `db:"user_id" json:"user_id"`
	Enabled           bool      `db:"enabled" json:"enabled"`
	QuietHoursEnabled bool      `db:"quiet_hours_enabled" json:"quiet_hours_enabled"`
	QuietHoursStart   string    `db:"quiet_hours_start" json:"quiet_hours_start"`
	QuietHoursEnd     string    `db:"quiet_hours_end" json:"quiet_hours_end"`
	Timezone          string    `db:"timezone" json:"timezone"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// InQuietHours reports whether now falls inside the configured window in
// the user's local timezone. A window that wraps midnight (start > end)
// covers [start, 24:00) plus [00:00, end).
func (s *NotificationSettings) InQuietHours(now time.Time) (bool, error) {
	if !s.QuietHoursEnabled {
		return false, nil
	}

	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return false, fmt.Errorf("invalid timezone %q: %w", s.Timezone, err)
	}

	start, err := parseClock(s.QuietHoursStart)
	if err != nil {
		return false, err
	}
	end, err := parseClock(s.QuietHoursEnd)
	if err != nil {
		return false, err
	}

	local := now.In(loc)
	minute := local.Hour()*60 + local.Minute()

	if start > end {
		return minute >= start || minute < end, nil
	}
	return minute >= start && minute < end, nil
}

func parseClock(v string) (int, error) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", v, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}
