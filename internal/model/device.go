package model

import (
	"time"

	"github.com/google/uuid"
)

type DevicePlatform string

const (
	DevicePlatformIOS     DevicePlatform = "ios"
	DevicePlatformAndroid DevicePlatform = "android"
	DevicePlatformWeb     DevicePlatform = "web"
)

func (p DevicePlatform) Valid() bool {
	switch p {
	case DevicePlatformIOS, DevicePlatformAndroid, DevicePlatformWeb:
		return true
	}
	return false
}

// DeviceRegistration binds a user to one push endpoint. Token holds the
// opaque subscription token, encrypted at rest; TokenHash is the stable
// fingerprint of the plaintext that identifies the endpoint, since the
// ciphertext changes on every encryption. A registration is disabled rather
// than deleted when the gateway reports the endpoint gone.
type DeviceRegistration struct {
	ID         uuid.UUID      `db:"id" json:"id"`
	UserID     uuid.UUID      `db:"user_id" json:"user_id"`
	Platform   DevicePlatform `db:"platform" json:"platform"`
	Token      string         `db:"token" json:"-"`
	TokenHash  string         `db:"token_hash" json:"-"`
	DeviceName string         `db:"device_name" json:"device_name,omitempty"`
	Enabled    bool           `db:"enabled" json:"enabled"`
	LastUsedAt *time.Time     `db:"last_used_at" json:"last_used_at,omitempty"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at" json:"updated_at"`
}
