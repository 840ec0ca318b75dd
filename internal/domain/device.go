package domain

import "time"

// Device is a browser/device a user has signed in from.
type Device struct {
	DeviceID    string    `json:"id" dynamodbav:"device_id"`
	UserID      string    `json:"user_id" dynamodbav:"user_id"`
	UUID        string    `json:"uuid" dynamodbav:"device_uuid"`
	Fingerprint string    `json:"fingerprint" dynamodbav:"fingerprint"`
	UserAgent   string    `json:"user_agent" dynamodbav:"user_agent"`
	LastIP      string    `json:"last_ip" dynamodbav:"last_ip"`
	Country     string    `json:"country" dynamodbav:"country"`
	Latitude    *float64  `json:"latitude,omitempty" dynamodbav:"latitude"`
	Longitude   *float64  `json:"longitude,omitempty" dynamodbav:"longitude"`
	Trusted     bool      `json:"trusted" dynamodbav:"trusted"`
	CreatedAt   time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt   time.Time `json:"updated" dynamodbav:"updated_at"`
}

// DeviceInfo is what a client reports about the device it signs in from.
type DeviceInfo struct {
	DeviceUUID string   `json:"device_uuid"`
	Country    string   `json:"country" validate:"omitempty,len=2"`
	Latitude   *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude  *float64 `json:"longitude" validate:"omitempty,longitude"`
	UserAgent  string   `json:"-"`
	IP         string   `json:"-"`
}

// Location assessment reasons.
const (
	ReasonKnownDevice      = "known_device"
	ReasonNewDevice        = "new_device"
	ReasonCountryChanged   = "country_changed"
	ReasonImpossibleTravel = "impossible_travel"
)

type LocationAssessment struct {
	Trusted     bool   `json:"trusted"`
	RequiresOTP bool   `json:"requires_otp"`
	Reason      string `json:"reason"`
}
