// Package contact classifies and normalizes the address an OTP is delivered to.
package contact

import (
	"net/mail"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// Kind is the delivery channel of a contact.
type Kind int

const (
	Unknown Kind = iota
	Email
	Phone
)

func (k Kind) String() string {
	switch k {
	case Email:
		return "email"
	case Phone:
		return "phone"
	}
	return "unknown"
}

// Parse returns the normalized contact and its kind. Emails are trimmed and
// lower-cased; phone numbers must carry a country code and come back in E.164.
func Parse(raw string) (string, Kind) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", Unknown
	}
	if strings.Contains(s, "@") {
		if IsEmailValid(s) {
			return strings.ToLower(s), Email
		}
		return "", Unknown
	}
	num, err := phonenumbers.Parse(s, "")
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return "", Unknown
	}
	return phonenumbers.Format(num, phonenumbers.E164), Phone
}

// IsEmailValid checks if an email string is a bare, valid address.
func IsEmailValid(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// NormalizeEmail trims and lower-cases an email for storage and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
