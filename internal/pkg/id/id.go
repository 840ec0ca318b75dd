package id

import "github.com/oklog/ulid/v2"

// New generates a new ULID string. IDs from one process are strictly
// increasing, even within the same millisecond, so "latest first" reads on
// the OTP and event tables see issue order.
func New() string {
	return ulid.Make().String()
}

// Prefixed returns New with prefix and a dash prepended, e.g. "dev-01J...".
func Prefixed(prefix string) string {
	return prefix + "-" + New()
}
