package domain

import "time"

// OTP purposes.
const (
	PurposeEmail  = "email"
	PurposeSignup = "signup"
	PurposeLogin  = "login"
	PurposePhone  = "phone"
)

// MaxOTPAttempts is how many wrong guesses a code tolerates before it is dead.
const MaxOTPAttempts = 5

// ValidPurpose reports whether p is a known OTP purpose.
func ValidPurpose(p string) bool {
	switch p {
	case PurposeEmail, PurposeSignup, PurposeLogin, PurposePhone:
		return true
	}
	return false
}

// OTPRecord is one issued code.
// PK: otp_key (identifier#purpose), SK: otp_id (ULID, time ordered).
// ExpiresAt is a Unix timestamp used as DynamoDB TTL.
type OTPRecord struct {
	Key        string    `json:"-" dynamodbav:"otp_key"`
	OTPID      string    `json:"id" dynamodbav:"otp_id"`
	Identifier string    `json:"identifier" dynamodbav:"identifier"`
	Purpose    string    `json:"purpose" dynamodbav:"purpose"`
	Code       string    `json:"-" dynamodbav:"code"`
	CreatedAt  time.Time `json:"created_at" dynamodbav:"created_at"`
	ExpiresAt  int64     `json:"expires_at" dynamodbav:"expires_at"` // TTL (Unix seconds)
	Consumed   bool      `json:"consumed" dynamodbav:"consumed"`
	Attempts   int       `json:"attempts" dynamodbav:"attempts"`
}

// OTPKey builds the lookup key shared by every code of identifier+purpose.
func OTPKey(identifier, purpose string) string {
	return identifier + "#" + purpose
}

// Expired reports whether the code is past its expiry at now.
func (r *OTPRecord) Expired(now time.Time) bool {
	return r.ExpiresAt <= now.Unix()
}
