package dynamo

// DynamoDB attribute names used in update and condition expressions across repos.
const (
	fieldEnable        = "enable"
	fieldDeletedAt     = "deleted_at"
	fieldUpdatedAt     = "updated_at"
	fieldConsumed      = "consumed"
	fieldAttempts      = "attempts"
	fieldEmailVerified = "email_verified"
	fieldLastSeenUnix  = "last_seen_unix"
	fieldExpiresAt     = "expires_at"
)
