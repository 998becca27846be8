package models

import "time"

// VerificationState is the ephemeral per-phone record of one code cycle.
// Phone is the document key; a new issuance replaces the whole document, which
// is what supersedes the previous code. CodeHash holds a SHA-256 digest of the
// code, never the digits themselves. PurgeAt drives the TTL index only; expiry
// checks always compare against ExpiresAt.
type VerificationState struct {
	Phone             string    `bson:"_id" json:"phone"`
	CodeHash          string    `bson:"codeHash" json:"-"`
	IssuedAt          time.Time `bson:"issuedAt" json:"issuedAt"`
	ExpiresAt         time.Time `bson:"expiresAt" json:"expiresAt"`
	AttemptsRemaining int       `bson:"attemptsRemaining" json:"attemptsRemaining"`
	StagedName        string    `bson:"stagedName,omitempty" json:"-"`
	PurgeAt           time.Time `bson:"purgeAt" json:"-"`
}

// RateLimitWindow is one fixed-window counter document. The document id is
// "<key>:<windowStart unix>", so concurrent consumers always $inc the same
// document for the same window. ExpiresAt feeds the TTL cleanup index.
type RateLimitWindow struct {
	ID          string    `bson:"_id" json:"id"`
	Key         string    `bson:"key" json:"key"`
	WindowStart time.Time `bson:"windowStart" json:"windowStart"`
	Count       int       `bson:"count" json:"count"`
	ExpiresAt   time.Time `bson:"expiresAt" json:"expiresAt"`
}
