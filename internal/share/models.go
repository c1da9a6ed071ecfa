package share

import (
	"time"

	"github.com/google/uuid"
)

// Token is an unguessable capability granting time-limited access to one
// file. Possession of the token string is the credential; the recipient
// field is informational only.
type Token struct {
	Token          string     `json:"share_token"`
	FileID         uuid.UUID  `json:"file_id"`
	OwnerID        uuid.UUID  `json:"-"`
	RecipientEmail *string    `json:"recipient_email,omitempty"`
	Message        *string    `json:"message,omitempty"`
	Filename       string     `json:"filename"`
	SizeBytes      int64      `json:"size"`
	ObjectName     string     `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
	ExpiresAt      time.Time  `json:"expires_at"`
	Accessed       bool       `json:"is_accessed"`
	AccessedAt     *time.Time `json:"accessed_at,omitempty"`
	RevokedAt      *time.Time `json:"-"`
}
