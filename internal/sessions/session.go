package sessions

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Session is a refresh session. Only the SHA-256 of the refresh token is
// persisted; the raw token is handed to the client once.
type Session struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	TokenHash string    `bson:"tokenHash" json:"tokenHash"`
	Sub       string    `bson:"sub" json:"sub"`
	Remember  bool      `bson:"remember" json:"remember"`
	ExpiresAt time.Time `bson:"expiresAt" json:"expiresAt"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// HashToken returns the storage key for a raw token.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
