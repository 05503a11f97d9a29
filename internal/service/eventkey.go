package service

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

// DeriveEventKey returns the dedup key for a notification. An explicit key
// is used verbatim (callers encode their natural dedup boundary in it, e.g.
// "tagpeer:{userID}:{itemID}"). Otherwise the key is a digest over
// (user, type, link, body) so textually identical notifications collapse.
func DeriveEventKey(explicit string, userID uuid.UUID, notifType, link, body string) string {
	if explicit != "" {
		return explicit
	}
	sum := sha256.Sum256([]byte(userID.String() + "|" + notifType + "|" + link + "|" + body))
	return "d:" + hex.EncodeToString(sum[:])
}
