package types

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Identity names the owner of a cart, address, or checkout session: either an
// authenticated user or an anonymous browser session. Exactly one side is set.
type Identity struct {
	UserID    *uuid.UUID
	SessionID *string
}

// UserIdentity builds an identity for an authenticated user.
func UserIdentity(userID uuid.UUID) Identity {
	return Identity{UserID: &userID}
}

// SessionIdentity builds an identity for an anonymous session.
func SessionIdentity(sessionID string) Identity {
	trimmed := strings.TrimSpace(sessionID)
	return Identity{SessionID: &trimmed}
}

// Validate enforces the exactly-one-owner rule.
func (i Identity) Validate() error {
	hasUser := i.UserID != nil && *i.UserID != uuid.Nil
	hasSession := i.SessionID != nil && strings.TrimSpace(*i.SessionID) != ""
	if hasUser == hasSession {
		return fmt.Errorf("identity requires exactly one of user id or session id")
	}
	return nil
}

// IsUser reports whether the identity belongs to an authenticated user.
func (i Identity) IsUser() bool {
	return i.UserID != nil && *i.UserID != uuid.Nil
}

// Key returns a stable string form usable for cache keys and log fields.
func (i Identity) Key() string {
	if i.IsUser() {
		return "user:" + i.UserID.String()
	}
	if i.SessionID != nil {
		return "session:" + *i.SessionID
	}
	return "unowned"
}

func (i Identity) String() string {
	return i.Key()
}
