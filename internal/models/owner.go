// internal/models/owner.go
package models

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Owner identifies who a cart or order belongs to: an authenticated user or
// an anonymous session, never both. The zero value is invalid.
type Owner struct {
	userID     uuid.UUID
	sessionKey string
}

func AuthenticatedOwner(userID uuid.UUID) Owner {
	return Owner{userID: userID}
}

func AnonymousOwner(sessionKey string) Owner {
	return Owner{sessionKey: sessionKey}
}

func (o Owner) IsAuthenticated() bool {
	return o.userID != uuid.Nil
}

func (o Owner) IsAnonymous() bool {
	return o.userID == uuid.Nil && o.sessionKey != ""
}

func (o Owner) Valid() bool {
	return o.IsAuthenticated() || o.IsAnonymous()
}

func (o Owner) UserID() uuid.UUID {
	return o.userID
}

func (o Owner) SessionKey() string {
	return o.sessionKey
}

func (o Owner) String() string {
	if o.IsAuthenticated() {
		return "user:" + o.userID.String()
	}
	return "session:" + o.sessionKey
}

// Scope restricts a query on carts or orders to rows owned by o.
func (o Owner) Scope() func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if o.IsAuthenticated() {
			return db.Where("user_id = ?", o.userID)
		}
		return db.Where("user_id IS NULL AND session_key = ?", o.sessionKey)
	}
}

// columns returns the nullable pair persisted for this owner.
func (o Owner) columns() (*uuid.UUID, *string) {
	if o.IsAuthenticated() {
		id := o.userID
		return &id, nil
	}
	key := o.sessionKey
	return nil, &key
}

func ownerFromColumns(userID *uuid.UUID, sessionKey *string) (Owner, error) {
	switch {
	case userID != nil && sessionKey == nil:
		return AuthenticatedOwner(*userID), nil
	case userID == nil && sessionKey != nil && *sessionKey != "":
		return AnonymousOwner(*sessionKey), nil
	}
	return Owner{}, fmt.Errorf("row has no single owner")
}
