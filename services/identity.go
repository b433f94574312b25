package services

import (
	"errors"

	"github.com/cppla/postboard/metrics"
)

// Identity is the requesting user as established by the auth layer. The zero value is
// the anonymous caller.
type Identity struct {
	UserID   uint
	Username string
	Admin    bool
}

// Anonymous is the identity of an unauthenticated request.
var Anonymous = Identity{}

// IsAnonymous reports whether no user is attached.
func (id Identity) IsAnonymous() bool {
	return id.UserID == 0
}

// RequireIdentity rejects anonymous callers.
func RequireIdentity(id Identity) error {
	if id.IsAnonymous() {
		return ErrUnauthorized
	}
	return nil
}

// CheckOwner is the ownership capability: only the author of a record may update or
// delete it. It must be evaluated before any field is changed.
func CheckOwner(id Identity, authorID uint) error {
	if err := RequireIdentity(id); err != nil {
		return err
	}
	if id.UserID != authorID {
		return ErrForbidden
	}
	return nil
}

// RequireAdmin gates the administrative backend.
func RequireAdmin(id Identity) error {
	if err := RequireIdentity(id); err != nil {
		return err
	}
	if !id.Admin {
		return ErrForbidden
	}
	return nil
}

// checkOwnerOf is CheckOwner with denials counted per content kind.
func checkOwnerOf(kind string, id Identity, authorID uint) error {
	err := CheckOwner(id, authorID)
	if errors.Is(err, ErrForbidden) {
		metrics.OwnershipDenied.WithLabelValues(kind).Inc()
	}
	return err
}
