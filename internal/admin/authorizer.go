// Package admin decides who may run administrative commands.
package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/rg/neetbot/internal/storage"
)

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrOwnerProtected = errors.New("the owner cannot be removed")
)

// Store is the persistence the authorizer needs.
type Store interface {
	IsAdmin(ctx context.Context, uid int64) (bool, error)
	AddAdmin(ctx context.Context, uid, promotedBy int64) error
	RemoveAdmin(ctx context.Context, uid int64) error
	ListAdmins(ctx context.Context) ([]*storage.Admin, error)
}

// Authorizer grants admin rights to the configured owner and to every
// promoted admin.
type Authorizer struct {
	store   Store
	ownerID int64
}

func NewAuthorizer(store Store, ownerID int64) *Authorizer {
	return &Authorizer{store: store, ownerID: ownerID}
}

func (a *Authorizer) OwnerID() int64 {
	return a.ownerID
}

// IsOwner is false for every user when no owner is configured.
func (a *Authorizer) IsOwner(uid int64) bool {
	return a.ownerID != 0 && uid == a.ownerID
}

func (a *Authorizer) IsAuthorized(ctx context.Context, uid int64) (bool, error) {
	if a.IsOwner(uid) {
		return true, nil
	}
	ok, err := a.store.IsAdmin(ctx, uid)
	if err != nil {
		return false, fmt.Errorf("failed to check admin: %w", err)
	}
	return ok, nil
}

func (a *Authorizer) require(ctx context.Context, actor int64) error {
	ok, err := a.IsAuthorized(ctx, actor)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnauthorized
	}
	return nil
}

func (a *Authorizer) Promote(ctx context.Context, actor, target int64) error {
	if err := a.require(ctx, actor); err != nil {
		return err
	}
	if err := a.store.AddAdmin(ctx, target, actor); err != nil {
		return fmt.Errorf("failed to promote %d: %w", target, err)
	}
	return nil
}

// Remove revokes target's admin grant. Removing a user who is not an admin
// succeeds.
func (a *Authorizer) Remove(ctx context.Context, actor, target int64) error {
	if err := a.require(ctx, actor); err != nil {
		return err
	}
	if a.IsOwner(target) {
		return ErrOwnerProtected
	}
	if err := a.store.RemoveAdmin(ctx, target); err != nil {
		return fmt.Errorf("failed to remove %d: %w", target, err)
	}
	return nil
}

func (a *Authorizer) List(ctx context.Context, actor int64) ([]*storage.Admin, error) {
	if err := a.require(ctx, actor); err != nil {
		return nil, err
	}
	admins, err := a.store.ListAdmins(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}
	return admins, nil
}
