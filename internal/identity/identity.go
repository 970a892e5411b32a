// Package identity maps identity provider subjects onto ledger users.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"kharcha/internal/cache"
	"kharcha/internal/core"
	"kharcha/internal/ledger"
)

// Identity provider event types the syncer acts on.
const (
	UserCreated = "user.created"
	UserUpdated = "user.updated"
	UserDeleted = "user.deleted"
)

type (
	EmailAddress struct {
		EmailAddress string `json:"email_address"`
	}

	EventData struct {
		ID             string         `json:"id"`
		EmailAddresses []EmailAddress `json:"email_addresses"`
		FirstName      string         `json:"first_name"`
		LastName       string         `json:"last_name"`
	}

	// Event is the webhook payload sent by the identity provider.
	Event struct {
		Type string    `json:"type"`
		Data EventData `json:"data"`
	}
)

// Resolver turns the caller's external identity into a provisioned user.
type Resolver struct {
	users ledger.UserStore
	cache cache.Cache[core.User]
}

func NewResolver(users ledger.UserStore) *Resolver {
	return &Resolver{users: users}
}

// WithCache keeps resolved users in c, keyed by external id. The Syncer
// sharing c evicts entries as users change.
func (r *Resolver) WithCache(c cache.Cache[core.User]) *Resolver {
	r.cache = c
	return r
}

// Resolve returns ErrUnauthorized for an anonymous caller and
// ErrUserNotProvisioned when the identity has no local user yet.
func (r *Resolver) Resolve(ctx context.Context, externalID string) (core.User, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return core.User{}, core.ErrUnauthorized
	}
	if r.cache != nil {
		if u, ok := r.cache.Get(externalID); ok {
			return u, nil
		}
	}
	u, err := r.users.FindUserByExternalID(ctx, externalID)
	if errors.Is(err, core.ErrNotFound) {
		return core.User{}, core.ErrUserNotProvisioned
	}
	if err != nil {
		return core.User{}, fmt.Errorf("resolve user: %w", err)
	}
	if r.cache != nil {
		r.cache.Set(externalID, u)
	}
	return u, nil
}

// Syncer mirrors identity provider lifecycle events into the user store.
type Syncer struct {
	users ledger.UserStore
	cache cache.Cache[core.User]
}

func NewSyncer(users ledger.UserStore) *Syncer {
	return &Syncer{users: users}
}

func (s *Syncer) WithCache(c cache.Cache[core.User]) *Syncer {
	s.cache = c
	return s
}

func (s *Syncer) evict(externalID string) {
	if s.cache != nil {
		s.cache.Delete(externalID)
	}
}

// Apply handles one event. Unknown types are ignored.
func (s *Syncer) Apply(ctx context.Context, evt Event) error {
	switch evt.Type {
	case UserCreated, UserUpdated:
		if evt.Data.ID == "" {
			return core.ErrMissingUserID
		}
		s.evict(evt.Data.ID)
		u, err := s.users.UpsertUserByExternalID(ctx, core.User{
			ExternalID: evt.Data.ID,
			Email:      evt.Data.primaryEmail(),
			Name:       evt.Data.fullName(),
		})
		if err != nil {
			return fmt.Errorf("upsert user %s: %w", evt.Data.ID, err)
		}
		slog.InfoContext(ctx, "User synced", "type", evt.Type, "user_id", u.ID)
	case UserDeleted:
		if evt.Data.ID == "" {
			return core.ErrMissingUserID
		}
		s.evict(evt.Data.ID)
		n, err := s.users.DeleteUserByExternalID(ctx, evt.Data.ID)
		if err != nil {
			return fmt.Errorf("delete user %s: %w", evt.Data.ID, err)
		}
		slog.InfoContext(ctx, "User deleted", "external_id", evt.Data.ID, "affected", n)
	default:
		slog.DebugContext(ctx, "Ignoring identity event", "type", evt.Type)
	}
	return nil
}

func (d EventData) primaryEmail() string {
	if len(d.EmailAddresses) == 0 {
		return ""
	}
	return d.EmailAddresses[0].EmailAddress
}

func (d EventData) fullName() string {
	var parts []string
	for _, p := range []string{d.FirstName, d.LastName} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}
