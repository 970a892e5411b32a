package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"kharcha/internal/cache"
	"kharcha/internal/core"
	"kharcha/internal/ledger/memory"
)

func TestResolve(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	r := NewResolver(store)

	if _, err := r.Resolve(ctx, ""); !errors.Is(err, core.ErrUnauthorized) {
		t.Fatalf("anonymous caller: got %v", err)
	}
	if _, err := r.Resolve(ctx, "ext-1"); !errors.Is(err, core.ErrUserNotProvisioned) {
		t.Fatalf("unknown caller: got %v", err)
	}

	created, _ := store.UpsertUserByExternalID(ctx, core.User{ExternalID: "ext-1"})
	u, err := r.Resolve(ctx, "ext-1")
	if err != nil || u.ID != created.ID {
		t.Fatalf("resolve provisioned user: %+v %v", u, err)
	}
}

func TestSyncerLifecycle(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	s := NewSyncer(store)

	evt := Event{Type: UserCreated, Data: EventData{
		ID:             "ext-1",
		EmailAddresses: []EmailAddress{{"first@example.com"}, {"second@example.com"}},
		FirstName:      "Asha",
		LastName:       "Rao",
	}}
	if err := s.Apply(ctx, evt); err != nil {
		t.Fatalf("created: %v", err)
	}
	u, _ := store.FindUserByExternalID(ctx, "ext-1")
	if u.Email != "first@example.com" || u.Name != "Asha Rao" {
		t.Fatalf("unexpected user %+v", u)
	}

	evt.Type = UserUpdated
	evt.Data.FirstName, evt.Data.LastName = "", ""
	if err := s.Apply(ctx, evt); err != nil {
		t.Fatalf("updated: %v", err)
	}
	again, _ := store.FindUserByExternalID(ctx, "ext-1")
	if again.ID != u.ID || again.Name != "" {
		t.Fatalf("update should keep id and clear name: %+v", again)
	}

	if err := s.Apply(ctx, Event{Type: "session.created"}); err != nil {
		t.Fatalf("unknown events must be ignored: %v", err)
	}

	if err := s.Apply(ctx, Event{Type: UserDeleted, Data: EventData{ID: "ext-1"}}); err != nil {
		t.Fatalf("deleted: %v", err)
	}
	if _, err := store.FindUserByExternalID(ctx, "ext-1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("user should be gone, got %v", err)
	}
}

func TestFullName(t *testing.T) {
	cases := []struct {
		first, last, want string
	}{
		{"Asha", "Rao", "Asha Rao"},
		{"Asha", "", "Asha"},
		{"", "Rao", "Rao"},
		{"", "", ""},
	}
	for _, tc := range cases {
		if got := (EventData{FirstName: tc.first, LastName: tc.last}).fullName(); got != tc.want {
			t.Errorf("fullName(%q, %q) = %q, want %q", tc.first, tc.last, got, tc.want)
		}
	}
}

func TestCachedResolveIsEvictedBySync(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	users := cache.NewLRUCache[core.User](10, time.Minute)
	r := NewResolver(store).WithCache(users)
	s := NewSyncer(store).WithCache(users)

	if err := s.Apply(ctx, Event{Type: UserCreated, Data: EventData{ID: "ext-1", FirstName: "Asha"}}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if u, err := r.Resolve(ctx, "ext-1"); err != nil || u.Name != "Asha" {
		t.Fatalf("resolve: %+v %v", u, err)
	}
	if users.Size() != 1 {
		t.Fatalf("resolved user not cached, size %d", users.Size())
	}

	if err := s.Apply(ctx, Event{Type: UserDeleted, Data: EventData{ID: "ext-1"}}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := r.Resolve(ctx, "ext-1"); !errors.Is(err, core.ErrUserNotProvisioned) {
		t.Fatalf("deleted user still resolves: %v", err)
	}
}
