package userstore

import (
	"context"

	"github.com/dalemusser/datatracker/internal/app/system/auth"
	"github.com/dalemusser/datatracker/internal/app/system/timeouts"
	"github.com/dalemusser/datatracker/internal/domain/models"
)

// Fetcher implements auth.UserFetcher to load fresh user data on each request.
type Fetcher struct {
	users *Store
}

// NewFetcher creates a UserFetcher over the user store.
func NewFetcher(users *Store) *Fetcher {
	return &Fetcher{users: users}
}

// FetchUser retrieves a user by ID and returns nil if the user is not found
// or if any error occurs.
func (f *Fetcher) FetchUser(ctx context.Context, userID string) *auth.SessionUser {
	if !models.IsID(userID) {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	u, err := f.users.GetByID(ctx, userID)
	if err != nil {
		return nil
	}
	return sessionUser(u)
}

// FetchAPICredentials looks up the user named by an API key header, by
// identifier or email. Users without a stored key yield nil.
func (f *Fetcher) FetchAPICredentials(ctx context.Context, ref string) *auth.APICredentials {
	if ref == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	u, err := f.users.GetByRef(ctx, ref)
	if err != nil || u.APIKey == "" {
		return nil
	}
	return &auth.APICredentials{User: sessionUser(u), Hash: u.APIKey, Salt: u.APISalt}
}

func sessionUser(u *models.User) *auth.SessionUser {
	return &auth.SessionUser{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Permissions: append([]string(nil), u.Permissions...),
	}
}
