package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/gaushala-ops/gaushala/internal/shared"
)

// Repository defines credential lookups for the auth module.
type Repository interface {
	FindByUsername(ctx context.Context, username string) (*User, error)
}

// StaticRepository serves accounts from memory. The gateway does not own
// user persistence; deployments seed accounts at startup.
type StaticRepository struct {
	users map[string]*User
}

// NewStaticRepository constructs a repository over the given accounts.
func NewStaticRepository(users []User) *StaticRepository {
	byName := make(map[string]*User, len(users))
	for i := range users {
		u := users[i]
		byName[u.Username] = &u
	}
	return &StaticRepository{users: byName}
}

// FindByUsername fetches an account by username.
func (r *StaticRepository) FindByUsername(_ context.Context, username string) (*User, error) {
	user, ok := r.users[username]
	if !ok {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

var _ Repository = (*StaticRepository)(nil)

// ParseSeedUsers parses the SEED_USERS value: comma-separated
// username:role:bcrypt-hash entries.
func ParseSeedUsers(raw string) ([]User, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var users []User
	for _, entry := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(entry), ":", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("seed user %q: want username:role:hash", entry)
		}
		users = append(users, User{
			Username:     parts[0],
			Role:         parts[1],
			PasswordHash: parts[2],
			IsActive:     true,
		})
	}
	return users, nil
}
