// Package auth implements the Authentication & Takeover algorithm (C5,
// SPEC_FULL.md §4.2). Session tokens are bcrypt-hashed secrets stored
// alongside the player record, following the teacher's account-password
// hashing idiom (internal/database's former accounts.go).
package auth

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/lawnchairsociety/gridkeep/server/internal/engineerr"
	"github.com/lawnchairsociety/gridkeep/server/internal/repository"
)

const bcryptCost = 12

// HashToken hashes a raw session token for storage.
func HashToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash token: %w", err)
	}
	return string(hash), nil
}

// Validator checks a presented session token against a player's stored
// hash. It is a thin seam so the dispatcher doesn't need to know about
// bcrypt directly.
type Validator struct {
	repo repository.Repository
}

func NewValidator(repo repository.Repository) *Validator {
	return &Validator{repo: repo}
}

// TokenHasher exposes the stored hash lookup the teacher's accounts schema
// used to keep alongside the row; the new players table carries the same
// token_hash column, read here through a narrow interface rather than the
// full Repository so tests can stub it independently.
type TokenHasher interface {
	PlayerTokenHash(ctx context.Context, playerName string) (playerID, tokenHash string, ok bool, err error)
}

// Resolve validates token against playerName's stored hash and returns the
// resolved player id. A mismatch or unknown player both return the same
// ValidationError so as not to leak which one failed.
func (v *Validator) Resolve(ctx context.Context, hasher TokenHasher, playerName, token string) (string, error) {
	playerID, hash, ok, err := hasher.PlayerTokenHash(ctx, playerName)
	if err != nil {
		return "", fmt.Errorf("resolve token: %w", err)
	}
	if !ok {
		return "", engineerr.Template(engineerr.Validation, "auth_invalid_token", nil)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)); err != nil {
		return "", engineerr.Template(engineerr.Validation, "auth_invalid_token", nil)
	}
	return playerID, nil
}
