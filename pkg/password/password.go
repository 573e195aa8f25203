// Package password hashes and verifies user passwords. Hashing is CPU and
// memory heavy, so every operation runs under a bounded number of slots.
package password

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// DefaultParams mirrors argon2id.DefaultParams (64 MiB, 1 iteration).
var DefaultParams = argon2id.DefaultParams

type Hasher struct {
	params *argon2id.Params
	slots  *semaphore.Weighted
	dummy  string
}

// NewHasher returns a Hasher allowing at most workers concurrent hash or
// verify operations. workers <= 0 means runtime.NumCPU().
func NewHasher(params *argon2id.Params, workers int) (*Hasher, error) {
	if params == nil {
		params = DefaultParams
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	// verified on the unknown-user path so it costs the same as a real check
	dummy, err := argon2id.CreateHash("securepulse-dummy-password", params)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy hash: %w", err)
	}

	return &Hasher{
		params: params,
		slots:  semaphore.NewWeighted(int64(workers)),
		dummy:  dummy,
	}, nil
}

// Hash returns a self-describing argon2id digest with a fresh salt.
func (h *Hasher) Hash(ctx context.Context, plaintext string) (string, error) {
	if err := h.slots.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("waiting for hashing slot: %w", err)
	}
	defer h.slots.Release(1)

	hash, err := argon2id.CreateHash(plaintext, h.params)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return hash, nil
}

// Verify reports whether plaintext matches hash. A malformed hash is a
// mismatch, not an error; the error is only set when ctx ends while waiting
// for a slot.
func (h *Hasher) Verify(ctx context.Context, plaintext, hash string) (bool, error) {
	if err := h.slots.Acquire(ctx, 1); err != nil {
		return false, fmt.Errorf("waiting for hashing slot: %w", err)
	}
	defer h.slots.Release(1)

	return compare(plaintext, hash), nil
}

// DummyVerify burns the same work as a real Verify. Its outcome is discarded.
func (h *Hasher) DummyVerify(ctx context.Context, plaintext string) error {
	_, err := h.Verify(ctx, plaintext, h.dummy)
	return err
}

func compare(plaintext, hash string) bool {
	switch {
	case strings.HasPrefix(hash, "$argon2id$"):
		ok, err := argon2id.ComparePasswordAndHash(plaintext, hash)
		return err == nil && ok
	case isBcrypt(hash):
		// digests written by the previous bcrypt deployment
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
	default:
		return false
	}
}

func isBcrypt(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") || strings.HasPrefix(hash, "$2b$") || strings.HasPrefix(hash, "$2y$")
}
