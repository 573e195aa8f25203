package password

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// cheap parameters keep the suite fast; production uses DefaultParams
var testParams = &argon2id.Params{
	Memory:      1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

func newTestHasher(t *testing.T, workers int) *Hasher {
	t.Helper()
	h, err := NewHasher(testParams, workers)
	require.NoError(t, err)
	return h
}

func TestHashVerifyRoundTrip(t *testing.T) {
	h := newTestHasher(t, 2)
	ctx := context.Background()

	for _, pw := range []string{"x", "hunter2", "correct horse battery staple", "пароль-🔐"} {
		hash, err := h.Hash(ctx, pw)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(hash, "$argon2id$"))
		if len(pw) >= 6 {
			// shorter strings turn up in random base64 by chance
			assert.NotContains(t, hash, pw)
		}

		ok, err := h.Verify(ctx, pw, hash)
		require.NoError(t, err)
		assert.True(t, ok, "password %q", pw)
	}
}

func TestVerifyRejectsSingleCharacterMutations(t *testing.T) {
	h := newTestHasher(t, 2)
	ctx := context.Background()
	pw := "hunter2"

	hash, err := h.Hash(ctx, pw)
	require.NoError(t, err)

	mutations := []string{
		"Hunter2",  // substitution
		"hunter3",  // substitution
		"hunter",   // deletion
		"hunter22", // insertion
		"xhunter2", // insertion
		"huntre2",  // transposition
	}
	for _, m := range mutations {
		ok, err := h.Verify(ctx, m, hash)
		require.NoError(t, err)
		assert.False(t, ok, "mutation %q", m)
	}
}

func TestHashUsesFreshSalt(t *testing.T) {
	h := newTestHasher(t, 2)
	ctx := context.Background()

	a, err := h.Hash(ctx, "same")
	require.NoError(t, err)
	b, err := h.Hash(ctx, "same")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestVerifyMalformedHashIsMismatch(t *testing.T) {
	h := newTestHasher(t, 1)
	ctx := context.Background()

	for _, bad := range []string{"", "plaintext", "$argon2id$garbage", "$2b$10$short"} {
		ok, err := h.Verify(ctx, "pw", bad)
		require.NoError(t, err)
		assert.False(t, ok, "hash %q", bad)
	}
}

func TestVerifyLegacyBcryptHash(t *testing.T) {
	h := newTestHasher(t, 1)
	ctx := context.Background()

	legacy, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	ok, err := h.Verify(ctx, "hunter2", string(legacy))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify(ctx, "hunter3", string(legacy))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDummyVerify(t *testing.T) {
	h := newTestHasher(t, 1)
	require.NoError(t, h.DummyVerify(context.Background(), "anything"))
}

func TestSlotsBoundConcurrency(t *testing.T) {
	const workers = 2
	h := newTestHasher(t, workers)
	ctx := context.Background()

	var active, peak int64
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := h.slots.Acquire(ctx, 1); err != nil {
				t.Error(err)
				return
			}
			n := atomic.AddInt64(&active, 1)
			for {
				p := atomic.LoadInt64(&peak)
				if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt64(&active, -1)
			h.slots.Release(1)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak, int64(workers))
}

func TestHashHonoursContextWhenSlotsBusy(t *testing.T) {
	h := newTestHasher(t, 1)
	require.NoError(t, h.slots.Acquire(context.Background(), 1))
	defer h.slots.Release(1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := h.Hash(ctx, "pw")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	ok, err := h.Verify(ctx, "pw", "$argon2id$whatever")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, ok)
}
