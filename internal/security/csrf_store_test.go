package security

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studio-backend/internal/testutil"
)

func newTestCSRFStore(t *testing.T) (*CSRFStore, *testutil.Clock) {
	t.Helper()
	clock := testutil.NewClock(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	store := NewCSRFStore(context.Background(), CSRFStoreConfig{Now: clock.Now})
	t.Cleanup(store.Stop)
	return store, clock
}

func TestCSRFStore_GenerateAndValidate(t *testing.T) {
	store, _ := newTestCSRFStore(t)

	token, err := store.Generate("session-1")
	require.NoError(t, err)
	assert.Len(t, token, 64)
	assert.Equal(t, 1, store.Len())

	assert.True(t, store.Validate(token, "session-1"))
	assert.Equal(t, 0, store.Len())
}

func TestCSRFStore_TokenIsSingleUse(t *testing.T) {
	store, _ := newTestCSRFStore(t)

	token, err := store.Generate("session-1")
	require.NoError(t, err)

	assert.True(t, store.Validate(token, "session-1"))
	assert.False(t, store.Validate(token, "session-1"))
}

func TestCSRFStore_WrongSessionKeepsToken(t *testing.T) {
	store, _ := newTestCSRFStore(t)

	token, err := store.Generate("session-1")
	require.NoError(t, err)

	assert.False(t, store.Validate(token, "session-2"))
	assert.True(t, store.Validate(token, "session-1"), "mismatched attempt must not consume the token")
}

func TestCSRFStore_RejectsEmptyAndUnknown(t *testing.T) {
	store, _ := newTestCSRFStore(t)

	assert.False(t, store.Validate("", "session-1"))
	assert.False(t, store.Validate("not-a-token", "session-1"))
}

func TestCSRFStore_Expiry(t *testing.T) {
	store, clock := newTestCSRFStore(t)

	token, err := store.Generate("session-1")
	require.NoError(t, err)

	clock.Advance(time.Hour + time.Second)

	assert.False(t, store.Validate(token, "session-1"))
	assert.Equal(t, 0, store.Len(), "expired token should be removed on validation")
}

func TestCSRFStore_Sweep(t *testing.T) {
	store, clock := newTestCSRFStore(t)

	_, err := store.Generate("session-1")
	require.NoError(t, err)
	clock.Advance(45 * time.Minute)
	fresh, err := store.Generate("session-1")
	require.NoError(t, err)
	clock.Advance(30 * time.Minute)

	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 1, store.Len())
	assert.True(t, store.Validate(fresh, "session-1"))
}

func TestCSRFStore_ConcurrentValidationSucceedsOnce(t *testing.T) {
	store, _ := newTestCSRFStore(t)

	token, err := store.Generate("session-1")
	require.NoError(t, err)

	var successes atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if store.Validate(token, "session-1") {
				successes.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load())
}
