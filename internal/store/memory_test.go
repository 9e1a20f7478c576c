package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/driftlock/ghostgate/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAccountsContract(t *testing.T) {
	ctx := context.Background()
	accounts := NewMemoryAccounts()

	ok, err := accounts.Exists(ctx, "fp1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = accounts.Get(ctx, "fp1")
	assert.ErrorIs(t, err, ErrNotFound)

	err = accounts.Update(ctx, "fp1", func(a *model.Account) {})
	assert.ErrorIs(t, err, ErrNotFound)

	acct := model.Account{
		ClientID:     "dev1",
		PasswordHash: "hash",
		Nonce:        &model.Nonce{Token: "t1", IssuedAt: time.Now()},
	}
	require.NoError(t, accounts.Put(ctx, "fp1", acct))

	got, err := accounts.Get(ctx, "fp1")
	require.NoError(t, err)
	assert.Equal(t, "dev1", got.ClientID)
	require.NotNil(t, got.Nonce)
	assert.Equal(t, "t1", got.Nonce.Token)

	// Put is an unconditional upsert.
	require.NoError(t, accounts.Put(ctx, "fp1", model.Account{ClientID: "dev2", PasswordHash: "hash2"}))
	got, err = accounts.Get(ctx, "fp1")
	require.NoError(t, err)
	assert.Equal(t, "dev2", got.ClientID)
	assert.Nil(t, got.Nonce)

	// Update touches only what the mutation touches.
	require.NoError(t, accounts.Update(ctx, "fp1", func(a *model.Account) {
		a.PendingLinkID = "link-1"
	}))
	got, err = accounts.Get(ctx, "fp1")
	require.NoError(t, err)
	assert.Equal(t, "dev2", got.ClientID)
	assert.Equal(t, "link-1", got.PendingLinkID)
}

func TestMemoryAccountsGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	accounts := NewMemoryAccounts()

	require.NoError(t, accounts.Put(ctx, "fp1", model.Account{
		Nonce: &model.Nonce{Token: "t1", IssuedAt: time.Now()},
	}))

	got, err := accounts.Get(ctx, "fp1")
	require.NoError(t, err)
	got.Nonce.Token = "mutated"

	again, err := accounts.Get(ctx, "fp1")
	require.NoError(t, err)
	assert.Equal(t, "t1", again.Nonce.Token)
}

func TestMemoryAccountsConcurrentUpdates(t *testing.T) {
	ctx := context.Background()
	accounts := NewMemoryAccounts()
	require.NoError(t, accounts.Put(ctx, "fp1", model.Account{ClientID: "dev1"}))

	// Each update appends one marker; none may be lost.
	const n = 64
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := accounts.Update(ctx, "fp1", func(a *model.Account) {
				a.PendingLinkID += "x"
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := accounts.Get(ctx, "fp1")
	require.NoError(t, err)
	assert.Len(t, got.PendingLinkID, n)
}

func TestMemoryLinksContract(t *testing.T) {
	ctx := context.Background()
	links := NewMemoryLinks()

	_, err := links.Get(ctx, "l1")
	assert.ErrorIs(t, err, ErrNotFound)

	issued := time.Now().Truncate(time.Millisecond)
	require.NoError(t, links.Put(ctx, "l1", model.LinkNonce{Token: "t1", IssuedAt: issued}))

	ok, err := links.Exists(ctx, "l1")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := links.Get(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, "t1", got.Token)
	assert.Equal(t, issued, got.IssuedAt)

	require.NoError(t, links.Remove(ctx, "l1"))
	ok, err = links.Exists(ctx, "l1")
	require.NoError(t, err)
	assert.False(t, ok)

	// Remove is idempotent.
	require.NoError(t, links.Remove(ctx, "l1"))
}

func TestMemoryShardsSpreadKeys(t *testing.T) {
	accounts := NewMemoryAccounts()
	seen := make(map[*accountShard]bool)
	for i := 0; i < 256; i++ {
		seen[accounts.shard(fmt.Sprintf("fp-%d", i))] = true
	}
	assert.Greater(t, len(seen), 1)
}
