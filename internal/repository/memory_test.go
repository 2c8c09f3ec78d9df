package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemorySessionStore_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySessionStore()

	_, ok, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Set(ctx, "u1", "conv-1"))
	require.NoError(t, s.Set(ctx, "u1", "conv-2"))
	convID, ok, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "conv-2", convID)

	found, err := s.Delete(ctx, "u1")
	require.NoError(t, err)
	require.True(t, found)

	found, err = s.Delete(ctx, "u1")
	require.NoError(t, err)
	require.False(t, found)
	require.Zero(t, s.Len())
}

func TestMemorySessionStore_RejectsEmptyUser(t *testing.T) {
	s := NewMemorySessionStore()
	require.ErrorIs(t, s.Set(context.Background(), "", "conv-1"), errEmptyUserID)
	_, _, err := s.Get(context.Background(), " ")
	require.ErrorIs(t, err, errEmptyUserID)
	_, err = s.Delete(context.Background(), "")
	require.ErrorIs(t, err, errEmptyUserID)
}

func TestMemorySessionStore_ConcurrentUsers(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySessionStore()

	const users = 50
	var wg sync.WaitGroup
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := fmt.Sprintf("user-%d", i)
			for j := 0; j < 20; j++ {
				_ = s.Set(ctx, user, fmt.Sprintf("conv-%d-%d", i, j))
				_, _, _ = s.Get(ctx, user)
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, users, s.Len())
	convID, ok, err := s.Get(ctx, "user-7")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "conv-7-19", convID)
}
