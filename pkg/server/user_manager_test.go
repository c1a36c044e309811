package server

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserManagerAddFindRemove(t *testing.T) {
	um := NewUserManager()

	um.Add(7, "alice", 1, 100)
	assert.True(t, um.IsOnline(7))
	assert.Equal(t, 1, um.Count())

	user, ok := um.Find(7)
	require.True(t, ok)
	assert.Equal(t, OnlineUser{UserID: 7, Username: "alice", ServerID: 1, ClientID: 100}, user)

	um.Remove(7)
	assert.False(t, um.IsOnline(7))
	assert.Equal(t, 0, um.Count())

	_, ok = um.Find(7)
	assert.False(t, ok)
}

func TestUserManagerAddReplaces(t *testing.T) {
	um := NewUserManager()

	um.Add(7, "alice", 1, 100)
	um.Add(7, "alice", 2, 200)

	assert.Equal(t, 1, um.Count())
	user, ok := um.Find(7)
	require.True(t, ok)
	assert.Equal(t, int32(2), user.ServerID)
	assert.Equal(t, int32(200), user.ClientID)
}

func TestUserManagerRemoveAbsent(t *testing.T) {
	um := NewUserManager()
	um.Remove(42) // no-op
	assert.Equal(t, 0, um.Count())
}

func TestUserManagerRemoveAllWithServer(t *testing.T) {
	um := NewUserManager()
	um.Add(1, "alice", 1, 10)
	um.Add(2, "bob", 1, 20)
	um.Add(3, "carol", 2, 30)
	um.Add(4, "dave", 3, 40)

	um.RemoveAllWithServer(1)

	assert.False(t, um.IsOnline(1))
	assert.False(t, um.IsOnline(2))
	assert.True(t, um.IsOnline(3))
	assert.True(t, um.IsOnline(4))
	assert.Equal(t, 2, um.Count())
}

func TestUserManagerConcurrentAccess(t *testing.T) {
	um := NewUserManager()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id int32) {
			defer wg.Done()
			um.Add(id, "user", id%3, id)
			um.IsOnline(id)
			um.Find(id)
			um.Count()
		}(int32(i))
	}
	wg.Wait()

	assert.Equal(t, 20, um.Count())
	um.RemoveAllWithServer(0)
	um.RemoveAllWithServer(1)
	um.RemoveAllWithServer(2)
	assert.Equal(t, 0, um.Count())
}
