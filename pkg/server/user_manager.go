package server

import "sync"

// OnlineUser is the lightweight record tracked for each logged-in account.
type OnlineUser struct {
	UserID   int32
	Username string
	ServerID int32
	ClientID int32
}

// UserManager is the shared online-user registry, keyed by account id — at
// most one record per account at any time. One coarse RWMutex guards the
// whole map: bulk operations like RemoveAllWithServer need a consistent
// whole-map view, so per-entry locking is deliberately avoided. No lock is
// ever held across I/O or database calls.
type UserManager struct {
	mu      sync.RWMutex
	users   map[int32]OnlineUser
	metrics *Metrics
}

// NewUserManager creates an empty registry.
func NewUserManager() *UserManager {
	return &UserManager{users: make(map[int32]OnlineUser)}
}

// SetMetrics attaches metrics to the registry.
func (um *UserManager) SetMetrics(metrics *Metrics) {
	um.metrics = metrics
}

// Add upserts a record, replacing any existing record for that account.
func (um *UserManager) Add(userID int32, username string, serverID, clientID int32) {
	um.mu.Lock()
	um.users[userID] = OnlineUser{
		UserID:   userID,
		Username: username,
		ServerID: serverID,
		ClientID: clientID,
	}
	count := len(um.users)
	um.mu.Unlock()

	if um.metrics != nil {
		um.metrics.RecordOnlineUsers(count)
	}
}

// Remove deletes a record. No-op if the account is not tracked.
func (um *UserManager) Remove(userID int32) {
	um.mu.Lock()
	delete(um.users, userID)
	count := len(um.users)
	um.mu.Unlock()

	if um.metrics != nil {
		um.metrics.RecordOnlineUsers(count)
	}
}

// Find returns a snapshot copy of the record for an account.
func (um *UserManager) Find(userID int32) (OnlineUser, bool) {
	um.mu.RLock()
	defer um.mu.RUnlock()

	u, ok := um.users[userID]
	return u, ok
}

// RemoveAllWithServer evicts every record bound to the given server. Used
// when a game server resets and re-announces its roster.
func (um *UserManager) RemoveAllWithServer(serverID int32) {
	um.mu.Lock()
	for id, u := range um.users {
		if u.ServerID == serverID {
			delete(um.users, id)
		}
	}
	count := len(um.users)
	um.mu.Unlock()

	if um.metrics != nil {
		um.metrics.RecordOnlineUsers(count)
	}
}

// IsOnline reports whether an account is currently tracked.
func (um *UserManager) IsOnline(userID int32) bool {
	um.mu.RLock()
	defer um.mu.RUnlock()

	_, ok := um.users[userID]
	return ok
}

// Count returns the number of tracked accounts.
func (um *UserManager) Count() int {
	um.mu.RLock()
	defer um.mu.RUnlock()

	return len(um.users)
}
