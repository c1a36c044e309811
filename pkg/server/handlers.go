package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ahwuocdz/gateserver/pkg/protocol"
	"github.com/ahwuocdz/gateserver/pkg/store"
)

// handleMessage dispatches a frame to the appropriate handler. An
// unrecognized tag is logged and ignored; it does not terminate the
// connection. The out-of-band key exchange is handled by the session loop
// before dispatch ever sees it.
func (s *Server) handleMessage(ctx context.Context, sess *Session, msg *protocol.Message) error {
	switch msg.Command {
	case protocol.CmdLogin:
		return s.handleLogin(ctx, sess, msg)
	case protocol.CmdLogout:
		return s.handleLogout(ctx, sess, msg)
	case protocol.CmdSetServer:
		return s.handleSetServer(sess, msg)
	default:
		debugLog.Printf("Session %d: unknown command %d, ignoring", sess.ID, msg.Command)
		return nil
	}
}

// sendLoginFailed replies with a failure frame; the connection stays open.
func (s *Server) sendLoginFailed(sess *Session, clientID int32, reason string) error {
	msg, err := loginFailedMessage(clientID, reason)
	if err != nil {
		return err
	}
	return sess.WriteMessage(msg)
}

// handleLogin runs the login authorization sequence. Each check
// short-circuits with a failure reply; the check order is a contract with
// the peer and must not be rearranged.
func (s *Server) handleLogin(ctx context.Context, sess *Session, msg *protocol.Message) error {
	serverID, err := msg.ReadInt8()
	if err != nil {
		return err
	}
	clientID, err := msg.ReadInt32()
	if err != nil {
		return err
	}
	username, err := msg.ReadString()
	if err != nil {
		return err
	}
	password, err := msg.ReadString()
	if err != nil {
		return err
	}

	debugLog.Printf("Session %d: LOGIN username=%s server=%d", sess.ID, username, serverID)

	acct, err := s.store.FindByCredentials(ctx, username, password)
	if errors.Is(err, store.ErrNotFound) {
		s.metrics.RecordLoginAttempt(loginOutcomeBadCreds)
		return s.sendLoginFailed(sess, clientID, "Incorrect username or password")
	}
	if err != nil {
		// Detail stays server-side; the peer only sees a generic failure.
		errorLog.Printf("Session %d: credential lookup failed: %v", sess.ID, err)
		s.metrics.RecordLoginAttempt(loginOutcomeStoreError)
		return s.sendLoginFailed(sess, clientID, "System error, please try again!")
	}

	if acct.ServerLogin != int32(serverID) {
		s.metrics.RecordLoginAttempt(loginOutcomeWrongServer)
		reason := fmt.Sprintf("This account belongs to server SV%d", acct.ServerLogin)
		return s.sendLoginFailed(sess, clientID, reason)
	}

	// A stale session is evicted rather than the new login being rejected
	// outright: notify, drop the record, and ask the player to retry. This
	// must happen before the wait-timer check.
	if s.users.IsOnline(acct.ID) {
		if err := sess.WriteMessage(disconnectMessage(acct.ID)); err != nil {
			return err
		}
		s.users.Remove(acct.ID)
		s.metrics.RecordLoginAttempt(loginOutcomeEvicted)
		return s.sendLoginFailed(sess, clientID, "Login failed, please log in again!")
	}

	secondsPassed := (time.Now().UnixMilli() - acct.LastLogoutAt) / 1000
	if wait := int64(s.config.Server.SecondWaitLogin); secondsPassed < wait {
		s.metrics.RecordLoginAttempt(loginOutcomeWaitTimer)
		reason := fmt.Sprintf("Please wait %d seconds before logging in again.", wait-secondsPassed)
		return s.sendLoginFailed(sess, clientID, reason)
	}

	if !acct.IsAdmin && s.config.Server.Maintenance {
		s.metrics.RecordLoginAttempt(loginOutcomeMaintenance)
		return s.sendLoginFailed(sess, clientID, "Server is under maintenance, please come back later")
	}

	if acct.Banned {
		s.metrics.RecordLoginAttempt(loginOutcomeBanned)
		return s.sendLoginFailed(sess, clientID, "This account has been locked for violating the terms of service!")
	}

	if err := s.store.MarkLogin(ctx, acct.ID); err != nil {
		errorLog.Printf("Session %d: failed to persist login time for user %d: %v", sess.ID, acct.ID, err)
		s.metrics.RecordLoginAttempt(loginOutcomeStoreError)
		return s.sendLoginFailed(sess, clientID, "System error, please try again!")
	}

	reply, err := loginSuccessMessage(acct, clientID)
	if err != nil {
		return err
	}
	if err := sess.WriteMessage(reply); err != nil {
		return err
	}
	s.users.Add(acct.ID, username, int32(serverID), clientID)
	s.metrics.RecordLoginAttempt(loginOutcomeSuccess)
	debugLog.Printf("Session %d: user %s (id=%d) logged in", sess.ID, username, acct.ID)
	return nil
}

// handleLogout removes a tracked user. A persist failure is logged but
// never aborts the removal; the ack is only sent when the logout time was
// actually stamped.
func (s *Server) handleLogout(ctx context.Context, sess *Session, msg *protocol.Message) error {
	userID, err := msg.ReadInt32()
	if err != nil {
		return err
	}

	user, ok := s.users.Find(userID)
	if !ok {
		return nil
	}
	debugLog.Printf("Session %d: LOGOUT user %s (id=%d)", sess.ID, user.Username, userID)

	persisted := true
	if err := s.store.MarkLogout(ctx, userID); err != nil {
		errorLog.Printf("Session %d: failed to persist logout time for user %d: %v", sess.ID, userID, err)
		persisted = false
	}
	s.users.Remove(userID)

	if persisted {
		return sess.WriteMessage(logoutTimeMessage(userID))
	}
	return nil
}

// handleSetServer is the trusted roster sync from a game server: every
// record bound to the announced server is evicted, then the batch is
// re-inserted in payload order. The transmitted password is read to keep
// the payload aligned but deliberately not re-verified.
func (s *Server) handleSetServer(sess *Session, msg *protocol.Message) error {
	serverID, err := msg.ReadInt32()
	if err != nil {
		return err
	}
	s.users.RemoveAllWithServer(serverID)

	count, err := msg.ReadInt32()
	if err != nil {
		return err
	}
	for i := int32(0); i < count; i++ {
		clientID, err := msg.ReadInt32()
		if err != nil {
			return err
		}
		userID, err := msg.ReadInt32()
		if err != nil {
			return err
		}
		username, err := msg.ReadString()
		if err != nil {
			return err
		}
		if _, err := msg.ReadString(); err != nil { // password, unused
			return err
		}
		s.users.Add(userID, username, serverID, clientID)
	}
	debugLog.Printf("Session %d: SET_SERVER server=%d synced %d users", sess.ID, serverID, count)
	return nil
}
