package server

import (
	"github.com/ahwuocdz/gateserver/pkg/protocol"
	"github.com/ahwuocdz/gateserver/pkg/store"
)

// Canonical reply frames. The builders only assemble messages; the session
// decides the transport framing when they are written.

// loginSuccessMessage builds the full account snapshot sent on a passed
// login. Field order is fixed by the peer implementation; the zero int32
// fields are reserved slots the peer still expects.
func loginSuccessMessage(acct *store.Account, clientID int32) (*protocol.Message, error) {
	msg := protocol.NewMessage(protocol.CmdLogin)
	msg.WriteInt32(clientID)
	msg.WriteInt8(0) // status: success
	msg.WriteInt32(acct.ID)
	msg.WriteBool(acct.IsAdmin)
	msg.WriteBool(acct.Active)
	msg.WriteInt32(acct.Gold)
	msg.WriteInt64(acct.LastLoginAt)
	msg.WriteInt64(acct.LastLogoutAt)

	reward := ""
	if acct.Reward != nil {
		reward = *acct.Reward
	}
	if err := msg.WriteString(reward); err != nil {
		return nil, err
	}

	msg.WriteInt32(0) // reserved
	msg.WriteInt32(0) // reserved
	msg.WriteInt32(acct.ServerLogin)
	msg.WriteInt32(0) // reserved
	msg.WriteInt32(0) // reserved
	msg.WriteInt32(acct.TotalDeposit)
	msg.WriteInt32(acct.Vnd)
	return msg, nil
}

// loginFailedMessage builds a login failure reply carrying the reason shown
// to the player.
func loginFailedMessage(clientID int32, reason string) (*protocol.Message, error) {
	msg := protocol.NewMessage(protocol.CmdLogin)
	msg.WriteInt32(clientID)
	msg.WriteInt8(1) // status: failure
	if err := msg.WriteString(reason); err != nil {
		return nil, err
	}
	return msg, nil
}

// disconnectMessage builds the forced-disconnect notice for a user whose
// session is being evicted.
func disconnectMessage(userID int32) *protocol.Message {
	msg := protocol.NewMessage(protocol.CmdDisconnect)
	msg.WriteInt32(userID)
	return msg
}

// serverTextMessage builds a broadcast text frame.
func serverTextMessage(clientID int32, text string) (*protocol.Message, error) {
	msg := protocol.NewMessage(protocol.CmdServerMessage)
	msg.WriteInt32(clientID)
	if err := msg.WriteString(text); err != nil {
		return nil, err
	}
	return msg, nil
}

// logoutTimeMessage builds the logout-time acknowledgement.
func logoutTimeMessage(userID int32) *protocol.Message {
	msg := protocol.NewMessage(protocol.CmdUpdateTimeLogout)
	msg.WriteInt32(userID)
	return msg
}
