package protocol

// Command tags (signed 8-bit on the wire)
const (
	CmdLogin            int8 = 1
	CmdLogout           int8 = 2
	CmdDisconnect       int8 = 3 // outbound only
	CmdServerMessage    int8 = 4 // outbound only
	CmdSetServer        int8 = 5
	CmdUpdateTimeLogout int8 = 6 // outbound only

	// CmdKeyExchange is used in both directions: the peer sends it to
	// request the cipher key, the server answers with the delta-encoded
	// key disclosure under the same tag.
	CmdKeyExchange int8 = -27
)

// CommandName returns a human-readable name for a command tag, for logging
// and metrics labels.
func CommandName(cmd int8) string {
	switch cmd {
	case CmdLogin:
		return "LOGIN"
	case CmdLogout:
		return "LOGOUT"
	case CmdDisconnect:
		return "DISCONNECT"
	case CmdServerMessage:
		return "SERVER_MESSAGE"
	case CmdSetServer:
		return "SET_SERVER"
	case CmdUpdateTimeLogout:
		return "UPDATE_TIME_LOGOUT"
	case CmdKeyExchange:
		return "KEY_EXCHANGE"
	default:
		return "UNKNOWN"
	}
}
