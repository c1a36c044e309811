package server

import (
	"encoding/binary"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/ahwuocdz/gateserver/pkg/protocol"
)

// ErrFrameTooLarge is returned when a payload exceeds the 2-byte length
// field of the wire format.
var ErrFrameTooLarge = errors.New("frame payload exceeds 65535 bytes")

// Session is one accepted game-server connection. It owns the connection's
// cipher state: the session starts in plaintext framing and switches to
// ciphered framing the moment the key disclosure has been written, never
// back.
//
// Plaintext framing: [cmd:1][len:2 big-endian][payload].
// Ciphered framing: the same three header bytes and every payload byte are
// individually passed through the keystream; the two size bytes carry the
// ciphered encoding of the plaintext payload length.
type Session struct {
	ID         uint64
	RemoteAddr string

	conn   *SafeConn
	key    []byte
	cipher *protocol.Cipher

	// sendMu serializes the whole send path so that keystream order always
	// matches wire order when the shutdown broadcast writes concurrently
	// with the session loop. Encryption still completes before the socket
	// write lock is taken.
	sendMu   sync.Mutex
	ciphered atomic.Bool
	closed   atomic.Bool
}

// NewSession wraps an accepted connection with a fresh cipher over key.
func NewSession(id uint64, conn net.Conn, key []byte) *Session {
	return &Session{
		ID:         id,
		RemoteAddr: conn.RemoteAddr().String(),
		conn:       NewSafeConn(conn),
		key:        key,
		cipher:     protocol.NewCipher(key),
	}
}

// Ciphered reports whether the connection has switched to ciphered framing.
func (s *Session) Ciphered() bool {
	return s.ciphered.Load()
}

// SendKey writes the delta-encoded key disclosure and flips the session to
// ciphered framing. The disclosure itself always uses plaintext framing,
// whatever the current cipher state — the peer depends on that. Calling
// SendKey again after it has succeeded is a no-op.
func (s *Session) SendKey() error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if s.ciphered.Load() {
		return nil
	}
	msg := protocol.KeyExchangeMessage(s.key)
	if err := s.writePlaintext(msg); err != nil {
		return err
	}
	// Ciphered from the first byte after the disclosure hits the wire; the
	// peer flips its own state on receipt.
	s.ciphered.Store(true)
	return nil
}

// WriteMessage frames and sends one message using the session's current
// cipher state.
func (s *Session) WriteMessage(msg *protocol.Message) error {
	if msg.Len() > 65535 {
		return ErrFrameTooLarge
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if !s.ciphered.Load() {
		return s.writePlaintext(msg)
	}

	// Encrypt everything — command byte, size bytes, payload — before the
	// socket lock is taken, so the write lock covers only the I/O and the
	// cursor advances deterministically.
	payload := msg.Data()
	buf := make([]byte, 3+len(payload))
	buf[0] = s.cipher.EncryptByte(byte(msg.Command))
	buf[1] = s.cipher.EncryptByte(byte(len(payload) >> 8))
	buf[2] = s.cipher.EncryptByte(byte(len(payload)))
	copy(buf[3:], payload)
	s.cipher.Encrypt(buf[3:])

	return s.conn.WriteBytes(buf)
}

func (s *Session) writePlaintext(msg *protocol.Message) error {
	payload := msg.Data()
	buf := make([]byte, 3+len(payload))
	buf[0] = byte(msg.Command)
	binary.BigEndian.PutUint16(buf[1:3], uint16(len(payload)))
	copy(buf[3:], payload)
	return s.conn.WriteBytes(buf)
}

// ReadMessage reads one frame using the session's current cipher state. A
// peer disconnect mid-frame surfaces as io.ErrUnexpectedEOF; any error
// terminates the session loop.
func (s *Session) ReadMessage() (*protocol.Message, error) {
	if !s.ciphered.Load() {
		// Header and body under one held read lock.
		var cmd int8
		var payload []byte
		err := s.conn.ReadLocked(func(r io.Reader) error {
			var hdr [3]byte
			if _, err := io.ReadFull(r, hdr[:]); err != nil {
				return err
			}
			cmd = int8(hdr[0])
			payload = make([]byte, binary.BigEndian.Uint16(hdr[1:3]))
			_, err := io.ReadFull(r, payload)
			return err
		})
		if err != nil {
			return nil, err
		}
		return protocol.NewMessageWithData(cmd, payload), nil
	}

	// Ciphered: read the three fixed header bytes, release the lock while
	// decrypting them to learn the true length, then re-acquire it for the
	// body.
	var hdr [3]byte
	err := s.conn.ReadLocked(func(r io.Reader) error {
		_, err := io.ReadFull(r, hdr[:])
		return err
	})
	if err != nil {
		return nil, err
	}

	cmd := int8(s.cipher.DecryptByte(hdr[0]))
	size := int(s.cipher.DecryptByte(hdr[1]))<<8 | int(s.cipher.DecryptByte(hdr[2]))

	payload := make([]byte, size)
	err = s.conn.ReadLocked(func(r io.Reader) error {
		_, err := io.ReadFull(r, payload)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.cipher.Decrypt(payload)

	return protocol.NewMessageWithData(cmd, payload), nil
}

// Close closes the connection. Safe to call more than once.
func (s *Session) Close() {
	if s.closed.CompareAndSwap(false, true) {
		s.conn.Close()
	}
}
