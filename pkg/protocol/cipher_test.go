package protocol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestCipherRoundTrip tests that any payload encrypted through a fresh write
// cursor decrypts to the original through a fresh read cursor, for any key.
func TestCipherRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		keyLen := rapid.IntRange(1, 16).Draw(t, "keyLen")
		key := rapid.SliceOfN(rapid.Byte(), keyLen, keyLen).Draw(t, "key")
		payloadLen := rapid.IntRange(0, 1024).Draw(t, "payloadLen")
		payload := rapid.SliceOfN(rapid.Byte(), payloadLen, payloadLen).Draw(t, "payload")

		sender := NewCipher(key)
		receiver := NewCipher(key)

		wire := make([]byte, len(payload))
		copy(wire, payload)
		sender.Encrypt(wire)
		receiver.Decrypt(wire)

		if !bytes.Equal(wire, payload) {
			t.Fatalf("round trip mismatch")
		}
	})
}

// TestCipherCursorsIndependent verifies the read cursor is unaffected by
// write-direction traffic and vice versa.
func TestCipherCursorsIndependent(t *testing.T) {
	key := []byte("vmn")
	c := NewCipher(key)

	// Advance the write cursor by an uneven amount
	c.Encrypt(make([]byte, 7))

	// Read-direction transform must still start at cursor 0
	peer := NewCipher(key)
	wire := []byte("hello world")
	peer.Encrypt(wire)
	c.Decrypt(wire)
	assert.Equal(t, []byte("hello world"), wire)
}

// TestCipherFrameBoundaries splits traffic into frames of varying sizes and
// verifies decryption stays aligned as long as both sides see the same
// boundaries.
func TestCipherFrameBoundaries(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		keyLen := rapid.IntRange(1, 8).Draw(t, "keyLen")
		key := rapid.SliceOfN(rapid.Byte(), keyLen, keyLen).Draw(t, "key")
		frameCount := rapid.IntRange(1, 10).Draw(t, "frameCount")

		sender := NewCipher(key)
		receiver := NewCipher(key)

		for i := 0; i < frameCount; i++ {
			n := rapid.IntRange(0, 64).Draw(t, "frameLen")
			frame := rapid.SliceOfN(rapid.Byte(), n, n).Draw(t, "frame")

			wire := make([]byte, len(frame))
			copy(wire, frame)
			sender.Encrypt(wire)
			receiver.Decrypt(wire)

			if !bytes.Equal(wire, frame) {
				t.Fatalf("frame %d mismatch", i)
			}
		}
	})
}

func TestCipherSingleByteKey(t *testing.T) {
	c := NewCipher([]byte{0xAA})
	assert.Equal(t, byte(0xAA^0x55), c.EncryptByte(0x55))
	assert.Equal(t, byte(0xAA), c.EncryptByte(0x00))
}

func TestKeyExchangeMessage(t *testing.T) {
	tests := []struct {
		name string
		key  []byte
	}{
		{name: "reference 3-byte key", key: []byte("vmn")},
		{name: "single byte", key: []byte{0x42}},
		{name: "longer key", key: []byte("longer-shared-secret")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := KeyExchangeMessage(tt.key)
			assert.Equal(t, CmdKeyExchange, msg.Command)
			assert.Equal(t, 1+len(tt.key), msg.Len())

			decoded := NewMessageWithData(msg.Command, msg.Data())
			key, err := DecodeKeyExchange(decoded)
			require.NoError(t, err)
			assert.Equal(t, tt.key, key)
		})
	}
}

func TestKeyExchangeDeltaEncoding(t *testing.T) {
	// Only the first key byte appears in the clear; later bytes are XORed
	// with their predecessor.
	msg := KeyExchangeMessage([]byte{0x10, 0x20, 0x30})
	assert.Equal(t, []byte{3, 0x10, 0x10 ^ 0x20, 0x20 ^ 0x30}, msg.Data())
}

func TestDecodeKeyExchangeTruncated(t *testing.T) {
	msg := NewMessageWithData(CmdKeyExchange, []byte{3, 0x10})
	_, err := DecodeKeyExchange(msg)
	assert.Equal(t, ErrShortPayload, err)
}
