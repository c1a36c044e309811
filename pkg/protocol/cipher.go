package protocol

// Cipher is the per-connection rolling-XOR keystream. Read and write
// directions share the key bytes but advance independent cursors, one step
// per byte, so the two directions never interfere. A Cipher is owned by
// exactly one connection goroutine and needs no locking.
type Cipher struct {
	key      []byte
	readPos  int
	writePos int
}

// NewCipher creates a cipher over the given key. The key must be at least
// one byte; the caller validates this at configuration time.
func NewCipher(key []byte) *Cipher {
	k := make([]byte, len(key))
	copy(k, key)
	return &Cipher{key: k}
}

// DecryptByte transforms one inbound byte and advances the read cursor.
func (c *Cipher) DecryptByte(b byte) byte {
	out := c.key[c.readPos] ^ b
	c.readPos = (c.readPos + 1) % len(c.key)
	return out
}

// EncryptByte transforms one outbound byte and advances the write cursor.
func (c *Cipher) EncryptByte(b byte) byte {
	out := c.key[c.writePos] ^ b
	c.writePos = (c.writePos + 1) % len(c.key)
	return out
}

// Decrypt transforms a buffer in place through the read cursor.
func (c *Cipher) Decrypt(p []byte) {
	for i := range p {
		p[i] = c.DecryptByte(p[i])
	}
}

// Encrypt transforms a buffer in place through the write cursor.
func (c *Cipher) Encrypt(p []byte) {
	for i := range p {
		p[i] = c.EncryptByte(p[i])
	}
}

// KeyExchangeMessage builds the key-disclosure frame: key length, the first
// key byte in the clear, then each subsequent byte XORed with its
// predecessor. The peer reverses the deltas to recover the key, so the full
// key never appears verbatim on the wire.
func KeyExchangeMessage(key []byte) *Message {
	msg := NewMessage(CmdKeyExchange)
	msg.WriteInt8(int8(len(key)))
	msg.WriteInt8(int8(key[0]))
	for i := 1; i < len(key); i++ {
		msg.WriteInt8(int8(key[i] ^ key[i-1]))
	}
	return msg
}

// DecodeKeyExchange recovers the key from a disclosure payload. Used by the
// peer side of the handshake (and by tests standing in for a game server).
func DecodeKeyExchange(msg *Message) ([]byte, error) {
	n, err := msg.ReadInt8()
	if err != nil {
		return nil, err
	}
	key := make([]byte, n)
	for i := range key {
		b, err := msg.ReadInt8()
		if err != nil {
			return nil, err
		}
		if i == 0 {
			key[i] = byte(b)
		} else {
			key[i] = byte(b) ^ key[i-1]
		}
	}
	return key, nil
}
