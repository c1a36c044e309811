package protocol

import (
	"encoding/binary"
	"errors"
)

// MaxStringLen is the maximum encoded string length (uint16 length prefix).
const MaxStringLen = 65535

var (
	ErrShortPayload  = errors.New("payload truncated")
	ErrStringTooLong = errors.New("string exceeds maximum encoded length (65535 bytes)")
)

// Message is one logical frame: a command tag plus a typed payload buffer.
// Writes append to the payload in declaration order; reads consume from the
// front in the same order. All integers are big-endian, strings are UTF-8
// prefixed with a uint16 byte length. The codec performs no I/O and knows
// nothing about encryption — Session handles transport framing.
type Message struct {
	Command int8
	data    []byte
	pos     int
}

// NewMessage creates an empty message for the given command tag.
func NewMessage(command int8) *Message {
	return &Message{Command: command}
}

// NewMessageWithData creates a message over a received payload, ready for
// sequential reads.
func NewMessageWithData(command int8, data []byte) *Message {
	return &Message{Command: command, data: data}
}

// Data returns the full payload buffer.
func (m *Message) Data() []byte {
	return m.data
}

// Len returns the payload length in bytes.
func (m *Message) Len() int {
	return len(m.data)
}

func (m *Message) WriteInt8(v int8) {
	m.data = append(m.data, byte(v))
}

func (m *Message) WriteInt32(v int32) {
	m.data = binary.BigEndian.AppendUint32(m.data, uint32(v))
}

func (m *Message) WriteInt64(v int64) {
	m.data = binary.BigEndian.AppendUint64(m.data, uint64(v))
}

func (m *Message) WriteBool(v bool) {
	if v {
		m.data = append(m.data, 1)
	} else {
		m.data = append(m.data, 0)
	}
}

// WriteString appends a uint16 length prefix followed by the UTF-8 bytes.
func (m *Message) WriteString(s string) error {
	if len(s) > MaxStringLen {
		return ErrStringTooLong
	}
	m.data = binary.BigEndian.AppendUint16(m.data, uint16(len(s)))
	m.data = append(m.data, s...)
	return nil
}

// take consumes n bytes from the read position.
func (m *Message) take(n int) ([]byte, error) {
	if len(m.data)-m.pos < n {
		return nil, ErrShortPayload
	}
	b := m.data[m.pos : m.pos+n]
	m.pos += n
	return b, nil
}

func (m *Message) ReadInt8() (int8, error) {
	b, err := m.take(1)
	if err != nil {
		return 0, err
	}
	return int8(b[0]), nil
}

func (m *Message) ReadInt32() (int32, error) {
	b, err := m.take(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

func (m *Message) ReadInt64() (int64, error) {
	b, err := m.take(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

func (m *Message) ReadBool() (bool, error) {
	b, err := m.take(1)
	if err != nil {
		return false, err
	}
	return b[0] != 0, nil
}

func (m *Message) ReadString() (string, error) {
	b, err := m.take(2)
	if err != nil {
		return "", err
	}
	n := int(binary.BigEndian.Uint16(b))
	s, err := m.take(n)
	if err != nil {
		return "", err
	}
	return string(s), nil
}
