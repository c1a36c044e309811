package server

import (
	"io"
	"net"
	"sync"
)

// SafeConn wraps a net.Conn with separate read and write mutexes.
//
// The write mutex keeps concurrently produced frames (the session loop and
// the shutdown broadcast) from interleaving bytes on the wire. The read
// mutex exists because ciphered reads happen in two steps — header, then
// body — and the lock is released between them while the header is
// decrypted. Whoever resumes the read must re-acquire it.
//
// Neither mutex is ever held while cipher state is being computed; they
// guard only the raw I/O.
type SafeConn struct {
	conn    net.Conn
	writeMu sync.Mutex
	readMu  sync.Mutex
}

// NewSafeConn wraps a net.Conn.
func NewSafeConn(conn net.Conn) *SafeConn {
	return &SafeConn{conn: conn}
}

// WriteBytes writes a fully assembled frame under the write lock.
func (sc *SafeConn) WriteBytes(data []byte) error {
	sc.writeMu.Lock()
	defer sc.writeMu.Unlock()
	_, err := sc.conn.Write(data)
	return err
}

// ReadLocked runs fn with the read lock held, passing the underlying
// reader. fn must not block on anything but the socket.
func (sc *SafeConn) ReadLocked(fn func(io.Reader) error) error {
	sc.readMu.Lock()
	defer sc.readMu.Unlock()
	return fn(sc.conn)
}

// Close closes the underlying connection.
func (sc *SafeConn) Close() error {
	return sc.conn.Close()
}

// RemoteAddr returns the remote network address.
func (sc *SafeConn) RemoteAddr() net.Addr {
	return sc.conn.RemoteAddr()
}
