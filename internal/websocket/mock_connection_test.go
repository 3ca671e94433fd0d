package websocket

import (
	"errors"
	"sync"
	"time"
)

var errConnClosed = errors.New("connection closed")

// mockConnection is an in-memory Connection. ReadMessage blocks until a
// message is queued with push or the connection is closed.
type mockConnection struct {
	mu      sync.Mutex
	written []mockMessage
	closed  bool

	incoming chan mockMessage
	closing  chan struct{}

	readLimit   int64
	pongHandler func(string) error
}

type mockMessage struct {
	Type int
	Data []byte
}

func newMockConnection() *mockConnection {
	return &mockConnection{
		incoming: make(chan mockMessage, 16),
		closing:  make(chan struct{}),
	}
}

func (m *mockConnection) WriteMessage(messageType int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errConnClosed
	}
	m.written = append(m.written, mockMessage{Type: messageType, Data: append([]byte(nil), data...)})
	return nil
}

func (m *mockConnection) ReadMessage() (int, []byte, error) {
	select {
	case msg := <-m.incoming:
		return msg.Type, msg.Data, nil
	case <-m.closing:
		return 0, nil, errConnClosed
	}
}

func (m *mockConnection) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.closing)
	}
	return nil
}

func (m *mockConnection) SetReadDeadline(time.Time) error  { return nil }
func (m *mockConnection) SetWriteDeadline(time.Time) error { return nil }

func (m *mockConnection) SetReadLimit(limit int64) {
	m.mu.Lock()
	m.readLimit = limit
	m.mu.Unlock()
}

func (m *mockConnection) SetPongHandler(h func(string) error) {
	m.mu.Lock()
	m.pongHandler = h
	m.mu.Unlock()
}

func (m *mockConnection) RemoteAddr() string { return "127.0.0.1:50000" }

func (m *mockConnection) push(messageType int, data []byte) {
	m.incoming <- mockMessage{Type: messageType, Data: data}
}

func (m *mockConnection) messages() []mockMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mockMessage(nil), m.written...)
}

func (m *mockConnection) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
