package websocket

import (
	"github.com/gorilla/websocket"
)

// gorillaConn adapts *websocket.Conn to Connection. Only RemoteAddr differs
// from the embedded methods.
type gorillaConn struct {
	*websocket.Conn
}

// WrapConn returns conn as a Connection
func WrapConn(conn *websocket.Conn) Connection {
	return gorillaConn{Conn: conn}
}

func (c gorillaConn) RemoteAddr() string {
	if addr := c.Conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}
