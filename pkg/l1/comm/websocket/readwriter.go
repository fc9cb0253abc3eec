package websocket

import (
	"time"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/cobslink/pkg/l1/comm"
)

// WriteTimeout bounds sending a packet to a peer.
var WriteTimeout = 5 * time.Second

// ReadWriter implements PacketReadWriter.
// Each packet is a binary websocket message.
type ReadWriter websocket.Conn

// New wraps websocket.Conn.
func New(conn *websocket.Conn) *ReadWriter {
	return (*ReadWriter)(conn)
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() (pkt []byte, err error) {
	err = websocket.Message.Receive((*websocket.Conn)(p), &pkt)
	return
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	conn := (*websocket.Conn)(p)
	if WriteTimeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(WriteTimeout)); err != nil {
			return err
		}
	}
	return websocket.Message.Send(conn, pkt)
}

// Close implements io.Closer.
func (p *ReadWriter) Close() error {
	return (*websocket.Conn)(p).Close()
}

// Handler creates a websocket handler attaching every connection
// to the Broadcaster.
func Handler(b *comm.Broadcaster) websocket.Handler {
	return func(conn *websocket.Conn) {
		glog.Infof("websocket client %s connected", conn.Request().RemoteAddr)
		err := b.Serve(New(conn))
		glog.Infof("websocket client %s disconnected: %v", conn.Request().RemoteAddr, err)
	}
}
