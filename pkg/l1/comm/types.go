// Package comm carries Typed message packets to remote consumers.
package comm

// PacketReader reads packets in bytes.
type PacketReader interface {
	ReadPacket() ([]byte, error)
}

// PacketWriter writes packets in bytes.
type PacketWriter interface {
	WritePacket([]byte) error
}

// PacketReadWriter reads/writes packets in bytes.
type PacketReadWriter interface {
	PacketReader
	PacketWriter
}

// WritePacketFunc is the func form of PacketWriter.
type WritePacketFunc func([]byte) error

// WritePacket implements PacketWriter.
func (f WritePacketFunc) WritePacket(pkt []byte) error {
	return f(pkt)
}
