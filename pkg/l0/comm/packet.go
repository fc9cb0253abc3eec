package comm

import (
	"time"
)

// PacketSeq defines the type of packet sequence number.
type PacketSeq byte

// NewPacketSeq creates a random packet sequence number.
func NewPacketSeq() PacketSeq {
	return PacketSeq(byte(time.Now().UnixNano())).Next()
}

// Next calculates the next sequence number.
func (s PacketSeq) Next() PacketSeq {
	n := byte(s) + 1
	if n == 0 || n >= 0xf0 {
		n = 1
	}
	return PacketSeq(n)
}

// IsValid checks if it's a valid sequence number.
func (s PacketSeq) IsValid() bool {
	n := byte(s)
	return n > 0 && n < 0xf0
}

// Code bits.
const (
	CodeEvent byte = 0x80
	CodeError byte = 0x01
)

// Packet contains the information of a parsed packet.
type Packet struct {
	Seq  PacketSeq
	Code byte
	Data []byte
}

// IsEvent indicates the packet is an event from peer.
func (p *Packet) IsEvent() bool {
	return p.Code&CodeEvent != 0
}

// Bytes returns the packet bytes to be carried in a frame.
func (p *Packet) Bytes() []byte {
	return p.AppendTo(make([]byte, 0, len(p.Data)+2))
}

// AppendTo appends packet bytes to b.
func (p *Packet) AppendTo(b []byte) []byte {
	b = append(b, byte(p.Seq), p.Code)
	return append(b, p.Data...)
}

// ParsePacket parses a decoded frame.
// Data of the returned packet shares the memory of frame.
func ParsePacket(frame []byte) (*Packet, error) {
	if len(frame) < 2 {
		return nil, ErrShortPacket
	}
	pkt := &Packet{Seq: PacketSeq(frame[0]), Code: frame[1]}
	if !pkt.Seq.IsValid() {
		return nil, ErrInvalidSeq
	}
	if len(frame) > 2 {
		pkt.Data = frame[2:]
	}
	return pkt, nil
}
