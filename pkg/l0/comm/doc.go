// Package comm provides L0 protocol support.
package comm

// L0 protocol is communicated between L0 firmware (sensor kit) and the
// host over a peer-to-peer byte stream (serial port, USB CDC).
//
// Every packet is carried in one COBS frame terminated by 0x00, so the
// receiver resynchronizes on the next delimiter after any transfer error.
// There is no bit verification (CRC/Checksum), sequence numbers only help
// matching replies with commands.
//
// Packet layout (before COBS encoding):
//
//	SEQ CODE DATA...
//
// CODE bit 7 marks an event. A reply carries the command SEQ as DATA[0],
// and CODE bit 0 set indicates an error reply.
//
// Producer: L0 firmware
// Consumer: host
