// Package cobs implements Consistent Overhead Byte Stuffing.
package cobs

// An encoded frame never contains 0x00, which leaves the zero byte free to
// delimit frames on a continuous byte stream (serial port, USB bulk pipe).
//
// A frame is a sequence of blocks. Each block starts with an overhead byte
// v in [0x01, 0xff] followed by v-1 non-zero data bytes. A block with an
// overhead less than 0xff implies a zero byte in the payload before the
// next block. The implied zero after the last block is dropped.
//
// Wire format of one transmitted unit:
//
//	EncodedFrame || 0x00
//
// Encode/Decode work on whole buffers. StreamDecoder consumes chunks of any
// size and alignment, using 0x00 as the frame delimiter.
