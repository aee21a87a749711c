package avr

import "encoding/binary"

// WordsToBytes converts instruction words to the little-endian byte order
// used in program memory.
func WordsToBytes(words []uint16) []byte {
	out := make([]byte, len(words)*2)
	for i, w := range words {
		binary.LittleEndian.PutUint16(out[i*2:], w)
	}
	return out
}
