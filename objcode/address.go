package objcode

import (
	"errors"
	"fmt"
)

var (
	// ErrNegativeOffset is returned when building an Address below zero.
	ErrNegativeOffset = errors.New("negative address offset")
	// ErrOddAddress is returned when an odd byte offset is converted to a word address.
	ErrOddAddress = errors.New("odd byte address has no word address")
)

// Address is an immutable segment and byte offset pair.
type Address struct {
	segment Segment
	offset  int32
}

// ByteAddress builds the address of byte n in segment s.
func ByteAddress(s Segment, n int32) (Address, error) {
	if n < 0 {
		return Address{}, fmt.Errorf("%w: %s:%d", ErrNegativeOffset, s, n)
	}
	return Address{segment: s, offset: n}, nil
}

// WordAddressOf builds the address of word w in segment s.
func WordAddressOf(s Segment, w int32) (Address, error) {
	return ByteAddress(s, w*2)
}

// Segment returns the address space.
func (a Address) Segment() Segment {
	return a.segment
}

// Offset returns the byte offset.
func (a Address) Offset() int32 {
	return a.offset
}

// WordAddress returns the offset in 16-bit words.
func (a Address) WordAddress() (int32, error) {
	if a.offset%2 != 0 {
		return 0, fmt.Errorf("%w: %s:%#x", ErrOddAddress, a.segment, a.offset)
	}
	return a.offset / 2, nil
}

// Add returns the address n bytes further on.
func (a Address) Add(n int32) (Address, error) {
	return ByteAddress(a.segment, a.offset+n)
}

func (a Address) String() string {
	return fmt.Sprintf("%s:0x%04x", a.segment, a.offset)
}
