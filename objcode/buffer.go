package objcode

import (
	"errors"
	"fmt"
)

// ErrStartLocked is returned when the start address of a buffer is changed
// after bytes were written or allocated.
var ErrStartLocked = errors.New("start address is locked once the buffer is not empty")

const initialCapacity = 256

// Buffer is a growable byte store for one segment. Offsets written through it
// are relative to the start address, which defaults to zero.
type Buffer struct {
	segment  Segment
	data     []byte
	size     int // high-water mark of written or allocated bytes
	ptr      int
	start    int32
	hasStart bool
	touched  bool
}

// NewBuffer returns an empty buffer for s.
func NewBuffer(s Segment) *Buffer {
	return &Buffer{segment: s}
}

// Segment returns the segment the buffer belongs to.
func (b *Buffer) Segment() Segment {
	return b.segment
}

// SetStartAddress fixes the address of the first byte. It fails once anything
// has been written or allocated.
func (b *Buffer) SetStartAddress(start int32) error {
	if b.touched {
		return fmt.Errorf("%s: %w", b.segment, ErrStartLocked)
	}
	if start < 0 {
		return fmt.Errorf("%w: %s:%d", ErrNegativeOffset, b.segment, start)
	}
	b.start = start
	b.hasStart = true
	return nil
}

// StartAddress returns the start address and whether it was set explicitly.
func (b *Buffer) StartAddress() (Address, bool) {
	return Address{segment: b.segment, offset: b.start}, b.hasStart
}

// Pointer returns the offset of the next byte relative to the start address.
func (b *Buffer) Pointer() int {
	return b.ptr
}

// CurrentByteAddress returns start + pointer.
func (b *Buffer) CurrentByteAddress() Address {
	return Address{segment: b.segment, offset: b.start + int32(b.ptr)}
}

// Seek moves the write pointer to the absolute byte address addr. The pointer
// may move backwards; bytes written twice are overwritten.
func (b *Buffer) Seek(addr int32) error {
	if addr < b.start {
		return fmt.Errorf("%w: %s:%#x is below start %#x", ErrNegativeOffset, b.segment, addr, b.start)
	}
	b.touched = true
	b.ptr = int(addr - b.start)
	b.extend()
	return nil
}

// WriteByte stores one byte and advances the pointer.
func (b *Buffer) WriteByte(v byte) error {
	b.reserve(1)[0] = v
	return nil
}

// WriteWord stores a 16-bit little-endian word.
func (b *Buffer) WriteWord(v uint16) {
	p := b.reserve(2)
	p[0] = byte(v)
	p[1] = byte(v >> 8)
}

// Write stores p and advances the pointer.
func (b *Buffer) Write(p []byte) (int, error) {
	copy(b.reserve(len(p)), p)
	return len(p), nil
}

// AllocateBytes advances the pointer by n without storing data.
func (b *Buffer) AllocateBytes(n int) {
	b.touched = true
	b.ptr += n
	b.extend()
}

// Len returns the number of bytes covered, including allocated gaps.
func (b *Buffer) Len() int {
	return b.size
}

// Empty reports whether nothing was written or allocated.
func (b *Buffer) Empty() bool {
	return b.size == 0
}

// Bytes returns the covered byte range. Allocated but unwritten bytes read as zero.
func (b *Buffer) Bytes() []byte {
	b.grow(b.size)
	return b.data[:b.size]
}

// Reset empties the buffer and forgets the start address.
func (b *Buffer) Reset() {
	b.data = b.data[:0]
	b.size = 0
	b.ptr = 0
	b.start = 0
	b.hasStart = false
	b.touched = false
}

func (b *Buffer) reserve(n int) []byte {
	b.touched = true
	i := b.ptr
	b.ptr += n
	b.extend()
	b.grow(b.ptr)
	return b.data[i:b.ptr]
}

func (b *Buffer) extend() {
	if b.ptr > b.size {
		b.size = b.ptr
	}
}

// grow makes data at least n bytes long, doubling the capacity when it runs out.
func (b *Buffer) grow(n int) {
	if n <= len(b.data) {
		return
	}
	if n > cap(b.data) {
		c := max(cap(b.data)*2, initialCapacity)
		for c < n {
			c *= 2
		}
		data := make([]byte, len(b.data), c)
		copy(data, b.data)
		b.data = data
	}
	// Bytes between the old length and n may hold stale data from before a Reset.
	clear(b.data[len(b.data):n])
	b.data = b.data[:n]
}
