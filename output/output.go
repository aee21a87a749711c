// Package output serializes assembled segments.
package output

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Urethramancer/avr/objcode"
)

// Format writes one segment image.
type Format interface {
	// Write serializes data whose first byte lives at address start.
	Write(w io.Writer, start int32, data []byte) error
	// Extension is the file suffix used for a segment, or "" when the format
	// does not store that segment.
	Extension(s objcode.Segment) string
}

// Files writes every segment to its own file next to Base.
type Files struct {
	// Base is the output path without extension.
	Base   string
	Format Format
	// Written lists the files created so far.
	Written []string
}

// Emit writes one segment to Base plus the format's extension for it.
// Segments the format does not store are skipped.
func (f *Files) Emit(seg objcode.Segment, start objcode.Address, data []byte) error {
	ext := f.Format.Extension(seg)
	if ext == "" {
		return nil
	}
	name := f.Base + ext
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return err
	}
	out, err := os.Create(name)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(out)
	err = f.Format.Write(w, start.Offset(), data)
	if err == nil {
		err = w.Flush()
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	f.Written = append(f.Written, name)
	return nil
}

// Image is one emitted segment held in memory.
type Image struct {
	Start int32
	Data  []byte
}

// Memory keeps emitted segments in memory.
type Memory map[objcode.Segment]Image

// Emit keeps a copy of data under seg.
func (m Memory) Emit(seg objcode.Segment, start objcode.Address, data []byte) error {
	m[seg] = Image{Start: start.Offset(), Data: append([]byte(nil), data...)}
	return nil
}

// Raw stores the bytes as they are. Nothing is written for the gap below
// the start address.
type Raw struct{}

// Write copies data to w unchanged.
func (Raw) Write(w io.Writer, _ int32, data []byte) error {
	_, err := w.Write(data)
	return err
}

// Extension is .bin for program memory and .eep.bin for EEPROM.
func (Raw) Extension(s objcode.Segment) string {
	switch s {
	case objcode.Code:
		return ".bin"
	case objcode.EEPROM:
		return ".eep.bin"
	}
	return ""
}

var (
	_ objcode.Emitter = (*Files)(nil)
	_ objcode.Emitter = Memory(nil)
	_ Format          = Raw{}
	_ Format          = IntelHex{}
)
