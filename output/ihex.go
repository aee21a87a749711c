package output

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Urethramancer/avr/objcode"
)

// Intel HEX record types.
const (
	recordData            = 0x00
	recordEOF             = 0x01
	recordExtendedSegment = 0x02
	recordExtendedLinear  = 0x04
)

const (
	recordLength = 16
	bankSize     = 1 << 16
	// segmentLimit is the reach of extended segment addressing.
	segmentLimit = 1 << 20
)

// IntelHex writes Intel HEX with 16 byte data records. Addresses past 64 KiB
// use extended segment address records, and extended linear address records
// past 1 MiB.
type IntelHex struct{}

// Extension is .hex for program memory and .eep.hex for EEPROM.
func (IntelHex) Extension(s objcode.Segment) string {
	switch s {
	case objcode.Code:
		return ".hex"
	case objcode.EEPROM:
		return ".eep.hex"
	}
	return ""
}

// Write emits the data records for data at start followed by the end of
// file record.
func (IntelHex) Write(w io.Writer, start int32, data []byte) error {
	if start < 0 {
		return fmt.Errorf("negative start address %d", start)
	}
	var upper uint32
	addr := uint32(start)
	for len(data) > 0 {
		if hi := addr &^ 0xFFFF; hi != upper {
			if err := extendedAddress(w, addr); err != nil {
				return err
			}
			upper = hi
		}
		n := min(len(data), recordLength)
		// Records never cross a 64 KiB boundary.
		if room := bankSize - int(addr&0xFFFF); n > room {
			n = room
		}
		if err := record(w, recordData, uint16(addr), data[:n]); err != nil {
			return err
		}
		data = data[n:]
		addr += uint32(n)
	}
	return record(w, recordEOF, 0, nil)
}

func extendedAddress(w io.Writer, addr uint32) error {
	if addr < segmentLimit {
		seg := uint16((addr &^ 0xFFFF) >> 4)
		return record(w, recordExtendedSegment, 0, []byte{byte(seg >> 8), byte(seg)})
	}
	ela := uint16(addr >> 16)
	return record(w, recordExtendedLinear, 0, []byte{byte(ela >> 8), byte(ela)})
}

func record(w io.Writer, typ byte, addr uint16, data []byte) error {
	sum := byte(len(data)) + byte(addr>>8) + byte(addr) + typ
	for _, b := range data {
		sum += b
	}
	_, err := fmt.Fprintf(w, ":%02X%04X%02X%s%02X\n", len(data), addr, typ, strings.ToUpper(hex.EncodeToString(data)), -sum)
	return err
}

// ErrChecksum is returned by ReadIntelHex for a record whose checksum does not match.
var ErrChecksum = errors.New("intel hex checksum mismatch")

// ReadIntelHex decodes Intel HEX into the address of the first data byte and
// a contiguous image. Gaps between records read as zero.
func ReadIntelHex(r io.Reader) (int32, []byte, error) {
	var (
		base  uint32
		start = int64(-1)
		image []byte
	)
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		if text[0] != ':' {
			return 0, nil, fmt.Errorf("line %d: missing record mark", line)
		}
		raw, err := hex.DecodeString(text[1:])
		if err != nil || len(raw) < 5 || len(raw) != int(raw[0])+5 {
			return 0, nil, fmt.Errorf("line %d: malformed record", line)
		}
		var sum byte
		for _, b := range raw {
			sum += b
		}
		if sum != 0 {
			return 0, nil, fmt.Errorf("line %d: %w", line, ErrChecksum)
		}
		addr := uint32(raw[1])<<8 | uint32(raw[2])
		payload := raw[4 : len(raw)-1]
		switch raw[3] {
		case recordData:
			at := int64(base + addr)
			if start < 0 {
				start = at
			}
			if at < start {
				return 0, nil, fmt.Errorf("line %d: record below first address", line)
			}
			end := int(at-start) + len(payload)
			if end > len(image) {
				image = append(image, make([]byte, end-len(image))...)
			}
			copy(image[at-start:], payload)
		case recordEOF:
			return int32(max(start, 0)), image, nil
		case recordExtendedSegment, recordExtendedLinear:
			if len(payload) != 2 {
				return 0, nil, fmt.Errorf("line %d: malformed address record", line)
			}
			v := uint32(payload[0])<<8 | uint32(payload[1])
			if raw[3] == recordExtendedSegment {
				base = v << 4
			} else {
				base = v << 16
			}
		default:
			return 0, nil, fmt.Errorf("line %d: unsupported record type 0x%02x", line, raw[3])
		}
	}
	if err := sc.Err(); err != nil {
		return 0, nil, err
	}
	return 0, nil, errors.New("missing end of file record")
}
