// Package objcode holds the per-segment object code produced by the compiler.
package objcode

import "strings"

// Segment is an independent address space.
type Segment uint8

const (
	// Code is program memory (flash).
	Code Segment = iota
	// Data is RAM.
	Data
	// EEPROM is persistent data memory.
	EEPROM

	numSegments
)

// Segments lists every segment in order.
var Segments = []Segment{Code, Data, EEPROM}

func (s Segment) String() string {
	switch s {
	case Code:
		return "cseg"
	case Data:
		return "dseg"
	case EEPROM:
		return "eseg"
	}
	return "invalid"
}

// ParseSegment maps a segment directive name (with or without the leading dot) to a Segment.
func ParseSegment(name string) (Segment, bool) {
	switch strings.ToLower(strings.TrimPrefix(name, ".")) {
	case "cseg":
		return Code, true
	case "dseg":
		return Data, true
	case "eseg":
		return EEPROM, true
	}
	return 0, false
}
