package objcode

import (
	"errors"
	"fmt"

	"github.com/Urethramancer/avr/diag"
)

// ErrOutOfRange is returned by Finish when a segment exceeds its capacity and
// the caller asked for that to fail.
var ErrOutOfRange = errors.New("segment exceeds device capacity")

// Relocation notes that an emitted value depends on final symbol placement.
type Relocation struct {
	// Address is where the value was stored.
	Address Address
	// Size of the stored value in bytes.
	Size int
	// Symbols are the relocatable terms left after constant folding.
	Symbols []string
	// Coefficient is the signed sum of the terms' signs.
	Coefficient int
	// Addend is the constant part, when it could be separated.
	Addend int32
}

// Emitter serializes the bytes of one segment into an output format.
type Emitter interface {
	Emit(seg Segment, start Address, data []byte) error
}

// Capacity reports the size of each address space on the target.
type Capacity interface {
	Capacity(Segment) int
}

// FinishOptions controls Writer.Finish.
type FinishOptions struct {
	Emitter  Emitter
	Capacity Capacity
	// FailOnAddressOutOfRange turns a capacity overflow into an error.
	FailOnAddressOutOfRange bool
	Sink                    diag.Sink
	// Resource is attached to the summary diagnostics.
	Resource string
}

// Writer keeps one Buffer per segment and tracks the active segment.
type Writer struct {
	buffers [numSegments]*Buffer
	current Segment
	relocs  []Relocation
}

// NewWriter returns a writer with empty buffers, positioned in the code segment.
func NewWriter() *Writer {
	w := &Writer{}
	for _, s := range Segments {
		w.buffers[s] = NewBuffer(s)
	}
	return w
}

// Reset empties every buffer and selects the code segment.
func (w *Writer) Reset() {
	for _, b := range w.buffers {
		b.Reset()
	}
	w.current = Code
	w.relocs = nil
}

// SetSegment selects the active segment. Each segment keeps its own pointer.
func (w *Writer) SetSegment(s Segment) {
	w.current = s
}

// Segment returns the active segment.
func (w *Writer) Segment() Segment {
	return w.current
}

// Buffer returns the buffer of s.
func (w *Writer) Buffer(s Segment) *Buffer {
	return w.buffers[s]
}

// Current returns the buffer of the active segment.
func (w *Writer) Current() *Buffer {
	return w.buffers[w.current]
}

// CurrentByteAddress returns the address the next byte will be written to.
func (w *Writer) CurrentByteAddress() Address {
	return w.Current().CurrentByteAddress()
}

// WriteByte writes to the active segment.
func (w *Writer) WriteByte(v byte) error {
	return w.Current().WriteByte(v)
}

// WriteWord writes a little-endian word to the active segment.
func (w *Writer) WriteWord(v uint16) {
	w.Current().WriteWord(v)
}

// Write writes p to the active segment.
func (w *Writer) Write(p []byte) (int, error) {
	return w.Current().Write(p)
}

// AllocateBytes reserves n bytes in the active segment.
func (w *Writer) AllocateBytes(n int) {
	w.Current().AllocateBytes(n)
}

// AddRelocation records r.
func (w *Writer) AddRelocation(r Relocation) {
	w.relocs = append(w.relocs, r)
}

// Relocations returns the recorded relocations.
func (w *Writer) Relocations() []Relocation {
	return w.relocs
}

// Finish checks every non-empty segment against the device capacity, then
// hands the segments to the emitter. When a segment does not fit and
// FailOnAddressOutOfRange is set nothing is emitted.
func (w *Writer) Finish(opts FinishOptions) error {
	report := func(sev diag.Severity, msg string) {
		if opts.Sink != nil {
			opts.Sink.Report(diag.Diagnostic{Severity: sev, Message: msg, Resource: opts.Resource})
		}
	}

	var failed error
	for _, s := range Segments {
		b := w.buffers[s]
		if b.Empty() {
			continue
		}
		start, _ := b.StartAddress()
		end := int(start.Offset()) + b.Len()

		capacity := 0
		if opts.Capacity != nil {
			capacity = opts.Capacity.Capacity(s)
		}
		if capacity > 0 {
			report(diag.SeverityInfo, fmt.Sprintf("%s: %d bytes used (%.1f%% of %d)", s, end, float64(end)*100/float64(capacity), capacity))
		} else {
			report(diag.SeverityInfo, fmt.Sprintf("%s: %d bytes used", s, end))
		}
		if capacity == 0 || end <= capacity {
			continue
		}
		err := fmt.Errorf("%w: %s ends at %#x, capacity %#x", ErrOutOfRange, s, end, capacity)
		if opts.FailOnAddressOutOfRange {
			report(diag.SeverityError, err.Error())
			if failed == nil {
				failed = err
			}
			continue
		}
		report(diag.SeverityWarning, err.Error())
	}
	if failed != nil || opts.Emitter == nil {
		return failed
	}

	for _, s := range Segments {
		b := w.buffers[s]
		if b.Empty() {
			continue
		}
		start, _ := b.StartAddress()
		if err := opts.Emitter.Emit(s, start, b.Bytes()); err != nil {
			return fmt.Errorf("emitting %s: %w", s, err)
		}
	}
	return nil
}
