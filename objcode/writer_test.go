package objcode

import (
	"testing"

	"github.com/Urethramancer/avr/diag"
	"github.com/stretchr/testify/require"
)

type capacities map[Segment]int

func (c capacities) Capacity(s Segment) int { return c[s] }

type recorder struct {
	emitted map[Segment][]byte
	starts  map[Segment]int32
}

func (r *recorder) Emit(seg Segment, start Address, data []byte) error {
	r.emitted[seg] = append([]byte(nil), data...)
	r.starts[seg] = start.Offset()
	return nil
}

func newRecorder() *recorder {
	return &recorder{emitted: map[Segment][]byte{}, starts: map[Segment]int32{}}
}

func TestWriterSegmentsAreIndependent(t *testing.T) {
	w := NewWriter()
	require.Equal(t, Code, w.Segment())
	w.WriteWord(0x1234)

	w.SetSegment(EEPROM)
	require.NoError(t, w.WriteByte(0xaa))
	require.Equal(t, int32(1), w.CurrentByteAddress().Offset())

	w.SetSegment(Code)
	require.Equal(t, int32(2), w.CurrentByteAddress().Offset())

	w.Reset()
	for _, s := range Segments {
		require.True(t, w.Buffer(s).Empty())
	}
	require.Equal(t, Code, w.Segment())
}

func TestWriterFinish(t *testing.T) {
	w := NewWriter()
	require.NoError(t, w.Current().SetStartAddress(0x10))
	_, err := w.Write([]byte{1, 2, 3, 4})
	require.NoError(t, err)
	w.SetSegment(Data)
	w.AllocateBytes(2)

	rec := newRecorder()
	var sink diag.List
	err = w.Finish(FinishOptions{
		Emitter:  rec,
		Capacity: capacities{Code: 100, Data: 50},
		Sink:     &sink,
		Resource: "main.asm",
	})
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, rec.emitted[Code])
	require.Equal(t, int32(0x10), rec.starts[Code])
	require.Equal(t, []byte{0, 0}, rec.emitted[Data])
	_, ok := rec.emitted[EEPROM]
	require.False(t, ok)

	require.Len(t, sink.Items(), 2)
	require.Equal(t, "cseg: 20 bytes used (20.0% of 100)", sink.Items()[0].Message)
	require.Equal(t, diag.SeverityInfo, sink.Items()[1].Severity)
}

func TestWriterFinishOutOfRange(t *testing.T) {
	w := NewWriter()
	_, err := w.Write(make([]byte, 10))
	require.NoError(t, err)

	var sink diag.List
	err = w.Finish(FinishOptions{Capacity: capacities{Code: 8}, Sink: &sink})
	require.NoError(t, err)
	require.Equal(t, 1, sink.Count(diag.SeverityWarning))

	sink.Reset()
	err = w.Finish(FinishOptions{Capacity: capacities{Code: 8}, Sink: &sink, FailOnAddressOutOfRange: true})
	require.ErrorIs(t, err, ErrOutOfRange)
	require.True(t, sink.HasErrors())
}

func TestWriterFinishOutOfRangeEmitsNothing(t *testing.T) {
	w := NewWriter()
	w.WriteWord(0x1234)
	w.SetSegment(EEPROM)
	require.NoError(t, w.Current().SetStartAddress(0x3FF))
	_, err := w.Write([]byte{1, 2, 3})
	require.NoError(t, err)

	rec := newRecorder()
	var sink diag.List
	err = w.Finish(FinishOptions{
		Emitter:                 rec,
		Capacity:                capacities{Code: 100, EEPROM: 1024},
		Sink:                    &sink,
		FailOnAddressOutOfRange: true,
	})
	require.ErrorIs(t, err, ErrOutOfRange)
	require.Empty(t, rec.emitted)
	require.Equal(t, "eseg: 1026 bytes used (100.2% of 1024)", sink.Items()[1].Message)
	require.Equal(t, "segment exceeds device capacity: eseg ends at 0x402, capacity 0x400", sink.Items()[2].Message)
}

func TestWriterFinishChecksBeforeBuildingImage(t *testing.T) {
	w := NewWriter()
	w.SetSegment(Data)
	w.AllocateBytes(0x40000000)

	err := w.Finish(FinishOptions{
		Emitter:                 newRecorder(),
		Capacity:                capacities{Data: 0x900},
		FailOnAddressOutOfRange: true,
	})
	require.ErrorIs(t, err, ErrOutOfRange)
	require.Zero(t, cap(w.Buffer(Data).data))
}
