package objcode

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBufferGrowth(t *testing.T) {
	b := NewBuffer(Code)
	want := make([]byte, 0, 3*initialCapacity+7)
	for i := 0; i < cap(want); i++ {
		v := byte(i * 7)
		require.NoError(t, b.WriteByte(v))
		want = append(want, v)
	}
	require.Equal(t, want, b.Bytes())
	require.Equal(t, len(want), b.Len())
}

func TestBufferAllocate(t *testing.T) {
	b := NewBuffer(Data)
	require.NoError(t, b.SetStartAddress(0x100))
	before := b.CurrentByteAddress()
	b.AllocateBytes(5)
	after := b.CurrentByteAddress()
	require.Equal(t, before.Offset()+5, after.Offset())
	require.Equal(t, 5, b.Len())
	require.Equal(t, make([]byte, 5), b.Bytes())
}

func TestBufferStartLocks(t *testing.T) {
	b := NewBuffer(Code)
	require.NoError(t, b.SetStartAddress(0x10))
	require.NoError(t, b.SetStartAddress(0x20))
	b.WriteWord(0xbeef)
	require.ErrorIs(t, b.SetStartAddress(0), ErrStartLocked)

	start, ok := b.StartAddress()
	require.True(t, ok)
	require.Equal(t, int32(0x20), start.Offset())
	require.Equal(t, []byte{0xef, 0xbe}, b.Bytes())
	require.Equal(t, int32(0x22), b.CurrentByteAddress().Offset())

	b2 := NewBuffer(Code)
	b2.AllocateBytes(1)
	require.ErrorIs(t, b2.SetStartAddress(4), ErrStartLocked)
}

func TestBufferSeek(t *testing.T) {
	b := NewBuffer(Code)
	_, err := b.Write([]byte{1, 2})
	require.NoError(t, err)
	require.NoError(t, b.Seek(6))
	require.NoError(t, b.WriteByte(9))
	require.Equal(t, []byte{1, 2, 0, 0, 0, 0, 9}, b.Bytes())

	require.NoError(t, b.Seek(1))
	require.NoError(t, b.WriteByte(8))
	require.Equal(t, []byte{1, 8, 0, 0, 0, 0, 9}, b.Bytes())

	b.Reset()
	require.True(t, b.Empty())
	require.NoError(t, b.SetStartAddress(4))
	require.ErrorIs(t, b.Seek(2), ErrNegativeOffset)
}

func TestBufferResetClearsStaleBytes(t *testing.T) {
	b := NewBuffer(Code)
	_, err := b.Write([]byte{0xff, 0xff, 0xff})
	require.NoError(t, err)
	b.Reset()
	b.AllocateBytes(3)
	require.Equal(t, []byte{0, 0, 0}, b.Bytes())
}
