package objcode

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWordAddress(t *testing.T) {
	for _, s := range Segments {
		for n := int32(0); n < 64; n++ {
			a, err := ByteAddress(s, n)
			require.NoError(t, err)
			w, err := a.WordAddress()
			if n%2 != 0 {
				require.ErrorIs(t, err, ErrOddAddress, "%s:%d", s, n)
				continue
			}
			require.NoError(t, err)
			require.Equal(t, n, w*2)
		}
	}
}

func TestByteAddressRejectsNegative(t *testing.T) {
	_, err := ByteAddress(Data, -1)
	require.ErrorIs(t, err, ErrNegativeOffset)

	a, err := WordAddressOf(Code, 0x10)
	require.NoError(t, err)
	require.Equal(t, int32(0x20), a.Offset())
	_, err = a.Add(-0x21)
	require.ErrorIs(t, err, ErrNegativeOffset)
	require.Equal(t, "cseg:0x0020", a.String())
}

func TestParseSegment(t *testing.T) {
	s, ok := ParseSegment(".ESEG")
	require.True(t, ok)
	require.Equal(t, EEPROM, s)
	_, ok = ParseSegment("bss")
	require.False(t, ok)
}
