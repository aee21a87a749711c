package resource

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func testFS() *FS {
	return NewFS(fstest.MapFS{
		"main.asm":           {Data: []byte(".include \"lib/io.inc\"\n")},
		"lib/io.inc":         {Data: []byte("\xEF\xBB\xBF.equ PORTB = 5\n")},
		"lib/util.inc":       {Data: []byte("nop\n")},
		"include/m328.inc":   {Data: []byte(".device ATmega328P\n")},
		"bad.asm":            {Data: []byte{0xff, 0xfe}},
		"lib/nested/dir.inc": {Data: []byte("")},
	}, "include")
}

func TestResolveRelative(t *testing.T) {
	f := testFS()
	main := f.Open("main.asm")
	require.True(t, main.Exists())

	io, err := f.Resolve("lib/io.inc", main)
	require.NoError(t, err)
	require.Equal(t, "lib/io.inc", io.Name())

	util, err := f.Resolve("util.inc", io)
	require.NoError(t, err)
	require.True(t, util.Exists())
	require.Equal(t, "file:lib/util.inc", util.Identity())

	back, err := f.Resolve(`..\main.asm`, io)
	require.NoError(t, err)
	require.Equal(t, main.Identity(), back.Identity())
}

func TestResolveSearchPath(t *testing.T) {
	f := testFS()
	r, err := f.Resolve("m328.inc", f.Open("lib/io.inc"))
	require.NoError(t, err)
	require.True(t, r.Exists())
	require.Equal(t, "include/m328.inc", r.Name())

	abs, err := f.Resolve("/lib/util.inc", f.Open("include/m328.inc"))
	require.NoError(t, err)
	require.True(t, abs.Exists())
}

func TestResolveMissing(t *testing.T) {
	f := testFS()
	r, err := f.Resolve("nothere.inc", f.Open("lib/io.inc"))
	require.NoError(t, err)
	require.False(t, r.Exists())
	require.Equal(t, "lib/nothere.inc", r.Name())
	_, err = r.Read()
	require.ErrorIs(t, err, ErrNotFound)

	require.False(t, f.Open("lib/nested").Exists())

	_, err = f.Resolve(" ", nil)
	require.Error(t, err)
}

func TestReadAndHash(t *testing.T) {
	f := testFS()
	io := f.Open("lib/io.inc")
	src, err := io.Read()
	require.NoError(t, err)
	require.Equal(t, ".equ PORTB = 5\n", src)
	require.Equal(t, "utf-8", io.Encoding())

	h1, err := io.Hash()
	require.NoError(t, err)
	h2, err := f.Open("/lib/io.inc").Hash()
	require.NoError(t, err)
	require.Equal(t, h1, h2)
	require.Len(t, h1, 64)

	_, err = f.Open("bad.asm").Read()
	require.EqualError(t, err, "bad.asm: content is not valid utf-8")
}

func TestMemory(t *testing.T) {
	m := String("test.asm", "nop")
	require.True(t, m.Exists())
	require.Equal(t, "memory:test.asm", m.Identity())
	src, err := m.Read()
	require.NoError(t, err)
	require.Equal(t, "nop", src)

	h, err := m.Hash()
	require.NoError(t, err)
	require.Equal(t, "2b8fbda969a8aaa908e763c57e6b22a1697b7c0c5f95fc35b95d492fcc54d082", h)
}
