package dictionary

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestReadCSV(t *testing.T) {
	in := "word,count\nthe,23135851162\n of , 13151942776\nlonely\n,5\nand,12997637966\n"
	entries, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{"the", 23135851162},
		{"of", 13151942776},
		{"and", 12997637966},
	}, entries)

	_, err = ReadCSV(strings.NewReader("word,count\nthe,many\n"))
	assert.ErrorIs(t, err, ErrInvalidEntry)
	assert.Contains(t, err.Error(), "line 2")

	_, err = ReadCSV(strings.NewReader("word,count\nthe,-4\n"))
	assert.ErrorIs(t, err, ErrInvalidEntry)
}

func TestReadText(t *testing.T) {
	in := "# common words\nhello 12\n\nworld\nnew york 40\n"
	entries, err := ReadText(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []Entry{{"hello", 12}, {"world", 1}, {"new york", 40}}, entries)

	_, err = ReadText(strings.NewReader("ok 1\nbroken x\n"))
	assert.ErrorIs(t, err, ErrInvalidEntry)
	assert.Contains(t, err.Error(), "line 2")
}

func TestBinaryRoundTrip(t *testing.T) {
	want := []Entry{{"alpha", 10}, {"beta", 0}, {"ñandú", 4294967295}}

	var buf bytes.Buffer
	require.NoError(t, WriteBinary(&buf, want))

	got, err := ReadBinary(&buf)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestBinaryRejectsBadInput(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, WriteBinary(&buf, []Entry{{"neg", -1}}))

	buf.Reset()
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, int32(2)))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint16(3)))
	buf.WriteString("abc")
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(1)))
	_, err := ReadBinary(&buf)
	assert.Error(t, err)

	buf.Reset()
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, int32(-1)))
	_, err = ReadBinary(&buf)
	assert.Error(t, err)
}

func TestLoadPath(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b_words.csv", []byte("word,count\ncar,3\ncat,5\n"))
	writeFile(t, dir, "a_extra.txt", []byte("cart 1\n"))
	writeFile(t, dir, "notes.md", []byte("ignored"))

	var bin bytes.Buffer
	require.NoError(t, WriteBinary(&bin, []Entry{{"cab", 2}}))
	writeFile(t, dir, "c_chunk.bin", bin.Bytes())

	entries, err := LoadPath(dir)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{"cart", 1}, {"car", 3}, {"cat", 5}, {"cab", 2}}, entries)

	single, err := LoadPath(filepath.Join(dir, "b_words.csv"))
	require.NoError(t, err)
	assert.Len(t, single, 2)
}

func TestLoadPathErrors(t *testing.T) {
	_, err := LoadPath(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	empty := t.TempDir()
	_, err = LoadPath(empty)
	assert.Error(t, err)

	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.txt", []byte("fine 2\noops -3\n"))
	_, err = LoadFile(bad)
	assert.ErrorIs(t, err, ErrInvalidEntry)
	assert.Contains(t, err.Error(), bad)

	_, err = LoadFile(writeFile(t, dir, "words.json", []byte("{}")))
	assert.Error(t, err)
}

func TestDetectFileFormat(t *testing.T) {
	dir := t.TempDir()

	format, err := DetectFileFormat(writeFile(t, dir, "w.CSV", []byte("word,count\n")))
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, format)

	var truncated bytes.Buffer
	require.NoError(t, binary.Write(&truncated, binary.LittleEndian, int32(1000)))
	_, err = DetectFileFormat(writeFile(t, dir, "short.bin", truncated.Bytes()))
	assert.ErrorContains(t, err, "truncated")

	_, err = DetectFileFormat(writeFile(t, dir, "empty.txt", nil))
	assert.ErrorContains(t, err, "too small")

	assert.Equal(t, "Binary Dictionary", FormatBinary.String())
	assert.Equal(t, "unknown", FormatUnknown.String())
}
