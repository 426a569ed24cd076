package digest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wynergy-Fibre-Solutions/wfsl-org-profile-guard/pkg/platform/sentinel"
)

func TestBytesKnownVectors(t *testing.T) {
	eng := MustNew(AlgorithmSHA256)

	// Standard SHA-256 test vectors.
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		eng.Bytes(nil))
	assert.Equal(t,
		"ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		eng.Bytes([]byte("abc")))
}

func TestValueMatchesCanonicalBytes(t *testing.T) {
	eng := MustNew(AlgorithmSHA256)

	got, err := eng.Value(map[string]any{"b": 2, "a": 1})
	require.NoError(t, err)
	want := eng.Bytes([]byte(`{"a":1,"b":2}`))
	assert.Equal(t, want, got)
}

func TestValueIndependentOfKeyOrder(t *testing.T) {
	eng := MustNew(AlgorithmSHA256)

	d1, err := eng.Value(map[string]any{"x": 1, "y": []any{"a", "b"}})
	require.NoError(t, err)
	d2, err := eng.Value(map[string]any{"y": []any{"a", "b"}, "x": 1})
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
	assert.Len(t, d1, 64)
}

func TestFileHashesRawBytes(t *testing.T) {
	eng := MustNew(AlgorithmSHA256)

	path := filepath.Join(t.TempDir(), "blob.bin")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))

	got, err := eng.File(path)
	require.NoError(t, err)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", got)
}

func TestFileMissingReturnsNotFound(t *testing.T) {
	eng := MustNew(AlgorithmSHA256)

	_, err := eng.File(filepath.Join(t.TempDir(), "absent.json"))
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestSHA3Engine(t *testing.T) {
	eng, err := New(AlgorithmSHA3256)
	require.NoError(t, err)
	assert.Equal(t, AlgorithmSHA3256, eng.Algorithm())

	// SHA3-256("") from the NIST test vectors.
	assert.Equal(t,
		"a7ffc6f8bf1ed76651c14756a061d662f580ff4de43b49fa82d80a4b80f8434a",
		eng.Bytes(nil))
}

func TestUnknownAlgorithmRejected(t *testing.T) {
	_, err := New("md5")
	require.ErrorIs(t, err, sentinel.ErrUnsupported)
}
