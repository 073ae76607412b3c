package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/blake3"
)

type sample struct {
	Name  string            `cbor:"1,keyasint"`
	Attrs map[string]string `cbor:"2,keyasint,omitempty"`
	Vars  map[string]any    `cbor:"3,keyasint,omitempty"`
}

func TestMarshalIsDeterministic(t *testing.T) {
	a := sample{Name: "R1", Attrs: map[string]string{"b": "2", "a": "1", "c": "3"}}
	b := sample{Name: "R1", Attrs: map[string]string{"c": "3", "a": "1", "b": "2"}}

	first, err := Marshal(a)
	require.NoError(t, err)
	for range 10 {
		again, err := Marshal(b)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestSumStableAndSensitive(t *testing.T) {
	a := sample{Name: "R1", Attrs: map[string]string{"x": "1", "y": "2"}}
	b := sample{Name: "R1", Attrs: map[string]string{"y": "2", "x": "1"}}
	c := sample{Name: "R2", Attrs: map[string]string{"x": "1", "y": "2"}}

	da, err := Sum(a)
	require.NoError(t, err)
	db, err := Sum(b)
	require.NoError(t, err)
	dc, err := Sum(c)
	require.NoError(t, err)

	assert.Equal(t, da, db)
	assert.NotEqual(t, da, dc)
	assert.False(t, da.IsZero())
	assert.Len(t, da.String(), 64)
	assert.Len(t, da.Short(), 12)
}

func TestSumBytesIsKeyed(t *testing.T) {
	assert.NotEqual(t, Digest(blake3.Sum256(nil)), SumBytes(nil))
	assert.Equal(t, SumBytes([]byte("a")), SumBytes([]byte("a")))
}

func TestDigestText(t *testing.T) {
	d := SumBytes([]byte("inventory"))
	text, err := d.MarshalText()
	require.NoError(t, err)

	var parsed Digest
	require.NoError(t, parsed.UnmarshalText(text))
	assert.Equal(t, d, parsed)

	_, err = ParseDigest("zz")
	assert.Error(t, err)
	_, err = ParseDigest("abcd")
	assert.Error(t, err)
}

func TestCompressedRoundTrip(t *testing.T) {
	in := sample{
		Name:  "VYOS1",
		Attrs: map[string]string{"platform": "vyos"},
		Vars:  map[string]any{"ansible_connection": "network_cli", "nested": map[string]any{"k": "v"}},
	}
	data, err := MarshalCompressed(in)
	require.NoError(t, err)

	var out sample
	require.NoError(t, UnmarshalCompressed(data, &out))
	assert.Equal(t, in.Name, out.Name)
	assert.Equal(t, in.Attrs, out.Attrs)
	assert.Equal(t, "network_cli", out.Vars["ansible_connection"])
	assert.Equal(t, map[string]any{"k": "v"}, out.Vars["nested"])
}

func TestDecompressRejectsGarbage(t *testing.T) {
	_, err := Decompress([]byte("not zstd"))
	assert.Error(t, err)

	var out sample
	assert.Error(t, UnmarshalCompressed([]byte("not zstd"), &out))
}
