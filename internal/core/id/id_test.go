package id

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsTimeOrdered(t *testing.T) {
	a := New()
	b := New()
	assert.Equal(t, 7, int(a.Version()))
	assert.Equal(t, []ID{a, b}, Unique([]ID{b, a}))
}

func TestUniqueDropsDuplicates(t *testing.T) {
	a, b := New(), New()
	out := Unique([]ID{b, a, b, a})
	assert.Len(t, out, 2)
}

func TestParseOptional(t *testing.T) {
	v, err := ParseOptional("")
	require.NoError(t, err)
	assert.Nil(t, v)

	raw := New()
	v, err = ParseOptional(raw.String())
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, raw, *v)

	_, err = ParseOptional("not-a-uuid")
	assert.Error(t, err)
}

func TestEqualOptional(t *testing.T) {
	a := New()
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(&a, nil))
	assert.True(t, Equal(Ptr(a), Ptr(a)))
	assert.Equal(t, Nil(), Value(nil))
}
