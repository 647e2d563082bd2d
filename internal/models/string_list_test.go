package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringListValue(t *testing.T) {
	v, err := StringList(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	v, err = StringList{"lead.created", "lead.lost"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `["lead.created","lead.lost"]`, v)
}

func TestStringListScan(t *testing.T) {
	var l StringList
	require.NoError(t, l.Scan([]byte(`["a","b"]`)))
	assert.Equal(t, StringList{"a", "b"}, l)

	require.NoError(t, l.Scan(`null`))
	assert.Equal(t, StringList{}, l)

	require.NoError(t, l.Scan(nil))
	assert.Equal(t, StringList{}, l)

	assert.Error(t, l.Scan("plain"))
	assert.Error(t, l.Scan(42))
}

func TestStringListContains(t *testing.T) {
	l := StringList{"a", "b"}
	assert.True(t, l.Contains("b"))
	assert.False(t, l.Contains("c"))
}
