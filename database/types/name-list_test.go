package types

import (
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestNameList_Scan(t *testing.T) {
	var n NameList
	assert.NoError(t, n.Scan(`["a","b"]`))
	assert.Equal(t, NameList{"a", "b"}, n)
	assert.NoError(t, n.Scan([]byte(`[]`)))
	assert.Equal(t, NameList{}, n)
	assert.NoError(t, n.Scan(nil))
	assert.Nil(t, n)
	assert.Error(t, n.Scan(5))
}

func TestNameList_Value(t *testing.T) {
	v, err := NameList(nil).Value()
	assert.NoError(t, err)
	assert.Equal(t, "[]", v)
	v, err = NameList{"x (boom)"}.Value()
	assert.NoError(t, err)
	assert.Equal(t, `["x (boom)"]`, v)
}
