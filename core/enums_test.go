package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrimitiveKindValues(t *testing.T) {
	// Persisted values, fixed for on-disk compatibility.
	assert.Equal(t, PrimitiveKind(0), KindUnknown)
	assert.Equal(t, PrimitiveKind(1), KindInteger)
	assert.Equal(t, PrimitiveKind(2), KindFloat)
	assert.Equal(t, PrimitiveKind(3), KindReferenced)
	assert.Equal(t, PrimitiveKind(4), KindText)
	assert.Equal(t, PrimitiveKind(5), KindFilename)
	assert.Equal(t, PrimitiveKind(6), KindDatetime)
	assert.Equal(t, PrimitiveKind(7), KindBlob)
}

func TestPrimitiveKindValid(t *testing.T) {
	for k := KindUnknown; k <= KindBlob; k++ {
		assert.True(t, k.Valid(), k.String())
	}
	assert.False(t, PrimitiveKind(8).Valid())
	assert.Equal(t, "UNKNOWN", KindUnknown.String())
	assert.Equal(t, "FLOAT", KindFloat.String())
}

func TestAssociationString(t *testing.T) {
	assert.Equal(t, "VERTEX", AssociationVertex.String())
	assert.Equal(t, "CELL", AssociationCell.String())
	assert.Equal(t, "OBJECT", AssociationObject.String())
}

func TestParseUID(t *testing.T) {
	uid := NewUID()
	got, err := ParseUID(uid.String())
	require.NoError(t, err)
	assert.Equal(t, uid, got)

	_, err = ParseUID("not-a-uuid")
	assert.Error(t, err)
}
