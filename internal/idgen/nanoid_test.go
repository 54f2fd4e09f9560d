package idgen_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtlprog/tasktrail/internal/idgen"
)

func TestNanoID_ShapeAndUniqueness(t *testing.T) {
	gen, err := idgen.NewNanoID()
	require.NoError(t, err)

	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := gen.NewID()
		assert.Len(t, id, idgen.Length)
		assert.True(t, idgen.IsValid(id), id)
		_, dup := seen[id]
		assert.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		id    string
		valid bool
	}{
		{"V1StGXR8_Z5jdHi6B-myT", true},
		{"short", false},
		{"V1StGXR8_Z5jdHi6B-my!", false},
		{"V1StGXR8_Z5jdHi6B-myTx", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.valid, idgen.IsValid(tt.id))
		})
	}
}
