package narration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDemo_Beat(t *testing.T) {
	tests := []struct {
		index int
		want  string
	}{
		{0, "You arrive at the haunted shore, waves whispering secrets."},
		{1, "Beat 2: the tale continues with choice-driven suspense."},
		{4, "Beat 5: the tale continues with choice-driven suspense."},
	}
	for _, tt := range tests {
		beat, err := Demo{}.Beat(context.Background(), "haunted-shore", tt.index)
		require.NoError(t, err)
		assert.Equal(t, tt.index, beat.Index)
		assert.Equal(t, tt.want, beat.Narration)
		require.Len(t, beat.Choices, 2)
		assert.Equal(t, "continue", beat.Choices[0].ID)
		assert.Equal(t, "reflect", beat.Choices[1].ID)
	}
}

func TestDemo_NegativeIndex(t *testing.T) {
	_, err := Demo{}.Beat(context.Background(), "haunted-shore", -1)
	assert.Error(t, err)
}
