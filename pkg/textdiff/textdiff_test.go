package textdiff

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLines(t *testing.T) {
	got := Lines("a\nb\nc\n", "a\nB\nc\n")
	want := []Line{
		{Type: LineContext, Text: "a", OldLine: 1, NewLine: 1},
		{Type: LineRemoved, Text: "b", OldLine: 2},
		{Type: LineAdded, Text: "B", NewLine: 2},
		{Type: LineContext, Text: "c", OldLine: 3, NewLine: 3},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Lines mismatch (-want +got):\n%s", diff)
	}
}

func TestHunksIdentical(t *testing.T) {
	assert.Empty(t, Hunks("same\ntext\n", "same\ntext\n", 3))
}

func TestHunksSplitsDistantChanges(t *testing.T) {
	var before, after []string
	for i := 0; i < 20; i++ {
		before = append(before, fmt.Sprintf("line %d", i))
		after = append(after, fmt.Sprintf("line %d", i))
	}
	after[1] = "first change"
	after[17] = "second change"

	hunks := Hunks(strings.Join(before, "\n")+"\n", strings.Join(after, "\n")+"\n", 2)
	require.Len(t, hunks, 2)

	assert.Equal(t, 1, hunks[0].OldStart)
	assert.Equal(t, 1, hunks[0].NewStart)
	// 1 leading context, removed, added, 2 trailing context
	assert.Len(t, hunks[0].Lines, 5)

	assert.Equal(t, 16, hunks[1].OldStart)
	assert.Equal(t, LineContext, hunks[1].Lines[0].Type)

	stats := Count(hunks)
	assert.Equal(t, Stats{Added: 2, Removed: 2}, stats)
}

func TestHunksMergesCloseChanges(t *testing.T) {
	before := "a\nb\nc\nd\ne\n"
	after := "A\nb\nc\nD\ne\n"
	hunks := Hunks(before, after, 1)
	require.Len(t, hunks, 1)
	assert.Equal(t, Stats{Added: 2, Removed: 2}, Count(hunks))
}

func TestHunksWithLimit(t *testing.T) {
	hunks, truncated := HunksWithLimit("a\nb\n", "a\nc\n", 3, 2)
	assert.True(t, truncated)
	assert.Nil(t, hunks)

	hunks, truncated = HunksWithLimit("a\nb\n", "a\nc\n", 3, 0)
	assert.False(t, truncated)
	assert.Len(t, hunks, 1)
}
