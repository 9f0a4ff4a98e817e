package model_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nhle/daybook/internal/model"
)

func TestSplitLinesDropsBlanksAndWhitespace(t *testing.T) {
	got := model.SplitLines("long walk\n\n  finished the book  \n")
	require.Equal(t, []string{"long walk", "finished the book"}, got)

	require.Nil(t, model.SplitLines(""))
	require.Nil(t, model.SplitLines("  \n \n"))
}

func TestJoinLinesRoundTrip(t *testing.T) {
	entries := []string{"long walk", "finished the book"}
	require.Equal(t, entries, model.SplitLines(model.JoinLines(entries)))
	require.Equal(t, "", model.JoinLines(nil))
}
