package legal

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/54b3r/lawglance-go/internal/safety"
)

func TestReportsInsufficientContext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want bool
	}{
		{InsufficientPhrase, true},
		{"I DON'T HAVE ENOUGH detail", true},
		{"I don’t have enough verified information", true},
		{"There is insufficient information here.", true},
		{"Section 21 guarantees liberty.", false},
		{"", false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, ReportsInsufficientContext(tc.text), tc.text)
	}
}

func TestAnswerGenerator_Timeout(t *testing.T) {
	t.Parallel()

	g, err := NewAnswerGenerator(&scriptedLLM{}, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultGenerationTimeout, g.timeout)

	g, err = NewAnswerGenerator(&scriptedLLM{}, -time.Second)
	require.NoError(t, err)
	assert.Zero(t, g.timeout)

	_, err = NewAnswerGenerator(nil, 0)
	assert.Error(t, err)
}

func TestAnswerGenerator_RetryOnlyOnce(t *testing.T) {
	t.Parallel()

	// Both answers report insufficiency; the second is accepted anyway.
	llm := &scriptedLLM{replies: []string{InsufficientPhrase, InsufficientPhrase}}
	g, err := NewAnswerGenerator(llm, 0)
	require.NoError(t, err)

	gen, err := g.Generate(context.Background(), "q?", "[Source 1: a]\nctx\n")
	require.NoError(t, err)
	assert.Equal(t, PathInsufficientRetry, gen.Path)
	assert.Equal(t, 2, gen.Calls)
	assert.Equal(t, 2, llm.calls())
	assert.Contains(t, llm.prompts[0], "Retrieved Legal Context")
	assert.Equal(t, GenericPrompt("q?"), llm.prompts[1])
}

func TestPrompts_PlaceholdersInInputNotExpanded(t *testing.T) {
	t.Parallel()

	p := GroundedPrompt("ctx mentions {question}", "what about {context}?")
	assert.Equal(t, 1, strings.Count(p, "ctx mentions {question}"))
	assert.Contains(t, p, "what about {context}?")
	assert.Contains(t, DirectReplyPrompt("hello"), safety.DisclaimerSentence)
}

func TestEnsureDisclaimer(t *testing.T) {
	t.Parallel()

	d := safety.DisclaimerSentence
	tests := []struct {
		name      string
		text      string
		placement Placement
		want      string
	}{
		{name: "append when missing", text: "Answer.\n", placement: PlacementAppend, want: "Answer.\n\n**Disclaimer:** " + d},
		{name: "prepend when missing", text: "Answer.", placement: PlacementPrepend, want: d + "\n\nAnswer."},
		{name: "single occurrence kept", text: "Answer. " + d, placement: PlacementAppend, want: "Answer. " + d},
		{name: "case-insensitive match kept", text: strings.ToUpper(d) + " Answer.", placement: PlacementAppend, want: strings.ToUpper(d) + " Answer."},
		{name: "duplicates removed", text: d + " Answer. " + d, placement: PlacementAppend, want: d + " Answer. "},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := EnsureDisclaimer(tc.text, tc.placement)
			assert.Equal(t, tc.want, got)
			assert.Len(t, disclaimerPattern.FindAllStringIndex(got, -1), 1)
		})
	}
}
