package router

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/basui01/promptgate/api"
)

func TestBuildSystemMessage_PrefersStrategyOverContext(t *testing.T) {
	msg := buildSystemMessage(map[string]string{
		"strategy":    "use a numbered list",
		"web_context": "some facts",
	}, api.Settings{}, 0)
	assert.Contains(t, msg, "use a numbered list")
	assert.NotContains(t, msg, systemContextEnriched)
}

func TestBuildSystemMessage_ContextEnrichedWithoutStrategy(t *testing.T) {
	msg := buildSystemMessage(map[string]string{"web_context": "some facts"}, api.Settings{}, 0)
	assert.Contains(t, msg, systemContextEnriched)
}

func TestBuildSystemMessage_StandardWhenNothingGathered(t *testing.T) {
	msg := buildSystemMessage(map[string]string{}, api.Settings{}, 0)
	assert.Contains(t, msg, systemStandard)
}

func TestBuildSystemMessage_AppendsSettingsImperatives(t *testing.T) {
	msg := buildSystemMessage(map[string]string{}, api.Settings{
		WordCount:          50,
		Language:           "French",
		ComplexityLevel:    "beginner",
		OutputFormat:       "tabular",
		CustomInstructions: "be concise",
		Template:           "Q: ...\nA: ...",
	}, 194)

	for _, want := range []string{
		"within 10% of 50 words",
		"respond entirely in French",
		"beginner complexity",
		"format the response as a table",
		"be concise",
		"Q: ...\nA: ...",
		"under 194 characters",
	} {
		assert.Contains(t, msg, want)
	}
}

func TestStrengthenSystemMessage_NamesRetryAttempt(t *testing.T) {
	msg := strengthenSystemMessage("base instructions", 2)
	assert.Contains(t, msg, "base instructions")
	assert.Contains(t, msg, "retry 2")
}

func TestBuildUserMessage_OrdersContextBlocks(t *testing.T) {
	msg := buildUserMessage("explain recursion", map[string]string{
		"web_context":      "web facts",
		"document_context": "doc facts",
		"chat_history":     "previous turn",
	}, "formal")

	promptIdx := strings.Index(msg, "explain recursion")
	webIdx := strings.Index(msg, "web facts")
	docIdx := strings.Index(msg, "doc facts")
	chatIdx := strings.Index(msg, "previous turn")
	styleIdx := strings.Index(msg, "formal")

	assert.True(t, promptIdx < webIdx)
	assert.True(t, webIdx < docIdx)
	assert.True(t, docIdx < chatIdx)
	assert.True(t, chatIdx < styleIdx)
}

func TestBuildUserMessage_OmitsEmptyBlocks(t *testing.T) {
	msg := buildUserMessage("just the prompt", map[string]string{}, "")
	assert.Equal(t, "just the prompt", msg)
}

func TestStripBrandNames(t *testing.T) {
	cases := []struct {
		in         string
		wantAbsent []string
	}{
		{"This answer uses Claude to reason about the problem.", []string{"Claude"}},
		{"Generated using GPT-4 for best results.", []string{"GPT-4"}},
		{"Powered by Anthropic model under the hood.", []string{"Anthropic"}},
		{"We relied on an OpenAI model for this.", []string{"OpenAI"}},
		{"Gemini and DeepSeek both contributed ideas.", []string{"Gemini", "DeepSeek"}},
		{"Qwen via Dashscope handled translation.", []string{"Qwen", "Dashscope"}},
	}
	for _, c := range cases {
		out := stripBrandNames(c.in)
		for _, brand := range c.wantAbsent {
			assert.NotContains(t, out, brand)
		}
	}
}

func TestStripBrandNames_LeavesUnrelatedTextAlone(t *testing.T) {
	in := "The recursive function calls itself until the base case is reached."
	assert.Equal(t, in, stripBrandNames(in))
}
