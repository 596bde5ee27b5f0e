package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basui01/promptgate/api"
)

func TestValidateRequest_RejectsEmptyPrompt(t *testing.T) {
	req := &api.EnhancementRequest{Prompt: "   "}
	err := validateRequest(req)
	require.Error(t, err)
}

func TestValidateRequest_NormalizesNilContext(t *testing.T) {
	req := &api.EnhancementRequest{Prompt: "hi"}
	err := validateRequest(req)
	require.NoError(t, err)
	assert.NotNil(t, req.Context)
	assert.Empty(t, req.Context)
}

func TestValidateRequest_RejectsNegativeWordCount(t *testing.T) {
	req := &api.EnhancementRequest{Prompt: "hi", Settings: api.Settings{WordCount: -5}}
	err := validateRequest(req)
	require.Error(t, err)
}

func TestHardCharLimit_ParsesPositiveInteger(t *testing.T) {
	limit, ok := hardCharLimit(map[string]string{"hard_char_limit": "194"})
	require.True(t, ok)
	assert.Equal(t, 194, limit)
}

func TestHardCharLimit_AbsentOrInvalid(t *testing.T) {
	_, ok := hardCharLimit(map[string]string{})
	assert.False(t, ok)

	_, ok = hardCharLimit(map[string]string{"hard_char_limit": "not-a-number"})
	assert.False(t, ok)

	_, ok = hardCharLimit(map[string]string{"hard_char_limit": "-3"})
	assert.False(t, ok)
}

func TestWordCountWithinTolerance(t *testing.T) {
	assert.True(t, wordCountWithinTolerance("one two three four five six seven eight nine ten", 10))
	assert.True(t, wordCountWithinTolerance("one two three four five six seven eight nine", 10))
	assert.False(t, wordCountWithinTolerance("one two three", 10))
	assert.True(t, wordCountWithinTolerance("anything at all", 0))
}

func TestHasScriptRange(t *testing.T) {
	assert.True(t, hasScriptRange("你好世界", "zh"))
	assert.False(t, hasScriptRange("hello world", "zh"))
	assert.True(t, hasScriptRange("any text at all", "english"))
}

func TestHasTableDelimiters(t *testing.T) {
	assert.True(t, hasTableDelimiters("| a | b |\n|---|---|\n| 1 | 2 |"))
	assert.False(t, hasTableDelimiters("just plain prose"))
}

func TestValidateOutput_CollectsAllViolations(t *testing.T) {
	settings := api.Settings{WordCount: 100, Language: "zh", OutputFormat: "tabular"}
	violations := validateOutput("hello world", settings)
	assert.ElementsMatch(t, []string{"word_count", "language_script", "output_format"}, violations)
}

func TestValidateOutput_NoSettings_NoViolations(t *testing.T) {
	assert.Empty(t, validateOutput("anything goes", api.Settings{}))
}
