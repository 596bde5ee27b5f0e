package router

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/basui01/promptgate/api"
	"github.com/basui01/promptgate/types"
)

// validateRequest implements spec.md §4.8 Phase 0: reject an empty prompt,
// normalize a missing context map, and reject a malformed word_count. It
// mutates req in place for the normalization steps.
func validateRequest(req *api.EnhancementRequest) *types.Error {
	if strings.TrimSpace(req.Prompt) == "" {
		return types.NewError(types.ErrEmptyPrompt, "prompt must not be empty").WithHTTPStatus(400)
	}
	if req.Context == nil {
		req.Context = map[string]string{}
	}
	if req.Settings.WordCount < 0 {
		return types.NewError(types.ErrInvalidRequest, "settings.word_count must be a non-negative integer").WithHTTPStatus(400)
	}
	return nil
}

// hardCharLimit reads a per-request character-limit override out of the
// generic context map (e.g. context["hard_char_limit"]="194"), per spec.md
// §4.8 Phase 4's "target backend with a hard character limit (e.g., 194)".
// The limit is request-driven rather than hardcoded to one provider, since
// nothing about the gateway's four text-completion providers inherently
// caps output length.
func hardCharLimit(reqContext map[string]string) (int, bool) {
	v, ok := reqContext["hard_char_limit"]
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// wordCountWithinTolerance checks the ±10% band spec.md §8 property 8
// requires for a word_count constraint.
func wordCountWithinTolerance(text string, target int) bool {
	if target <= 0 {
		return true
	}
	actual := len(strings.Fields(text))
	tolerance := int(math.Ceil(0.1 * float64(target)))
	diff := actual - target
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance
}

// scriptRanges maps a settings.language value to the Unicode range tables
// its script must appear in. Languages absent from this table are not
// script-bound and are never flagged.
var scriptRanges = map[string][]*unicode.RangeTable{
	"zh":      {unicode.Han},
	"chinese": {unicode.Han},
	"ja":      {unicode.Han, unicode.Hiragana, unicode.Katakana},
	"japanese": {unicode.Han, unicode.Hiragana, unicode.Katakana},
	"ko":      {unicode.Hangul},
	"korean":  {unicode.Hangul},
	"ar":      {unicode.Arabic},
	"arabic":  {unicode.Arabic},
	"ru":      {unicode.Cyrillic},
	"russian": {unicode.Cyrillic},
	"he":      {unicode.Hebrew},
	"hebrew":  {unicode.Hebrew},
	"th":      {unicode.Thai},
	"thai":    {unicode.Thai},
}

func hasScriptRange(text, language string) bool {
	ranges, bound := scriptRanges[strings.ToLower(strings.TrimSpace(language))]
	if !bound {
		return true
	}
	for _, r := range text {
		if unicode.In(r, ranges...) {
			return true
		}
	}
	return false
}

func hasTableDelimiters(text string) bool {
	return strings.Contains(text, "|") && strings.Contains(text, "-")
}

// validateOutput implements spec.md §4.8 Phase 6's constraint checks and
// returns the names of every constraint the text violates.
func validateOutput(text string, settings api.Settings) []string {
	var violations []string
	if settings.WordCount > 0 && !wordCountWithinTolerance(text, settings.WordCount) {
		violations = append(violations, "word_count")
	}
	if settings.Language != "" && !hasScriptRange(text, settings.Language) {
		violations = append(violations, "language_script")
	}
	if settings.OutputFormat == "tabular" && !hasTableDelimiters(text) {
		violations = append(violations, "output_format")
	}
	return violations
}
