package router

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/basui01/promptgate/api"
)

const (
	systemStandard        = "You are an expert prompt engineer. Produce a clear, well-structured response to the user's request."
	systemContextEnriched = "You are an expert prompt engineer. Ground your response in the supplied context and do not invent facts absent from it."
	systemStrategyGuided  = "You are an expert prompt engineer. Apply the following strategy precisely when composing your response:\n\n%s\n\nLet it guide structure, tone, and technique."
)

// buildSystemMessage implements spec.md §4.8 Phase 4's system-message
// decision tree: strategy-guided beats context-enriched beats standard.
// settings constraints and, if present, a hard character limit are always
// appended as CRITICAL imperatives regardless of which branch is taken.
func buildSystemMessage(gathered map[string]string, settings api.Settings, hardLimit int) string {
	var sb strings.Builder
	switch {
	case gathered["strategy"] != "":
		fmt.Fprintf(&sb, systemStrategyGuided, gathered["strategy"])
	case gathered["web_context"] != "" || gathered["document_context"] != "":
		sb.WriteString(systemContextEnriched)
	default:
		sb.WriteString(systemStandard)
	}
	appendConstraintImperatives(&sb, settings, hardLimit)
	return sb.String()
}

func appendConstraintImperatives(sb *strings.Builder, settings api.Settings, hardLimit int) {
	if settings.WordCount > 0 {
		fmt.Fprintf(sb, "\n\nCRITICAL: the response MUST be within 10%% of %d words.", settings.WordCount)
	}
	if settings.Language != "" {
		fmt.Fprintf(sb, "\nCRITICAL: respond entirely in %s.", settings.Language)
	}
	if settings.ComplexityLevel != "" {
		fmt.Fprintf(sb, "\nCRITICAL: target a %s complexity level.", settings.ComplexityLevel)
	}
	if settings.OutputFormat == "tabular" {
		sb.WriteString("\nCRITICAL: format the response as a table using | and - delimiters.")
	}
	if settings.CustomInstructions != "" {
		fmt.Fprintf(sb, "\nCRITICAL: %s", settings.CustomInstructions)
	}
	if settings.Template != "" {
		fmt.Fprintf(sb, "\nCRITICAL: follow this template exactly:\n%s", settings.Template)
	}
	if hardLimit > 0 {
		fmt.Fprintf(sb, "\nCRITICAL: the entire response MUST be under %d characters, no exceptions.", hardLimit)
	}
}

// strengthenSystemMessage is used by Phase 6's re-enhancement retries: each
// attempt restates the violated constraints more forcefully than appendConstraintImperatives
// alone, since a plain repeat of the same system message produced the
// violation in the first place.
func strengthenSystemMessage(base string, attempt int) string {
	return fmt.Sprintf("%s\n\nThe previous attempt violated one or more CRITICAL constraints above. This is retry %d: follow every CRITICAL instruction exactly, with no exceptions.", base, attempt)
}

// buildUserMessage implements spec.md §4.8 Phase 4's user message: the
// original prompt, the concatenated retrieved context blocks, and any
// writing-style addendum.
func buildUserMessage(prompt string, gathered map[string]string, writingStyle string) string {
	var sb strings.Builder
	sb.WriteString(prompt)

	if web := gathered["web_context"]; web != "" {
		sb.WriteString("\n\n--- Web context ---\n")
		sb.WriteString(web)
	}
	if doc := gathered["document_context"]; doc != "" {
		sb.WriteString("\n\n--- Document context ---\n")
		sb.WriteString(doc)
	}
	if chat := gathered["chat_history"]; chat != "" {
		sb.WriteString("\n\n--- Conversation so far ---\n")
		sb.WriteString(chat)
	}
	if writingStyle != "" {
		sb.WriteString("\n\nWriting style: ")
		sb.WriteString(writingStyle)
	}
	return sb.String()
}

// brandPhrasePattern and bareBrandPattern implement spec.md §4.8 Phase 5's
// "strip any references to specific backend brand names", grounded on the
// phrase list original_source's enhancer.py strips ("for Claude", "using
// GPT", "Anthropic model", ...) and generalized to the gateway's four
// configured backends.
var (
	brandPhrasePattern = regexp.MustCompile(`(?i)\b(using|for|via|with|powered by)\s+(claude|gpt(-\d+(\.\d+)?)?|anthropic|openai|gemini|google gemini|deepseek|qwen|dashscope)\b(\s+model)?`)
	bareBrandPattern   = regexp.MustCompile(`(?i)\b(claude|anthropic|openai|gpt-\d+(\.\d+)?|gemini|deepseek|qwen|dashscope)\b`)
)

// stripBrandNames removes references to the gateway's underlying model
// brands from generated text before it reaches the client.
func stripBrandNames(text string) string {
	text = brandPhrasePattern.ReplaceAllString(text, "")
	text = bareBrandPattern.ReplaceAllString(text, "the underlying model")
	return text
}
