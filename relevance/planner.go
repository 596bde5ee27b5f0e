// Package relevance scores the candidate context sources for a prompt
// before RouterCore decides which ones to fetch.
package relevance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/basui01/promptgate/llm"
)

// Strategy is the overall enrichment strategy RelevancePlanner labels a
// request with, from the least to the most context-hungry.
type Strategy string

const (
	StrategyMinimal      Strategy = "minimal"
	StrategyStandard     Strategy = "standard"
	StrategyEnriched     Strategy = "enriched"
	StrategyComprehensive Strategy = "comprehensive"
)

// Source describes one candidate context source in the catalog passed to
// the planner: a name ("web_context", "strategy", "chat_history",
// "document_context") with a human description used in the LLM prompt.
type Source struct {
	Name        string
	Description string
	Metadata    map[string]string
}

// Report is the planner's per-request output, matching spec.md's
// RelevanceReport.
type Report struct {
	Scores          map[string]float64 `json:"scores"`
	Reasoning       map[string]string  `json:"reasoning"`
	OverallStrategy Strategy           `json:"overall_strategy"`
	SourcesUsed     map[string]bool    `json:"sources_used"`
}

// degradedReport is returned whenever planning fails or times out: every
// known source gets a medium default score so RouterCore can still make a
// threshold decision, rather than fetching nothing.
func degradedReport(sources []Source) Report {
	scores := make(map[string]float64, len(sources))
	reasoning := make(map[string]string, len(sources))
	used := make(map[string]bool, len(sources))
	for _, s := range sources {
		scores[s.Name] = 0.5
		reasoning[s.Name] = "degraded: planner unavailable, using medium default"
		used[s.Name] = true
	}
	return Report{Scores: scores, Reasoning: reasoning, OverallStrategy: StrategyStandard, SourcesUsed: used}
}

const systemPrompt = `You are a relevance-planning assistant. Given a user prompt and a ` +
	`catalog of available context sources, respond with ONLY a JSON object of the form:
{"scores": {"<source_name>": <float 0-1>, ...}, "reasoning": {"<source_name>": "<short rationale>", ...}, "overall_strategy": "minimal|standard|enriched|comprehensive"}
Score each source by how likely it is to improve the final answer. Do not include any text outside the JSON object.`

type plannerResponse struct {
	Scores          map[string]float64 `json:"scores"`
	Reasoning       map[string]string  `json:"reasoning"`
	OverallStrategy string             `json:"overall_strategy"`
}

// Planner invokes an LLM with a fixed instruction to emit structured
// relevance JSON, validating and clamping its output.
type Planner struct {
	client  llm.ProviderClient
	timeout time.Duration
	logger  *zap.Logger
}

// New builds a Planner backed by the given provider client. timeout bounds
// the single LLM call; zero defaults to 5s per spec.md's "a few seconds"
// budget.
func New(client llm.ProviderClient, timeout time.Duration, logger *zap.Logger) *Planner {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{client: client, timeout: timeout, logger: logger}
}

func buildCatalog(sources []Source) string {
	var b strings.Builder
	for _, s := range sources {
		fmt.Fprintf(&b, "- %s: %s\n", s.Name, s.Description)
	}
	return b.String()
}

// Plan scores each source in the catalog for the given prompt. On any
// failure (timeout, malformed JSON, upstream error) it returns a degraded
// report instead of propagating the error, per spec.md §4.4.
func (p *Planner) Plan(ctx context.Context, prompt string, sources []Source) Report {
	if len(sources) == 0 {
		return Report{Scores: map[string]float64{}, Reasoning: map[string]string{}, OverallStrategy: StrategyMinimal, SourcesUsed: map[string]bool{}}
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	userMsg := fmt.Sprintf("Prompt: %s\n\nAvailable sources:\n%s", prompt, buildCatalog(sources))
	req := &llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: systemPrompt},
			{Role: llm.RoleUser, Content: userMsg},
		},
		Temperature: 0.1,
		MaxTokens:   512,
	}

	resp, err := p.client.Invoke(ctx, req)
	if err != nil {
		p.logger.Warn("relevance planning failed, using degraded report", zap.Error(err))
		return degradedReport(sources)
	}
	if len(resp.Choices) == 0 {
		return degradedReport(sources)
	}

	var parsed plannerResponse
	raw := extractJSON(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		p.logger.Warn("relevance planner returned malformed JSON, using degraded report", zap.Error(err))
		return degradedReport(sources)
	}

	return validate(parsed, sources)
}

// extractJSON trims a model response down to its outermost JSON object,
// tolerating a model that wraps the object in prose or code fences despite
// instructions not to.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}

// validate drops unknown source names, clamps scores to [0,1], defaults
// missing sources to 0, and normalizes overall_strategy to the closed set.
func validate(parsed plannerResponse, sources []Source) Report {
	known := make(map[string]bool, len(sources))
	for _, s := range sources {
		known[s.Name] = true
	}

	scores := make(map[string]float64, len(sources))
	reasoning := make(map[string]string, len(sources))
	used := make(map[string]bool, len(sources))

	for name := range known {
		score := parsed.Scores[name]
		if score < 0 {
			score = 0
		}
		if score > 1 {
			score = 1
		}
		scores[name] = score
		if r, ok := parsed.Reasoning[name]; ok {
			reasoning[name] = r
		}
		used[name] = score > 0
	}

	return Report{
		Scores:          scores,
		Reasoning:       reasoning,
		OverallStrategy: normalizeStrategy(parsed.OverallStrategy),
		SourcesUsed:     used,
	}
}

func normalizeStrategy(s string) Strategy {
	switch Strategy(s) {
	case StrategyMinimal, StrategyStandard, StrategyEnriched, StrategyComprehensive:
		return Strategy(s)
	default:
		return StrategyStandard
	}
}
