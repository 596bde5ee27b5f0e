// Package scoring ranks the gateway's configured providers, either in
// general mode (availability/stability only) or query-aware mode (matched
// against a fixed task-type taxonomy), so RouterCore and the best-two
// endpoints can pick a provider without reaching into FallbackEngine's
// internals directly.
package scoring

import (
	"hash/fnv"
	"math"
	"sort"
	"strings"

	"github.com/basui01/promptgate/types"
)

// Status mirrors llm.FallbackEngine's READY/COOLDOWN/DISABLED
// classification, restated here so scoring doesn't need to import llm.
type Status string

const (
	StatusAvailable Status = "available"
	StatusCooldown  Status = "cooldown"
	StatusUnavailable Status = "unavailable"
)

// ProviderSnapshot is the read-only view Engine needs of one provider's
// live state to compute a score; callers (typically router) build one per
// provider from llm.FallbackEngine + llm.ProviderState before calling in.
type ProviderSnapshot struct {
	ID         types.ProviderID
	Status     Status
	ErrorCount int
	LastUsed   bool
	// Stability is a slow-moving per-provider reliability estimate in
	// [0,1]; the engine does not compute it, callers supply it (e.g. from
	// rolling success-rate bookkeeping).
	Stability float64
}

// Report is the per-provider scoring breakdown returned for one provider,
// matching spec.md's ScoreReport.
type Report struct {
	Provider         types.ProviderID `json:"provider"`
	FinalScore       float64          `json:"final_score"`
	QuerySuitability float64          `json:"query_suitability"`
	AvailabilityScore float64         `json:"availability_score"`
	ErrorScore       float64          `json:"error_score"`
	RecencyBoost     float64          `json:"recency_boost"`
	StabilityScore   float64          `json:"stability_score"`
	Randomization    float64          `json:"randomization"`
	Status           Status           `json:"status"`
}

// TaskType is the fixed, closed set of prompt categories query-aware
// scoring classifies into.
type TaskType string

const (
	TaskCoding        TaskType = "coding"
	TaskCreative      TaskType = "creative"
	TaskAnalytical    TaskType = "analytical"
	TaskFactual       TaskType = "factual"
	TaskConversational TaskType = "conversational"
	TaskTechnical     TaskType = "technical"
	TaskMathematical  TaskType = "mathematical"
	TaskGeneral       TaskType = "general"
)

// taskKeywords is the curated keyword set each task type is matched
// against; the first type with a non-zero keyword hit count wins, ties
// broken by the fixed order below.
var taskKeywords = map[TaskType][]string{
	TaskCoding:         {"code", "function", "bug", "python", "golang", "javascript", "debug", "compile", "algorithm implementation", "refactor"},
	TaskMathematical:   {"equation", "integral", "derivative", "theorem", "proof", "calculate", "solve for", "matrix", "probability"},
	TaskTechnical:      {"architecture", "protocol", "specification", "configure", "deploy", "infrastructure", "api", "schema"},
	TaskAnalytical:     {"analyze", "compare", "evaluate", "pros and cons", "trade-off", "assessment", "critique"},
	TaskCreative:       {"story", "poem", "write a", "imagine", "creative", "fiction", "lyrics"},
	TaskFactual:        {"what is", "who is", "when did", "define", "fact", "history of"},
	TaskConversational: {"chat", "talk", "how are you", "opinion", "what do you think"},
}

// taskOrder is the fixed priority order used when a prompt keyword-matches
// more than one task type, so classification is deterministic.
var taskOrder = []TaskType{
	TaskCoding, TaskMathematical, TaskTechnical, TaskAnalytical,
	TaskCreative, TaskFactual, TaskConversational,
}

// ClassifyTask returns the task type a prompt keyword-matches, or
// TaskGeneral if none match.
func ClassifyTask(prompt string) TaskType {
	lower := strings.ToLower(prompt)
	for _, t := range taskOrder {
		for _, kw := range taskKeywords[t] {
			if strings.Contains(lower, kw) {
				return t
			}
		}
	}
	return TaskGeneral
}

// suitabilityTable is the task_type -> provider -> score table spec.md
// §4.9 requires for query-aware mode. Values are illustrative defaults;
// a deployment can override via WithSuitability.
var defaultSuitability = map[TaskType]map[types.ProviderID]float64{
	TaskCoding:         {types.ProviderA: 0.95, types.ProviderB: 0.80, types.ProviderC: 0.90, types.ProviderD: 0.75},
	TaskMathematical:   {types.ProviderA: 0.85, types.ProviderB: 0.85, types.ProviderC: 0.95, types.ProviderD: 0.70},
	TaskTechnical:      {types.ProviderA: 0.90, types.ProviderB: 0.80, types.ProviderC: 0.85, types.ProviderD: 0.75},
	TaskAnalytical:     {types.ProviderA: 0.90, types.ProviderB: 0.85, types.ProviderC: 0.80, types.ProviderD: 0.75},
	TaskCreative:       {types.ProviderA: 0.80, types.ProviderB: 0.90, types.ProviderC: 0.70, types.ProviderD: 0.85},
	TaskFactual:        {types.ProviderA: 0.80, types.ProviderB: 0.90, types.ProviderC: 0.75, types.ProviderD: 0.80},
	TaskConversational: {types.ProviderA: 0.80, types.ProviderB: 0.85, types.ProviderC: 0.70, types.ProviderD: 0.90},
	TaskGeneral:        {types.ProviderA: 0.85, types.ProviderB: 0.85, types.ProviderC: 0.80, types.ProviderD: 0.80},
}

// Engine computes ScoreReports over a set of provider snapshots. It is
// stateless beyond its suitability table, so one Engine can be shared
// across requests.
type Engine struct {
	suitability map[TaskType]map[types.ProviderID]float64
}

// NewEngine builds a scoring Engine using the default suitability table.
func NewEngine() *Engine {
	return &Engine{suitability: defaultSuitability}
}

// epsilon is a deterministic per-provider tie-breaker in [-0.02, 0.02],
// seeded by provider name so repeated calls are stable across a process.
func epsilon(id types.ProviderID) float64 {
	h := fnv.New32a()
	h.Write([]byte(id))
	v := float64(h.Sum32()%1000) / 1000.0 // [0,1)
	return v*0.04 - 0.02
}

func availabilityScore(status Status) float64 {
	switch status {
	case StatusAvailable:
		return 1.0
	case StatusCooldown:
		return 0.3
	default:
		return 0.0
	}
}

func errorScore(errorCount int) float64 {
	score := 1.0 - 0.15*float64(errorCount)
	return math.Max(score, 0)
}

func lastUsedValue(usedRecently bool) float64 {
	if usedRecently {
		return 1.0
	}
	return 0.0
}

// Score computes the general-mode ScoreReport for one provider: weights
// 0.45 availability + 0.25 error + 0.15 last_used + 0.15 stability + ε.
func (e *Engine) Score(snap ProviderSnapshot) Report {
	avail := availabilityScore(snap.Status)
	errS := errorScore(snap.ErrorCount)
	recency := lastUsedValue(snap.LastUsed)
	eps := epsilon(snap.ID)

	final := 0.45*avail + 0.25*errS + 0.15*recency + 0.15*snap.Stability + eps
	final = clamp01(final)

	return Report{
		Provider:          snap.ID,
		FinalScore:        final,
		AvailabilityScore: avail,
		ErrorScore:        errS,
		RecencyBoost:      recency,
		StabilityScore:    snap.Stability,
		Randomization:     eps,
		Status:            snap.Status,
	}
}

// ScoreForQuery computes the query-aware ScoreReport: weights 0.50
// suitability + 0.25 availability + 0.15 error + 0.10 recency + ε.
func (e *Engine) ScoreForQuery(prompt string, snap ProviderSnapshot) (Report, TaskType) {
	task := ClassifyTask(prompt)
	suitability := e.suitabilityFor(task, snap.ID)

	avail := availabilityScore(snap.Status)
	errS := errorScore(snap.ErrorCount)
	recency := lastUsedValue(snap.LastUsed)
	eps := epsilon(snap.ID)

	final := 0.50*suitability + 0.25*avail + 0.15*errS + 0.10*recency + eps
	final = clamp01(final)

	return Report{
		Provider:          snap.ID,
		FinalScore:        final,
		QuerySuitability:  suitability,
		AvailabilityScore: avail,
		ErrorScore:        errS,
		RecencyBoost:      recency,
		Randomization:     eps,
		Status:            snap.Status,
	}, task
}

func (e *Engine) suitabilityFor(task TaskType, id types.ProviderID) float64 {
	byTask, ok := e.suitability[task]
	if !ok {
		return 0.5
	}
	v, ok := byTask[id]
	if !ok {
		return 0.5
	}
	return v
}

// RankGeneral scores every snapshot in general mode and returns reports
// sorted by FinalScore descending, ties broken by the embedded ε so
// ordering is deterministic.
func (e *Engine) RankGeneral(snaps []ProviderSnapshot) []Report {
	reports := make([]Report, 0, len(snaps))
	for _, s := range snaps {
		reports = append(reports, e.Score(s))
	}
	sortByScore(reports)
	return reports
}

// RankForQuery scores every snapshot in query-aware mode and returns
// reports sorted by FinalScore descending.
func (e *Engine) RankForQuery(prompt string, snaps []ProviderSnapshot) ([]Report, TaskType) {
	reports := make([]Report, 0, len(snaps))
	var task TaskType
	for _, s := range snaps {
		r, t := e.ScoreForQuery(prompt, s)
		task = t
		reports = append(reports, r)
	}
	sortByScore(reports)
	return reports, task
}

// BestTwo returns the top two reports by FinalScore from a ranked list,
// padding with nothing if fewer than two snapshots were given.
func BestTwo(ranked []Report) []Report {
	if len(ranked) <= 2 {
		return ranked
	}
	return ranked[:2]
}

func sortByScore(reports []Report) {
	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].FinalScore > reports[j].FinalScore
	})
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
