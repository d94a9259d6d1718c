// Package format renders handler results as user-facing text.
// Structured intents use deterministic templates; only GENERAL delegates
// to the LLM, and even that degrades to a canned help message. Missing
// optional fields always render a fallback value instead of panicking.
package format

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/callcoach/callcoach-core/internal/chat/handlers"
	"github.com/callcoach/callcoach-core/internal/chat/intent"
	"github.com/callcoach/callcoach-core/internal/models"
	"github.com/callcoach/callcoach-core/pkg/logger"
)

const na = "N/A"

// cannedHelp is the degradation path when the generation collaborator
// is unavailable for GENERAL chat.
const cannedHelp = `I can help you review sales calls. Try asking:
- "Show me Sarah's calls from the last 7 days"
- "How did the team do this week?"
- "Show me the transcript for call abc123"
- "Coach me on call abc123"
- "Find calls where the customer pushed back on pricing"`

const generalSystemPrompt = `You are a helpful assistant for a sales-call coaching platform.
Answer briefly and suggest concrete things the user can ask about their
team's calls, stats, transcripts, and coaching feedback. Do not invent
call data.`

// Generator produces free text for the GENERAL intent.
type Generator interface {
	GenerateText(ctx context.Context, system, user string) (string, error)
}

type Formatter struct {
	gen    Generator
	logger logger.Logger
}

// New builds a formatter. gen may be nil; GENERAL then always cans.
func New(gen Generator, log logger.Logger) *Formatter {
	return &Formatter{gen: gen, logger: log}
}

// Format renders one handler result. It never returns an empty string
// and never panics on partially populated data.
func (f *Formatter) Format(ctx context.Context, it intent.Intent, res *handlers.Result, originalMessage string) string {
	if res == nil {
		return "Sorry, something went wrong processing that request."
	}
	if !res.Success {
		if res.Error != "" {
			return res.Error
		}
		return "Sorry, I couldn't complete that request."
	}

	if it == intent.General {
		return f.general(ctx, originalMessage)
	}

	if res.Data == nil {
		if res.Message != "" {
			return res.Message
		}
		return "I didn't find any data for that request."
	}

	switch data := res.Data.(type) {
	case *handlers.CallListData:
		return formatCallList(data)
	case *handlers.AgentStatsData:
		return formatAgentStats(data)
	case *handlers.TeamSummaryData:
		return formatTeamSummary(data)
	case *handlers.TranscriptData:
		return formatTranscript(data)
	case *handlers.SearchResultsData:
		return formatSearchResults(data)
	case *handlers.CoachingData:
		return formatCoaching(data)
	case *handlers.ObjectionData:
		return formatObjections(data)
	default:
		f.logger.Warn("formatter got unknown payload type", "intent", it)
		if res.Message != "" {
			return res.Message
		}
		return "Here is what I found."
	}
}

func (f *Formatter) general(ctx context.Context, message string) string {
	if f.gen == nil {
		return cannedHelp
	}
	reply, err := f.gen.GenerateText(ctx, generalSystemPrompt, message)
	if err != nil || strings.TrimSpace(reply) == "" {
		if err != nil {
			f.logger.Warn("general chat generation failed, using canned help", "error", err)
		}
		return cannedHelp
	}
	return strings.TrimSpace(reply)
}

func formatCallList(d *handlers.CallListData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s** — %d call(s) in the last %d days:\n\n", agentName(d.Agent), len(d.Calls), d.WindowDays)
	b.WriteString("| Date | Duration | Customer | Outcome | Call ID |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, c := range d.Calls {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			c.StartedAt.Format("Jan 2, 2006"),
			fmtDuration(c.DurationSeconds),
			orNA(c.CustomerName),
			orNA(c.Outcome),
			c.ID,
		)
	}
	return b.String()
}

func formatAgentStats(d *handlers.AgentStatsData) string {
	s := d.Stats
	var b strings.Builder
	fmt.Fprintf(&b, "**%s** — performance over the last %d days:\n\n", agentName(d.Agent), s.WindowDays)
	fmt.Fprintf(&b, "- Total calls: %d\n", s.TotalCalls)
	fmt.Fprintf(&b, "- Total talk time: %s\n", fmtDuration(s.TotalDurationSecs))
	fmt.Fprintf(&b, "- Average call length: %s\n", fmtDuration(int(s.AvgDurationSecs)))
	fmt.Fprintf(&b, "- Average talk ratio: %s\n", fmtRatio(s.AvgTalkRatio))
	if len(s.OutcomeCounts) > 0 {
		b.WriteString("- Outcomes: ")
		b.WriteString(fmtOutcomes(s.OutcomeCounts))
		b.WriteString("\n")
	}
	return b.String()
}

func formatTeamSummary(d *handlers.TeamSummaryData) string {
	s := d.Summary
	var b strings.Builder
	fmt.Fprintf(&b, "**%s team** — last %d days: %d agent(s), %d call(s), average length %s.\n\n",
		orNA(s.Department), s.WindowDays, s.AgentCount, s.TotalCalls, fmtDuration(int(s.AvgDurationSecs)))
	if len(s.PerAgent) > 0 {
		b.WriteString("| Agent | Calls | Avg length |\n|---|---|---|\n")
		for _, a := range s.PerAgent {
			fmt.Fprintf(&b, "| %s | %d | %s |\n", orNA(a.AgentName), a.TotalCalls, fmtDuration(int(a.AvgDurationSecs)))
		}
	}
	return b.String()
}

func formatTranscript(d *handlers.TranscriptData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Transcript for call **%s**", d.Call.ID)
	if d.Call.CustomerName != "" {
		fmt.Fprintf(&b, " with %s", d.Call.CustomerName)
	}
	fmt.Fprintf(&b, " (%s, %s):\n\n", d.Call.StartedAt.Format("Jan 2, 2006"), fmtDuration(d.Call.DurationSeconds))
	for _, turn := range d.Turns {
		fmt.Fprintf(&b, "**%s:** %s\n", prettyCategory(turn.Speaker), turn.Text)
	}
	return b.String()
}

func formatSearchResults(d *handlers.SearchResultsData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d call(s) matching %q:\n\n", len(d.Results), d.Query)
	for i, r := range d.Results {
		name := r.AgentName
		if name == "" {
			name = na
		}
		date := na
		if !r.Date.IsZero() {
			date = r.Date.Format("Jan 2, 2006")
		}
		fmt.Fprintf(&b, "%d. **%s** (%s, call %s, %.0f%% match)\n   > %s\n",
			i+1, name, date, r.CallID, r.Similarity*100, r.Snippet)
	}
	return b.String()
}

func formatCoaching(d *handlers.CoachingData) string {
	a := d.Analysis
	var b strings.Builder
	fmt.Fprintf(&b, "Coaching feedback for call **%s** — overall score **%.1f/5**\n\n", d.Call.ID, a.OverallScore)

	if len(a.Scores) > 0 {
		b.WriteString("| Category | Score |\n|---|---|\n")
		for _, s := range a.Scores {
			fmt.Fprintf(&b, "| %s | %d/5 |\n", prettyCategory(s.Category), s.Score)
		}
		b.WriteString("\n")
	}
	writeList(&b, "Strengths", a.Strengths)
	writeList(&b, "Areas to improve", a.Improvements)
	writeList(&b, "Action items", a.ActionItems)

	flags := len(a.RedFlags.Critical) + len(a.RedFlags.High) + len(a.RedFlags.Medium)
	if flags > 0 {
		b.WriteString("**Red flags:**\n")
		for _, f := range a.RedFlags.Critical {
			fmt.Fprintf(&b, "- 🔴 %s\n", f)
		}
		for _, f := range a.RedFlags.High {
			fmt.Fprintf(&b, "- 🟠 %s\n", f)
		}
		for _, f := range a.RedFlags.Medium {
			fmt.Fprintf(&b, "- 🟡 %s\n", f)
		}
	} else {
		b.WriteString("No red flags detected.\n")
	}
	return b.String()
}

func formatObjections(d *handlers.ObjectionData) string {
	a := d.Analysis
	var b strings.Builder
	fmt.Fprintf(&b, "Objection analysis for call **%s**:\n\n", d.Call.ID)
	if len(a.Objections) == 0 {
		b.WriteString("No customer objections were detected in this call.\n")
	} else {
		for i, o := range a.Objections {
			status := "unhandled"
			if o.Handled {
				status = "handled"
			}
			fmt.Fprintf(&b, "%d. **%s** (%s)\n", i+1, prettyCategory(o.Type), status)
			if o.Quote != "" {
				fmt.Fprintf(&b, "   > %s\n", o.Quote)
			}
		}
		b.WriteString("\n")
	}
	if a.Summary != "" {
		fmt.Fprintf(&b, "%s\n", a.Summary)
	}
	writeList(&b, "Recommendations", a.Recommendations)
	return b.String()
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "**%s:**\n", title)
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
	b.WriteString("\n")
}

func agentName(a *models.Agent) string {
	if a == nil || strings.TrimSpace(a.Name) == "" {
		return "Unknown agent"
	}
	return a.Name
}

func fmtDuration(secs int) string {
	if secs <= 0 {
		return na
	}
	m := secs / 60
	s := secs % 60
	if m == 0 {
		return fmt.Sprintf("%ds", s)
	}
	return fmt.Sprintf("%dm %02ds", m, s)
}

func fmtRatio(r *float64) string {
	if r == nil {
		return na
	}
	return fmt.Sprintf("%.0f%%", *r*100)
}

func fmtOutcomes(counts map[string]int) string {
	// stable order for deterministic output
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %d", k, counts[k]))
	}
	return strings.Join(parts, ", ")
}

// prettyCategory turns "objection_handling" into "Objection Handling".
func prettyCategory(c string) string {
	words := strings.Fields(strings.ReplaceAll(c, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return na
	}
	return s
}
