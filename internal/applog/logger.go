// Package applog is the human-facing console reporter for a test run:
// one box per round, emoji-prefixed action/result lines, a terminal
// summary box. Adapted directly from the teacher's box-drawing/emoji
// console logger — kept on the standard library only, since that is
// the teacher's own idiom for this channel (see internal/tracelog for
// the structured diagnostic channel).
package applog

import (
	"fmt"
	"strings"
	"time"
)

// TokenCounter tracks cumulative LLM token usage against a budget.
type TokenCounter struct {
	used   int
	budget int
}

func NewTokenCounter(budget int) *TokenCounter {
	return &TokenCounter{budget: budget}
}

func (c *TokenCounter) Add(n int)   { c.used += n }
func (c *TokenCounter) Used() int   { return c.used }
func (c *TokenCounter) Reset()      { c.used = 0 }
func (c *TokenCounter) Budget() int { return c.budget }

// Logger is the per-run console reporter.
type Logger struct {
	enabled        bool
	roundCount     int
	roundStart     time.Time
	runStart       time.Time
	tokens         *TokenCounter
	roundTokens    int
}

func NewLogger(enabled bool) *Logger {
	return &Logger{enabled: enabled, tokens: NewTokenCounter(1048576)}
}

func (l *Logger) SetTokenCounter(tc *TokenCounter) { l.tokens = tc }
func (l *Logger) GetTokens() *TokenCounter          { return l.tokens }

// StartRun marks the beginning of a test run.
func (l *Logger) StartRun() {
	l.runStart = time.Now()
	l.roundCount = 0
	if l.tokens != nil {
		l.tokens.Reset()
	}
}

func (l *Logger) AddTokens(n int) {
	l.roundTokens += n
	if l.tokens != nil {
		l.tokens.Add(n)
	}
}

// IncrementRound advances the round counter and resets per-round timing.
func (l *Logger) IncrementRound() int {
	l.roundCount++
	l.roundStart = time.Now()
	l.roundTokens = 0
	return l.roundCount
}

func (l *Logger) RoundDuration() time.Duration {
	if l.roundStart.IsZero() {
		return 0
	}
	return time.Since(l.roundStart)
}

func (l *Logger) RunDuration() time.Duration {
	if l.runStart.IsZero() {
		return 0
	}
	return time.Since(l.runStart)
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%.1fm", d.Minutes())
}

func formatTokens(tokens int) string {
	if tokens >= 1000000 {
		return fmt.Sprintf("%.1fM", float64(tokens)/1000000)
	}
	if tokens >= 1000 {
		return fmt.Sprintf("%.1fK", float64(tokens)/1000)
	}
	return fmt.Sprintf("%d", tokens)
}

func timestamp() string {
	return time.Now().Format("15:04:05")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// Action logs a decided action before it executes.
func (l *Logger) Action(action, target, reasoning string) {
	if !l.enabled {
		return
	}
	round := l.IncrementRound()
	fmt.Println()
	fmt.Printf("┌─────────────────────────────────────────────────────────────────\n")
	fmt.Printf("│ 🎯 ROUND %d │ %s\n", round, timestamp())
	fmt.Printf("├─────────────────────────────────────────────────────────────────\n")
	fmt.Printf("│ 🔧 Action:    %s\n", action)
	if target != "" {
		fmt.Printf("│ 🎪 Target:    %s\n", target)
	}
	if reasoning != "" {
		fmt.Printf("│ 💭 Reasoning: %s\n", truncate(reasoning, 60))
	}
	fmt.Printf("└─────────────────────────────────────────────────────────────────\n")
}

// ActionComplete logs the outcome of the round's action with timing
// and token deltas.
func (l *Logger) ActionComplete(success bool, message string, stepTokens int) {
	if !l.enabled {
		return
	}
	duration := l.RoundDuration()
	var tokensStr, totalStr string
	if stepTokens > 0 {
		tokensStr = fmt.Sprintf(" [+%s tokens]", formatTokens(stepTokens))
	}
	if l.tokens != nil {
		totalStr = fmt.Sprintf(" [total: %s]", formatTokens(l.tokens.Used()))
	}
	mark := "✅"
	if !success {
		mark = "❌"
	}
	fmt.Printf("   %s %s (%s)%s%s\n", mark, message, formatDuration(duration), tokensStr, totalStr)
}

// Perceive logs the screen-perception step of a round.
func (l *Logger) Perceive(screenshotPath string, elementCount int) {
	if !l.enabled {
		return
	}
	fmt.Printf("   📸 Screenshot: %s\n", screenshotPath)
	fmt.Printf("   🧩 Elements: %d in catalog\n", elementCount)
}

// Wait logs an interpreter sleep/poll.
func (l *Logger) Wait(reason string) {
	if !l.enabled {
		return
	}
	fmt.Printf("   ⏳ Waiting: %s\n", reason)
}

// Script logs a translated script line being appended to the run's .tks file.
func (l *Logger) Script(line string) {
	if !l.enabled {
		return
	}
	fmt.Printf("   📝 %s\n", line)
}

// Review logs the Reviewer's verdict for a round.
func (l *Logger) Review(kind string, detail string) {
	if !l.enabled {
		return
	}
	fmt.Printf("   🧑‍⚖️ Review: %s — %s\n", kind, truncate(detail, 80))
}

// Done logs the run's terminal summary.
func (l *Logger) Done(status, result string, totalRounds int) {
	if !l.enabled {
		return
	}
	fmt.Println()
	fmt.Printf("╔═════════════════════════════════════════════════════════════════\n")
	mark := "✅"
	if result != "passed" {
		mark = "❌"
	}
	fmt.Printf("║ %s RUN %s │ %s\n", mark, strings.ToUpper(status), result)
	fmt.Printf("╠═════════════════════════════════════════════════════════════════\n")
	fmt.Printf("║ Rounds:   %d\n", totalRounds)
	fmt.Printf("║ Duration: %s\n", formatDuration(l.RunDuration()))
	if l.tokens != nil {
		pct := 0.0
		if l.tokens.Budget() > 0 {
			pct = float64(l.tokens.Used()) / float64(l.tokens.Budget()) * 100
		}
		fmt.Printf("║ Tokens:   %s (%.1f%% of budget)\n", formatTokens(l.tokens.Used()), pct)
	}
	fmt.Printf("╚═════════════════════════════════════════════════════════════════\n")
}

// HumanTakeover logs the Actor requesting a human intervene.
func (l *Logger) HumanTakeover(reason string) {
	if !l.enabled {
		return
	}
	fmt.Println()
	fmt.Printf("╔═════════════════════════════════════════════════════════════════\n")
	fmt.Printf("║ 🙋 HUMAN TAKEOVER REQUESTED\n")
	fmt.Printf("╠═════════════════════════════════════════════════════════════════\n")
	fmt.Printf("║ %s\n", truncate(reason, 65))
	fmt.Printf("╚═════════════════════════════════════════════════════════════════\n")
}

// Error logs a non-fatal warning observed mid-round.
func (l *Logger) Error(err error) {
	if !l.enabled {
		return
	}
	fmt.Printf("   ⚠️  %v\n", err)
}
