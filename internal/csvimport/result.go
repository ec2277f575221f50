package csvimport

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Level is the severity of an import log entry.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// LogEntry is one line of the import log.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Level   Level     `json:"level"`
	Message string    `json:"message"`
}

// Outcome classifies a finished import.
type Outcome string

const (
	// OutcomeSuccess means no article failed.
	OutcomeSuccess Outcome = "success"
	// OutcomeWarning means some articles failed but at least one was new.
	OutcomeWarning Outcome = "warning"
	// OutcomeError means articles failed and none was new.
	OutcomeError Outcome = "error"
)

// ClassifyOutcome derives the outcome from article counts.
func ClassifyOutcome(newArticles, failed int) Outcome {
	switch {
	case failed == 0:
		return OutcomeSuccess
	case newArticles > 0:
		return OutcomeWarning
	default:
		return OutcomeError
	}
}

// maxErrorChars bounds the error text kept per failed write.
const maxErrorChars = 100

// Result reports what an import did.
type Result struct {
	ImportID           uuid.UUID     `json:"import_id"`
	Outcome            Outcome       `json:"outcome"`
	Summary            string        `json:"summary"`
	Rows               int           `json:"rows"`
	SkippedRows        int           `json:"skipped_rows"`
	NewArticles        int           `json:"new_articles"`
	ExistingArticles   int           `json:"existing_articles"`
	FailedArticles     int           `json:"failed_articles"`
	JournalsCreated    int           `json:"journals_created"`
	DisciplinesCreated int           `json:"disciplines_created"`
	AuthorsCreated     int           `json:"authors_created"`
	DependentsWritten  int           `json:"dependents_written"`
	DependentsFailed   int           `json:"dependents_failed"`
	Warnings           []Warning     `json:"warnings"`
	Log                []LogEntry    `json:"log"`
	Duration           time.Duration `json:"-"`
	DurationMS         int64         `json:"duration_ms"`
}

// Summarize returns the one-line summary shown to users.
func (r *Result) Summarize() string {
	return fmt.Sprintf("Import Complete: %d new articles added, %d already existed, %d failed.",
		r.NewArticles, r.ExistingArticles, r.FailedArticles)
}

// importLog collects log entries from concurrent writers.
type importLog struct {
	mu      sync.Mutex
	entries []LogEntry
}

func (l *importLog) add(level Level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, LogEntry{
		Time:    time.Now(),
		Level:   level,
		Message: fmt.Sprintf(format, args...),
	})
}

// newestFirst returns the entries in reverse chronological order.
func (l *importLog) newestFirst() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := slices.Clone(l.entries)
	slices.Reverse(out)
	return out
}

// truncateError shortens err's message to maxErrorChars runes.
func truncateError(err error) string {
	msg := err.Error()
	runes := []rune(msg)
	if len(runes) <= maxErrorChars {
		return msg
	}
	return string(runes[:maxErrorChars])
}
