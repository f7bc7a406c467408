// Package legal implements the question-answering pipeline for legal
// awareness queries: safety triage, passage retrieval, context formatting,
// grounded generation with a quality fallback, and disclaimer enforcement.
//
// A Pipeline is built once at process start with [New] and shared by all
// request goroutines. It holds no mutable state; each call to
// [Pipeline.Answer] is an independent unit of work.
package legal

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/54b3r/lawglance-go/internal/safety"
)

// Query length bounds, counted in characters after trimming.
const (
	MinQueryLength = 3
	MaxQueryLength = 1000
)

// Validation errors returned by ValidateQuery and Pipeline.Answer.
var (
	ErrEmptyQuery    = errors.New("legal: query must not be empty")
	ErrQueryTooShort = fmt.Errorf("legal: query must be at least %d characters", MinQueryLength)
	ErrQueryTooLong  = fmt.Errorf("legal: query must be at most %d characters", MaxQueryLength)
)

// Metadata keys understood by the formatter.
const (
	MetaSource  = "source"
	MetaTitle   = "title"
	MetaSection = "section"
	MetaPage    = "page"
)

// Passage is one unit of retrieved legal text with its provenance.
type Passage struct {
	// Text is the passage body.
	Text string
	// Metadata carries source, and optionally title, section and page.
	Metadata map[string]string
}

// Citation is a deduplicated reference to a retrieved passage.
type Citation struct {
	// SourceTitle is the human-readable document title, or Source when absent.
	SourceTitle string `json:"source_title"`
	// Source is the origin file or URL.
	Source string `json:"source"`
	// Snippet is the first 200 characters of the passage, "..." appended when cut.
	Snippet string `json:"snippet"`
	// Section is the statute section or article, when known.
	Section string `json:"section,omitempty"`
	// Page is the page number in the source document, when known.
	Page string `json:"page,omitempty"`
}

// Path records which branch of the answer state machine produced a result.
type Path string

const (
	// PathSafetyBlocked means a canned safety response was returned without generation.
	PathSafetyBlocked Path = "safety_blocked"
	// PathNoContext means retrieval was empty and the generic prompt was used.
	PathNoContext Path = "no_context"
	// PathGrounded means the grounded prompt answer was accepted.
	PathGrounded Path = "grounded"
	// PathInsufficientRetry means the grounded answer reported insufficient
	// context and the generic prompt answer replaced it.
	PathInsufficientRetry Path = "insufficient_retry"
)

// Result is the final output of the pipeline.
type Result struct {
	// Answer always carries the disclaimer sentence exactly once.
	Answer string `json:"answer"`
	// Citations is never nil; it is empty unless retrieval returned passages.
	Citations []Citation `json:"citations"`
	// HasContext is true when retrieval returned at least one passage.
	HasContext bool `json:"has_context"`

	// Safety is the classifier label for the query.
	Safety safety.Label `json:"-"`
	// Path is the state machine branch taken.
	Path Path `json:"-"`
}

// ValidateQuery trims q and checks its length. It returns the trimmed query.
func ValidateQuery(q string) (string, error) {
	q = strings.TrimSpace(q)
	n := utf8.RuneCountInString(q)
	switch {
	case n == 0:
		return "", ErrEmptyQuery
	case n < MinQueryLength:
		return "", ErrQueryTooShort
	case n > MaxQueryLength:
		return "", ErrQueryTooLong
	}
	return q, nil
}

// IsValidationError reports whether err is one of the query validation errors.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrEmptyQuery) || errors.Is(err, ErrQueryTooShort) || errors.Is(err, ErrQueryTooLong)
}
