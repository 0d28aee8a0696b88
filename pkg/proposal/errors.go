package proposal

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrAmbiguousFragment = errors.New("ambiguous fragment")
	ErrConflictingEdits  = errors.New("conflicting edits")
	ErrMalformedProposal = errors.New("malformed proposal")
	ErrGatewayFailure    = errors.New("gateway failure")

	// ErrNotMutating is returned when an informational proposal is applied.
	ErrNotMutating = errors.New("proposal does not change the document")
)

// Problem is one validation finding. Index is the 1-based edit position for
// multi-edit proposals and 0 otherwise.
type Problem struct {
	Err      error
	Index    int
	Fragment string
	Count    int
	Detail   string
}

func (p Problem) String() string {
	var b strings.Builder
	if p.Index > 0 {
		fmt.Fprintf(&b, "edit %d: ", p.Index)
	}
	b.WriteString(p.Detail)
	if p.Fragment != "" {
		fmt.Fprintf(&b, ": %q", Truncate(p.Fragment, previewWidth))
	}
	return b.String()
}

// ApplyError aggregates every problem found while validating a proposal.
// The document is never modified when an ApplyError is returned.
type ApplyError struct {
	Kind     Kind
	Problems []Problem
}

func (e *ApplyError) Error() string {
	if len(e.Problems) == 1 && e.Kind != KindMultiEdit {
		return e.Problems[0].String()
	}

	var b strings.Builder
	switch {
	case e.Kind == KindMultiEdit:
		b.WriteString("multi-edit validation failed:")
	default:
		fmt.Fprintf(&b, "%s validation failed:", e.Kind.Label())
	}
	for _, p := range e.Problems {
		b.WriteString("\n- ")
		b.WriteString(p.String())
	}
	return b.String()
}

// Unwrap exposes the sentinel of every problem so errors.Is matches any of
// them.
func (e *ApplyError) Unwrap() []error {
	errs := make([]error, 0, len(e.Problems))
	for _, p := range e.Problems {
		if p.Err != nil {
			errs = append(errs, p.Err)
		}
	}
	return errs
}

// Messages returns the problem lines without the header.
func (e *ApplyError) Messages() []string {
	out := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		out[i] = p.String()
	}
	return out
}

func malformed(kind Kind, defects ...string) *ApplyError {
	problems := make([]Problem, len(defects))
	for i, d := range defects {
		problems[i] = Problem{Err: ErrMalformedProposal, Detail: "malformed proposal: " + d}
	}
	return &ApplyError{Kind: kind, Problems: problems}
}
