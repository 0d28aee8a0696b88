package proposal

import (
	"fmt"
	"slices"
	"strings"
)

// ResolvedEdit is an edit whose target has been located uniquely in the
// document snapshot it was validated against.
type ResolvedEdit struct {
	OldFragment string
	NewFragment string
	Start       int
	End         int
	Recovered   bool
}

// Result is a successful application.
type Result struct {
	Kind     Kind
	Document string
	Edits    []ResolvedEdit
	Summary  string
}

// Recovered counts edits resolved through drift recovery.
func (r *Result) Recovered() int {
	n := 0
	for _, e := range r.Edits {
		if e.Recovered {
			n++
		}
	}
	return n
}

type Option func(*Applier)

// WithDriftResolver replaces the resolver used under feedback mode.
func WithDriftResolver(resolver *DriftResolver) Option {
	return func(a *Applier) {
		a.drift = resolver
	}
}

// Applier validates proposals against a document and computes the new
// document. It holds no per-document state and is safe for concurrent use.
type Applier struct {
	drift *DriftResolver
}

func NewApplier(opts ...Option) *Applier {
	a := &Applier{drift: NewDriftResolver(KeepPrintableASCII, DefaultMinBaseLength)}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

var defaultApplier = NewApplier()

// Apply uses the default applier.
func Apply(document string, p Proposal, feedbackActive bool) (*Result, error) {
	return defaultApplier.Apply(document, p, feedbackActive)
}

// Apply validates p against document and returns the new document. On any
// error the caller's document must be kept as is; Apply never returns a
// partially edited text. feedbackActive enables drift recovery for
// fragments that cannot be found verbatim.
func (a *Applier) Apply(document string, p Proposal, feedbackActive bool) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	switch p.Kind {
	case KindSingleEdit:
		return a.applySingle(document, p.Edits[0], feedbackActive)
	case KindMultiEdit:
		return a.applyMulti(document, p.Edits, feedbackActive)
	case KindFullReplace:
		return &Result{
			Kind:     KindFullReplace,
			Document: p.NewDocument,
			Summary:  "Applied proposal (full replace).",
		}, nil
	case KindFailed:
		return nil, &ApplyError{Kind: p.Kind, Problems: []Problem{{
			Err:    ErrGatewayFailure,
			Detail: "AI request failed: " + p.Message,
		}}}
	default:
		return nil, fmt.Errorf("%w: %s", ErrNotMutating, p.Kind)
	}
}

func (a *Applier) applySingle(document string, e Edit, feedbackActive bool) (*Result, error) {
	resolved, problem := a.resolve(document, e, 0, feedbackActive)
	if problem != nil {
		return nil, &ApplyError{Kind: KindSingleEdit, Problems: []Problem{*problem}}
	}
	return &Result{
		Kind:     KindSingleEdit,
		Document: splice(document, []ResolvedEdit{resolved}),
		Edits:    []ResolvedEdit{resolved},
		Summary:  "Applied proposal (single edit).",
	}, nil
}

func (a *Applier) applyMulti(document string, edits []Edit, feedbackActive bool) (*Result, error) {
	var (
		set      RangeSet
		accepted []ResolvedEdit
		problems []Problem
	)
	for i, e := range edits {
		resolved, problem := a.resolve(document, e, i+1, feedbackActive)
		if problem != nil {
			problems = append(problems, *problem)
			continue
		}
		if !set.Accept(Range{Start: resolved.Start, End: resolved.End}) {
			problems = append(problems, Problem{
				Err:      ErrConflictingEdits,
				Index:    i + 1,
				Fragment: e.OldFragment,
				Detail:   "overlaps another edit",
			})
			continue
		}
		accepted = append(accepted, resolved)
	}
	if len(problems) > 0 {
		return nil, &ApplyError{Kind: KindMultiEdit, Problems: problems}
	}

	return &Result{
		Kind:     KindMultiEdit,
		Document: splice(document, accepted),
		Edits:    accepted,
		Summary:  fmt.Sprintf("Applied proposal (%d edits).", len(accepted)),
	}, nil
}

// resolve locates one edit in the original snapshot.
func (a *Applier) resolve(document string, e Edit, index int, feedbackActive bool) (ResolvedEdit, *Problem) {
	loc := Locate(document, e.OldFragment)
	switch loc.Count() {
	case 1:
		r, _ := loc.Unique()
		return ResolvedEdit{OldFragment: e.OldFragment, NewFragment: e.NewFragment, Start: r.Start, End: r.End}, nil
	case 0:
		if !feedbackActive || a.drift == nil {
			return ResolvedEdit{}, &Problem{Err: ErrAmbiguousFragment, Index: index, Fragment: e.OldFragment, Detail: "fragment not found"}
		}
		rec, ok := a.drift.Resolve(document, e.OldFragment)
		if ok {
			return ResolvedEdit{
				OldFragment: rec.Matched,
				NewFragment: e.NewFragment,
				Start:       rec.Range.Start,
				End:         rec.Range.End,
				Recovered:   true,
			}, nil
		}
		detail := "fragment not found"
		switch {
		case rec.TooShort:
			detail += " (relaxed match skipped, stripped text too short)"
		case rec.Count > 1:
			detail += fmt.Sprintf(" (relaxed match ambiguous, %d occurrences)", rec.Count)
		default:
			detail += " (relaxed match found nothing)"
		}
		return ResolvedEdit{}, &Problem{Err: ErrAmbiguousFragment, Index: index, Fragment: e.OldFragment, Detail: detail}
	default:
		return ResolvedEdit{}, &Problem{
			Err:      ErrAmbiguousFragment,
			Index:    index,
			Fragment: e.OldFragment,
			Count:    loc.Count(),
			Detail:   fmt.Sprintf("fragment ambiguous, %d occurrences", loc.Count()),
		}
	}
}

// splice applies non-overlapping edits from the highest offset down so
// earlier offsets stay valid.
func splice(document string, edits []ResolvedEdit) string {
	ordered := slices.Clone(edits)
	slices.SortFunc(ordered, func(a, b ResolvedEdit) int { return b.Start - a.Start })

	out := document
	for _, e := range ordered {
		var b strings.Builder
		b.Grow(len(out) - (e.End - e.Start) + len(e.NewFragment))
		b.WriteString(out[:e.Start])
		b.WriteString(e.NewFragment)
		b.WriteString(out[e.End:])
		out = b.String()
	}
	return out
}
