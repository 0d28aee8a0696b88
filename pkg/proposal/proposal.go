package proposal

import "fmt"

// Kind is the discriminant of a Proposal.
type Kind string

const (
	KindSingleEdit         Kind = "single_edit"
	KindMultiEdit          Kind = "multi_edit"
	KindFullReplace        Kind = "full_replace"
	KindNeedsClarification Kind = "needs_clarification"
	KindConversational     Kind = "conversational"
	KindRejectedByAI       Kind = "rejected_by_ai"
	KindFailed             Kind = "failed"
)

// Mutating reports whether proposals of this kind change the document.
func (k Kind) Mutating() bool {
	switch k {
	case KindSingleEdit, KindMultiEdit, KindFullReplace:
		return true
	}
	return false
}

// Valid reports whether k is a known discriminant.
func (k Kind) Valid() bool {
	switch k {
	case KindSingleEdit, KindMultiEdit, KindFullReplace,
		KindNeedsClarification, KindConversational, KindRejectedByAI, KindFailed:
		return true
	}
	return false
}

// Label is the short human name used in history annotations.
func (k Kind) Label() string {
	switch k {
	case KindSingleEdit:
		return "single edit"
	case KindMultiEdit:
		return "multi edit"
	case KindFullReplace:
		return "full replace"
	case KindNeedsClarification:
		return "clarification"
	case KindConversational:
		return "conversation"
	case KindRejectedByAI:
		return "rejected"
	case KindFailed:
		return "failed"
	}
	return string(k)
}

// Edit is one old/new fragment pair.
type Edit struct {
	OldFragment string `json:"old_fragment"`
	NewFragment string `json:"new_fragment"`
}

// Proposal is the AI's structured description of a requested change.
// Build one with the New* constructors or by decoding JSON; the zero value
// is not a valid proposal.
type Proposal struct {
	Kind        Kind
	Edits       []Edit
	NewDocument string
	Message     string

	// defects collected while decoding a payload that does not match its
	// declared kind. Reported by Validate.
	defects []string
}

func NewSingleEdit(oldFragment, newFragment string) Proposal {
	return Proposal{Kind: KindSingleEdit, Edits: []Edit{{OldFragment: oldFragment, NewFragment: newFragment}}}
}

func NewMultiEdit(edits ...Edit) Proposal {
	cp := make([]Edit, len(edits))
	copy(cp, edits)
	return Proposal{Kind: KindMultiEdit, Edits: cp}
}

func NewFullReplace(document string) Proposal {
	return Proposal{Kind: KindFullReplace, NewDocument: document}
}

// NewInformational builds a non-mutating proposal (clarification,
// conversation, rejection or failure) carrying message.
func NewInformational(kind Kind, message string) Proposal {
	return Proposal{Kind: kind, Message: message}
}

func NewFailed(message string) Proposal {
	return Proposal{Kind: KindFailed, Message: message}
}

// Mutating reports whether applying p can change the document.
func (p Proposal) Mutating() bool {
	return p.Kind.Mutating()
}

// Validate checks the payload against the declared kind. Every defect is
// reported, wrapped in an *ApplyError matching ErrMalformedProposal.
func (p Proposal) Validate() error {
	if !p.Kind.Valid() {
		return malformed(p.Kind, fmt.Sprintf("unknown proposal kind %q", p.Kind))
	}

	defects := append([]string(nil), p.defects...)
	switch p.Kind {
	case KindSingleEdit:
		if len(p.Edits) != 1 {
			defects = append(defects, fmt.Sprintf("single edit must carry exactly one fragment pair, got %d", len(p.Edits)))
		} else if p.Edits[0].OldFragment == "" {
			defects = append(defects, "old_fragment is empty")
		}
	case KindMultiEdit:
		for i, e := range p.Edits {
			if e.OldFragment == "" {
				defects = append(defects, fmt.Sprintf("edit %d: old_fragment is empty", i+1))
			}
		}
	}
	if len(defects) == 0 {
		return nil
	}
	return malformed(p.Kind, defects...)
}

// Preview is a short rendering of the proposal for logs and annotations.
func (p Proposal) Preview(width int) string {
	switch p.Kind {
	case KindSingleEdit:
		if len(p.Edits) == 1 {
			return fmt.Sprintf("%s -> %s", Truncate(p.Edits[0].OldFragment, width), Truncate(p.Edits[0].NewFragment, width))
		}
	case KindMultiEdit:
		return fmt.Sprintf("%d edits", len(p.Edits))
	case KindFullReplace:
		return Truncate(p.NewDocument, width)
	}
	return Truncate(p.Message, width)
}
