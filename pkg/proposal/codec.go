package proposal

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownKind is returned when a payload carries no recognizable
// kind/status discriminant.
var ErrUnknownKind = errors.New("unknown proposal kind")

// legacyStatus maps the status values emitted by older prompt versions onto
// kinds.
var legacyStatus = map[string]Kind{
	"success":              KindSingleEdit,
	"multiple_edits":       KindMultiEdit,
	"replace_all":          KindFullReplace,
	"clarification_needed": KindNeedsClarification,
	"conversation":         KindConversational,
	"rejected":             KindRejectedByAI,
	"error":                KindFailed,
}

// ParseKind resolves a discriminant value, accepting canonical kinds and
// legacy status names.
func ParseKind(value string) (Kind, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if k := Kind(v); k.Valid() {
		return k, nil
	}
	if k, ok := legacyStatus[v]; ok {
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, value)
}

type wireEdit struct {
	OldFragment *string `json:"old_fragment,omitempty"`
	NewFragment *string `json:"new_fragment,omitempty"`
	OldString   *string `json:"old_string,omitempty"`
	NewString   *string `json:"new_string,omitempty"`
}

func (w wireEdit) old() *string {
	if w.OldFragment != nil {
		return w.OldFragment
	}
	return w.OldString
}

func (w wireEdit) new() *string {
	if w.NewFragment != nil {
		return w.NewFragment
	}
	return w.NewString
}

type wireProposal struct {
	Kind   string `json:"kind,omitempty"`
	Status string `json:"status,omitempty"`

	wireEdit
	Edits *[]wireEdit `json:"edits,omitempty"`

	NewDocument *string `json:"new_document,omitempty"`
	Content     *string `json:"content,omitempty"`
	Message     *string `json:"message,omitempty"`

	Defects []string `json:"defects,omitempty"`
}

// Decode parses a proposal payload. Only an unrecognizable discriminant is a
// decode error; payload defects are kept and surface from Validate.
func Decode(data []byte) (Proposal, error) {
	var p Proposal
	err := json.Unmarshal(data, &p)
	return p, err
}

func (p *Proposal) UnmarshalJSON(data []byte) error {
	var w wireProposal
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	discriminant := w.Kind
	if discriminant == "" {
		discriminant = w.Status
	}
	kind, err := ParseKind(discriminant)
	if err != nil {
		return err
	}

	// defects found by an earlier decode survive a store round trip
	out := Proposal{Kind: kind, defects: append([]string(nil), w.Defects...)}
	if w.Message != nil {
		out.Message = *w.Message
	}

	switch kind {
	case KindSingleEdit:
		oldFragment, newFragment := w.old(), w.new()
		if oldFragment == nil {
			out.defects = append(out.defects, "old_fragment is missing")
		}
		if newFragment == nil {
			out.defects = append(out.defects, "new_fragment is missing")
		}
		out.Edits = []Edit{{OldFragment: deref(oldFragment), NewFragment: deref(newFragment)}}
	case KindMultiEdit:
		if w.Edits == nil {
			out.defects = append(out.defects, "edits list is missing")
			break
		}
		out.Edits = make([]Edit, 0, len(*w.Edits))
		for i, e := range *w.Edits {
			if e.old() == nil {
				out.defects = append(out.defects, fmt.Sprintf("edit %d: old_fragment is missing", i+1))
			}
			if e.new() == nil {
				out.defects = append(out.defects, fmt.Sprintf("edit %d: new_fragment is missing", i+1))
			}
			out.Edits = append(out.Edits, Edit{OldFragment: deref(e.old()), NewFragment: deref(e.new())})
		}
	case KindFullReplace:
		doc := w.NewDocument
		if doc == nil {
			doc = w.Content
		}
		if doc == nil {
			out.defects = append(out.defects, "new_document is missing")
		}
		out.NewDocument = deref(doc)
	}

	*p = out
	return nil
}

type singleEditJSON struct {
	Kind        Kind     `json:"kind"`
	OldFragment string   `json:"old_fragment"`
	NewFragment string   `json:"new_fragment"`
	Defects     []string `json:"defects,omitempty"`
}

type multiEditJSON struct {
	Kind    Kind     `json:"kind"`
	Edits   []Edit   `json:"edits"`
	Defects []string `json:"defects,omitempty"`
}

type fullReplaceJSON struct {
	Kind        Kind     `json:"kind"`
	NewDocument string   `json:"new_document"`
	Defects     []string `json:"defects,omitempty"`
}

type messageJSON struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

func (p Proposal) MarshalJSON() ([]byte, error) {
	switch p.Kind {
	case KindSingleEdit:
		var e Edit
		if len(p.Edits) > 0 {
			e = p.Edits[0]
		}
		return json.Marshal(singleEditJSON{Kind: p.Kind, OldFragment: e.OldFragment, NewFragment: e.NewFragment, Defects: p.defects})
	case KindMultiEdit:
		edits := p.Edits
		if edits == nil {
			edits = []Edit{}
		}
		return json.Marshal(multiEditJSON{Kind: p.Kind, Edits: edits, Defects: p.defects})
	case KindFullReplace:
		return json.Marshal(fullReplaceJSON{Kind: p.Kind, NewDocument: p.NewDocument, Defects: p.defects})
	default:
		return json.Marshal(messageJSON{Kind: p.Kind, Message: p.Message})
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
