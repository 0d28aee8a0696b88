package prompt

import (
	"fmt"
	"strings"

	"ai-text-editor-be/pkg/proposal"
)

// SystemPrompt instructs the model to answer with exactly one proposal
// object.
const SystemPrompt = `You are an assistant that edits text files. The user gives you the content of a file and an editing instruction.
You can also see the conversation so far, including your earlier proposals (as JSON) and the user's feedback on them. Use that context.

<feedback_rules>
When the user message is feedback on your previous proposal:
1. Edit target
   - If the previous proposal was full_replace or single_edit, edit the PREVIOUS PROPOSAL shown in the message, not the current file.
   - If the previous proposal was multi_edit, edit the CURRENT FILE shown in the message, taking the previous proposal JSON from the history into account.
2. Give the feedback top priority and answer with a revised proposal (same kind as before, or needs_clarification when you must ask).
</feedback_rules>

<task>
Work out which part of the file should change and how.
- Prefer partial edits. Replace the whole file only when the user clearly asks for it.
- When the instruction is vague, use the history to propose something concrete.
</task>

<output_format>
Respond with ONLY one JSON object of one of these kinds:

A) single_edit: change exactly one place. old_fragment must occur EXACTLY ONCE in the edit target; include enough surrounding text to make it unique.
{"kind": "single_edit", "old_fragment": "text before", "new_fragment": "text after"}

B) multi_edit: change several places at once. Every old_fragment must occur exactly once and fragments must not overlap.
{"kind": "multi_edit", "edits": [{"old_fragment": "...", "new_fragment": "..."}]}

C) full_replace: rewrite the whole target (large expansions, full rewrites, global tone changes).
{"kind": "full_replace", "new_document": "entire new content"}

D) needs_clarification: the instruction is ambiguous, the fragment is missing or not unique, or you need more information.
{"kind": "needs_clarification", "message": "your question"}

E) conversational: the user is chatting or asking about the file rather than requesting an edit.
{"kind": "conversational", "message": "your answer"}

F) rejected_by_ai: the request is harmful, inappropriate or impossible.
{"kind": "rejected_by_ai", "message": "reason"}
</output_format>

Fragments are matched as literal text, character for character. Never answer with anything other than one of the JSON objects above.`

// Builder renders the final user turn sent to the model.
type Builder struct{}

func NewBuilder() *Builder {
	return &Builder{}
}

// Build chooses between the fresh-instruction form and the two feedback
// forms.
func (b *Builder) Build(document, instruction string, isFeedback bool, previous *proposal.Proposal) string {
	var prompt strings.Builder

	if !isFeedback || previous == nil {
		writeSection(&prompt, "Current file", document)
		fmt.Fprintf(&prompt, "## Instruction: %s\n\n", instruction)
		prompt.WriteString("Taking the conversation history into account, answer the instruction above with one JSON object.\n")
		return prompt.String()
	}

	if target, ok := editablePrevious(previous); ok {
		writeSection(&prompt, "Previous proposal (edit target)", target)
		fmt.Fprintf(&prompt, "## Feedback on the proposal above: %s\n\n", instruction)
		fmt.Fprintf(&prompt, "Using the history (especially your last proposal JSON) and this feedback, revise the PREVIOUS PROPOSAL and answer with a new proposal as JSON. (previous kind: %s)\n", previous.Kind)
		return prompt.String()
	}

	writeSection(&prompt, "Current file", document)
	fmt.Fprintf(&prompt, "## Previous proposal: %s (see your last message in the history)\n", previous.Kind)
	fmt.Fprintf(&prompt, "## Feedback on that proposal: %s\n\n", instruction)
	prompt.WriteString("Using the history (especially your last proposal JSON) and this feedback, edit the CURRENT FILE and answer with a new proposal as JSON.\n")
	return prompt.String()
}

func editablePrevious(p *proposal.Proposal) (string, bool) {
	switch p.Kind {
	case proposal.KindFullReplace:
		return p.NewDocument, true
	case proposal.KindSingleEdit:
		if len(p.Edits) != 1 {
			return "", false
		}
		e := p.Edits[0]
		return fmt.Sprintf("Before:\n```\n%s\n```\nAfter:\n```\n%s\n```", e.OldFragment, e.NewFragment), true
	}
	return "", false
}

func writeSection(prompt *strings.Builder, title, body string) {
	fmt.Fprintf(prompt, "## %s:\n---\n%s\n---\n", title, body)
}
