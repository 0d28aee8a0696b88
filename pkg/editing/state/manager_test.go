package state

import (
	"testing"
	"time"

	"ai-text-editor-be/internal/pkg/logger"
	"ai-text-editor-be/pkg/editing/message"
	"ai-text-editor-be/pkg/proposal"
	"ai-text-editor-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager() *Manager {
	clock := func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return NewManager(proposal.NewApplier(), message.NewFactory(clock), logger.NewNopLogger())
}

func loaded(m *Manager, doc string) *store.Session {
	s := store.NewSession("s1", "u1")
	m.LoadDocument(s, "notes.md", doc)
	return s
}

func TestLoadDocumentResetsState(t *testing.T) {
	m := newManager()
	s := loaded(m, "first")
	pending := proposal.NewSingleEdit("first", "1st")
	s.Pending = &pending
	s.FeedbackMode = true
	s.History = append(s.History, store.Message{Type: store.TypeNormal, Role: store.RoleUser, Content: "hi"})

	m.LoadDocument(s, "other.txt", "second")

	assert.Equal(t, "second", s.Document)
	assert.Equal(t, "other.txt", s.FileName)
	assert.Nil(t, s.Pending)
	assert.False(t, s.FeedbackMode)
	require.Len(t, s.History, 1)
	assert.Equal(t, store.TypeSystemInfo, s.History[0].Type)
	assert.Equal(t, 2, s.Revision)
}

func TestSendReceiveApply(t *testing.T) {
	m := newManager()
	s := loaded(m, "The cat sat.")

	out, err := m.BeginSend(s, "make it a dog")
	require.NoError(t, err)
	assert.False(t, out.Request.IsFeedback)
	assert.Nil(t, out.Request.PreviousProposal)
	assert.Empty(t, out.Request.History, "system notes and the message just sent are not forwarded")
	assert.Equal(t, "The cat sat.", out.Request.CurrentDocument)

	_, err = m.ReceiveProposal(s, out, proposal.NewSingleEdit("cat", "dog"))
	require.NoError(t, err)
	require.True(t, s.HasPending())
	assert.False(t, s.PendingFromFeedback)

	result, err := m.ApplyPending(s)
	require.NoError(t, err)
	assert.Equal(t, "The dog sat.", result.Document)
	assert.Equal(t, "The dog sat.", s.Document)
	assert.False(t, s.HasPending())

	last, _ := s.LastMessage()
	assert.Equal(t, "Applied proposal (single edit).", last.Content)
	assert.Equal(t, store.TypeSystemInfo, last.Type)
}

func TestNonMutatingResponseClearsPending(t *testing.T) {
	m := newManager()
	s := loaded(m, "text")
	pending := proposal.NewFullReplace("TEXT")
	s.Pending = &pending
	require.NoError(t, m.StartFeedback(s))

	out, err := m.BeginSend(s, "hmm, not sure")
	require.NoError(t, err)
	assert.True(t, out.Request.IsFeedback)

	msg, err := m.ReceiveProposal(s, out, proposal.NewInformational(proposal.KindNeedsClarification, "What tone?"))
	require.NoError(t, err)
	assert.Equal(t, "What tone?", msg.Content)
	assert.Nil(t, s.Pending)

	_, err = m.ApplyPending(s)
	assert.ErrorIs(t, err, ErrNoPendingProposal)
}

func TestFreshInstructionDropsPending(t *testing.T) {
	m := newManager()
	s := loaded(m, "alpha beta")
	pending := proposal.NewSingleEdit("alpha", "A")
	s.Pending = &pending

	out, err := m.BeginSend(s, "something else entirely")
	require.NoError(t, err)
	assert.False(t, out.Request.IsFeedback)
	assert.Nil(t, s.Pending)
}

func TestFeedbackRoundEnablesDriftRecovery(t *testing.T) {
	m := newManager()
	s := loaded(m, "- Buy fresh milk\n- Walk the dog\n")

	out, err := m.BeginSend(s, "add emoji")
	require.NoError(t, err)
	_, err = m.ReceiveProposal(s, out, proposal.NewSingleEdit("Buy fresh milk", "🥛 Buy fresh milk"))
	require.NoError(t, err)

	require.NoError(t, m.StartFeedback(s))
	out, err = m.BeginSend(s, "use oat milk instead")
	require.NoError(t, err)
	require.True(t, out.Request.IsFeedback)
	require.NotNil(t, out.Request.PreviousProposal)
	assert.Equal(t, proposal.KindSingleEdit, out.Request.PreviousProposal.Kind)
	assert.True(t, s.IsFeedbackMessage(out.Message.ID))
	assert.False(t, s.FeedbackMode)

	// history holds the first instruction and the proposal JSON
	require.Len(t, out.Request.History, 2)
	assert.Equal(t, "assistant", out.Request.History[1].Role)
	assert.JSONEq(t, `{"kind":"single_edit","old_fragment":"Buy fresh milk","new_fragment":"🥛 Buy fresh milk"}`, out.Request.History[1].Content)

	// the model echoes the decorated text that never reached the document
	_, err = m.ReceiveProposal(s, out, proposal.NewSingleEdit("🥛 Buy fresh milk", "🥛 Buy oat milk"))
	require.NoError(t, err)
	require.True(t, s.PendingFromFeedback)

	result, err := m.ApplyPending(s)
	require.NoError(t, err)
	assert.Equal(t, "- 🥛 Buy oat milk\n- Walk the dog\n", s.Document)
	assert.Equal(t, 1, result.Recovered())
}

func TestApplyFailureKeepsDocumentAndDeduplicatesError(t *testing.T) {
	m := newManager()
	s := loaded(m, "aXbXc")
	out, err := m.BeginSend(s, "replace X")
	require.NoError(t, err)
	_, err = m.ReceiveProposal(s, out, proposal.NewSingleEdit("X", "Y"))
	require.NoError(t, err)

	historyLen := len(s.History)
	_, err = m.ApplyPending(s)
	require.ErrorIs(t, err, proposal.ErrAmbiguousFragment)
	assert.Equal(t, "aXbXc", s.Document)
	assert.True(t, s.HasPending())
	require.Len(t, s.History, historyLen+1)
	assert.Equal(t, store.TypeError, s.History[historyLen].Type)

	_, err = m.ApplyPending(s)
	require.Error(t, err)
	assert.Len(t, s.History, historyLen+1)
	assert.Equal(t, err.Error(), s.LastError)
}

func TestRejectPending(t *testing.T) {
	m := newManager()
	s := loaded(m, "one two three")
	pending := proposal.NewMultiEdit(proposal.Edit{OldFragment: "one", NewFragment: "1"})
	s.Pending = &pending

	kind, err := m.RejectPending(s)
	require.NoError(t, err)
	assert.Equal(t, proposal.KindMultiEdit, kind)
	assert.Equal(t, "one two three", s.Document)
	last, _ := s.LastMessage()
	assert.Equal(t, "Rejected proposal (multi edit).", last.Content)

	_, err = m.RejectPending(s)
	assert.ErrorIs(t, err, ErrNoPendingProposal)
}

func TestManualEditInvalidatesPendingAndInFlight(t *testing.T) {
	m := newManager()
	s := loaded(m, "The cat sat.")
	out, err := m.BeginSend(s, "cat -> dog")
	require.NoError(t, err)

	m.ManualEdit(s, "The bird sang.")
	assert.Equal(t, "The bird sang.", s.Document)

	_, err = m.ReceiveProposal(s, out, proposal.NewSingleEdit("cat", "dog"))
	assert.ErrorIs(t, err, ErrStaleResponse)
	assert.Nil(t, s.Pending)
	assert.Equal(t, "The bird sang.", s.Document)
}

func TestFailedResponseIsRecorded(t *testing.T) {
	m := newManager()
	s := loaded(m, "x")
	out, err := m.BeginSend(s, "go")
	require.NoError(t, err)

	msg, err := m.ReceiveProposal(s, out, proposal.NewFailed("Could not reach the AI service."))
	require.NoError(t, err)
	assert.Equal(t, store.TypeError, msg.Type)
	assert.Equal(t, store.RoleAssistant, msg.Role)
	assert.Equal(t, "Could not reach the AI service.", s.LastError)
	assert.Nil(t, s.Pending)
}

func TestStartFeedbackRequiresPending(t *testing.T) {
	m := newManager()
	s := loaded(m, "x")
	assert.ErrorIs(t, m.StartFeedback(s), ErrNoPendingProposal)

	_, err := m.BeginSend(s, "   ")
	assert.ErrorIs(t, err, ErrEmptyInstruction)
}

func TestPreviewPendingDoesNotMutate(t *testing.T) {
	m := newManager()
	s := loaded(m, "one two")
	_, err := m.PreviewPending(s)
	assert.ErrorIs(t, err, ErrNoPendingProposal)

	pending := proposal.NewSingleEdit("two", "2")
	s.Pending = &pending
	historyLen := len(s.History)

	result, err := m.PreviewPending(s)
	require.NoError(t, err)
	assert.Equal(t, "one 2", result.Document)
	assert.Equal(t, "one two", s.Document)
	assert.True(t, s.HasPending())
	assert.Len(t, s.History, historyLen)
}

func TestMalformedProposalIsRecordedAsFailed(t *testing.T) {
	m := newManager()
	s := loaded(m, "The cat sat.")
	out, err := m.BeginSend(s, "drop the cat")
	require.NoError(t, err)

	p, err := proposal.Decode([]byte(`{"kind":"single_edit","old_fragment":"cat"}`))
	require.NoError(t, err)

	msg, err := m.ReceiveProposal(s, out, p)
	require.NoError(t, err)
	assert.Nil(t, s.Pending)
	assert.False(t, s.HasPending())
	assert.Equal(t, store.TypeError, msg.Type)
	assert.Equal(t, "malformed proposal: new_fragment is missing", s.LastError)
	assert.Equal(t, "The cat sat.", s.Document)

	_, err = m.ApplyPending(s)
	assert.ErrorIs(t, err, ErrNoPendingProposal)
}

func TestGatewayHistoryForwardsApplyErrors(t *testing.T) {
	m := newManager()
	s := loaded(m, "aXbXc")
	out, err := m.BeginSend(s, "replace X")
	require.NoError(t, err)
	_, err = m.ReceiveProposal(s, out, proposal.NewSingleEdit("X", "Y"))
	require.NoError(t, err)
	_, err = m.ApplyPending(s)
	require.ErrorIs(t, err, proposal.ErrAmbiguousFragment)

	entries := GatewayHistory(s.History)
	require.Len(t, entries, 3)
	assert.Equal(t, "user", entries[0].Role)
	assert.Equal(t, "assistant", entries[1].Role)
	assert.Equal(t, "system", entries[2].Role)
	assert.Equal(t, s.LastError, entries[2].Content)

	for _, e := range entries {
		assert.NotContains(t, e.Content, "notes.md", "load notices stay out of the model context")
	}
}
