package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"ai-text-editor-be/internal/dto"
	"ai-text-editor-be/internal/entity"
	"ai-text-editor-be/internal/model"
	"ai-text-editor-be/internal/pkg/inflight"
	"ai-text-editor-be/internal/pkg/logger"
	"ai-text-editor-be/internal/repository/memory"
	"ai-text-editor-be/internal/repository/unitofwork"
	editEvents "ai-text-editor-be/pkg/editing/events"
	"ai-text-editor-be/pkg/editing/gateway"
	"ai-text-editor-be/pkg/editing/message"
	"ai-text-editor-be/pkg/editing/state"
	"ai-text-editor-be/pkg/ingest"
	"ai-text-editor-be/pkg/proposal"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// stubGateway answers with queued proposals and records every request.
type stubGateway struct {
	mu        sync.Mutex
	responses []proposal.Proposal
	requests  []gateway.Request
	onPropose func()
}

func (g *stubGateway) queue(p ...proposal.Proposal) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.responses = append(g.responses, p...)
}

func (g *stubGateway) Propose(_ context.Context, req gateway.Request) proposal.Proposal {
	if g.onPropose != nil {
		g.onPropose()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if len(g.responses) == 0 {
		return proposal.NewFailed("no response queued")
	}
	p := g.responses[0]
	g.responses = g.responses[1:]
	return p
}

type harness struct {
	db       *gorm.DB
	svc      IEditorService
	gw       *stubGateway
	guard    *inflight.MemoryGuard
	recorder *editEvents.Recorder
	user     uuid.UUID
}

const revisionTopic = "DOCUMENT_REVISIONS"

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&model.EditSession{}, &model.EditMessage{}, &model.DocumentRevision{}))
	return db
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := newTestDB(t)
	return newHarnessWithDB(t, db)
}

func newHarnessWithDB(t *testing.T, db *gorm.DB) *harness {
	t.Helper()
	log := logger.NewNopLogger()
	uowFactory := unitofwork.NewRepositoryFactory(db)

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { pubSub.Close() })
	consumer := NewRevisionConsumer(pubSub, revisionTopic, uowFactory, log)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, consumer.Consume(ctx))

	h := &harness{
		db:       db,
		gw:       &stubGateway{},
		guard:    inflight.NewMemoryGuard(time.Minute),
		recorder: &editEvents.Recorder{},
		user:     uuid.New(),
	}
	messages := message.NewFactory(nil)
	h.svc = NewEditorService(
		uowFactory,
		memory.NewSessionRepository(time.Hour),
		h.guard,
		h.gw,
		state.NewManager(proposal.NewApplier(), messages, log),
		messages,
		ingest.NewIngester(1024, nil),
		NewRevisionPublisher(revisionTopic, pubSub),
		h.recorder,
		log,
		EditorOptions{PreviewWidth: 50, DiffContextLines: 1, DiffMaxLines: 1000},
	)
	return h
}

func (h *harness) create(t *testing.T, doc string) *dto.SessionResponse {
	t.Helper()
	res, err := h.svc.CreateSession(context.Background(), h.user, &dto.CreateSessionRequest{FileName: "notes.md", Document: &doc})
	require.NoError(t, err)
	return res
}

func (h *harness) send(t *testing.T, id uuid.UUID, text string, p proposal.Proposal) *dto.SendMessageResponse {
	t.Helper()
	h.gw.queue(p)
	res, err := h.svc.SendMessage(context.Background(), h.user, id, &dto.SendMessageRequest{Content: text})
	require.NoError(t, err)
	return res
}

func TestCreateSessionLoadsDocument(t *testing.T) {
	h := newHarness(t)
	res := h.create(t, "hello world")

	assert.Equal(t, "notes.md", res.Title)
	assert.Equal(t, "hello world", res.Document)
	assert.Equal(t, 1, res.Revision)
	assert.Nil(t, res.PendingProposal)

	history, err := h.svc.GetHistory(context.Background(), h.user, res.Id)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Loaded notes.md (11 characters).", history[0].Content)

	list, err := h.svc.ListSessions(context.Background(), h.user)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, res.Id, list[0].Id)
}

func TestCreateEmptySession(t *testing.T) {
	h := newHarness(t)
	res, err := h.svc.CreateSession(context.Background(), h.user, &dto.CreateSessionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "Untitled", res.Title)
	assert.Equal(t, 0, res.Revision)

	got, err := h.svc.GetSession(context.Background(), h.user, res.Id)
	require.NoError(t, err)
	assert.Equal(t, "", got.Document)
}

func TestSendPreviewApply(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	s := h.create(t, "The cat sat.\nOn the mat.\n")

	sent := h.send(t, s.Id, "cat -> dog", proposal.NewSingleEdit("cat", "dog"))
	assert.Equal(t, "proposal", sent.AssistantMessage.Type)
	require.NotNil(t, sent.Session.PendingProposal)
	assert.Equal(t, "single edit", sent.Session.PendingLabel)

	require.Len(t, h.gw.requests, 1)
	assert.Equal(t, "The cat sat.\nOn the mat.\n", h.gw.requests[0].CurrentDocument)
	assert.Equal(t, "cat -> dog", h.gw.requests[0].LatestInstruction)

	preview, err := h.svc.PreviewPending(ctx, h.user, s.Id)
	require.NoError(t, err)
	assert.True(t, preview.Valid)
	assert.Equal(t, "cat -> dog", preview.Summary)
	assert.Equal(t, 1, preview.Stats.Added)
	assert.Equal(t, 1, preview.Stats.Removed)

	applied, err := h.svc.ApplyPending(ctx, h.user, s.Id)
	require.NoError(t, err)
	assert.Equal(t, "Applied proposal (single edit).", applied.Summary)
	assert.Equal(t, "The dog sat.\nOn the mat.\n", applied.Session.Document)
	assert.Equal(t, 2, applied.Session.Revision)
	assert.Nil(t, applied.Session.PendingProposal)

	_, err = h.svc.ApplyPending(ctx, h.user, s.Id)
	assert.ErrorIs(t, err, ErrNoPendingProposal)

	assert.Equal(t, []string{"DOCUMENT_LOADED", "PROPOSAL_RECEIVED", "PROPOSAL_APPLIED"}, h.recorder.Types())

	assert.Eventually(t, func() bool {
		revs, err := h.svc.ListRevisions(ctx, h.user, s.Id)
		return err == nil && len(revs) == 2
	}, 2*time.Second, 20*time.Millisecond)

	revs, err := h.svc.ListRevisions(ctx, h.user, s.Id)
	require.NoError(t, err)
	assert.Equal(t, entity.RevisionSourceLoad, revs[0].Source)
	assert.Equal(t, entity.RevisionSourceApply, revs[1].Source)
	assert.Equal(t, "single_edit", revs[1].ProposalKind)
}

func TestApplyFailureIsRecordedAndPersisted(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	s := h.create(t, "a-b-a")
	h.send(t, s.Id, "replace a", proposal.NewSingleEdit("a", "A"))

	preview, err := h.svc.PreviewPending(ctx, h.user, s.Id)
	require.NoError(t, err)
	assert.False(t, preview.Valid)
	assert.Equal(t, []string{`fragment ambiguous, 2 occurrences: "a"`}, preview.Problems)

	_, err = h.svc.ApplyPending(ctx, h.user, s.Id)
	var applyErr *proposal.ApplyError
	require.ErrorAs(t, err, &applyErr)
	assert.ErrorIs(t, err, proposal.ErrAmbiguousFragment)

	// a fresh instance rebuilds the session from the database
	other := newHarnessWithDB(t, h.db)
	other.user = h.user
	got, err := other.svc.GetSession(ctx, h.user, s.Id)
	require.NoError(t, err)
	assert.Equal(t, "a-b-a", got.Document)
	require.NotNil(t, got.PendingProposal)
	assert.Equal(t, `fragment ambiguous, 2 occurrences: "a"`, got.LastError)

	history, err := other.svc.GetHistory(ctx, h.user, s.Id)
	require.NoError(t, err)
	last := history[len(history)-1]
	assert.Equal(t, "error", last.Type)
	assert.Equal(t, "system", last.Role)
}

func TestFeedbackRoundRecoversDecoratedFragment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	s := h.create(t, "- Buy fresh milk\n")

	h.send(t, s.Id, "add emoji", proposal.NewSingleEdit("Buy fresh milk", "🥛 Buy fresh milk"))
	fb, err := h.svc.StartFeedback(ctx, h.user, s.Id)
	require.NoError(t, err)
	assert.True(t, fb.FeedbackMode)

	sent := h.send(t, s.Id, "oat milk please", proposal.NewSingleEdit("🥛 Buy fresh milk", "🥛 Buy oat milk"))
	assert.True(t, sent.UserMessage.IsFeedback)
	assert.True(t, sent.Session.PendingFromFeedback)
	require.Len(t, h.gw.requests, 2)
	assert.True(t, h.gw.requests[1].IsFeedback)
	require.NotNil(t, h.gw.requests[1].PreviousProposal)

	applied, err := h.svc.ApplyPending(ctx, h.user, s.Id)
	require.NoError(t, err)
	assert.Equal(t, 1, applied.Recovered)
	assert.Equal(t, "- 🥛 Buy oat milk\n", applied.Session.Document)
}

func TestRejectAndCancelFeedback(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	s := h.create(t, "one two")

	_, err := h.svc.StartFeedback(ctx, h.user, s.Id)
	assert.ErrorIs(t, err, ErrNoPendingProposal)

	h.send(t, s.Id, "full", proposal.NewFullReplace("ONE TWO"))
	_, err = h.svc.StartFeedback(ctx, h.user, s.Id)
	require.NoError(t, err)
	res, err := h.svc.CancelFeedback(ctx, h.user, s.Id)
	require.NoError(t, err)
	assert.False(t, res.FeedbackMode)
	assert.NotNil(t, res.PendingProposal)

	res, err = h.svc.RejectPending(ctx, h.user, s.Id)
	require.NoError(t, err)
	assert.Nil(t, res.PendingProposal)
	assert.Equal(t, "one two", res.Document)

	history, err := h.svc.GetHistory(ctx, h.user, s.Id)
	require.NoError(t, err)
	assert.Equal(t, "Rejected proposal (full replace).", history[len(history)-1].Content)
	assert.Contains(t, h.recorder.Types(), "PROPOSAL_REJECTED")
}

func TestManualEditDiscardsPending(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	s := h.create(t, "alpha")
	h.send(t, s.Id, "caps", proposal.NewSingleEdit("alpha", "ALPHA"))

	res, err := h.svc.ManualEdit(ctx, h.user, s.Id, &dto.ManualEditRequest{Content: "beta"})
	require.NoError(t, err)
	assert.Equal(t, "beta", res.Document)
	assert.Nil(t, res.PendingProposal)

	history, err := h.svc.GetHistory(ctx, h.user, s.Id)
	require.NoError(t, err)
	assert.Equal(t, "Document edited manually. The pending proposal was discarded.", history[len(history)-1].Content)
}

func TestManualEditKeepsDecomposedText(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	s := h.create(t, "alpha")

	res, err := h.svc.ManualEdit(ctx, h.user, s.Id, &dto.ManualEditRequest{Content: "cafe\u0301"})
	require.NoError(t, err)
	assert.Equal(t, "cafe\u0301", res.Document)
	assert.Empty(t, res.Warnings)
}

func TestMalformedProposalIsNotRevivedAfterReload(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	s := h.create(t, "The cat sat.")

	p, err := proposal.Decode([]byte(`{"kind":"single_edit","old_fragment":"cat"}`))
	require.NoError(t, err)
	res := h.send(t, s.Id, "drop the cat", p)
	assert.Equal(t, "error", res.AssistantMessage.Type)
	assert.Nil(t, res.Session.PendingProposal)

	other := newHarnessWithDB(t, h.db)
	got, err := other.svc.GetSession(ctx, h.user, s.Id)
	require.NoError(t, err)
	assert.Nil(t, got.PendingProposal)

	_, err = other.svc.ApplyPending(ctx, h.user, s.Id)
	assert.ErrorIs(t, err, ErrNoPendingProposal)

	got, err = other.svc.GetSession(ctx, h.user, s.Id)
	require.NoError(t, err)
	assert.Equal(t, "The cat sat.", got.Document)
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	s := h.create(t, "The cat sat.")

	h.gw.onPropose = func() {
		_, err := h.svc.ManualEdit(ctx, h.user, s.Id, &dto.ManualEditRequest{Content: "The bird sang."})
		require.NoError(t, err)
	}
	h.gw.queue(proposal.NewSingleEdit("cat", "dog"))

	_, err := h.svc.SendMessage(ctx, h.user, s.Id, &dto.SendMessageRequest{Content: "cat -> dog"})
	assert.ErrorIs(t, err, ErrStaleResponse)

	got, err := h.svc.GetSession(ctx, h.user, s.Id)
	require.NoError(t, err)
	assert.Equal(t, "The bird sang.", got.Document)
	assert.Nil(t, got.PendingProposal)
}

func TestSendWhileBusy(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	s := h.create(t, "x")

	release, err := h.guard.Acquire(ctx, s.Id.String())
	require.NoError(t, err)
	defer release()

	_, err = h.svc.SendMessage(ctx, h.user, s.Id, &dto.SendMessageRequest{Content: "go"})
	assert.ErrorIs(t, err, ErrSessionBusy)
	assert.Empty(t, h.gw.requests)
}

func TestFailedGatewayResponse(t *testing.T) {
	h := newHarness(t)
	s := h.create(t, "x")
	sent := h.send(t, s.Id, "go", proposal.NewFailed("Could not reach the AI service."))

	assert.Equal(t, "error", sent.AssistantMessage.Type)
	assert.Equal(t, "Could not reach the AI service.", sent.Session.LastError)
	assert.Contains(t, h.recorder.Types(), "PROPOSAL_FAILED")
}

func TestSessionsAreIsolatedPerUser(t *testing.T) {
	h := newHarness(t)
	s := h.create(t, "private")

	stranger := uuid.New()
	_, err := h.svc.GetSession(context.Background(), stranger, s.Id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = h.svc.ApplyPending(context.Background(), stranger, s.Id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestLoadDocumentResetsHistory(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	s := h.create(t, "first")
	h.send(t, s.Id, "hi", proposal.NewInformational(proposal.KindConversational, "Hello!"))

	res, err := h.svc.LoadDocument(ctx, h.user, s.Id, &dto.LoadDocumentRequest{FileName: "main.go", Content: "package main"})
	require.NoError(t, err)
	assert.Equal(t, "package main", res.Document)
	assert.Len(t, res.Warnings, 1)

	other := newHarnessWithDB(t, h.db)
	history, err := other.svc.GetHistory(ctx, h.user, s.Id)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Loaded main.go (12 characters).", history[0].Content)
}

func TestUploadTooLarge(t *testing.T) {
	h := newHarness(t)
	s := h.create(t, "x")
	_, err := h.svc.UploadDocument(context.Background(), h.user, s.Id, "big.txt", strings.NewReader(strings.Repeat("a", 2048)))
	assert.ErrorIs(t, err, ingest.ErrTooLarge)
	assert.ErrorIs(t, err, ErrDocumentInvalid)
}

func TestDeleteSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	s := h.create(t, "bye")

	require.NoError(t, h.svc.DeleteSession(ctx, h.user, s.Id))
	_, err := h.svc.GetSession(ctx, h.user, s.Id)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	list, err := h.svc.ListSessions(ctx, h.user)
	require.NoError(t, err)
	assert.Empty(t, list)
}
