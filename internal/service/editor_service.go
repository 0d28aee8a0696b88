package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"ai-text-editor-be/internal/dto"
	"ai-text-editor-be/internal/entity"
	"ai-text-editor-be/internal/pkg/inflight"
	"ai-text-editor-be/internal/pkg/logger"
	"ai-text-editor-be/internal/repository/memory"
	"ai-text-editor-be/internal/repository/specification"
	"ai-text-editor-be/internal/repository/unitofwork"
	editEvents "ai-text-editor-be/pkg/editing/events"
	"ai-text-editor-be/pkg/editing/gateway"
	"ai-text-editor-be/pkg/editing/message"
	"ai-text-editor-be/pkg/editing/state"
	"ai-text-editor-be/pkg/ingest"
	"ai-text-editor-be/pkg/proposal"
	"ai-text-editor-be/pkg/store"
	"ai-text-editor-be/pkg/textdiff"

	"github.com/google/uuid"
)

type IEditorService interface {
	CreateSession(ctx context.Context, userId uuid.UUID, req *dto.CreateSessionRequest) (*dto.SessionResponse, error)
	ListSessions(ctx context.Context, userId uuid.UUID) ([]*dto.SessionSummaryResponse, error)
	GetSession(ctx context.Context, userId, id uuid.UUID) (*dto.SessionResponse, error)
	GetHistory(ctx context.Context, userId, id uuid.UUID) ([]dto.MessageResponse, error)
	ListRevisions(ctx context.Context, userId, id uuid.UUID) ([]*dto.RevisionResponse, error)
	LoadDocument(ctx context.Context, userId, id uuid.UUID, req *dto.LoadDocumentRequest) (*dto.SessionResponse, error)
	UploadDocument(ctx context.Context, userId, id uuid.UUID, fileName string, r io.Reader) (*dto.SessionResponse, error)
	ManualEdit(ctx context.Context, userId, id uuid.UUID, req *dto.ManualEditRequest) (*dto.SessionResponse, error)
	SendMessage(ctx context.Context, userId, id uuid.UUID, req *dto.SendMessageRequest) (*dto.SendMessageResponse, error)
	StartFeedback(ctx context.Context, userId, id uuid.UUID) (*dto.SessionResponse, error)
	CancelFeedback(ctx context.Context, userId, id uuid.UUID) (*dto.SessionResponse, error)
	PreviewPending(ctx context.Context, userId, id uuid.UUID) (*dto.PreviewResponse, error)
	ApplyPending(ctx context.Context, userId, id uuid.UUID) (*dto.ApplyResponse, error)
	RejectPending(ctx context.Context, userId, id uuid.UUID) (*dto.SessionResponse, error)
	DeleteSession(ctx context.Context, userId, id uuid.UUID) error
}

type EditorOptions struct {
	PreviewWidth     int
	DiffContextLines int
	DiffMaxLines     int
}

type editorService struct {
	uowFactory unitofwork.RepositoryFactory
	sessions   *memory.SessionRepository
	guard      inflight.Guard
	gateway    gateway.Gateway
	manager    *state.Manager
	messages   *message.Factory
	ingester   *ingest.Ingester
	revisions  IRevisionPublisher
	events     editEvents.Publisher
	logger     logger.ILogger
	options    EditorOptions
	locks      sessionLocks
}

func NewEditorService(
	uowFactory unitofwork.RepositoryFactory,
	sessions *memory.SessionRepository,
	guard inflight.Guard,
	gw gateway.Gateway,
	manager *state.Manager,
	messages *message.Factory,
	ingester *ingest.Ingester,
	revisions IRevisionPublisher,
	events editEvents.Publisher,
	logger logger.ILogger,
	options EditorOptions,
) IEditorService {
	return &editorService{
		uowFactory: uowFactory,
		sessions:   sessions,
		guard:      guard,
		gateway:    gw,
		manager:    manager,
		messages:   messages,
		ingester:   ingester,
		revisions:  revisions,
		events:     events,
		logger:     logger,
		options:    options,
		locks:      sessionLocks{m: make(map[string]*sync.Mutex)},
	}
}

func (s *editorService) CreateSession(ctx context.Context, userId uuid.UUID, req *dto.CreateSessionRequest) (*dto.SessionResponse, error) {
	var doc *ingest.Document
	if req.Document != nil {
		var err error
		if doc, err = s.ingest(req.FileName, []byte(*req.Document)); err != nil {
			return nil, err
		}
	}

	title := req.Title
	if title == "" {
		title = req.FileName
	}
	if title == "" {
		title = "Untitled"
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	session := entity.EditSession{
		Id:        uuid.New(),
		UserId:    userId,
		Title:     title,
		FileName:  req.FileName,
		CreatedAt: time.Now(),
	}
	if err := uow.EditSessionRepository().Create(ctx, &session); err != nil {
		return nil, err
	}

	sess := sessionFromEntity(&session, nil)
	if doc == nil {
		s.sessions.Save(sess)
		return sessionResponse(sess, nil), nil
	}

	unlock := s.locks.lock(sess.ID)
	defer unlock()
	if err := s.loadDocument(ctx, sess, doc); err != nil {
		return nil, err
	}
	return sessionResponse(sess, doc.Warnings), nil
}

func (s *editorService) ListSessions(ctx context.Context, userId uuid.UUID) ([]*dto.SessionSummaryResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	sessions, err := uow.EditSessionRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "updated_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	result := make([]*dto.SessionSummaryResponse, 0, len(sessions))
	for _, e := range sessions {
		result = append(result, &dto.SessionSummaryResponse{
			Id:         e.Id,
			Title:      e.Title,
			FileName:   e.FileName,
			Revision:   e.Revision,
			HasPending: e.PendingProposal != nil,
			CreatedAt:  e.CreatedAt,
			UpdatedAt:  e.UpdatedAt,
		})
	}
	return result, nil
}

func (s *editorService) GetSession(ctx context.Context, userId, id uuid.UUID) (*dto.SessionResponse, error) {
	sess, err := s.load(ctx, userId, id)
	if err != nil {
		return nil, err
	}
	return sessionResponse(sess, nil), nil
}

func (s *editorService) GetHistory(ctx context.Context, userId, id uuid.UUID) ([]dto.MessageResponse, error) {
	sess, err := s.load(ctx, userId, id)
	if err != nil {
		return nil, err
	}
	result := make([]dto.MessageResponse, 0, len(sess.History))
	for _, msg := range sess.History {
		result = append(result, messageResponse(msg))
	}
	return result, nil
}

func (s *editorService) ListRevisions(ctx context.Context, userId, id uuid.UUID) ([]*dto.RevisionResponse, error) {
	if _, err := s.load(ctx, userId, id); err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	revisions, err := uow.DocumentRevisionRepository().FindAll(ctx,
		specification.ByEditSessionID{EditSessionID: id},
		specification.OrderBy{Field: "revision"},
	)
	if err != nil {
		return nil, err
	}

	result := make([]*dto.RevisionResponse, 0, len(revisions))
	for _, r := range revisions {
		result = append(result, &dto.RevisionResponse{
			Revision:     r.Revision,
			Source:       r.Source,
			ProposalKind: r.ProposalKind,
			Length:       len([]rune(r.Content)),
			CreatedAt:    r.CreatedAt,
		})
	}
	return result, nil
}

func (s *editorService) LoadDocument(ctx context.Context, userId, id uuid.UUID, req *dto.LoadDocumentRequest) (*dto.SessionResponse, error) {
	doc, err := s.ingest(req.FileName, []byte(req.Content))
	if err != nil {
		return nil, err
	}
	return s.replaceDocument(ctx, userId, id, doc)
}

func (s *editorService) UploadDocument(ctx context.Context, userId, id uuid.UUID, fileName string, r io.Reader) (*dto.SessionResponse, error) {
	doc, err := s.ingester.Read(fileName, r)
	if err != nil {
		return nil, errors.Join(ErrDocumentInvalid, err)
	}
	return s.replaceDocument(ctx, userId, id, doc)
}

func (s *editorService) replaceDocument(ctx context.Context, userId, id uuid.UUID, doc *ingest.Document) (*dto.SessionResponse, error) {
	unlock := s.locks.lock(id.String())
	defer unlock()

	sess, err := s.load(ctx, userId, id)
	if err != nil {
		return nil, err
	}
	if err := s.loadDocument(ctx, sess, doc); err != nil {
		return nil, err
	}
	return sessionResponse(sess, doc.Warnings), nil
}

// loadDocument runs the load transition and persists it. Caller holds the
// session lock.
func (s *editorService) loadDocument(ctx context.Context, sess *store.Session, doc *ingest.Document) error {
	s.manager.LoadDocument(sess, doc.FileName, doc.Text)
	if doc.FileName != "" {
		sess.Title = doc.FileName
	}
	if err := s.persist(ctx, sess, 0, true); err != nil {
		return err
	}

	s.publishRevision(ctx, sess, entity.RevisionSourceLoad, "")
	s.events.PublishDocumentLoaded(ctx, sess.ID, sess.UserID, sess.FileName, sess.Revision, len([]rune(sess.Document)))
	return nil
}

func (s *editorService) ManualEdit(ctx context.Context, userId, id uuid.UUID, req *dto.ManualEditRequest) (*dto.SessionResponse, error) {
	doc, err := s.ingest("", []byte(req.Content))
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(id.String())
	defer unlock()

	sess, err := s.load(ctx, userId, id)
	if err != nil {
		return nil, err
	}

	from := len(sess.History)
	hadPending := sess.HasPending()
	s.manager.ManualEdit(sess, doc.Text)
	if err := s.persist(ctx, sess, from, false); err != nil {
		return nil, err
	}

	s.publishRevision(ctx, sess, entity.RevisionSourceManualEdit, "")
	s.events.PublishDocumentEdited(ctx, sess.ID, sess.UserID, sess.Revision, hadPending)
	return sessionResponse(sess, doc.Warnings), nil
}

// SendMessage runs one round trip to the AI gateway. The session lock is
// held only around the two state transitions, never across the gateway
// call; the busy guard keeps a second send out in the meantime.
func (s *editorService) SendMessage(ctx context.Context, userId, id uuid.UUID, req *dto.SendMessageRequest) (*dto.SendMessageResponse, error) {
	release, err := s.guard.Acquire(ctx, id.String())
	if err != nil {
		if errors.Is(err, inflight.ErrBusy) {
			return nil, ErrSessionBusy
		}
		return nil, err
	}
	defer release()

	out, err := s.beginSend(ctx, userId, id, req.Content)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	p := s.gateway.Propose(ctx, out.Request)
	s.logger.Info("EDITOR", "Gateway responded", map[string]interface{}{
		"session_id":  id,
		"kind":        p.Kind,
		"is_feedback": out.Request.IsFeedback,
		"duration_ms": time.Since(started).Milliseconds(),
	})

	// the client may be gone; the answer is still recorded
	persistCtx := context.WithoutCancel(ctx)

	unlock := s.locks.lock(id.String())
	defer unlock()

	sess, err := s.load(persistCtx, userId, id)
	if err != nil {
		return nil, err
	}
	from := len(sess.History)
	reply, err := s.manager.ReceiveProposal(sess, out, p)
	if err != nil {
		return nil, err
	}
	if err := s.persist(persistCtx, sess, from, false); err != nil {
		return nil, err
	}

	if reply.Type == store.TypeError {
		s.events.PublishProposalFailed(persistCtx, sess.ID, sess.UserID, p.Kind, reply.Content)
	} else {
		s.events.PublishProposalReceived(persistCtx, sess.ID, sess.UserID, p.Kind, out.Request.IsFeedback)
	}

	return &dto.SendMessageResponse{
		UserMessage:      messageResponse(out.Message),
		AssistantMessage: messageResponse(reply),
		Session:          sessionResponse(sess, nil),
	}, nil
}

func (s *editorService) beginSend(ctx context.Context, userId, id uuid.UUID, text string) (state.Outgoing, error) {
	unlock := s.locks.lock(id.String())
	defer unlock()

	sess, err := s.load(ctx, userId, id)
	if err != nil {
		return state.Outgoing{}, err
	}
	from := len(sess.History)
	out, err := s.manager.BeginSend(sess, text)
	if err != nil {
		return state.Outgoing{}, err
	}
	if err := s.persist(ctx, sess, from, false); err != nil {
		return state.Outgoing{}, err
	}
	return out, nil
}

func (s *editorService) StartFeedback(ctx context.Context, userId, id uuid.UUID) (*dto.SessionResponse, error) {
	return s.mutate(ctx, userId, id, s.manager.StartFeedback)
}

func (s *editorService) CancelFeedback(ctx context.Context, userId, id uuid.UUID) (*dto.SessionResponse, error) {
	return s.mutate(ctx, userId, id, func(sess *store.Session) error {
		s.manager.CancelFeedback(sess)
		return nil
	})
}

func (s *editorService) RejectPending(ctx context.Context, userId, id uuid.UUID) (*dto.SessionResponse, error) {
	var kind proposal.Kind
	res, err := s.mutate(ctx, userId, id, func(sess *store.Session) error {
		var err error
		kind, err = s.manager.RejectPending(sess)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.events.PublishProposalRejected(ctx, res.Id.String(), userId.String(), kind)
	return res, nil
}

// mutate runs a transition that neither changes the document nor needs
// extra side effects.
func (s *editorService) mutate(ctx context.Context, userId, id uuid.UUID, transition func(*store.Session) error) (*dto.SessionResponse, error) {
	unlock := s.locks.lock(id.String())
	defer unlock()

	sess, err := s.load(ctx, userId, id)
	if err != nil {
		return nil, err
	}
	from := len(sess.History)
	if err := transition(sess); err != nil {
		return nil, err
	}
	if err := s.persist(ctx, sess, from, false); err != nil {
		return nil, err
	}
	return sessionResponse(sess, nil), nil
}

func (s *editorService) PreviewPending(ctx context.Context, userId, id uuid.UUID) (*dto.PreviewResponse, error) {
	sess, err := s.load(ctx, userId, id)
	if err != nil {
		return nil, err
	}
	if !sess.HasPending() {
		return nil, ErrNoPendingProposal
	}

	pending := *sess.Pending
	res := &dto.PreviewResponse{
		Kind:    pending.Kind,
		Label:   pending.Kind.Label(),
		Summary: pending.Preview(s.options.PreviewWidth),
	}

	result, err := s.manager.PreviewPending(sess)
	if err != nil {
		var applyErr *proposal.ApplyError
		if !errors.As(err, &applyErr) {
			return nil, err
		}
		res.Problems = applyErr.Messages()
		return res, nil
	}

	res.Valid = true
	res.Recovered = result.Recovered()
	res.Hunks, res.Truncated = textdiff.HunksWithLimit(sess.Document, result.Document, s.options.DiffContextLines, s.options.DiffMaxLines)
	res.Stats = textdiff.Count(res.Hunks)
	return res, nil
}

// ApplyPending commits the pending proposal. A validation failure is
// recorded in the history and returned as *proposal.ApplyError.
func (s *editorService) ApplyPending(ctx context.Context, userId, id uuid.UUID) (*dto.ApplyResponse, error) {
	unlock := s.locks.lock(id.String())
	defer unlock()

	sess, err := s.load(ctx, userId, id)
	if err != nil {
		return nil, err
	}
	if !sess.HasPending() {
		return nil, ErrNoPendingProposal
	}

	from := len(sess.History)
	kind := sess.Pending.Kind
	result, applyErr := s.manager.ApplyPending(sess)
	if err := s.persist(ctx, sess, from, false); err != nil {
		return nil, err
	}
	if applyErr != nil {
		s.events.PublishProposalFailed(ctx, sess.ID, sess.UserID, kind, applyErr.Error())
		return nil, applyErr
	}

	s.publishRevision(ctx, sess, entity.RevisionSourceApply, string(result.Kind))
	s.events.PublishProposalApplied(ctx, sess.ID, sess.UserID, result.Kind, len(result.Edits), result.Recovered(), sess.Revision)

	return &dto.ApplyResponse{
		Kind:      result.Kind,
		Summary:   result.Summary,
		Edits:     len(result.Edits),
		Recovered: result.Recovered(),
		Session:   sessionResponse(sess, nil),
	}, nil
}

func (s *editorService) DeleteSession(ctx context.Context, userId, id uuid.UUID) error {
	unlock := s.locks.lock(id.String())
	defer unlock()

	if _, err := s.load(ctx, userId, id); err != nil {
		return err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	if err := uow.EditMessageRepository().DeleteBySessionId(ctx, id); err != nil {
		uow.Rollback()
		return err
	}
	if err := uow.EditSessionRepository().Delete(ctx, id); err != nil {
		uow.Rollback()
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	s.sessions.Delete(id.String())
	s.logger.Info("EDITOR", "Session deleted", map[string]interface{}{"session_id": id})
	return nil
}

// load returns a private copy of the session, from the cache or rebuilt
// from the database.
func (s *editorService) load(ctx context.Context, userId, id uuid.UUID) (*store.Session, error) {
	if sess, ok := s.sessions.Get(id.String()); ok {
		if sess.UserID != userId.String() {
			return nil, ErrSessionNotFound
		}
		return sess, nil
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	session, err := uow.EditSessionRepository().FindOne(ctx,
		specification.ByID{ID: id},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	messages, err := uow.EditMessageRepository().FindAll(ctx,
		specification.ByEditSessionID{EditSessionID: id},
		specification.OrderBy{Field: "position"},
	)
	if err != nil {
		return nil, err
	}

	history := make([]store.Message, 0, len(messages))
	for _, m := range messages {
		history = append(history, s.messages.FromEntity(m))
	}
	sess := sessionFromEntity(session, history)
	s.sessions.Save(sess.Clone())
	return sess, nil
}

// persist writes the session row and the history entries from index `from`
// on, then publishes the new snapshot to the cache. resetHistory drops the
// stored history first.
func (s *editorService) persist(ctx context.Context, sess *store.Session, from int, resetHistory bool) error {
	id := uuid.MustParse(sess.ID)

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}

	session := sessionToEntity(sess)
	if err := uow.EditSessionRepository().Update(ctx, session); err != nil {
		uow.Rollback()
		return err
	}
	if resetHistory {
		if err := uow.EditMessageRepository().DeleteBySessionId(ctx, id); err != nil {
			uow.Rollback()
			return err
		}
	}
	if err := s.messages.SaveMessages(ctx, uow, id, sess.History, from); err != nil {
		uow.Rollback()
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	if session.UpdatedAt != nil {
		sess.UpdatedAt = *session.UpdatedAt
	}
	s.sessions.Save(sess.Clone())
	return nil
}

func (s *editorService) publishRevision(ctx context.Context, sess *store.Session, source, kind string) {
	err := s.revisions.Publish(ctx, dto.PublishRevisionMessage{
		EditSessionId: uuid.MustParse(sess.ID),
		UserId:        uuid.MustParse(sess.UserID),
		Revision:      sess.Revision,
		Source:        source,
		ProposalKind:  kind,
		Content:       sess.Document,
	})
	if err != nil {
		s.logger.Error("EDITOR", "Failed to queue document revision", map[string]interface{}{
			"session_id": sess.ID,
			"revision":   sess.Revision,
			"error":      err.Error(),
		})
	}
}

func (s *editorService) ingest(fileName string, data []byte) (*ingest.Document, error) {
	doc, err := s.ingester.Decode(fileName, data)
	if err != nil {
		return nil, errors.Join(ErrDocumentInvalid, err)
	}
	return doc, nil
}

// sessionLocks hands out one mutex per session id.
type sessionLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (l *sessionLocks) lock(id string) func() {
	l.mu.Lock()
	mu, ok := l.m[id]
	if !ok {
		mu = &sync.Mutex{}
		l.m[id] = mu
	}
	l.mu.Unlock()

	mu.Lock()
	return mu.Unlock
}

func sessionFromEntity(e *entity.EditSession, history []store.Message) *store.Session {
	sess := store.NewSession(e.Id.String(), e.UserId.String())
	sess.Title = e.Title
	sess.FileName = e.FileName
	sess.Document = e.Document
	sess.Revision = e.Revision
	sess.Pending = e.PendingProposal
	sess.PendingFromFeedback = e.PendingFromFeedback
	sess.FeedbackMode = e.FeedbackMode
	sess.LastError = e.LastError
	sess.CreatedAt = e.CreatedAt
	if e.UpdatedAt != nil {
		sess.UpdatedAt = *e.UpdatedAt
	}
	sess.History = history
	for _, msg := range history {
		if msg.IsFeedback {
			sess.FeedbackMessageIDs[msg.ID] = struct{}{}
		}
	}
	return sess
}

func sessionToEntity(sess *store.Session) *entity.EditSession {
	var pending *proposal.Proposal
	if sess.Pending != nil {
		cp := *sess.Pending
		pending = &cp
	}
	return &entity.EditSession{
		Id:                  uuid.MustParse(sess.ID),
		UserId:              uuid.MustParse(sess.UserID),
		Title:               sess.Title,
		FileName:            sess.FileName,
		Document:            sess.Document,
		Revision:            sess.Revision,
		PendingProposal:     pending,
		PendingFromFeedback: sess.PendingFromFeedback,
		FeedbackMode:        sess.FeedbackMode,
		LastError:           sess.LastError,
		CreatedAt:           sess.CreatedAt,
	}
}

func sessionResponse(sess *store.Session, warnings []string) *dto.SessionResponse {
	res := &dto.SessionResponse{
		Id:                  uuid.MustParse(sess.ID),
		Title:               sess.Title,
		FileName:            sess.FileName,
		Document:            sess.Document,
		Revision:            sess.Revision,
		PendingProposal:     sess.Pending,
		PendingFromFeedback: sess.PendingFromFeedback,
		FeedbackMode:        sess.FeedbackMode,
		LastError:           sess.LastError,
		Warnings:            warnings,
		CreatedAt:           sess.CreatedAt,
		UpdatedAt:           sess.UpdatedAt,
	}
	if sess.Pending != nil {
		res.PendingLabel = sess.Pending.Kind.Label()
	}
	return res
}

func messageResponse(msg store.Message) dto.MessageResponse {
	return dto.MessageResponse{
		Id:         msg.ID,
		Role:       string(msg.Role),
		Type:       string(msg.Type),
		Content:    msg.Content,
		Proposal:   msg.Proposal,
		IsFeedback: msg.IsFeedback,
		CreatedAt:  msg.CreatedAt,
	}
}
