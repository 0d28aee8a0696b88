package events

import (
	"context"
	"sync"
	"time"

	"ai-text-editor-be/internal/pkg/logger"
	pkgEvents "ai-text-editor-be/pkg/events"
	pktNats "ai-text-editor-be/pkg/nats"
	"ai-text-editor-be/pkg/proposal"
)

// Publisher announces editor activity. Implementations never fail the
// caller; delivery problems are logged.
type Publisher interface {
	PublishDocumentLoaded(ctx context.Context, sessionID, userID, fileName string, revision, length int)
	PublishDocumentEdited(ctx context.Context, sessionID, userID string, revision int, discardedPending bool)
	PublishProposalReceived(ctx context.Context, sessionID, userID string, kind proposal.Kind, isFeedback bool)
	PublishProposalApplied(ctx context.Context, sessionID, userID string, kind proposal.Kind, edits, recovered, revision int)
	PublishProposalRejected(ctx context.Context, sessionID, userID string, kind proposal.Kind)
	PublishProposalFailed(ctx context.Context, sessionID, userID string, kind proposal.Kind, reason string)
}

// NatsPublisher implements Publisher on top of JetStream. A nil NATS
// publisher turns every method into a no-op.
type NatsPublisher struct {
	publisher *pktNats.Publisher
	logger    logger.ILogger
	now       func() time.Time
}

func NewNatsPublisher(publisher *pktNats.Publisher, logger logger.ILogger) *NatsPublisher {
	return &NatsPublisher{
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

func (p *NatsPublisher) PublishDocumentLoaded(ctx context.Context, sessionID, userID, fileName string, revision, length int) {
	p.publish(ctx, pkgEvents.DocumentLoaded, sessionID, userID, map[string]interface{}{
		"file_name": fileName,
		"revision":  revision,
		"length":    length,
	})
}

func (p *NatsPublisher) PublishDocumentEdited(ctx context.Context, sessionID, userID string, revision int, discardedPending bool) {
	p.publish(ctx, pkgEvents.DocumentEdited, sessionID, userID, map[string]interface{}{
		"revision":          revision,
		"discarded_pending": discardedPending,
	})
}

func (p *NatsPublisher) PublishProposalReceived(ctx context.Context, sessionID, userID string, kind proposal.Kind, isFeedback bool) {
	p.publish(ctx, pkgEvents.ProposalReceived, sessionID, userID, map[string]interface{}{
		"kind":        string(kind),
		"is_feedback": isFeedback,
	})
}

func (p *NatsPublisher) PublishProposalApplied(ctx context.Context, sessionID, userID string, kind proposal.Kind, edits, recovered, revision int) {
	p.publish(ctx, pkgEvents.ProposalApplied, sessionID, userID, map[string]interface{}{
		"kind":      string(kind),
		"edits":     edits,
		"recovered": recovered,
		"revision":  revision,
	})
}

func (p *NatsPublisher) PublishProposalRejected(ctx context.Context, sessionID, userID string, kind proposal.Kind) {
	p.publish(ctx, pkgEvents.ProposalRejected, sessionID, userID, map[string]interface{}{
		"kind": string(kind),
	})
}

func (p *NatsPublisher) PublishProposalFailed(ctx context.Context, sessionID, userID string, kind proposal.Kind, reason string) {
	p.publish(ctx, pkgEvents.ProposalFailed, sessionID, userID, map[string]interface{}{
		"kind":   string(kind),
		"reason": reason,
	})
}

func (p *NatsPublisher) publish(ctx context.Context, eventType, sessionID, userID string, data map[string]interface{}) {
	if p.publisher == nil {
		return
	}

	data["session_id"] = sessionID
	data["user_id"] = userID
	data["entity_type"] = "edit_session"
	data["entity_id"] = sessionID

	evt := pkgEvents.BaseEvent{
		Type:       eventType,
		Data:       data,
		OccurredAt: p.now(),
	}
	if err := p.publisher.Publish(ctx, evt); err != nil {
		p.logger.Error("EVENTS", "Failed to publish "+eventType+" event", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
	}
}

// Recorder keeps events in memory. Used by tests and the offline CLI.
type Recorder struct {
	mu     sync.Mutex
	Events []pkgEvents.BaseEvent
}

func (r *Recorder) record(eventType string, data map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, pkgEvents.BaseEvent{Type: eventType, Data: data, OccurredAt: time.Now()})
}

func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.Events))
	for i, e := range r.Events {
		out[i] = e.Type
	}
	return out
}

func (r *Recorder) PublishDocumentLoaded(_ context.Context, sessionID, _, fileName string, revision, _ int) {
	r.record(pkgEvents.DocumentLoaded, map[string]interface{}{"session_id": sessionID, "file_name": fileName, "revision": revision})
}

func (r *Recorder) PublishDocumentEdited(_ context.Context, sessionID, _ string, revision int, discardedPending bool) {
	r.record(pkgEvents.DocumentEdited, map[string]interface{}{"session_id": sessionID, "revision": revision, "discarded_pending": discardedPending})
}

func (r *Recorder) PublishProposalReceived(_ context.Context, sessionID, _ string, kind proposal.Kind, isFeedback bool) {
	r.record(pkgEvents.ProposalReceived, map[string]interface{}{"session_id": sessionID, "kind": string(kind), "is_feedback": isFeedback})
}

func (r *Recorder) PublishProposalApplied(_ context.Context, sessionID, _ string, kind proposal.Kind, edits, recovered, revision int) {
	r.record(pkgEvents.ProposalApplied, map[string]interface{}{"session_id": sessionID, "kind": string(kind), "edits": edits, "recovered": recovered, "revision": revision})
}

func (r *Recorder) PublishProposalRejected(_ context.Context, sessionID, _ string, kind proposal.Kind) {
	r.record(pkgEvents.ProposalRejected, map[string]interface{}{"session_id": sessionID, "kind": string(kind)})
}

func (r *Recorder) PublishProposalFailed(_ context.Context, sessionID, _ string, kind proposal.Kind, reason string) {
	r.record(pkgEvents.ProposalFailed, map[string]interface{}{"session_id": sessionID, "kind": string(kind), "reason": reason})
}
