package service

import (
	"context"

	"ai-text-editor-be/internal/pkg/logger"
	pkgEvents "ai-text-editor-be/pkg/events"
	pktNats "ai-text-editor-be/pkg/nats"
)

// IEventAuditService writes every editor event to the audit log.
type IEventAuditService interface {
	Start(ctx context.Context) error
}

type eventAuditService struct {
	subscriber *pktNats.Subscriber
	logger     logger.ILogger
}

func NewEventAuditService(subscriber *pktNats.Subscriber, logger logger.ILogger) IEventAuditService {
	return &eventAuditService{
		subscriber: subscriber,
		logger:     logger,
	}
}

func (s *eventAuditService) Start(ctx context.Context) error {
	if s.subscriber == nil {
		return nil
	}
	return s.subscriber.Subscribe(ctx, pktNats.SubjectPrefix+">", "editor-audit", s.Handle)
}

func (s *eventAuditService) Handle(_ context.Context, event pkgEvents.Event) error {
	details := make(map[string]interface{}, len(event.Payload())+1)
	for k, v := range event.Payload() {
		details[k] = v
	}
	details["occurred_at"] = event.Timestamp()
	s.logger.Info("AUDIT", event.EventType(), details)
	return nil
}
