package service

import (
	"context"
	"encoding/json"

	"ai-text-editor-be/internal/dto"
	"ai-text-editor-be/internal/entity"
	"ai-text-editor-be/internal/pkg/logger"
	"ai-text-editor-be/internal/repository/specification"
	"ai-text-editor-be/internal/repository/unitofwork"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// IRevisionPublisher queues document snapshots for asynchronous recording.
type IRevisionPublisher interface {
	Publish(ctx context.Context, msg dto.PublishRevisionMessage) error
}

type revisionPublisher struct {
	topicName string
	publisher message.Publisher
}

func NewRevisionPublisher(topicName string, publisher message.Publisher) IRevisionPublisher {
	return &revisionPublisher{
		topicName: topicName,
		publisher: publisher,
	}
}

func (p *revisionPublisher) Publish(ctx context.Context, payload dto.PublishRevisionMessage) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.SetContext(ctx)
	return p.publisher.Publish(p.topicName, msg)
}

// IRevisionConsumer stores queued snapshots as document_revisions rows.
type IRevisionConsumer interface {
	Consume(ctx context.Context) error
}

type revisionConsumer struct {
	subscriber message.Subscriber
	topicName  string
	uowFactory unitofwork.RepositoryFactory
	logger     logger.ILogger
}

func NewRevisionConsumer(
	subscriber message.Subscriber,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	logger logger.ILogger,
) IRevisionConsumer {
	return &revisionConsumer{
		subscriber: subscriber,
		topicName:  topicName,
		uowFactory: uowFactory,
		logger:     logger,
	}
}

// Consume subscribes and processes messages in the background until ctx is
// done.
func (rc *revisionConsumer) Consume(ctx context.Context) error {
	messages, err := rc.subscriber.Subscribe(ctx, rc.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			rc.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (rc *revisionConsumer) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishRevisionMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		rc.logger.Error("REVISION", "Failed to unmarshal revision message", map[string]interface{}{"error": err.Error()})
		// Ack invalid messages to prevent infinite retry
		msg.Ack()
		return
	}

	uow := rc.uowFactory.NewUnitOfWork(ctx)

	// redelivery after a partial failure must not duplicate the row
	existing, err := uow.DocumentRevisionRepository().FindOne(ctx,
		specification.ByEditSessionID{EditSessionID: payload.EditSessionId},
		specification.ByRevision{Revision: payload.Revision},
	)
	if err != nil {
		rc.logger.Error("REVISION", "Failed to look up revision", map[string]interface{}{
			"session_id": payload.EditSessionId,
			"revision":   payload.Revision,
			"error":      err.Error(),
		})
		msg.Nack()
		return
	}
	if existing != nil {
		msg.Ack()
		return
	}

	revision := entity.DocumentRevision{
		EditSessionId: payload.EditSessionId,
		UserId:        payload.UserId,
		Revision:      payload.Revision,
		Source:        payload.Source,
		ProposalKind:  payload.ProposalKind,
		Content:       payload.Content,
	}
	if err := uow.DocumentRevisionRepository().Create(ctx, &revision); err != nil {
		rc.logger.Error("REVISION", "Failed to store revision", map[string]interface{}{
			"session_id": payload.EditSessionId,
			"revision":   payload.Revision,
			"error":      err.Error(),
		})
		msg.Nack()
		return
	}

	rc.logger.Info("REVISION", "Revision stored", map[string]interface{}{
		"session_id": payload.EditSessionId,
		"revision":   payload.Revision,
		"source":     payload.Source,
	})
	msg.Ack()
}
