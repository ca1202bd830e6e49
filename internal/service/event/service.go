// Package event stages domain events in the transactional outbox. A
// separate worker drains the outbox and publishes to the message
// broker, so API requests never block on broker availability.
package event

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/medisched/hms-api/internal/model"
	"github.com/medisched/hms-api/internal/repository"
)

type Emitter interface {
	Emit(ctx context.Context, eventType string, payload interface{}) error
}

type Service struct {
	outboxRepo repository.OutboxRepository
}

func NewService(outboxRepo repository.OutboxRepository) *Service {
	return &Service{outboxRepo: outboxRepo}
}

func (s *Service) Emit(ctx context.Context, eventType string, payload interface{}) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	event := &model.OutboxEvent{
		EventType: eventType,
		Payload:   payloadJSON,
	}
	if err := s.outboxRepo.CreateEvent(ctx, event); err != nil {
		return fmt.Errorf("failed to stage outbox event: %w", err)
	}
	return nil
}
