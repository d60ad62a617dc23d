package repository

import (
	"github.com/google/wire"
)

// 統一管理所有 Fluentd repository
type FluentdRepository struct {
	eventRepository *EventLogRepository
}

// 建立 Fluentd repository 物件
func NewFluentdRepository(
	eventRepository *EventLogRepository,
) *FluentdRepository {
	return &FluentdRepository{
		eventRepository: eventRepository,
	}
}

func (repository *FluentdRepository) Events() *EventLogRepository {
	return repository.eventRepository
}

// Wire 依賴提供
var ProviderSet = wire.NewSet(
	NewEventLogRepository,
	NewFluentdRepository)
