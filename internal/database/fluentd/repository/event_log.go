package repository

import (
	"context"
	"encoding/json"
	"time"

	"keybroker/config"
	"keybroker/internal/core"
	"keybroker/internal/database/client"
	"keybroker/internal/database/fluentd/model"
)

// EventLogRepository 統一負責發送會話 / 綁定事件到 Fluentd
type EventLogRepository struct {
	fluentdClient *client.FluentdClient
	version       string
}

func NewEventLogRepository(config *config.Configuration, client *client.FluentdClient) *EventLogRepository {
	version := "1.0.0"
	if config.App.Version != "" {
		version = config.App.Version
	}
	return &EventLogRepository{fluentdClient: client, version: version}
}

func (repository *EventLogRepository) LogSessionEvent(ctx context.Context, event model.SessionEventLog) error {
	if event.LoggedAt == "" {
		event.LoggedAt = time.Now().UTC().Format("2006-01-02 15:04:05.999999 UTC")
	}
	if event.Version == "" {
		event.Version = repository.version
	}
	b, _ := json.Marshal(event)
	var fluentdMessage map[string]any
	_ = json.Unmarshal(b, &fluentdMessage)
	err := repository.fluentdClient.Post(ctx, string(core.FluentdSessionEvent), fluentdMessage)
	return err
}

func (repository *EventLogRepository) LogAllocationEvent(ctx context.Context, event model.AllocationEventLog) error {
	if event.LoggedAt == "" {
		event.LoggedAt = time.Now().UTC().Format("2006-01-02 15:04:05.999999 UTC")
	}
	if event.Version == "" {
		event.Version = repository.version
	}
	b, _ := json.Marshal(event)
	var fluentdMessage map[string]any
	_ = json.Unmarshal(b, &fluentdMessage)
	err := repository.fluentdClient.Post(ctx, string(core.FluentdAllocationEvent), fluentdMessage)
	return err
}
