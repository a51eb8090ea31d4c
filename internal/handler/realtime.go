package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/mobihelp/sync-service/internal/config"
	"github.com/mobihelp/sync-service/internal/remote"
	"github.com/segmentio/kafka-go"
)

// ChangeApplier folds one change-feed event into the local mirror.
type ChangeApplier interface {
	ApplyOrderChange(ctx context.Context, change remote.OrderChange) error
}

// changeEvent описывает событие ленты изменений таблицы заказов.
type changeEvent struct {
	Type   string `json:"type" validate:"required,oneof=INSERT UPDATE DELETE"`
	Table  string `json:"table" validate:"required"`
	// DELETE carries only the record id, so the record is validated
	// separately for the other event types.
	Record Order `json:"record" validate:"-"`
}

type realtimeHandler struct {
	dlq      *kafka.Writer
	reader   *kafka.Reader
	logger   *slog.Logger
	validate *validator.Validate
	applier  ChangeApplier
}

func NewRealtimeHandler(logger *slog.Logger, cfg config.Kafka, applier ChangeApplier) *realtimeHandler {
	return &realtimeHandler{
		logger: logger.With(slog.String("handler", "realtime")),
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: cfg.Brokers,
			GroupID: cfg.GroupID,
			Topic:   cfg.OrdersTopic,
			MaxWait: cfg.ReaderMaxWait,
		}),
		dlq: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: cfg.BatchTimeout,
		},
		validate: validator.New(),
		applier:  applier,
	}
}

// Consume reads change events and applies each one before committing its
// offset, preserving the feed's arrival order end to end.
func (h *realtimeHandler) Consume(ctx context.Context) {
	for {
		m, err := h.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				break
			} else {
				h.logger.Error("failed to fetch message", slog.Any("error", err))
				continue
			}
		}
		changeFeedFetched.Inc()

		if err := h.handleChange(ctx, m); err != nil {
			h.logger.Error("failed to handle change event", slog.Any("error", err))
			changeFeedMalformed.Inc()

			// В библиотеке уже есть retry
			if err := h.WriteToDLQ(ctx, m); err != nil {
				h.logger.Error("failed to write message to DLQ", slog.Any("error", err))
				continue
			}
			changeFeedDLQ.Inc()
		}

		if err := h.reader.CommitMessages(ctx, m); err != nil {
			h.logger.Error("failed to commit message", slog.Any("error", err))
			changeFeedCommitErrors.Inc()
		}
	}
}

func (h *realtimeHandler) handleChange(ctx context.Context, m kafka.Message) error {
	var event changeEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal change event: %w", err)
	}

	if err := h.validate.Struct(event); err != nil {
		return fmt.Errorf("invalid change event: %w", err)
	}
	if event.Table != "orders" {
		// Only orders are streamed; profiles arrive by polling.
		return nil
	}
	if event.Type != string(remote.ChangeDelete) {
		if err := h.validate.Struct(event.Record); err != nil {
			return fmt.Errorf("invalid order record: %w", err)
		}
	}

	return h.applier.ApplyOrderChange(ctx, remote.OrderChange{
		Type:  remote.ChangeType(event.Type),
		Order: OrderJSONToEntity(event.Record),
	})
}

func (h *realtimeHandler) WriteToDLQ(ctx context.Context, m kafka.Message) error {
	m.Topic = fmt.Sprintf("%s-dlq", m.Topic)
	return h.dlq.WriteMessages(ctx, m)
}

func (h *realtimeHandler) Close() error {
	if err := h.reader.Close(); err != nil {
		return err
	}
	return h.dlq.Close()
}
