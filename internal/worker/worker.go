package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"storefront/internal/broker"
	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// StatusUpdater applies order status changes
type StatusUpdater interface {
	UpdateStatus(ctx context.Context, orderID int64, status string) (bool, error)
}

// StatusWorker applies order status commands published by back-office
// systems (kitchen, courier) to the ledger.
type StatusWorker struct {
	consumer *broker.Consumer
	updater  StatusUpdater
	logger   *zap.Logger
}

// NewStatusWorker creates a new status worker
func NewStatusWorker(consumer *broker.Consumer, updater StatusUpdater) *StatusWorker {
	return &StatusWorker{
		consumer: consumer,
		updater:  updater,
		logger:   util.GetLogger(),
	}
}

// Start consumes until ctx is cancelled
func (w *StatusWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting status worker")
	return w.consumer.StartConsuming(ctx, w.HandleMessage)
}

// Stop stops the worker
func (w *StatusWorker) Stop() error {
	w.logger.Info("Stopping status worker")
	return w.consumer.Close()
}

// HandleMessage decodes one status command and applies it. Undecodable
// commands and unknown orders are logged and acknowledged.
func (w *StatusWorker) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var cmd models.OrderStatusCommand
	if err := json.Unmarshal(msg.Value, &cmd); err != nil {
		w.logger.Warn("Dropping undecodable status command",
			zap.Int64("offset", msg.Offset),
			zap.Error(err))
		return nil
	}

	found, err := w.updater.UpdateStatus(ctx, cmd.OrderID, cmd.Status)
	if !found {
		w.logger.Warn("Status command for unknown order dropped",
			zap.Int64("order_id", cmd.OrderID),
			zap.String("status", cmd.Status),
			zap.Error(err))
		return nil
	}
	if err != nil {
		// the status already changed in memory; the next rewrite carries it
		return fmt.Errorf("status for order %d not persisted: %w", cmd.OrderID, err)
	}

	w.logger.Info("Applied status command",
		zap.Int64("order_id", cmd.OrderID),
		zap.String("status", cmd.Status))
	return nil
}
