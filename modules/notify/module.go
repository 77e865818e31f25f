// Package notify consumes chat activity events and surfaces them through
// the application logger, so message arrivals and room reordering are
// visible even when the owning room is not active.
package notify

import (
	"context"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"

	"github.com/example/shop-chat-client/events"
)

// Module is an EventConsumerModule for chat activity events.
type Module struct {
	logger types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.EventConsumerModule = (*Module)(nil)

// NewModule creates a new notify module.
func NewModule(logger types.Logger) *Module {
	return &Module{logger: logger}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "notify"
}

// Start initializes the module.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("Notify module started")
	return nil
}

// Stop gracefully shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("Notify module stopped")
	return nil
}

// RegisterEventConsumers registers event handlers.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.MessageReceivedV1, m.handleMessageReceived, m,
	); err != nil {
		return fmt.Errorf("failed to register MessageReceived consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.RoomListChangedV1, m.handleRoomListChanged, m,
	); err != nil {
		return fmt.Errorf("failed to register RoomListChanged consumer: %w", err)
	}

	m.logger.Info("Registered notify event consumers")
	return nil
}

func (m *Module) handleMessageReceived(_ context.Context, event events.MessageReceivedEvent, _ *mono.Msg) error {
	m.logger.Info("Message received",
		"roomID", event.Message.RoomID,
		"sender", event.Message.SenderName,
		"type", event.Message.Type,
		"active", event.Active)
	return nil
}

func (m *Module) handleRoomListChanged(_ context.Context, event events.RoomListChangedEvent, _ *mono.Msg) error {
	m.logger.Debug("Room list reordered",
		"roomID", event.RoomID,
		"rooms", event.RoomCount)
	return nil
}
