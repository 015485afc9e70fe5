package handlers

import (
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/wfbench/modules/benchmark/domain/workload"
	"github.com/iota-uz/wfbench/pkg/application"
)

type TriggerEventsHandler struct {
	logger *logrus.Logger
}

func RegisterTriggerEventHandlers(app application.Application, logger *logrus.Logger) {
	handler := &TriggerEventsHandler{logger: logger}
	app.EventPublisher().Subscribe(handler.onTriggered)
}

func (h *TriggerEventsHandler) onTriggered(event *workload.TriggeredEvent) {
	entry := h.logger.WithFields(logrus.Fields{
		"run_id":      event.RunID,
		"workflow":    event.Workflow,
		"duration_ms": event.Duration.Milliseconds(),
	})
	if event.Failed() {
		entry.WithError(event.Err).Warn("benchmark trigger failed")
		return
	}
	entry.Info("benchmark trigger resolved")
}
