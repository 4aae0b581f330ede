package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"plcvisualizer/metrics"
	"plcvisualizer/models"
)

// AlertService raises alerts on status transitions and manages their lifecycle
type AlertService struct {
	store       AlertStore
	broadcaster Broadcaster
	metrics     metrics.Collector
	logger      *zap.Logger
	now         func() time.Time
}

// NewAlertService creates an alert service
func NewAlertService(store AlertStore, broadcaster Broadcaster, collector metrics.Collector, logger *zap.Logger) *AlertService {
	if collector == nil {
		collector = metrics.Noop()
	}
	return &AlertService{
		store:       store,
		broadcaster: broadcaster,
		metrics:     collector,
		logger:      logger,
		now:         time.Now,
	}
}

// OnTransition raises an alert when p moved from `from` into warning or alarm.
// It returns nil when no alert is due.
func (s *AlertService) OnTransition(ctx context.Context, p models.Parameter, from models.Status) *models.Alert {
	if p.Status == from || p.Status == models.StatusNormal {
		return nil
	}

	bound, _ := ViolatedBound(p.Value, p.Thresholds)
	alert := &models.Alert{
		ID:            uuid.NewString(),
		ParameterID:   p.ID,
		ParameterName: p.Name,
		Value:         p.Value,
		Threshold:     bound,
		Severity:      p.Status,
		Message:       alertMessage(p, bound),
		CreatedAt:     s.now(),
	}

	if err := s.store.InsertAlert(ctx, alert); err != nil {
		s.logger.Error("Failed to store alert",
			zap.String("parameter_id", p.ID),
			zap.String("severity", string(alert.Severity)),
			zap.Error(err),
		)
	} else {
		s.logger.Info("Alert created",
			zap.String("alert_id", alert.ID),
			zap.String("parameter", p.Name),
			zap.String("severity", string(alert.Severity)),
		)
	}
	s.metrics.IncAlerts(alert.Severity)

	if s.broadcaster != nil && s.broadcaster.BroadcastAlert(alert) {
		alert.Notified = true
		if err := s.store.MarkAlertNotified(ctx, alert.ID); err != nil {
			s.logger.Warn("Failed to mark alert notified", zap.String("alert_id", alert.ID), zap.Error(err))
		}
	}

	return alert
}

func alertMessage(p models.Parameter, bound float64) string {
	direction := "below"
	if p.Value > bound {
		direction = "above"
	}
	unit := ""
	if p.Unit != "" {
		unit = " " + p.Unit
	}
	limit := "min"
	if direction == "above" {
		limit = "max"
	}
	return fmt.Sprintf("%s %s %s threshold: %.2f%s (%s: %.2f)",
		p.Name, direction, p.Status, p.Value, unit, limit, bound)
}

// List returns alerts matching filter
func (s *AlertService) List(ctx context.Context, filter models.AlertFilter) ([]models.Alert, error) {
	if filter.Limit <= 0 || filter.Limit > 1000 {
		filter.Limit = 100
	}
	return s.store.ListAlerts(ctx, filter)
}

// Acknowledge marks an alert acknowledged by username. Acknowledging twice is a no-op.
func (s *AlertService) Acknowledge(ctx context.Context, id, username string) (*models.Alert, error) {
	alert, err := s.store.AcknowledgeAlert(ctx, id, username)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Alert acknowledged", zap.String("alert_id", id), zap.String("by", username))
	return alert, nil
}

// ClearAll deletes every alert
func (s *AlertService) ClearAll(ctx context.Context) (int64, error) {
	n, err := s.store.ClearAlerts(ctx)
	if err != nil {
		return 0, err
	}
	s.logger.Info("Alerts cleared", zap.Int64("deleted", n))
	return n, nil
}
