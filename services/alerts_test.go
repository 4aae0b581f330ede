package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"plcvisualizer/models"
)

func newTestAlertService(listeners bool) (*AlertService, *fakeStore, *fakeBroadcaster) {
	store := newFakeStore()
	b := &fakeBroadcaster{listeners: listeners}
	return NewAlertService(store, b, nil, zap.NewNop()), store, b
}

func TestAlertService_OnTransitionIntoAlarm(t *testing.T) {
	svc, store, b := newTestAlertService(true)

	p := tempParameter("a", 95)
	alert := svc.OnTransition(context.Background(), p, models.StatusNormal)
	require.NotNil(t, alert)

	assert.Equal(t, models.StatusAlarm, alert.Severity)
	assert.Equal(t, 90.0, alert.Threshold)
	assert.Equal(t, "Temp a above alarm threshold: 95.00 °C (max: 90.00)", alert.Message)
	assert.True(t, alert.Notified)
	assert.NotEmpty(t, alert.ID)

	assert.Equal(t, 1, store.alertCount())
	assert.True(t, store.notified[alert.ID])
	require.Len(t, b.alerts, 1)
}

func TestAlertService_WarningBelowMin(t *testing.T) {
	svc, _, _ := newTestAlertService(false)

	alert := svc.OnTransition(context.Background(), tempParameter("a", 15), models.StatusNormal)
	require.NotNil(t, alert)
	assert.Equal(t, models.StatusWarning, alert.Severity)
	assert.Equal(t, 20.0, alert.Threshold)
	assert.Contains(t, alert.Message, "below warning threshold")
	assert.False(t, alert.Notified, "nobody listening")
}

func TestAlertService_NoAlertWithoutTransition(t *testing.T) {
	svc, store, _ := newTestAlertService(true)
	ctx := context.Background()

	assert.Nil(t, svc.OnTransition(ctx, tempParameter("a", 95), models.StatusAlarm))
	assert.Nil(t, svc.OnTransition(ctx, tempParameter("a", 50), models.StatusAlarm))
	assert.Equal(t, 0, store.alertCount())
}

func TestAlertService_EscalationRaisesAgain(t *testing.T) {
	svc, store, _ := newTestAlertService(true)
	ctx := context.Background()

	require.NotNil(t, svc.OnTransition(ctx, tempParameter("a", 85), models.StatusNormal))
	require.NotNil(t, svc.OnTransition(ctx, tempParameter("a", 95), models.StatusWarning))
	assert.Equal(t, 2, store.alertCount())
}

func TestAlertService_StoreDownStillBroadcasts(t *testing.T) {
	svc, store, b := newTestAlertService(true)
	store.setUnavailable(true)

	alert := svc.OnTransition(context.Background(), tempParameter("a", 5), models.StatusNormal)
	require.NotNil(t, alert)
	assert.Len(t, b.alerts, 1)
	assert.Equal(t, 0, store.alertCount())
}

func TestAlertService_AcknowledgeIsIdempotent(t *testing.T) {
	svc, _, _ := newTestAlertService(true)
	ctx := context.Background()

	alert := svc.OnTransition(ctx, tempParameter("a", 95), models.StatusNormal)
	require.NotNil(t, alert)

	first, err := svc.Acknowledge(ctx, alert.ID, "alice")
	require.NoError(t, err)
	assert.True(t, first.Acknowledged)
	require.NotNil(t, first.AcknowledgedBy)
	assert.Equal(t, "alice", *first.AcknowledgedBy)

	second, err := svc.Acknowledge(ctx, alert.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, "alice", *second.AcknowledgedBy)
	assert.Equal(t, first.AcknowledgedAt, second.AcknowledgedAt)

	_, err = svc.Acknowledge(ctx, "missing", "alice")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAlertService_ListAndClear(t *testing.T) {
	svc, _, _ := newTestAlertService(true)
	ctx := context.Background()

	a := svc.OnTransition(ctx, tempParameter("a", 95), models.StatusNormal)
	svc.OnTransition(ctx, tempParameter("b", 5), models.StatusNormal)
	_, err := svc.Acknowledge(ctx, a.ID, "alice")
	require.NoError(t, err)

	all, err := svc.List(ctx, models.AlertFilter{Limit: 5000})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	open, err := svc.List(ctx, models.AlertFilter{UnacknowledgedOnly: true})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "b", open[0].ParameterID)

	n, err := svc.ClearAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
