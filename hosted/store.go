package hosted

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"plcvisualizer/models"
)

type parameterRow struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Unit        string        `json:"unit"`
	Value       float64       `json:"value"`
	Status      models.Status `json:"status"`
	WarningMin  float64       `json:"warning_min"`
	WarningMax  float64       `json:"warning_max"`
	AlarmMin    float64       `json:"alarm_min"`
	AlarmMax    float64       `json:"alarm_max"`
	Category    string        `json:"category"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

func toRow(p *models.Parameter) parameterRow {
	return parameterRow{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Unit:        p.Unit,
		Value:       p.Value,
		Status:      p.Status,
		WarningMin:  p.Thresholds.Warning.Min,
		WarningMax:  p.Thresholds.Warning.Max,
		AlarmMin:    p.Thresholds.Alarm.Min,
		AlarmMax:    p.Thresholds.Alarm.Max,
		Category:    p.Category,
		UpdatedAt:   p.Timestamp,
	}
}

func (r parameterRow) model() models.Parameter {
	return models.Parameter{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Unit:        r.Unit,
		Value:       r.Value,
		Status:      r.Status,
		Thresholds: models.Thresholds{
			Warning: models.Range{Min: r.WarningMin, Max: r.WarningMax},
			Alarm:   models.Range{Min: r.AlarmMin, Max: r.AlarmMax},
		},
		Timestamp: r.UpdatedAt,
		Category:  r.Category,
	}
}

func firstParameter(rows []parameterRow, op string) (*models.Parameter, error) {
	if len(rows) == 0 {
		return nil, notFound(op)
	}
	p := rows[0].model()
	return &p, nil
}

// FetchParameters retrieves all parameters ordered by name
func (c *Client) FetchParameters(ctx context.Context) ([]models.Parameter, error) {
	var rows []parameterRow
	resp, err := c.request(ctx).
		SetQueryParam("select", "*").
		SetQueryParam("order", "name.asc,id.asc").
		SetResult(&rows).
		Get("/rest/v1/parameters")
	if err := check("fetch parameters", resp, err); err != nil {
		return nil, err
	}

	params := make([]models.Parameter, 0, len(rows))
	for _, r := range rows {
		params = append(params, r.model())
	}
	return params, nil
}

// CreateParameter inserts p, generating an id when p has none
func (c *Client) CreateParameter(ctx context.Context, p *models.Parameter) (*models.Parameter, error) {
	row := toRow(p)
	if row.ID == "" {
		row.ID = uuid.NewString()
	}

	var rows []parameterRow
	resp, err := c.request(ctx).
		SetHeader("Prefer", "return=representation").
		SetBody(row).
		SetResult(&rows).
		Post("/rest/v1/parameters")
	if err := check("create parameter", resp, err); err != nil {
		return nil, err
	}
	return firstParameter(rows, "create parameter "+row.ID)
}

// UpdateParameter overwrites every editable column of p
func (c *Client) UpdateParameter(ctx context.Context, p *models.Parameter) (*models.Parameter, error) {
	var rows []parameterRow
	resp, err := c.request(ctx).
		SetHeader("Prefer", "return=representation").
		SetQueryParam("id", eq(p.ID)).
		SetBody(toRow(p)).
		SetResult(&rows).
		Patch("/rest/v1/parameters")
	if err := check("update parameter "+p.ID, resp, err); err != nil {
		return nil, err
	}
	return firstParameter(rows, "update parameter "+p.ID)
}

// DeleteParameter removes a parameter
func (c *Client) DeleteParameter(ctx context.Context, id string) error {
	resp, err := c.request(ctx).
		SetHeader("Prefer", "count=exact").
		SetQueryParam("id", eq(id)).
		Delete("/rest/v1/parameters")
	if err := check("delete parameter "+id, resp, err); err != nil {
		return err
	}
	if affectedCount(resp) == 0 {
		return notFound("delete parameter " + id)
	}
	return nil
}

// InsertAlert inserts a new alert
func (c *Client) InsertAlert(ctx context.Context, alert *models.Alert) error {
	resp, err := c.request(ctx).
		SetHeader("Prefer", "return=minimal").
		SetBody(alert).
		Post("/rest/v1/alerts")
	return check("insert alert", resp, err)
}

// ListAlerts retrieves alerts newest first
func (c *Client) ListAlerts(ctx context.Context, filter models.AlertFilter) ([]models.Alert, error) {
	req := c.request(ctx).
		SetQueryParam("select", "*").
		SetQueryParam("order", "created_at.desc").
		SetQueryParam("limit", strconv.Itoa(filter.Limit))
	if filter.UnacknowledgedOnly {
		req.SetQueryParam("acknowledged", "eq.false")
	}
	if filter.ParameterID != "" {
		req.SetQueryParam("parameter_id", eq(filter.ParameterID))
	}

	alerts := []models.Alert{}
	resp, err := req.SetResult(&alerts).Get("/rest/v1/alerts")
	if err := check("list alerts", resp, err); err != nil {
		return nil, err
	}
	return alerts, nil
}

// AcknowledgeAlert marks an alert as acknowledged. The first acknowledgment wins.
func (c *Client) AcknowledgeAlert(ctx context.Context, id, username string) (*models.Alert, error) {
	now := c.now()
	var updated []models.Alert
	resp, err := c.request(ctx).
		SetHeader("Prefer", "return=representation").
		SetQueryParam("id", eq(id)).
		SetQueryParam("acknowledged", "eq.false").
		SetBody(map[string]interface{}{
			"acknowledged":    true,
			"acknowledged_by": username,
			"acknowledged_at": now,
		}).
		SetResult(&updated).
		Patch("/rest/v1/alerts")
	if err := check("acknowledge alert "+id, resp, err); err != nil {
		return nil, err
	}
	if len(updated) > 0 {
		return &updated[0], nil
	}

	var existing []models.Alert
	resp, err = c.request(ctx).
		SetQueryParam("select", "*").
		SetQueryParam("id", eq(id)).
		SetResult(&existing).
		Get("/rest/v1/alerts")
	if err := check("get alert "+id, resp, err); err != nil {
		return nil, err
	}
	if len(existing) == 0 {
		return nil, notFound("acknowledge alert " + id)
	}
	return &existing[0], nil
}

// MarkAlertNotified records that the alert reached at least one dashboard
func (c *Client) MarkAlertNotified(ctx context.Context, id string) error {
	resp, err := c.request(ctx).
		SetHeader("Prefer", "return=minimal").
		SetQueryParam("id", eq(id)).
		SetBody(map[string]bool{"notified": true}).
		Patch("/rest/v1/alerts")
	return check("mark alert notified "+id, resp, err)
}

// ClearAlerts deletes every alert
func (c *Client) ClearAlerts(ctx context.Context) (int64, error) {
	resp, err := c.request(ctx).
		SetHeader("Prefer", "count=exact").
		SetQueryParam("id", "not.is.null").
		Delete("/rest/v1/alerts")
	if err := check("clear alerts", resp, err); err != nil {
		return 0, err
	}
	return affectedCount(resp), nil
}

// InsertReadings bulk inserts readings
func (c *Client) InsertReadings(ctx context.Context, readings []models.Reading) error {
	if len(readings) == 0 {
		return nil
	}
	resp, err := c.request(ctx).
		SetHeader("Prefer", "return=minimal").
		SetBody(readings).
		Post("/rest/v1/readings")
	return check("insert readings", resp, err)
}

// GetReadings returns the newest limit readings in [from, to], oldest first
func (c *Client) GetReadings(ctx context.Context, parameterID string, from, to time.Time, limit int) ([]models.Reading, error) {
	params := url.Values{
		"select":       {"*"},
		"parameter_id": {eq(parameterID)},
		"timestamp":    {"gte." + from.UTC().Format(time.RFC3339Nano), "lte." + to.UTC().Format(time.RFC3339Nano)},
		"order":        {"timestamp.desc"},
		"limit":        {strconv.Itoa(limit)},
	}

	readings := []models.Reading{}
	resp, err := c.request(ctx).
		SetQueryParamsFromValues(params).
		SetResult(&readings).
		Get("/rest/v1/readings")
	if err := check("get readings", resp, err); err != nil {
		return nil, err
	}

	for i, j := 0, len(readings)-1; i < j; i, j = i+1, j-1 {
		readings[i], readings[j] = readings[j], readings[i]
	}
	return readings, nil
}

// PruneReadings deletes readings older than before
func (c *Client) PruneReadings(ctx context.Context, before time.Time) (int64, error) {
	resp, err := c.request(ctx).
		SetHeader("Prefer", "count=exact").
		SetQueryParam("timestamp", "lt."+before.UTC().Format(time.RFC3339Nano)).
		Delete("/rest/v1/readings")
	if err := check("prune readings", resp, err); err != nil {
		return 0, err
	}
	return affectedCount(resp), nil
}

type settingRow struct {
	Key   string                  `json:"key"`
	Value models.CollectionPolicy `json:"value"`
}

// GetCollectionPolicy returns the stored policy or the default when none was saved
func (c *Client) GetCollectionPolicy(ctx context.Context) (*models.CollectionPolicy, error) {
	var rows []settingRow
	resp, err := c.request(ctx).
		SetQueryParam("select", "key,value").
		SetQueryParam("key", eq("collection_policy")).
		SetResult(&rows).
		Get("/rest/v1/settings")
	if err := check("get collection policy", resp, err); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		policy := models.DefaultCollectionPolicy()
		return &policy, nil
	}
	return &rows[0].Value, nil
}

// SaveCollectionPolicy upserts the policy
func (c *Client) SaveCollectionPolicy(ctx context.Context, policy models.CollectionPolicy) error {
	resp, err := c.request(ctx).
		SetHeader("Prefer", "resolution=merge-duplicates,return=minimal").
		SetBody(settingRow{Key: "collection_policy", Value: policy}).
		Post("/rest/v1/settings")
	if err := check("save collection policy", resp, err); err != nil {
		return err
	}
	c.logger.Info("Collection policy saved to hosted backend", zap.Bool("enabled", policy.Enabled))
	return nil
}
