package hosted

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"plcvisualizer/config"
	"plcvisualizer/models"
)

func setupHosted(t *testing.T, handler http.HandlerFunc) *Client {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(config.HostedConfig{URL: srv.URL + "/", APIKey: "service-key", Timeout: 2 * time.Second}, zap.NewNop())
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func TestFetchParameters(t *testing.T) {
	c := setupHosted(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/rest/v1/parameters", r.URL.Path)
		assert.Equal(t, "name.asc,id.asc", r.URL.Query().Get("order"))
		assert.Equal(t, "service-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))

		writeJSON(w, http.StatusOK, []parameterRow{{
			ID: "p1", Name: "Boiler temp", Unit: "°C", Value: 72.5, Status: models.StatusNormal,
			WarningMin: 20, WarningMax: 80, AlarmMin: 10, AlarmMax: 90,
		}})
	})

	params, err := c.FetchParameters(context.Background())
	require.NoError(t, err)
	require.Len(t, params, 1)
	assert.Equal(t, "Boiler temp", params[0].Name)
	assert.Equal(t, models.Range{Min: 10, Max: 90}, params[0].Thresholds.Alarm)
}

func TestCreateParameter(t *testing.T) {
	c := setupHosted(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))

		var row parameterRow
		require.NoError(t, json.NewDecoder(r.Body).Decode(&row))
		assert.NotEmpty(t, row.ID)
		assert.Equal(t, 80.0, row.WarningMax)
		writeJSON(w, http.StatusCreated, []parameterRow{row})
	})

	p := &models.Parameter{
		Name: "Boiler temp",
		Thresholds: models.Thresholds{
			Warning: models.Range{Min: 20, Max: 80},
			Alarm:   models.Range{Min: 10, Max: 90},
		},
	}
	created, err := c.CreateParameter(context.Background(), p)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Boiler temp", created.Name)
}

func TestUpdateParameter_NotFound(t *testing.T) {
	c := setupHosted(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "eq.missing", r.URL.Query().Get("id"))
		writeJSON(w, http.StatusOK, []parameterRow{})
	})

	_, err := c.UpdateParameter(context.Background(), &models.Parameter{ID: "missing"})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDeleteParameter(t *testing.T) {
	count := "*/1"
	c := setupHosted(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "count=exact", r.Header.Get("Prefer"))
		w.Header().Set("Content-Range", count)
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.DeleteParameter(context.Background(), "p1"))

	count = "*/0"
	assert.ErrorIs(t, c.DeleteParameter(context.Background(), "p1"), models.ErrNotFound)
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, models.ErrUnauthorized},
		{"forbidden", http.StatusForbidden, models.ErrForbidden},
		{"not found", http.StatusNotFound, models.ErrNotFound},
		{"conflict", http.StatusConflict, models.ErrValidation},
		{"bad request", http.StatusBadRequest, models.ErrValidation},
		{"server error", http.StatusBadGateway, models.ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := setupHosted(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, map[string]string{"message": "nope"})
			})
			_, err := c.FetchParameters(context.Background())
			assert.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), "nope")
		})
	}
}

func TestCanceledRequestIsNotUnavailable(t *testing.T) {
	release := make(chan struct{})
	c := setupHosted(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	// Registered after setupHosted so it runs before srv.Close (LIFO).
	t.Cleanup(func() { close(release) })
	c.httpClient.SetRetryCount(0)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	_, err := c.UpdateParameter(ctx, &models.Parameter{ID: "p1", Name: "Flow"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, models.ErrUnavailable)

	ctx, cancel = context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.FetchParameters(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, models.ErrUnavailable)
}

func TestTransportFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(config.HostedConfig{URL: url, APIKey: "k", Timeout: time.Second}, zap.NewNop())
	c.httpClient.SetRetryCount(0)

	_, err := c.FetchParameters(context.Background())
	assert.ErrorIs(t, err, models.ErrUnavailable)
	assert.ErrorIs(t, c.Ping(context.Background()), models.ErrUnavailable)
}

func TestListAlertsFilters(t *testing.T) {
	c := setupHosted(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "created_at.desc", q.Get("order"))
		assert.Equal(t, "25", q.Get("limit"))
		assert.Equal(t, "eq.false", q.Get("acknowledged"))
		assert.Equal(t, "eq.p1", q.Get("parameter_id"))
		writeJSON(w, http.StatusOK, []models.Alert{{ID: "a1", ParameterID: "p1", Severity: models.StatusAlarm}})
	})

	alerts, err := c.ListAlerts(context.Background(), models.AlertFilter{UnacknowledgedOnly: true, ParameterID: "p1", Limit: 25})
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, models.StatusAlarm, alerts[0].Severity)
}

func TestAcknowledgeAlert_AlreadyAcknowledged(t *testing.T) {
	by := "first"
	c := setupHosted(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPatch:
			assert.Equal(t, "eq.false", r.URL.Query().Get("acknowledged"))
			writeJSON(w, http.StatusOK, []models.Alert{})
		case http.MethodGet:
			writeJSON(w, http.StatusOK, []models.Alert{{ID: "a1", Acknowledged: true, AcknowledgedBy: &by}})
		}
	})

	alert, err := c.AcknowledgeAlert(context.Background(), "a1", "second")
	require.NoError(t, err)
	assert.True(t, alert.Acknowledged)
	assert.Equal(t, "first", *alert.AcknowledgedBy)
}

func TestReadings(t *testing.T) {
	from := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	to := from.Add(time.Hour)

	c := setupHosted(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			body, _ := io.ReadAll(r.Body)
			var readings []models.Reading
			require.NoError(t, json.Unmarshal(body, &readings))
			assert.Len(t, readings, 2)
			w.WriteHeader(http.StatusCreated)
		case http.MethodGet:
			assert.ElementsMatch(t, []string{"gte.2024-03-01T10:00:00Z", "lte.2024-03-01T11:00:00Z"}, r.URL.Query()["timestamp"])
			assert.Equal(t, "timestamp.desc", r.URL.Query().Get("order"))
			writeJSON(w, http.StatusOK, []models.Reading{
				{ParameterID: "p1", Value: 2, Timestamp: from.Add(2 * time.Minute)},
				{ParameterID: "p1", Value: 1, Timestamp: from.Add(time.Minute)},
			})
		case http.MethodDelete:
			assert.Equal(t, "lt.2024-03-01T10:00:00Z", r.URL.Query().Get("timestamp"))
			w.Header().Set("Content-Range", "*/7")
			w.WriteHeader(http.StatusNoContent)
		}
	})
	ctx := context.Background()

	require.NoError(t, c.InsertReadings(ctx, []models.Reading{{ParameterID: "p1"}, {ParameterID: "p1"}}))
	require.NoError(t, c.InsertReadings(ctx, nil))

	readings, err := c.GetReadings(ctx, "p1", from, to, 10)
	require.NoError(t, err)
	require.Len(t, readings, 2)
	assert.Equal(t, 1.0, readings[0].Value)

	n, err := c.PruneReadings(ctx, from)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}

func TestCollectionPolicy(t *testing.T) {
	var saved settingRow
	c := setupHosted(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, []settingRow{})
		case http.MethodPost:
			assert.Contains(t, r.Header.Get("Prefer"), "resolution=merge-duplicates")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&saved))
			w.WriteHeader(http.StatusCreated)
		}
	})
	ctx := context.Background()

	policy, err := c.GetCollectionPolicy(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultCollectionPolicy(), *policy)

	policy.RetentionDays = 7
	require.NoError(t, c.SaveCollectionPolicy(ctx, *policy))
	assert.Equal(t, "collection_policy", saved.Key)
	assert.Equal(t, 7, saved.Value.RetentionDays)
}

func TestSignIn(t *testing.T) {
	c := setupHosted(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/v1/token":
			assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			if body["password"] != "correct-horse" {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error_description": "Invalid login credentials"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"access_token": "tok-1",
				"expires_in":   3600,
				"user":         map[string]string{"id": "u1"},
			})
		case "/auth/v1/user":
			if r.Header.Get("Authorization") != "Bearer tok-1" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"msg": "invalid JWT"})
				return
			}
			writeJSON(w, http.StatusOK, authUser{ID: "u1", Email: "ops@plant.local"})
		case "/rest/v1/profiles":
			assert.Equal(t, "eq.u1", r.URL.Query().Get("id"))
			writeJSON(w, http.StatusOK, []models.UserProfile{{ID: "u1", Username: "ops@plant.local", Role: models.RoleAdmin}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	_, err := c.SignIn(ctx, "ops@plant.local", "wrong")
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	session, err := c.SignIn(ctx, "ops@plant.local", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", session.Token)
	assert.Equal(t, models.RoleAdmin, session.User.Role)
	assert.WithinDuration(t, time.Now().Add(time.Hour), session.ExpiresAt, 5*time.Second)

	profile, err := c.Profile(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "u1", profile.ID)

	_, err = c.Profile(ctx, "stale")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
	_, err = c.Profile(ctx, "")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestUserAdmin(t *testing.T) {
	c := setupHosted(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/auth/v1/admin/users" && r.Method == http.MethodPost:
			writeJSON(w, http.StatusOK, authUser{ID: "u2", Email: "op@plant.local"})
		case r.URL.Path == "/rest/v1/profiles" && r.Method == http.MethodPost:
			var p models.UserProfile
			require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
			assert.Equal(t, "u2", p.ID)
			assert.Equal(t, models.RoleOperator, p.Role)
			writeJSON(w, http.StatusCreated, []models.UserProfile{p})
		case r.URL.Path == "/rest/v1/profiles" && r.Method == http.MethodPatch:
			writeJSON(w, http.StatusOK, []models.UserProfile{})
		case r.URL.Path == "/auth/v1/admin/users/u2" && r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	u, err := c.CreateUser(ctx, "op@plant.local", "long-enough", "")
	require.NoError(t, err)
	assert.Equal(t, "u2", u.ID)

	_, err = c.CreateUser(ctx, "x", "long-enough", "root")
	assert.ErrorIs(t, err, models.ErrValidation)

	assert.ErrorIs(t, c.UpdateUserRole(ctx, "ghost", models.RoleAdmin), models.ErrNotFound)
	require.NoError(t, c.DeleteUser(ctx, "u2"))
	assert.ErrorIs(t, c.DeleteUser(ctx, "u3"), models.ErrNotFound)
}
