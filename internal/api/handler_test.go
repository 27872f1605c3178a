package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"SendPlan/internal/configwriter"
	"SendPlan/internal/models"
	"SendPlan/internal/store"
)

func newTestHandler() (*Handler, *store.MemoryStore) {
	st := store.NewMemoryStore()
	return &Handler{
		Writer:  configwriter.NewWriter(st, zap.NewNop()),
		Store:   st,
		Configs: st,
		Log:     zap.NewNop(),
	}, st
}

func configBody() string {
	return `{
		"emails": ["a@example.com"],
		"emailTemplates": {
			"a@example.com": {"email": "a@example.com", "selectedTemplates": [1]}
		},
		"services": {
			"reminder": {
				"enabled": true,
				"templateId": 1,
				"dateType": "single",
				"scheduledDate": "2099-06-01T00:00:00Z",
				"scheduledTimes": ["09:00"]
			}
		}
	}`
}

func doRequest(h *Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	return rec
}

func TestApplyConfigEndpoint(t *testing.T) {
	h, st := newTestHandler()

	rec := doRequest(h, http.MethodPut, "/clients/1/email-config", configBody())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		ClientID    int64 `json:"client_id"`
		CreatedJobs int   `json:"created_jobs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.ClientID)
	assert.Equal(t, 1, resp.CreatedJobs)

	_, total, err := st.ListByClient(context.Background(), 1, models.StatusPending, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	// config document is retrievable afterwards
	rec = doRequest(h, http.MethodGet, "/clients/1/email-config", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestApplyConfigInvalidIsUnprocessable(t *testing.T) {
	h, st := newTestHandler()

	rec := doRequest(h, http.MethodPut, "/clients/1/email-config", `{"emails": []}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "recipient")

	_, total, err := st.ListByClient(context.Background(), 1, "", 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total, "rejected config must not create jobs")
}

func TestApplyConfigBadJSON(t *testing.T) {
	h, _ := newTestHandler()
	rec := doRequest(h, http.MethodPut, "/clients/1/email-config", "{")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetConfigNotFound(t *testing.T) {
	h, _ := newTestHandler()
	rec := doRequest(h, http.MethodGet, "/clients/1/email-config", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteConfigCancelsPending(t *testing.T) {
	h, st := newTestHandler()

	rec := doRequest(h, http.MethodPut, "/clients/1/email-config", configBody())
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(h, http.MethodDelete, "/clients/1/email-config", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, pending, err := st.ListByClient(context.Background(), 1, models.StatusPending, 10, 0)
	require.NoError(t, err)
	assert.Zero(t, pending)

	rec = doRequest(h, http.MethodGet, "/clients/1/email-config", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListScheduledEmails(t *testing.T) {
	h, st := newTestHandler()
	ctx := context.Background()

	pending := models.NewScheduledEmailJob(1, 1, []string{"a@example.com"}, time.Now().UTC())
	failed := models.NewScheduledEmailJob(1, 1, []string{"a@example.com"}, time.Now().UTC())
	failed.Status = models.StatusFailed
	failed.FailedReason = "boom"
	require.NoError(t, st.Insert(ctx, pending))
	require.NoError(t, st.Insert(ctx, failed))

	rec := doRequest(h, http.MethodGet, "/clients/1/scheduled-emails", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		ScheduledEmails []models.ScheduledEmailJob `json:"scheduled_emails"`
		Total           int                        `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)

	rec = doRequest(h, http.MethodGet, "/clients/1/scheduled-emails?status=failed", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
	require.Len(t, resp.ScheduledEmails, 1)
	assert.Equal(t, "boom", resp.ScheduledEmails[0].FailedReason)

	// limit=0 is admitted and means no limit
	rec = doRequest(h, http.MethodGet, "/clients/1/scheduled-emails?limit=0", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.ScheduledEmails, 2)

	rec = doRequest(h, http.MethodGet, "/clients/1/scheduled-emails?status=bogus", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelJobEndpoint(t *testing.T) {
	h, st := newTestHandler()
	ctx := context.Background()

	job := models.NewScheduledEmailJob(1, 1, []string{"a@example.com"}, time.Now().UTC())
	require.NoError(t, st.Insert(ctx, job))

	path := fmt.Sprintf("/clients/1/scheduled-emails/%s/cancel", job.ID)
	rec := doRequest(h, http.MethodPost, path, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"cancelled":true`)

	// idempotent: second cancel applies nothing
	rec = doRequest(h, http.MethodPost, path, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"cancelled":false`)

	// wrong client sees 404
	rec = doRequest(h, http.MethodPost, fmt.Sprintf("/clients/2/scheduled-emails/%s/cancel", job.ID), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(h, http.MethodPost, "/clients/1/scheduled-emails/not-a-uuid/cancel", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScheduleTestEmailEndpoint(t *testing.T) {
	h, st := newTestHandler()

	body := `{"templateId": 1, "recipients": ["r@example.com"], "dueInSeconds": 0}`
	rec := doRequest(h, http.MethodPost, "/clients/1/test-email", body)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var job models.ScheduledEmailJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, models.StatusPending, job.Status)

	due, err := st.SelectDue(context.Background(), time.Now().UTC().Add(time.Second), 10)
	require.NoError(t, err)
	assert.Len(t, due, 1)
}

func TestScheduleTestEmailRejectsMissingRecipients(t *testing.T) {
	h, _ := newTestHandler()
	rec := doRequest(h, http.MethodPost, "/clients/1/test-email", `{"templateId": 1}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestImportRecipients(t *testing.T) {
	h, _ := newTestHandler()

	csv := "Email,Name\r\na@example.com,Ada\r\nb@example.com,Grace\r\n"
	req := httptest.NewRequest(http.MethodPost, "/clients/1/email-config/recipients", bytes.NewBufferString(csv))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":2`)
	assert.Contains(t, rec.Body.String(), "a@example.com")

	rec = doRequest(h, http.MethodPost, "/clients/1/email-config/recipients", "Name\nAda\n")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInvalidClientID(t *testing.T) {
	h, _ := newTestHandler()
	rec := doRequest(h, http.MethodGet, "/clients/abc/email-config", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
