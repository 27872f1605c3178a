package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func validConfig() *EmailConfig {
	return &EmailConfig{
		Emails: []string{"a@example.com", "b@example.com"},
		Templates: map[string]TemplateSelection{
			"a@example.com": {Email: "a@example.com", SelectedTemplates: []int64{1, 2}},
			"b@example.com": {Email: "b@example.com", SelectedTemplates: []int64{2}},
		},
		Services: map[string]ServiceSchedule{
			"onboarding": {
				Enabled:        true,
				TemplateID:     1,
				DateType:       DateTypeSingle,
				ScheduledDate:  date(2099, 6, 1),
				ScheduledTimes: []string{"09:00"},
			},
		},
	}
}

func TestValidateOK(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, validConfig().Validate(now))
}

func TestValidateRejections(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		mutate func(*EmailConfig)
	}{
		{"no recipients", func(c *EmailConfig) { c.Emails = nil }},
		{"bad email", func(c *EmailConfig) { c.Emails = []string{"not-an-address"} }},
		{"missing template id", func(c *EmailConfig) {
			svc := c.Services["onboarding"]
			svc.TemplateID = 0
			c.Services["onboarding"] = svc
		}},
		{"no times", func(c *EmailConfig) {
			svc := c.Services["onboarding"]
			svc.ScheduledTimes = nil
			c.Services["onboarding"] = svc
		}},
		{"bad time format", func(c *EmailConfig) {
			svc := c.Services["onboarding"]
			svc.ScheduledTimes = []string{"9 o'clock"}
			c.Services["onboarding"] = svc
		}},
		{"single without date", func(c *EmailConfig) {
			svc := c.Services["onboarding"]
			svc.ScheduledDate = nil
			c.Services["onboarding"] = svc
		}},
		{"single with past date", func(c *EmailConfig) {
			svc := c.Services["onboarding"]
			svc.ScheduledDate = date(2020, 1, 1)
			c.Services["onboarding"] = svc
		}},
		{"unknown date type", func(c *EmailConfig) {
			svc := c.Services["onboarding"]
			svc.DateType = "sometimes"
			c.Services["onboarding"] = svc
		}},
		{"range inverted", func(c *EmailConfig) {
			svc := c.Services["onboarding"]
			svc.DateType = DateTypeRange
			svc.ScheduledDate = nil
			svc.ScheduledFrom = date(2099, 6, 10)
			svc.ScheduledTo = date(2099, 6, 1)
			c.Services["onboarding"] = svc
		}},
		{"all with dates", func(c *EmailConfig) {
			svc := c.Services["onboarding"]
			svc.DateType = DateTypeAll
			c.Services["onboarding"] = svc
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate(now)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestValidateSkipsDisabledServices(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	cfg := validConfig()
	svc := cfg.Services["onboarding"]
	svc.Enabled = false
	svc.ScheduledTimes = nil // would fail if the service were enabled
	cfg.Services["onboarding"] = svc

	assert.NoError(t, cfg.Validate(now))
}

func TestRecipientsFor(t *testing.T) {
	cfg := validConfig()

	assert.Equal(t, []string{"a@example.com"}, cfg.RecipientsFor(1))
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.RecipientsFor(2))
	assert.Empty(t, cfg.RecipientsFor(99))
}
