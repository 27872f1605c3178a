package models

import (
	"fmt"
	"net/mail"
	"time"
)

type DateType string

const (
	DateTypeSingle DateType = "single"
	DateTypeRange  DateType = "range"
	DateTypeAll    DateType = "all"
)

// TemplateSelection assigns a set of template ids to one recipient address.
type TemplateSelection struct {
	Email             string  `json:"email"`
	SelectedTemplates []int64 `json:"selectedTemplates"`
}

// ServiceSchedule is one schedule block of a client's email configuration.
// DateType "single" fires once, "range" fires every day between From and To,
// "all" fires daily with no end date (recurring).
type ServiceSchedule struct {
	Enabled        bool       `json:"enabled"`
	TemplateID     int64      `json:"templateId"`
	TemplateName   string     `json:"templateName,omitempty"`
	DateType       DateType   `json:"dateType"`
	ScheduledDate  *time.Time `json:"scheduledDate,omitempty"`
	ScheduledFrom  *time.Time `json:"scheduledDateFrom,omitempty"`
	ScheduledTo    *time.Time `json:"scheduledDateTo,omitempty"`
	ScheduledTimes []string   `json:"scheduledTimes"`
}

// EmailConfig is the full per-client configuration the Config Writer turns
// into a lineage of scheduled jobs.
type EmailConfig struct {
	Emails    []string                     `json:"emails"`
	Templates map[string]TemplateSelection `json:"emailTemplates"`
	Services  map[string]ServiceSchedule   `json:"services"`
}

// RecipientsFor returns the addresses whose template selection includes
// templateID, in the order of the Emails list.
func (c *EmailConfig) RecipientsFor(templateID int64) []string {
	var out []string
	for _, email := range c.Emails {
		sel, ok := c.Templates[email]
		if !ok {
			continue
		}
		for _, id := range sel.SelectedTemplates {
			if id == templateID {
				out = append(out, email)
				break
			}
		}
	}
	return out
}

// Validate checks the configuration synchronously, before any job is
// created. now anchors the past-date checks.
func (c *EmailConfig) Validate(now time.Time) error {
	if len(c.Emails) == 0 {
		return fmt.Errorf("%w: at least one recipient email is required", ErrInvalidConfig)
	}
	for _, email := range c.Emails {
		if _, err := mail.ParseAddress(email); err != nil {
			return fmt.Errorf("%w: invalid email address %q", ErrInvalidConfig, email)
		}
	}
	today := now.Truncate(24 * time.Hour)
	for name, svc := range c.Services {
		if !svc.Enabled {
			continue
		}
		if svc.TemplateID == 0 {
			return fmt.Errorf("%w: service %s: templateId is required", ErrInvalidConfig, name)
		}
		if len(svc.ScheduledTimes) == 0 {
			return fmt.Errorf("%w: service %s: at least one scheduled time is required", ErrInvalidConfig, name)
		}
		for _, ts := range svc.ScheduledTimes {
			if _, err := time.Parse("15:04", ts); err != nil {
				return fmt.Errorf("%w: service %s: invalid time %q, want HH:MM", ErrInvalidConfig, name, ts)
			}
		}
		switch svc.DateType {
		case DateTypeSingle:
			if svc.ScheduledDate == nil {
				return fmt.Errorf("%w: service %s: scheduledDate is required for dateType single", ErrInvalidConfig, name)
			}
			if svc.ScheduledFrom != nil || svc.ScheduledTo != nil {
				return fmt.Errorf("%w: service %s: date range fields must be empty for dateType single", ErrInvalidConfig, name)
			}
			if svc.ScheduledDate.Before(today) {
				return fmt.Errorf("%w: service %s: scheduledDate cannot be in the past", ErrInvalidConfig, name)
			}
		case DateTypeRange:
			if svc.ScheduledFrom == nil || svc.ScheduledTo == nil {
				return fmt.Errorf("%w: service %s: scheduledDateFrom and scheduledDateTo are required for dateType range", ErrInvalidConfig, name)
			}
			if svc.ScheduledDate != nil {
				return fmt.Errorf("%w: service %s: scheduledDate must be empty for dateType range", ErrInvalidConfig, name)
			}
			if !svc.ScheduledFrom.Before(*svc.ScheduledTo) {
				return fmt.Errorf("%w: service %s: scheduledDateTo must be after scheduledDateFrom", ErrInvalidConfig, name)
			}
			if svc.ScheduledFrom.Before(today) {
				return fmt.Errorf("%w: service %s: scheduledDateFrom cannot be in the past", ErrInvalidConfig, name)
			}
		case DateTypeAll:
			if svc.ScheduledDate != nil || svc.ScheduledFrom != nil || svc.ScheduledTo != nil {
				return fmt.Errorf("%w: service %s: all date fields must be empty for dateType all", ErrInvalidConfig, name)
			}
		default:
			return fmt.Errorf("%w: service %s: dateType must be single, range or all", ErrInvalidConfig, name)
		}
	}
	return nil
}
