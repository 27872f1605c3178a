package email

import (
	"context"
	"errors"
	"strings"
	"time"

	"SendPlan/internal/models"
)

var ErrTemplateNotFound = errors.New("email template not found")

// TemplateSource resolves a job's template id to its content.
type TemplateSource interface {
	TemplateByID(ctx context.Context, id int64) (*models.Template, error)
}

// StaticTemplates is an in-memory TemplateSource keyed by template id.
type StaticTemplates map[int64]models.Template

func (s StaticTemplates) TemplateByID(_ context.Context, id int64) (*models.Template, error) {
	t, ok := s[id]
	if !ok {
		return nil, ErrTemplateNotFound
	}
	return &t, nil
}

// TemplateVars holds the values substituted into {{variable}} placeholders.
// Unknown placeholders are left untouched so a template typo is visible in
// the delivered mail instead of silently blanked.
type TemplateVars map[string]string

// BaseVars returns the date variables every send gets for free.
func BaseVars(now, scheduledAt time.Time) TemplateVars {
	return TemplateVars{
		"current_date":     now.Format("2006-01-02"),
		"current_datetime": now.Format("2006-01-02 15:04:05"),
		"scheduled_date":   scheduledAt.Format("2006-01-02"),
		"deadline_date":    scheduledAt.Format("2006-01-02"),
	}
}

// RenderTemplate substitutes vars into the template's subject and body.
func RenderTemplate(t *models.Template, vars TemplateVars) (subject, body string) {
	pairs := make([]string, 0, len(vars)*2)
	for name, value := range vars {
		pairs = append(pairs, "{{"+name+"}}", value)
	}
	r := strings.NewReplacer(pairs...)
	return r.Replace(t.Subject), r.Replace(t.Body)
}
