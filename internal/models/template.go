package models

// Template is the content source a job's TemplateID points at. Subject and
// Body may contain {{variable}} placeholders filled in at send time.
type Template struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
