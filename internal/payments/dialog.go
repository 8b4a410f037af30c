package payments

import "context"

// Values holds submitted dialog input keyed by field name.
type Values map[string]string

// FieldUpdate mutates a field's presentation after a change hook fires.
// Nil pointers leave the attribute untouched.
type FieldUpdate struct {
	Name     string
	Hidden   *bool
	Required *bool
}

// DialogField describes one input in a dialog schema.
type DialogField struct {
	Label    string
	Name     string
	Type     string
	Required bool
	Hidden   bool
	Default  string
	OnChange func(ctx context.Context, value string) []FieldUpdate
}

// Dialog is the modal presentation collaborator. Collect shows the field
// schema and blocks until the user submits (values, false, nil) or cancels
// (nil, true, nil). Confirm shows a read-only summary with confirm/cancel.
// Notify shows a transient message.
type Dialog interface {
	Collect(ctx context.Context, title string, fields []DialogField) (Values, bool, error)
	Confirm(ctx context.Context, title, body string) (bool, error)
	Notify(ctx context.Context, msg string)
}

func boolPtr(v bool) *bool { return &v }
