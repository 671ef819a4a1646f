package standard

import (
	"github.com/phobologic/annotate/internal/errs"
	"github.com/phobologic/annotate/internal/model"
)

// Display carries presentation hints for a field.
type Display struct {
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
	Group string `json:"group,omitempty" yaml:"group,omitempty"`
	Order *int64 `json:"order,omitempty" yaml:"order,omitempty"`
}

func (a *Display) Init(args model.Args) error {
	m, err := props(args, "label")
	if err != nil {
		return err
	}
	if err := only(m, "label", "group", "order"); err != nil {
		return err
	}
	if a.Label, _, err = stringProp(m, "label"); err != nil {
		return err
	}
	if a.Group, _, err = stringProp(m, "group"); err != nil {
		return err
	}
	a.Order, err = intProp(m, "order")
	return err
}

// Format names a printf-style format used to render a field.
type Format struct {
	Format  string `json:"format" yaml:"format"`
	Default string `json:"default,omitempty" yaml:"default,omitempty"`
}

func (a *Format) Init(args model.Args) error {
	m, err := props(args, "format")
	if err != nil {
		return err
	}
	if err := only(m, "format", "default"); err != nil {
		return err
	}
	format, ok, err := stringProp(m, "format")
	if err != nil {
		return err
	}
	if !ok {
		return errs.New(errs.Configuration, "format requires a format property")
	}
	a.Format = format
	a.Default, _, err = stringProp(m, "default")
	return err
}

// Note is a free-form remark. It repeats and is inherited everywhere.
type Note struct {
	Text string `json:"text" yaml:"text"`
}

func (a *Note) Init(args model.Args) error {
	m, err := props(args, "text")
	if err != nil {
		return err
	}
	if err := only(m, "text"); err != nil {
		return err
	}
	text, ok, err := stringProp(m, "text")
	if err != nil {
		return err
	}
	if !ok {
		return errs.New(errs.Configuration, "note requires a text property")
	}
	a.Text = text
	return nil
}
