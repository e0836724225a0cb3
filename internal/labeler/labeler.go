// Package labeler derives display labels for content items from their payload.
package labeler

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/jakoblorz/go-projectdoc/internal/models"
)

// Labeler derives a label from a payload.
type Labeler interface {
	LabelFor(payload *models.Payload) string
}

// Func adapts a function to Labeler.
type Func func(payload *models.Payload) string

func (f Func) LabelFor(payload *models.Payload) string {
	return f(payload)
}

// Template renders a text/template, with the sprig function map, against
// the payload. Empty output or render errors fall back to the payload ID.
type Template struct {
	tmpl *template.Template
}

// NewTemplate parses text into a Template labeler.
func NewTemplate(text string) (*Template, error) {
	tmpl, err := template.New("label").Funcs(sprig.TxtFuncMap()).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse label template: %w", err)
	}
	return &Template{tmpl: tmpl}, nil
}

func (t *Template) LabelFor(payload *models.Payload) string {
	if payload == nil {
		return ""
	}

	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, payload); err != nil {
		return payload.ID
	}

	label := strings.TrimSpace(buf.String())
	if label == "" {
		return payload.ID
	}
	return label
}
