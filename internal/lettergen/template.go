package lettergen

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/jwalitptl/scribe-api/internal/model"
)

const letterBody = `Your recent blood test results{{ with .DoctorName }}, reviewed by {{ . }},{{ end }} are summarised below.
{{ range .Batch.Results }}
- {{ .TestName }}: {{ .Value }}{{ with .Unit }} {{ . }}{{ end }}{{ with rangeText . }} (normal range {{ . }}){{ end }}. {{ interpret . }}{{ end }}

{{ if abnormal .Batch.Results -}}
Some of your results are outside the usual range. This is often nothing to worry about, but please book a routine appointment with the surgery so we can talk them through with you.
{{- else -}}
All of your results are within the expected range and no further action is needed.
{{- end }}

If you have any questions about these results, please contact the surgery.`

var templateFuncs = template.FuncMap{
	"rangeText": rangeText,
	"interpret": interpret,
	"abnormal":  abnormal,
}

// TemplateGenerator writes a fixed-format letter. Same input, same output.
type TemplateGenerator struct {
	tmpl *template.Template
}

func NewTemplateGenerator() *TemplateGenerator {
	return &TemplateGenerator{
		tmpl: template.Must(template.New("letter").Funcs(templateFuncs).Parse(letterBody)),
	}
}

func (g *TemplateGenerator) Generate(_ context.Context, in *Input) (string, error) {
	var buf bytes.Buffer
	if err := g.tmpl.Execute(&buf, in); err != nil {
		return "", fmt.Errorf("failed to execute letter template: %w", err)
	}
	return buf.String(), nil
}

func rangeText(r model.ResultView) string {
	switch {
	case r.ReferenceLow != nil && r.ReferenceHigh != nil && (*r.ReferenceLow != "" || *r.ReferenceHigh != ""):
		return strings.TrimSpace(*r.ReferenceLow + " to " + *r.ReferenceHigh)
	default:
		return ""
	}
}

type flagKind int

const (
	flagNone flagKind = iota
	flagNormal
	flagHigh
	flagLow
	flagOther
)

func classify(flag string) flagKind {
	switch strings.ToUpper(strings.TrimSpace(flag)) {
	case "":
		return flagNone
	case "N", "NORMAL":
		return flagNormal
	case "H", "HH", "HIGH":
		return flagHigh
	case "L", "LL", "LOW":
		return flagLow
	default:
		return flagOther
	}
}

func interpret(r model.ResultView) string {
	switch classify(r.Flag) {
	case flagNormal:
		return "This is within the usual range."
	case flagHigh:
		return "This is higher than the usual range."
	case flagLow:
		return "This is lower than the usual range."
	case flagOther:
		return fmt.Sprintf("This result has been marked %q for review.", r.Flag)
	default:
		return "No concerns were flagged with this result."
	}
}

func abnormal(results []model.ResultView) bool {
	for _, r := range results {
		switch classify(r.Flag) {
		case flagHigh, flagLow, flagOther:
			return true
		}
	}
	return false
}
