package render

import (
	"html/template"
	"io"
	"strings"
)

var letterHTML = template.Must(template.New("letter").Funcs(template.FuncMap{
	"lines": func(s string) []string { return strings.Split(s, "\n") },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Results letter</title>
<style>
body { font-family: "Times New Roman", serif; max-width: 7in; margin: 1in auto; font-size: 12pt; }
.letterhead { font-family: Helvetica, Arial, sans-serif; margin-bottom: 2em; }
.letterhead .name { font-weight: bold; font-size: 14pt; }
.signatory { font-weight: bold; margin-top: 3em; }
.title { font-style: italic; }
</style>
</head>
<body>
<div class="letterhead">
<div class="name">{{ .SenderName }}</div>
{{- range .SenderAddress }}
<div>{{ . }}</div>
{{- end }}
</div>
<p>{{ .DateLine }}</p>
<p>Dear {{ .Recipient }},</p>
{{- range .Paragraphs }}
<p>{{ range $i, $l := lines . }}{{ if $i }}<br>{{ end }}{{ $l }}{{ end }}</p>
{{- end }}
<p>Sincerely,</p>
<div class="signatory">{{ .Signatory }}</div>
{{- with .SignatoryTitle }}
<div class="title">{{ . }}</div>
{{- end }}
</body>
</html>
`))

// RenderHTML writes the document as a standalone HTML page. All letter text
// is escaped.
func RenderHTML(w io.Writer, doc *Document) error {
	return letterHTML.Execute(w, doc)
}
