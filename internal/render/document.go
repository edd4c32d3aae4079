// Package render lays out an approved or draft letter as PDF or HTML.
package render

import (
	"strings"
	"time"
)

const dateLayout = "January 2, 2006"

// Document is a letter ready for layout.
type Document struct {
	SenderName     string
	SenderAddress  []string
	Date           time.Time
	Recipient      string
	Body           string
	Signatory      string
	SignatoryTitle string
}

// Paragraphs splits the body on blank lines. Single newlines inside a
// paragraph are kept so bullet lists survive.
func (d *Document) Paragraphs() []string {
	text := strings.ReplaceAll(d.Body, "\r\n", "\n")
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.Trim(p, "\n "); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (d *Document) DateLine() string {
	return d.Date.Format(dateLayout)
}
