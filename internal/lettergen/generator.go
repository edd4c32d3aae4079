// Package lettergen writes the body of a patient results letter, either with
// a language model served by Ollama or from a fixed template.
package lettergen

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jwalitptl/scribe-api/internal/model"
	"github.com/jwalitptl/scribe-api/pkg/logger"
)

// Input is everything a generator may use to write a letter.
type Input struct {
	Batch      *model.BatchView
	DoctorName string
	Date       time.Time
}

type Generator interface {
	Generate(ctx context.Context, in *Input) (string, error)
}

// Addressee is how the patient is named after "Dear".
func Addressee(name, sex string) string {
	switch model.Sex(sex) {
	case model.SexMale:
		return "Mr. " + name
	case model.SexFemale:
		return "Ms. " + name
	default:
		return name
	}
}

// Salutation greets the patient according to their recorded sex.
func Salutation(p model.PatientView) string {
	return "Dear " + Addressee(p.Name, p.Sex)
}

// Chain tries the primary generator and falls back to the secondary one on
// any error. A nil primary always uses the fallback.
type Chain struct {
	primary  Generator
	fallback Generator
	logger   *logger.Logger
}

func NewChain(primary, fallback Generator, logger *logger.Logger) *Chain {
	return &Chain{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// Compose returns the letter body and where it came from.
func (c *Chain) Compose(ctx context.Context, in *Input) (string, model.LetterSource, error) {
	if c.primary != nil {
		text, err := c.primary.Generate(ctx, in)
		if err == nil {
			return text, model.LetterSourceLLM, nil
		}
		c.logger.Warn("llm letter generation failed, using template",
			"patient_id", in.Batch.Patient.ID, "error", err.Error())
	}

	text, err := c.fallback.Generate(ctx, in)
	if err != nil {
		return "", "", fmt.Errorf("failed to render letter template: %w", err)
	}
	return strings.TrimSpace(text), model.LetterSourceTemplate, nil
}
