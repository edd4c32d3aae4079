package lettergen

import (
	"encoding/json"
	"fmt"
	"strings"
)

const promptTemplate = `You are a medical transcriptionist at a GP surgery writing a blood test
results letter that a patient can easily understand.

Patient and results as JSON:
%s

Patient details:
Name: %s
Sex: %s
Address: %s
Letter date: %s
%s
Instructions:
- Write in the tone of a genuine surgery results letter, in plain and reassuring English.
- Mention each test by name with its result, unit and normal range where known.
- If a result is flagged high or low, explain possible reasons gently and say what the patient should do next.
- If a result is normal, reassure the patient.
- The address block, date, the greeting "%s," and the sign-off are added separately.

Output only the body paragraphs of the letter. No JSON, code, headings or notes.`

// BuildPrompt renders the instruction sent to the language model.
func BuildPrompt(in *Input) (string, error) {
	data, err := json.Marshal(in.Batch)
	if err != nil {
		return "", fmt.Errorf("failed to encode results: %w", err)
	}

	doctor := ""
	if name := strings.TrimSpace(in.DoctorName); name != "" {
		doctor = fmt.Sprintf("Reviewing doctor: %s\n", name)
	}

	p := in.Batch.Patient
	return fmt.Sprintf(promptTemplate,
		data,
		p.Name,
		p.Sex,
		p.Address,
		in.Date.Format("2 January 2006"),
		doctor,
		Salutation(p),
	), nil
}
