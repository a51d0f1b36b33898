package conversation

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	resumeLabel         = "Candidate resume:\n"
	profileLabel        = "Candidate profile:\n"
	jobDescriptionLabel = "Job description:\n"
)

// Sources is the profile-derived context available to a request.
// Metadata must already exclude the resume text, job description and
// credential.
type Sources struct {
	ResumeText     string
	JobDescription string
	Metadata       map[string]any
}

// Question is the part of an incoming request the assembler reads.
type Question struct {
	Persona        string
	Transcript     string
	Screenshot     string
	JobDescription string
}

// HasScreenshot reports whether the question carries an image.
func (q Question) HasScreenshot() bool {
	return strings.TrimSpace(q.Screenshot) != ""
}

// Assemble builds the ordered turns for one upstream call:
// persona, resume or profile, job description, history, then the question.
// It only reads its inputs; history is copied.
func Assemble(src Sources, history []Turn, q Question) ([]Turn, error) {
	vision := q.HasScreenshot()
	turns := make([]Turn, 0, len(history)+4)
	turns = append(turns, Turn{Role: RoleSystem, Content: SystemPrompt(q.Persona, vision)})

	if strings.TrimSpace(src.ResumeText) != "" {
		turns = append(turns, Turn{Role: RoleUser, Content: resumeLabel + src.ResumeText})
	} else if len(src.Metadata) > 0 {
		// encoding/json sorts map keys, which keeps the turn stable across requests.
		raw, err := json.MarshalIndent(src.Metadata, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode profile metadata: %w", err)
		}
		turns = append(turns, Turn{Role: RoleUser, Content: profileLabel + string(raw)})
	}

	jd := strings.TrimSpace(q.JobDescription)
	if jd == "" {
		jd = strings.TrimSpace(src.JobDescription)
	}
	if jd != "" {
		turns = append(turns, Turn{Role: RoleUser, Content: jobDescriptionLabel + jd})
	}

	turns = append(turns, history...)

	last := Turn{Role: RoleUser, Content: q.Transcript}
	if vision {
		last.ImageURL = NormalizeScreenshot(q.Screenshot)
	}
	return append(turns, last), nil
}

// NormalizeScreenshot turns a bare base64 payload into a PNG data URL.
// Data and http(s) URLs pass through.
func NormalizeScreenshot(s string) string {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return ""
	case strings.HasPrefix(s, "data:"), strings.HasPrefix(s, "http://"), strings.HasPrefix(s, "https://"):
		return s
	default:
		return "data:image/png;base64," + s
	}
}

// Text concatenates turn contents for token estimation.
func Text(turns []Turn) string {
	var b strings.Builder
	for _, t := range turns {
		b.WriteString(t.Content)
		b.WriteByte('\n')
	}
	return b.String()
}
