package sessions

import "time"

// Session is the persisted metadata of one named interview.
type Session struct {
	Name            string    `json:"session_name"`
	JobDescription  string    `json:"job_description"`
	ResumeText      string    `json:"resume_text"`
	ModelPreference string    `json:"model_preference,omitempty"`
	ResumeFile      string    `json:"resume_file,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Entry is one logged question and answer.
type Entry struct {
	ID            string    `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	Question      string    `json:"question"`
	Response      string    `json:"response"`
	HadScreenshot bool      `json:"had_screenshot"`
}

// Summary is the list view of a session.
type Summary struct {
	Name                  string    `json:"name"`
	CreatedAt             time.Time `json:"created_at"`
	JobDescriptionPreview string    `json:"job_description_preview"`
}

const previewChars = 100

func summarize(s Session) Summary {
	preview := []rune(s.JobDescription)
	if len(preview) > previewChars {
		preview = preview[:previewChars]
	}
	return Summary{Name: s.Name, CreatedAt: s.CreatedAt, JobDescriptionPreview: string(preview)}
}
