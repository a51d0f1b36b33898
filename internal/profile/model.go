package profile

import (
	"encoding/json"
	"maps"
)

// Reserved profile keys. Everything else is free-form metadata.
const (
	KeyResumeText     = "resume_text"
	KeyJobDescription = "job_description"
	KeyAPIKey         = "openai_api_key"
)

// Profile is the singleton user profile. On disk and over HTTP it is one flat
// JSON object: the reserved keys plus arbitrary metadata fields.
type Profile struct {
	ResumeText     string
	JobDescription string
	APIKey         string
	Metadata       map[string]any
}

// MarshalJSON flattens the profile into a single object.
func (p Profile) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Metadata)+3)
	maps.Copy(out, p.Metadata)
	if p.ResumeText != "" {
		out[KeyResumeText] = p.ResumeText
	}
	if p.JobDescription != "" {
		out[KeyJobDescription] = p.JobDescription
	}
	if p.APIKey != "" {
		out[KeyAPIKey] = p.APIKey
	}
	return json.Marshal(out)
}

// UnmarshalJSON splits a flat object into reserved fields and metadata.
// Reserved keys holding non-string values are dropped.
func (p *Profile) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Profile{}
	for k, v := range raw {
		switch k {
		case KeyResumeText:
			p.ResumeText, _ = v.(string)
		case KeyJobDescription:
			p.JobDescription, _ = v.(string)
		case KeyAPIKey:
			p.APIKey, _ = v.(string)
		default:
			if p.Metadata == nil {
				p.Metadata = make(map[string]any)
			}
			p.Metadata[k] = v
		}
	}
	return nil
}

// Clone returns a copy whose metadata map can be mutated independently.
func (p Profile) Clone() Profile {
	c := p
	if p.Metadata != nil {
		c.Metadata = maps.Clone(p.Metadata)
	}
	return c
}
