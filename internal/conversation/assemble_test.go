package conversation

import (
	"strings"
	"testing"
)

func TestAssembleResumeScenario(t *testing.T) {
	src := Sources{
		ResumeText: "Built ETL pipelines at Acme",
		Metadata:   map[string]any{"name": "Dana"},
	}
	q := Question{Persona: "data engineer", Transcript: "Tell me about yourself"}

	turns, err := Assemble(src, nil, q)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if len(turns) != 3 {
		t.Fatalf("expected 3 turns, got %d: %+v", len(turns), turns)
	}
	if turns[0].Role != RoleSystem || !strings.Contains(turns[0].Content, "data engineer") {
		t.Fatalf("unexpected system turn: %+v", turns[0])
	}
	if turns[1].Content != "Candidate resume:\nBuilt ETL pipelines at Acme" {
		t.Fatalf("unexpected resume turn: %q", turns[1].Content)
	}
	if turns[2].Role != RoleUser || turns[2].Content != "Tell me about yourself" || turns[2].HasImage() {
		t.Fatalf("unexpected final turn: %+v", turns[2])
	}
}

func TestAssembleResumeExcludesProfileMetadata(t *testing.T) {
	for _, resume := range []string{"x", "  resume  ", "line\nline"} {
		turns, err := Assemble(Sources{ResumeText: resume, Metadata: map[string]any{"skills": []string{"go"}}}, nil, Question{Transcript: "q"})
		if err != nil {
			t.Fatalf("assemble: %v", err)
		}
		for _, turn := range turns {
			if strings.HasPrefix(turn.Content, profileLabel) {
				t.Fatalf("resume %q: profile turn must not be present", resume)
			}
		}
	}
}

func TestAssembleFallsBackToProfileMetadata(t *testing.T) {
	src := Sources{
		ResumeText: "   \n",
		Metadata:   map[string]any{"skills": []any{"spark"}, "name": "Dana"},
	}
	turns, err := Assemble(src, nil, Question{Transcript: "q"})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if len(turns) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(turns))
	}
	want := "Candidate profile:\n{\n  \"name\": \"Dana\",\n  \"skills\": [\n    \"spark\"\n  ]\n}"
	if turns[1].Content != want {
		t.Fatalf("unexpected profile turn:\n%s", turns[1].Content)
	}
}

func TestAssembleJobDescriptionOverride(t *testing.T) {
	src := Sources{JobDescription: "profile jd"}

	turns, _ := Assemble(src, nil, Question{Transcript: "q", JobDescription: "request jd"})
	if turns[1].Content != "Job description:\nrequest jd" {
		t.Fatalf("expected request override, got %q", turns[1].Content)
	}

	turns, _ = Assemble(src, nil, Question{Transcript: "q"})
	if turns[1].Content != "Job description:\nprofile jd" {
		t.Fatalf("expected profile jd, got %q", turns[1].Content)
	}

	turns, _ = Assemble(Sources{}, nil, Question{Transcript: "q"})
	if len(turns) != 2 {
		t.Fatalf("expected system + question only, got %d", len(turns))
	}
}

func TestAssembleKeepsHistoryOrderAndDoesNotMutate(t *testing.T) {
	history := []Turn{
		{Role: RoleUser, Content: "q1"},
		{Role: RoleAssistant, Content: "a1"},
		{Role: RoleUser, Content: "q2"},
		{Role: RoleAssistant, Content: "a2"},
	}
	before := append([]Turn(nil), history...)
	src := Sources{Metadata: map[string]any{"name": "Dana"}}

	turns, err := Assemble(src, history, Question{Transcript: "q3"})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	got := turns[2:6]
	for i := range history {
		if got[i] != before[i] || history[i] != before[i] {
			t.Fatalf("history turn %d changed or reordered: %+v", i, got[i])
		}
	}
	if len(src.Metadata) != 1 {
		t.Fatalf("metadata mutated: %+v", src.Metadata)
	}
}

func TestAssembleScreenshotUsesVisionPrompt(t *testing.T) {
	turns, err := Assemble(Sources{}, nil, Question{Transcript: "solve", Screenshot: "iVBORw0KGgo"})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if !strings.Contains(turns[0].Content, "screenshot") {
		t.Fatalf("expected vision persona, got %q", turns[0].Content)
	}
	last := turns[len(turns)-1]
	if last.ImageURL != "data:image/png;base64,iVBORw0KGgo" || last.Content != "solve" {
		t.Fatalf("unexpected image turn: %+v", last)
	}
}

func TestNormalizeScreenshot(t *testing.T) {
	cases := map[string]string{
		"":                          "",
		"  ":                        "",
		"abc":                       "data:image/png;base64,abc",
		"data:image/jpeg;base64,xy": "data:image/jpeg;base64,xy",
		"https://example.com/a.png": "https://example.com/a.png",
	}
	for in, want := range cases {
		if got := NormalizeScreenshot(in); got != want {
			t.Fatalf("NormalizeScreenshot(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSystemPromptDefaultsPersona(t *testing.T) {
	if got := SystemPrompt("", false); !strings.Contains(got, DefaultPersona) {
		t.Fatalf("expected default persona in %q", got)
	}
}
