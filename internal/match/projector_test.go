package match

import (
	"strings"
	"testing"

	"talentmatch/internal/types"
)

func TestProjectTextFullRecord(t *testing.T) {
	record := types.Record{
		"name":                "Ada Lovelace",
		"email":               "ada@example.com",
		"location":            "London",
		"role_applied":        "Backend Engineer",
		"role":                "Software Engineer",
		"summary":             "Analytical engine programmer",
		"employment_type":     "Full-time",
		"location_preference": "Remote",
		"education": []any{
			map[string]any{
				"institution": "University of London",
				"degree":      "BSc",
				"field":       "Mathematics",
				"end_year":    "1840",
				"cgpa":        "4.0",
				"honors":      []any{"First Class", "Dean's List"},
			},
		},
		"skills": map[string]any{
			"soft_skills":          []any{"communication"},
			"languages":            []any{"go", "python"},
			"frameworks_libraries": []any{},
			"tools_platforms":      []any{"docker"},
			"APIs":                 []any{"rest"},
		},
		"experience": []any{
			map[string]any{
				"company":    "Analytical Engines Ltd",
				"title":      "Engineer",
				"start_date": "1837",
				"end_date":   "1843",
			},
		},
		"awards": []any{
			map[string]any{"title": "Pioneer Award"},
			map[string]any{"title": "Legacy Medal"},
		},
	}

	want := strings.Join([]string{
		"Name: Ada Lovelace",
		"Email: ada@example.com",
		"Location: London",
		"Role applied: Backend Engineer",
		"Role: Software Engineer",
		"Summary: Analytical engine programmer",
		"Employment Type: Full-time",
		"Location Preference: Remote",
		"Education:",
		"- University of London, BSc Mathematics, 1840, CGPA: 4.0, Honors: First Class, Dean's List",
		"Skills: communication go python docker rest",
		"Experience:",
		"- Analytical Engines Ltd, Engineer, 1837 - 1843",
		"Awards: Pioneer Award, Legacy Medal",
	}, "\n")

	if got := ProjectText(record); got != want {
		t.Errorf("ProjectText mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestProjectTextOmitsAbsentFields(t *testing.T) {
	record := types.Record{
		"name": "Ada",
	}

	if got := ProjectText(record); got != "Name: Ada" {
		t.Errorf("expected single line, got:\n%s", got)
	}
}

func TestProjectTextRoleOnlyWhenDistinct(t *testing.T) {
	tests := []struct {
		name     string
		record   types.Record
		wantRole bool
	}{
		{
			name:     "distinct role",
			record:   types.Record{"role_applied": "Backend Engineer", "role": "SRE"},
			wantRole: true,
		},
		{
			name:     "same role",
			record:   types.Record{"role_applied": "Backend Engineer", "role": "Backend Engineer"},
			wantRole: false,
		},
		{
			name:     "role without application",
			record:   types.Record{"role": "SRE"},
			wantRole: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ProjectText(tt.record)
			hasRole := strings.Contains(got, "\nRole: ") || strings.HasPrefix(got, "Role: ")
			if hasRole != tt.wantRole {
				t.Errorf("Role line present = %v, want %v; output:\n%s", hasRole, tt.wantRole, got)
			}
		})
	}
}

func TestProjectTextEmptyArrayAsymmetry(t *testing.T) {
	// Empty education and experience arrays still emit their labels;
	// empty skills and awards disappear entirely.
	record := types.Record{
		"education":  []any{},
		"experience": []any{},
		"skills": map[string]any{
			"soft_skills": []any{},
		},
		"awards": []any{},
	}

	got := ProjectText(record)

	if !strings.Contains(got, "Education:") {
		t.Error("empty education array should still emit its label")
	}
	if !strings.Contains(got, "Experience:") {
		t.Error("empty experience array should still emit its label")
	}
	if strings.Contains(got, "Skills:") {
		t.Error("empty skills should not emit a line")
	}
	if strings.Contains(got, "Awards:") {
		t.Error("empty awards should not emit a line")
	}
}

func TestProjectTextMalformedEntries(t *testing.T) {
	record := types.Record{
		"education":  []any{"not an object"},
		"experience": []any{42},
		"awards":     []any{"not an object", map[string]any{"title": "Real Award"}},
	}

	got := ProjectText(record)

	// Malformed education and experience entries render with empty fields.
	if !strings.Contains(got, "- ,  , , CGPA: , Honors: ") {
		t.Errorf("expected placeholder education line, got:\n%s", got)
	}
	if !strings.Contains(got, "- , ,  - ") {
		t.Errorf("expected placeholder experience line, got:\n%s", got)
	}
	// Non-object awards are skipped, titled ones survive.
	if !strings.Contains(got, "Awards: Real Award") {
		t.Errorf("expected surviving award title, got:\n%s", got)
	}
}

func TestProjectTextNumericValues(t *testing.T) {
	record := types.Record{
		"education": []any{
			map[string]any{
				"institution": "MIT",
				"degree":      "BSc",
				"field":       "CS",
				"end_year":    float64(2020),
				"cgpa":        3.5,
			},
		},
	}

	got := ProjectText(record)
	if !strings.Contains(got, "- MIT, BSc CS, 2020, CGPA: 3.5, Honors: ") {
		t.Errorf("numeric fields should render in literal form, got:\n%s", got)
	}
}

func TestProjectTextDeterministic(t *testing.T) {
	record := types.Record{
		"name": "Ada",
		"skills": map[string]any{
			"languages":       []any{"go"},
			"tools_platforms": []any{"docker"},
		},
	}

	first := ProjectText(record)
	for range 10 {
		if got := ProjectText(record); got != first {
			t.Fatal("projection is not deterministic across runs")
		}
	}
}

func BenchmarkProjectText(b *testing.B) {
	record := types.Record{
		"name":         "Ada Lovelace",
		"email":        "ada@example.com",
		"role_applied": "Backend Engineer",
		"summary":      "Analytical engine programmer",
		"skills": map[string]any{
			"languages":       []any{"go", "python", "ruby"},
			"tools_platforms": []any{"docker", "kubernetes"},
		},
		"experience": []any{
			map[string]any{"company": "A", "title": "B", "start_date": "2020", "end_date": "2023"},
		},
	}

	for b.Loop() {
		ProjectText(record)
	}
}
