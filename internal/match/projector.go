package match

import (
	"encoding/json"
	"fmt"
	"strings"

	"talentmatch/internal/types"
)

// ProjectText flattens a candidate record into a newline-separated text
// block for similarity comparison. The field order and labels are fixed:
// reordering them would shift oracle scores between otherwise identical
// runs, so the projection must stay byte-stable for a given record.
//
// Absent fields produce no line. The Education and Experience labels are
// emitted whenever the key holds an array, even an empty one, while the
// Skills and Awards lines are dropped entirely when empty; downstream
// consumers rely on that asymmetry.
func ProjectText(record types.Record) string {
	var lines []string

	push := func(label, value string) {
		if value != "" {
			lines = append(lines, label+": "+value)
		}
	}

	push("Name", fieldText(record[types.KeyName]))
	push("Email", fieldText(record[types.KeyEmail]))
	push("Location", fieldText(record[types.KeyLocation]))

	roleApplied := fieldText(record[types.KeyRoleApplied])
	push("Role applied", roleApplied)
	if role := fieldText(record[types.KeyRole]); role != "" && role != roleApplied {
		push("Role", role)
	}

	push("Summary", fieldText(record[types.KeySummary]))
	push("Employment Type", fieldText(record[types.KeyEmploymentType]))
	push("Location Preference", fieldText(record[types.KeyLocationPreference]))

	if education, ok := record.Array(types.KeyEducation); ok {
		lines = append(lines, "Education:")
		for _, entry := range education {
			edu, ok := entry.(map[string]any)
			if !ok {
				edu = map[string]any{}
			}
			honors := joinTexts(arrayOf(edu["honors"]), ", ")
			lines = append(lines, fmt.Sprintf("- %s, %s %s, %s, CGPA: %s, Honors: %s",
				fieldText(edu["institution"]),
				fieldText(edu["degree"]),
				fieldText(edu["field"]),
				fieldText(edu["end_year"]),
				fieldText(edu["cgpa"]),
				honors))
		}
	}

	if skills, ok := record.Object(types.KeySkills); ok {
		var all []string
		for _, bucket := range types.SkillBuckets {
			for _, v := range arrayOf(skills[bucket]) {
				all = append(all, fieldText(v))
			}
		}
		if len(all) > 0 {
			lines = append(lines, "Skills: "+strings.Join(all, " "))
		}
	}

	if experience, ok := record.Array(types.KeyExperience); ok {
		lines = append(lines, "Experience:")
		for _, entry := range experience {
			exp, ok := entry.(map[string]any)
			if !ok {
				exp = map[string]any{}
			}
			lines = append(lines, fmt.Sprintf("- %s, %s, %s - %s",
				fieldText(exp["company"]),
				fieldText(exp["title"]),
				fieldText(exp["start_date"]),
				fieldText(exp["end_date"])))
		}
	}

	if awards, ok := record.Array(types.KeyAwards); ok {
		var titles []string
		for _, entry := range awards {
			award, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			if title := fieldText(award["title"]); title != "" {
				titles = append(titles, title)
			}
		}
		if len(titles) > 0 {
			lines = append(lines, "Awards: "+strings.Join(titles, ", "))
		}
	}

	return strings.Join(lines, "\n")
}

// fieldText renders a scalar record value for projection. Strings pass
// through, numbers render in their literal form, everything else is
// treated as absent.
func fieldText(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	default:
		return ""
	}
}

func arrayOf(v any) []any {
	arr, _ := v.([]any)
	return arr
}

func joinTexts(values []any, sep string) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, fieldText(v))
	}
	return strings.Join(parts, sep)
}
