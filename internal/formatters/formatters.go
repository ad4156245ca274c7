package formatters

import (
	"encoding/json"
	"fmt"
	"strings"

	"talentmatch/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	// Register default formatters
	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", "ScoredCandidates", &SearchTextFormatter{})
	registry.RegisterFormatter("markdown", "ScoredCandidates", &SearchMarkdownFormatter{})
	registry.RegisterFormatter("text", "Record", &RecordTextFormatter{})
	registry.RegisterFormatter("markdown", "Record", &RecordMarkdownFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	// Try specific formatter first
	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		// Fall back to generic formatter
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case []types.ScoredCandidate:
		return "ScoredCandidates"
	case types.Record:
		return "Record"
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// SearchTextFormatter renders a ranked candidate list as plain text
type SearchTextFormatter struct{}

func (stf *SearchTextFormatter) Format(data any) (string, error) {
	scored, ok := data.([]types.ScoredCandidate)
	if !ok {
		return "", fmt.Errorf("expected []ScoredCandidate, got %T", data)
	}

	var output strings.Builder

	output.WriteString("=== SEARCH RESULTS ===\n\n")
	if len(scored) == 0 {
		output.WriteString("No candidates matched.\n")
		return output.String(), nil
	}

	for i, sc := range scored {
		output.WriteString(fmt.Sprintf("%d. %s (match: %d%%)\n", i+1, candidateLabel(sc.Record), sc.Match))
		if role := sc.Record.String(types.KeyRoleApplied); role != "" {
			output.WriteString(fmt.Sprintf("   Role applied: %s\n", role))
		}
		if location := sc.Record.String(types.KeyLocation); location != "" {
			output.WriteString(fmt.Sprintf("   Location: %s\n", location))
		}
	}

	return output.String(), nil
}

func (stf *SearchTextFormatter) SupportedType() string {
	return "ScoredCandidates"
}

// SearchMarkdownFormatter renders a ranked candidate list as markdown
type SearchMarkdownFormatter struct{}

func (smf *SearchMarkdownFormatter) Format(data any) (string, error) {
	scored, ok := data.([]types.ScoredCandidate)
	if !ok {
		return "", fmt.Errorf("expected []ScoredCandidate, got %T", data)
	}

	var output strings.Builder

	output.WriteString("# Search Results\n\n")
	if len(scored) == 0 {
		output.WriteString("No candidates matched.\n")
		return output.String(), nil
	}

	output.WriteString("| # | Candidate | Match | Role applied | Location |\n")
	output.WriteString("|---|-----------|-------|--------------|----------|\n")
	for i, sc := range scored {
		output.WriteString(fmt.Sprintf("| %d | %s | %d%% | %s | %s |\n",
			i+1,
			candidateLabel(sc.Record),
			sc.Match,
			sc.Record.String(types.KeyRoleApplied),
			sc.Record.String(types.KeyLocation)))
	}

	return output.String(), nil
}

func (smf *SearchMarkdownFormatter) SupportedType() string {
	return "ScoredCandidates"
}

// RecordTextFormatter renders a single candidate record as plain text
type RecordTextFormatter struct{}

func (rtf *RecordTextFormatter) Format(data any) (string, error) {
	record, ok := data.(types.Record)
	if !ok {
		return "", fmt.Errorf("expected Record, got %T", data)
	}

	var output strings.Builder

	output.WriteString("=== CANDIDATE ===\n")
	writeRecordLine(&output, "Name", record.String(types.KeyName))
	writeRecordLine(&output, "Email", record.String(types.KeyEmail))
	writeRecordLine(&output, "ID", record.Identity(types.KeyID))
	writeRecordLine(&output, "Role applied", record.String(types.KeyRoleApplied))
	writeRecordLine(&output, "Location", record.String(types.KeyLocation))
	writeRecordLine(&output, "Meeting", record.String(types.KeyMeetingID))
	writeRecordLine(&output, "Status", record.String(types.KeyStatus))

	return output.String(), nil
}

func (rtf *RecordTextFormatter) SupportedType() string {
	return "Record"
}

// RecordMarkdownFormatter renders a single candidate record as markdown
type RecordMarkdownFormatter struct{}

func (rmf *RecordMarkdownFormatter) Format(data any) (string, error) {
	record, ok := data.(types.Record)
	if !ok {
		return "", fmt.Errorf("expected Record, got %T", data)
	}

	var output strings.Builder

	name := candidateLabel(record)
	output.WriteString(fmt.Sprintf("# %s\n\n", name))
	writeMarkdownField(&output, "Email", record.String(types.KeyEmail))
	writeMarkdownField(&output, "ID", record.Identity(types.KeyID))
	writeMarkdownField(&output, "Role applied", record.String(types.KeyRoleApplied))
	writeMarkdownField(&output, "Location", record.String(types.KeyLocation))
	writeMarkdownField(&output, "Meeting", record.String(types.KeyMeetingID))
	writeMarkdownField(&output, "Status", record.String(types.KeyStatus))

	return output.String(), nil
}

func (rmf *RecordMarkdownFormatter) SupportedType() string {
	return "Record"
}

// candidateLabel picks the most useful display handle for a record
func candidateLabel(record types.Record) string {
	if name := record.String(types.KeyName); name != "" {
		return name
	}
	if email := record.String(types.KeyEmail); email != "" {
		return email
	}
	if id := record.Identity(types.KeyID); id != "" {
		return id
	}
	return "(unidentified)"
}

func writeRecordLine(output *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	output.WriteString(fmt.Sprintf("%s: %s\n", label, value))
}

func writeMarkdownField(output *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	output.WriteString(fmt.Sprintf("**%s:** %s\n\n", label, value))
}

// GlobalRegistry is the default formatter registry used by the CLI
var GlobalRegistry = NewFormatterRegistry()
