package extract

import "google.golang.org/genai"

// extractionPrompt asks for the exact record shape the talent pool
// stores. Everything outside the JSON object is forbidden so the
// response parses directly into a record.
const extractionPrompt = `You are an expert HR AI. Analyze this candidate's resume (PDF attached). ` +
	`Extract and return a detailed JSON object with the following fields: name, email, ` +
	`location, phone, linkedin, role_applied, summary, education (array), skills (object), ` +
	`certifications (array), projects (array), experience (array), leadership (array), ` +
	`awards (array), keywords (array), languages (array). ` +
	`Do not include any text outside the JSON.`

// buildExtractionSchema creates the structured output schema for
// resume extraction.
func (e *Extractor) buildExtractionSchema() *genai.GenerateContentConfig {
	stringArray := func() *genai.Schema {
		return &genai.Schema{Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}}
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"name":         {Type: genai.TypeString},
				"email":        {Type: genai.TypeString},
				"location":     {Type: genai.TypeString},
				"phone":        {Type: genai.TypeString},
				"linkedin":     {Type: genai.TypeString},
				"role_applied": {Type: genai.TypeString},
				"summary":      {Type: genai.TypeString},
				"education": {
					Type: genai.TypeArray,
					Items: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"institution": {Type: genai.TypeString},
							"degree":      {Type: genai.TypeString},
							"field":       {Type: genai.TypeString},
							"start_year":  {Type: genai.TypeString},
							"end_year":    {Type: genai.TypeString},
							"cgpa":        {Type: genai.TypeString},
							"honors":      stringArray(),
						},
					},
				},
				"skills": {
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"languages":            stringArray(),
						"frameworks_libraries": stringArray(),
						"tools_platforms":      stringArray(),
						"APIs":                 stringArray(),
						"soft_skills":          stringArray(),
					},
				},
				"certifications": {
					Type: genai.TypeArray,
					Items: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"title":  {Type: genai.TypeString},
							"issuer": {Type: genai.TypeString},
							"year":   {Type: genai.TypeString},
						},
					},
				},
				"projects": {
					Type: genai.TypeArray,
					Items: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"title":        {Type: genai.TypeString},
							"description":  {Type: genai.TypeString},
							"technologies": stringArray(),
							"year":         {Type: genai.TypeString},
							"role":         {Type: genai.TypeString},
							"impact":       {Type: genai.TypeString},
						},
					},
				},
				"experience": {
					Type: genai.TypeArray,
					Items: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"company":      {Type: genai.TypeString},
							"title":        {Type: genai.TypeString},
							"start_date":   {Type: genai.TypeString},
							"end_date":     {Type: genai.TypeString},
							"duration":     {Type: genai.TypeString},
							"description":  {Type: genai.TypeString},
							"technologies": stringArray(),
						},
					},
				},
				"leadership": {
					Type: genai.TypeArray,
					Items: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"role":         {Type: genai.TypeString},
							"organization": {Type: genai.TypeString},
							"year":         {Type: genai.TypeString},
							"description":  {Type: genai.TypeString},
						},
					},
				},
				"awards": {
					Type: genai.TypeArray,
					Items: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"title": {Type: genai.TypeString},
							"event": {Type: genai.TypeString},
							"year":  {Type: genai.TypeString},
							"type":  {Type: genai.TypeString},
						},
					},
				},
				"keywords":  stringArray(),
				"languages": stringArray(),
			},
			Required: []string{
				"name", "email", "location", "role_applied", "summary",
				"education", "skills", "experience", "awards",
			},
		},
	}

	if e.cfg.Temperature > 0 {
		temp := e.cfg.Temperature
		config.Temperature = &temp
	}

	return config
}
