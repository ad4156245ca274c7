package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/genai"

	"talentmatch/internal/config"
	"talentmatch/internal/errors"
	"talentmatch/internal/types"
)

// Extractor turns an uploaded resume PDF into a structured candidate
// record using Gemini. The PDF is pushed through the Files API first;
// generation only starts once the upload reaches a terminal state.
type Extractor struct {
	client *genai.Client
	cfg    config.ExtractConfig
	cb     *gobreaker.CircuitBreaker[*genai.GenerateContentResponse]
	logger *errors.Logger
}

// NewExtractor creates an extractor for the configured provider.
func NewExtractor(cfg config.ExtractConfig, logger *errors.Logger) (*Extractor, error) {
	if cfg.Provider != "gemini" {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported extraction provider: %s", cfg.Provider), nil)
	}
	if cfg.APIKey == "" {
		return nil, errors.NewConfigError(errors.ErrCodeMissingAPIKey,
			"Gemini API key is required for resume extraction", nil)
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, errors.NewAIError(errors.ErrCodeExtractionFailed,
			"Failed to create Gemini client", err)
	}

	e := &Extractor{
		client: client,
		cfg:    cfg,
		logger: logger,
	}

	if cfg.CircuitBreaker.Enabled {
		settings := gobreaker.Settings{
			Name:        "resume-extraction",
			MaxRequests: cfg.CircuitBreaker.MaxRequests,
			Interval:    cfg.CircuitBreaker.Interval,
			Timeout:     cfg.CircuitBreaker.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= cfg.CircuitBreaker.MinRequests &&
					failureRatio >= cfg.CircuitBreaker.FailureThreshold
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				if logger != nil {
					logger.Info("Circuit breaker state changed",
						"name", name,
						"from", from.String(),
						"to", to.String())
				}
			},
		}
		e.cb = gobreaker.NewCircuitBreaker[*genai.GenerateContentResponse](settings)
	}

	return e, nil
}

// Extract uploads the PDF, waits for it to become readable, and runs
// structured extraction over it. The returned record carries only what
// the model produced; intake identity fields are stamped separately by
// AssignIntakeFields.
func (e *Extractor) Extract(ctx context.Context, pdf []byte) (types.Record, error) {
	tracer := otel.Tracer("talentmatch.extract.gemini")
	ctx, span := tracer.Start(ctx, "gemini.extract_resume")
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", e.cfg.Model),
		attribute.Int("input.pdf_bytes", len(pdf)),
	)

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	file, err := e.uploadAndAwait(ctx, pdf)
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return nil, err
	}

	result, err := e.generate(ctx, file)
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return nil, errors.NewAIError(errors.ErrCodeExtractionFailed,
			"Failed to generate candidate record from resume", err)
	}

	var record types.Record
	dec := json.NewDecoder(bytes.NewReader([]byte(result.Text())))
	dec.UseNumber()
	if err := dec.Decode(&record); err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return nil, errors.NewAIError(errors.ErrCodeExtractionFailed,
			"Failed to parse extraction response", err)
	}

	span.SetAttributes(attribute.Bool("success", true))
	return record, nil
}

// uploadAndAwait pushes the PDF to the Files API and drives the upload
// state machine until the file is readable.
func (e *Extractor) uploadAndAwait(ctx context.Context, pdf []byte) (*genai.File, error) {
	uploaded, err := e.client.Files.Upload(ctx, bytes.NewReader(pdf), &genai.UploadFileConfig{
		MIMEType:    "application/pdf",
		DisplayName: "resume.pdf",
	})
	if err != nil {
		return nil, errors.NewAIError(errors.ErrCodeExtractionFailed,
			"Failed to upload resume for extraction", err)
	}
	if uploaded.Name == "" {
		return nil, errors.NewAIError(errors.ErrCodeExtractionFailed,
			"File upload failed: missing file name", nil)
	}

	if e.logger != nil {
		e.logger.Debug("Resume uploaded for extraction",
			"file", uploaded.Name,
			"state", string(uploaded.State))
	}

	return awaitUpload(ctx, uploaded, e.pollFile, e.cfg.PollInterval, e.cfg.MaxPolls)
}

func (e *Extractor) pollFile(ctx context.Context, name string) (*genai.File, error) {
	return e.client.Files.Get(ctx, name, nil)
}

// fileGetter fetches the current state of an uploaded file.
type fileGetter func(ctx context.Context, name string) (*genai.File, error)

// awaitUpload polls the file until it leaves the processing state. The
// number of polls is bounded so a stuck upload fails instead of
// blocking the intake forever.
func awaitUpload(ctx context.Context, file *genai.File, get fileGetter, interval time.Duration, maxPolls int) (*genai.File, error) {
	if interval <= 0 {
		interval = time.Second
	}
	if maxPolls <= 0 {
		maxPolls = 30
	}

	for poll := 0; file.State == genai.FileStateProcessing; poll++ {
		if poll >= maxPolls {
			return nil, errors.NewAIError(errors.ErrCodeExtractionFailed,
				"Resume upload still processing after poll limit", nil).
				WithContext("file", file.Name).
				WithContext("polls", maxPolls)
		}

		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		next, err := get(ctx, file.Name)
		if err != nil {
			return nil, errors.NewAIError(errors.ErrCodeExtractionFailed,
				"Failed to poll resume upload state", err).
				WithContext("file", file.Name)
		}
		file = next
	}

	if file.State == genai.FileStateFailed {
		return nil, errors.NewAIError(errors.ErrCodeExtractionFailed,
			"Resume upload processing failed", nil).
			WithContext("file", file.Name)
	}

	return file, nil
}

// generate runs structured content generation over the uploaded file,
// behind the circuit breaker and retry policy.
func (e *Extractor) generate(ctx context.Context, file *genai.File) (*genai.GenerateContentResponse, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(extractionPrompt),
	}
	if file.URI != "" && file.MIMEType != "" {
		parts = append(parts, genai.NewPartFromURI(file.URI, file.MIMEType))
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}
	genConfig := e.buildExtractionSchema()

	run := func() (*genai.GenerateContentResponse, error) {
		return e.executeWithRetry(ctx, "extract_resume", func() (*genai.GenerateContentResponse, error) {
			return e.client.Models.GenerateContent(ctx, e.cfg.Model, contents, genConfig)
		})
	}

	if e.cb == nil {
		return run()
	}
	return e.cb.Execute(run)
}

// AssignIntakeFields stamps a freshly extracted record with its pool
// identity: a generated id and cleared invitation fields. Mirrors the
// shape every record in the pool starts with.
func AssignIntakeFields(record types.Record) types.Record {
	if record == nil {
		record = types.Record{}
	}
	record[types.KeyID] = uuid.NewString()
	record[types.KeyMeetingID] = nil
	record[types.KeyStatus] = nil
	return record
}

// IsHealthy returns true if the circuit breaker is in closed state
func (e *Extractor) IsHealthy() bool {
	if e.cb == nil {
		return true
	}
	return e.cb.State() == gobreaker.StateClosed
}

// Stats returns circuit breaker statistics for the stats endpoint.
func (e *Extractor) Stats() map[string]any {
	if e.cb == nil {
		return map[string]any{
			"enabled": false,
		}
	}
	return map[string]any{
		"name":    e.cb.Name(),
		"state":   e.cb.State().String(),
		"counts":  e.cb.Counts(),
		"enabled": true,
	}
}

// Close releases provider resources. The Gemini client has no close in
// single-shot usage.
func (e *Extractor) Close() error {
	return nil
}
