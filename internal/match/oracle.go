package match

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker/v2"
	"github.com/tidwall/gjson"

	"talentmatch/internal/config"
	"talentmatch/internal/errors"
)

// Scorer is the similarity backend a ranker scores candidates against.
type Scorer interface {
	// Score returns the similarity of resume text to the query, in [0,1].
	// Job falls back to the query when the caller has no separate job
	// description.
	Score(ctx context.Context, query, resume, job string) (float64, error)
}

// scoreRequest is the wire payload sent to the similarity backend.
type scoreRequest struct {
	Query  string `json:"query"`
	Resume string `json:"resume"`
	Job    string `json:"job"`
}

// OracleClient talks to the external similarity service over HTTP. One
// request scores one candidate; batching happens above in the ranker.
// A circuit breaker sheds calls while the backend is failing. The
// client never retries: the ranker's error policy decides what a
// failed candidate means for the batch.
type OracleClient struct {
	endpoint string
	apiKey   string
	client   *resty.Client
	cb       *gobreaker.CircuitBreaker[float64]
	logger   *errors.Logger
}

// NewOracleClient creates a client for the configured endpoint.
func NewOracleClient(cfg config.OracleConfig, logger *errors.Logger) *OracleClient {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")

	oc := &OracleClient{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		client:   client,
		logger:   logger,
	}

	if cfg.CircuitBreaker.Enabled {
		settings := gobreaker.Settings{
			Name:        "similarity-oracle",
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
		oc.cb = gobreaker.NewCircuitBreaker[float64](settings)
	}

	return oc
}

// Score implements Scorer.
func (oc *OracleClient) Score(ctx context.Context, query, resume, job string) (float64, error) {
	if oc.cb == nil {
		return oc.score(ctx, query, resume, job)
	}

	score, err := oc.cb.Execute(func() (float64, error) {
		return oc.score(ctx, query, resume, job)
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return 0, errors.NewOracleError(
			errors.ErrCodeOracleUnavailable,
			"similarity backend circuit breaker is open",
			err,
		)
	}
	return score, err
}

func (oc *OracleClient) score(ctx context.Context, query, resume, job string) (float64, error) {
	req := oc.client.R().
		SetContext(ctx).
		SetBody(scoreRequest{
			Query:  query,
			Resume: resume,
			Job:    job,
		})
	if oc.apiKey != "" {
		req.SetHeader("Authorization", "Bearer "+oc.apiKey)
	}

	resp, err := req.Post(oc.endpoint)
	if err != nil {
		return 0, errors.NewOracleError(
			errors.ErrCodeOracleUnavailable,
			"similarity backend request failed",
			err,
		).WithContext("endpoint", oc.endpoint)
	}

	if resp.IsError() {
		return 0, errors.NewOracleError(
			errors.ErrCodeOracleUnavailable,
			fmt.Sprintf("similarity backend returned status %d", resp.StatusCode()),
			nil,
		).WithContext("endpoint", oc.endpoint).
			WithContext("status", resp.StatusCode()).
			WithContext("body", truncateBody(resp.String()))
	}

	body := resp.Body()
	if !gjson.ValidBytes(body) {
		return 0, errors.NewOracleError(
			errors.ErrCodeOracleUnavailable,
			"similarity backend returned a non-JSON body",
			nil,
		).WithContext("endpoint", oc.endpoint).
			WithContext("body", truncateBody(string(body)))
	}

	// A well-formed response without a numeric similarity_score scores
	// zero rather than failing the candidate.
	result := gjson.GetBytes(body, "similarity_score")
	if result.Type != gjson.Number {
		if oc.logger != nil {
			oc.logger.Warn("Similarity backend response missing numeric similarity_score, scoring 0",
				"endpoint", oc.endpoint)
		}
		return 0, nil
	}

	return result.Float(), nil
}

// IsHealthy returns true if the circuit breaker is in closed state
func (oc *OracleClient) IsHealthy() bool {
	if oc.cb == nil {
		return true
	}
	return oc.cb.State() == gobreaker.StateClosed
}

// Stats returns circuit breaker statistics for the stats endpoint.
func (oc *OracleClient) Stats() map[string]any {
	if oc.cb == nil {
		return map[string]any{
			"enabled": false,
		}
	}
	return map[string]any{
		"name":    oc.cb.Name(),
		"state":   oc.cb.State().String(),
		"counts":  oc.cb.Counts(),
		"enabled": true,
	}
}

// truncateBody keeps error context readable when the backend returns a
// large error page.
func truncateBody(body string) string {
	const maxLen = 256
	if len(body) > maxLen {
		return body[:maxLen] + "..."
	}
	return body
}
