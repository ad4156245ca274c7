package server

import (
	"time"

	"talentmatch/internal/config"
	talentmatchErrors "talentmatch/internal/errors"
	"talentmatch/internal/extract"
	"talentmatch/internal/match"
	"talentmatch/internal/pool"
)

// SearchRequest represents the request body for the search endpoint.
// Candidates is a pointer so a missing array can be told apart from an
// empty one; both query and candidates are required.
type SearchRequest struct {
	Query      string `json:"query"`
	Job        string `json:"job,omitempty"`
	Candidates *[]any `json:"candidates"`
}

// UpdateRequest represents the request body for the candidate update
// endpoint. ID may arrive as a string or a JSON number.
type UpdateRequest struct {
	ID        any    `json:"id,omitempty"`
	Email     string `json:"email,omitempty"`
	MeetingID string `json:"meeting_id"`
	Status    string `json:"status"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	// TLS Configuration
	TLSConfig config.TLSConfig

	// API Authentication
	APIKeys map[string]bool

	// Timeout configurations
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Request size limit
	MaxRequestSize int64

	// Rate limiting
	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	// Domain components
	Store     *pool.FileStore
	Watcher   *pool.Watcher
	Ranker    *match.Ranker
	Oracle    *match.OracleClient
	Extractor *extract.Extractor

	// Logger
	Logger *talentmatchErrors.Logger
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host           string
	Port           string
	Version        string
	TLSConfig      config.TLSConfig
	APIKeys        []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64
	RateLimit      *config.RateLimitConfig
}

// NewServer creates a new Server instance from a ServerConfig struct.
// The oracle client and ranker are always constructed; the extractor is
// optional and the intake endpoint reports unavailable without it.
func NewServer(appCfg *config.Config, cfg ServerConfig, logger *talentmatchErrors.Logger) *Server {
	// Convert API keys slice to map for O(1) lookup
	apiKeyMap := make(map[string]bool)
	for _, key := range cfg.APIKeys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	var rateLimiter *RateLimiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(
			cfg.RateLimit.RequestsPerMin,
			cfg.RateLimit.Window,
			cfg.RateLimit.BurstCapacity,
			logger,
		)
	}

	store := pool.NewFileStore(appCfg.Store.Path, logger)
	oracle := match.NewOracleClient(appCfg.Oracle, logger)
	ranker := match.NewRanker(oracle, appCfg.Oracle, logger)

	var extractor *extract.Extractor
	if ex, err := extract.NewExtractor(appCfg.Extract, logger); err == nil {
		extractor = ex
	} else {
		logger.Warn("Resume extraction unavailable, intake endpoint disabled",
			"reason", err.Error())
	}

	var watcher *pool.Watcher
	if appCfg.Store.Watch {
		watcher = pool.NewWatcher(store, 200*time.Millisecond, logger)
	}

	return &Server{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        cfg.Version,
		AppConfig:      appCfg,
		TLSConfig:      cfg.TLSConfig,
		APIKeys:        apiKeyMap,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxRequestSize: cfg.MaxRequestSize,
		RateLimit:      cfg.RateLimit,
		RateLimiter:    rateLimiter,
		Store:          store,
		Watcher:        watcher,
		Ranker:         ranker,
		Oracle:         oracle,
		Extractor:      extractor,
		Logger:         logger,
	}
}
