package config

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Oracle Configuration
	v.SetDefault("oracle.endpoint", "")
	v.SetDefault("oracle.apiKey", "")
	v.SetDefault("oracle.timeout", 15*time.Second)
	v.SetDefault("oracle.maxBatch", 20)
	v.SetDefault("oracle.maxConcurrent", 5)
	v.SetDefault("oracle.onError", "fail")

	// Oracle circuit breaker defaults
	v.SetDefault("oracle.circuitBreaker.enabled", true)
	v.SetDefault("oracle.circuitBreaker.maxRequests", 3)
	v.SetDefault("oracle.circuitBreaker.interval", 60*time.Second)
	v.SetDefault("oracle.circuitBreaker.timeout", 60*time.Second)
	v.SetDefault("oracle.circuitBreaker.minRequests", 3)
	v.SetDefault("oracle.circuitBreaker.failureThreshold", 0.6)

	// Extraction Configuration
	v.SetDefault("extract.provider", "gemini")
	v.SetDefault("extract.model", "gemini-2.0-flash")
	v.SetDefault("extract.timeout", 90*time.Second) // Upload + poll + generation
	v.SetDefault("extract.apiKey", "")
	v.SetDefault("extract.maxRetries", 3)
	v.SetDefault("extract.temperature", 0.1) // Low temperature for factual extraction
	v.SetDefault("extract.pollInterval", time.Second)
	v.SetDefault("extract.maxPolls", 30)

	// Extraction circuit breaker defaults
	v.SetDefault("extract.circuitBreaker.enabled", true)
	v.SetDefault("extract.circuitBreaker.maxRequests", 3)
	v.SetDefault("extract.circuitBreaker.interval", 60*time.Second)
	v.SetDefault("extract.circuitBreaker.timeout", 60*time.Second)
	v.SetDefault("extract.circuitBreaker.minRequests", 3)
	v.SetDefault("extract.circuitBreaker.failureThreshold", 0.6)

	// Store Configuration
	v.SetDefault("store.path", "talent_pool.json")
	v.SetDefault("store.watch", false)

	// Server Configuration
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.readTimeout", 30*time.Second)
	v.SetDefault("server.writeTimeout", 30*time.Second)
	v.SetDefault("server.idleTimeout", 120*time.Second)

	// TLS Configuration defaults
	v.SetDefault("server.tls.mode", "disabled") // disabled, server, mutual
	v.SetDefault("server.tls.certFile", "")
	v.SetDefault("server.tls.keyFile", "")
	v.SetDefault("server.tls.caFile", "")
	v.SetDefault("server.tls.minVersion", "1.2")           // TLS 1.2 minimum
	v.SetDefault("server.tls.clientAuthPolicy", "require") // require, request, verify

	// API Authentication defaults
	v.SetDefault("server.apiKeys", []string{})

	// Rate limiting defaults
	v.SetDefault("server.rateLimit.enabled", false)
	v.SetDefault("server.rateLimit.requestsPerMin", 60)
	v.SetDefault("server.rateLimit.burstCapacity", 10)
	v.SetDefault("server.rateLimit.byIP", true)
	v.SetDefault("server.rateLimit.byAPIKey", false)
	v.SetDefault("server.rateLimit.window", time.Minute)

	// App Configuration
	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.defaultFormat", "json")
	v.SetDefault("app.supportedFormats", []string{"json", "text", "markdown"})
	v.SetDefault("app.maxFileSize", 10*1024*1024) // 10MB resume uploads

	// Vault Configuration
	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.tokenFile", "")
	v.SetDefault("vault.namespace", "")
	v.SetDefault("vault.secrets.apiKeys", "")
	v.SetDefault("vault.secrets.oracleKey", "")
	v.SetDefault("vault.secrets.geminiKey", "")

	// Observability Configuration
	v.SetDefault("observability.enabled", true)
	v.SetDefault("observability.serviceName", "talentmatch")
	v.SetDefault("observability.serviceVersion", "")  // Will use app version if empty
	v.SetDefault("observability.serviceInstance", "") // Will be auto-generated if empty
	v.SetDefault("observability.consoleOutput", false)
	v.SetDefault("observability.sampleRate", 1.0)

	// Tracing Configuration
	v.SetDefault("observability.tracing.enabled", true)
	v.SetDefault("observability.tracing.sampleRate", 1.0)

	// Metrics Configuration
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.collectionInterval", 15*time.Second)

	// Custom Metrics Configuration
	v.SetDefault("observability.customMetrics.matchOperations.enabled", true)
	v.SetDefault("observability.customMetrics.matchOperations.trackDuration", true)
	v.SetDefault("observability.customMetrics.matchOperations.trackScores", true)
	v.SetDefault("observability.customMetrics.matchOperations.trackBatchSize", true)
	v.SetDefault("observability.customMetrics.storeOperations.enabled", true)
	v.SetDefault("observability.customMetrics.storeOperations.trackPoolSize", true)
	v.SetDefault("observability.customMetrics.storeOperations.trackDurations", true)
	v.SetDefault("observability.customMetrics.infrastructure.enabled", true)
	v.SetDefault("observability.customMetrics.infrastructure.trackRateLimits", true)

	// Console Configuration
	v.SetDefault("observability.console.enabled", false)
	v.SetDefault("observability.console.prettyPrint", true)

	// Prometheus Configuration
	v.SetDefault("observability.prometheus.enabled", true)
	v.SetDefault("observability.prometheus.endpoint", "/metrics")
	v.SetDefault("observability.prometheus.port", "9090")

	// OTLP Configuration
	v.SetDefault("observability.otlp.enabled", false)
	v.SetDefault("observability.otlp.endpoint", "http://localhost:4318")
	v.SetDefault("observability.otlp.insecure", true)
	v.SetDefault("observability.otlp.headers", map[string]string{})

	// Health Check Configuration
	v.SetDefault("observability.healthCheck.timeout", 15*time.Second)
	v.SetDefault("observability.healthCheck.oracleCheckTimeout", 10*time.Second)
}
