package middleware

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"

	"studio-backend/internal/observability"
)

// OpenAPIValidatorConfig holds configuration for OpenAPI validation middleware
type OpenAPIValidatorConfig struct {
	// Enabled controls whether validation is active
	Enabled bool
	// SpecPath is the path to the OpenAPI specification file
	SpecPath string
	// ValidateRequests enables request validation
	ValidateRequests bool
	// ValidateResponses enables response validation (impacts performance)
	ValidateResponses bool
	// SkipPaths are path prefixes to skip validation (e.g., /metrics, websocket upgrades)
	SkipPaths []string
}

// DefaultOpenAPIValidatorConfig returns the configuration for environment.
// Validation is on outside production.
func DefaultOpenAPIValidatorConfig(environment string) *OpenAPIValidatorConfig {
	isDev := environment != "production" && environment != "prod"

	return &OpenAPIValidatorConfig{
		Enabled:           isDev,
		SpecPath:          "artifacts/openapi.yaml",
		ValidateRequests:  true,
		ValidateResponses: false, // Disabled by default for performance
		SkipPaths: []string{
			"/metrics",
			"/ws/",
		},
	}
}

// OpenAPIValidator creates a middleware that validates HTTP requests and responses
// against an OpenAPI 3.0 specification
func OpenAPIValidator(config *OpenAPIValidatorConfig) func(next http.Handler) http.Handler {
	if config == nil {
		config = DefaultOpenAPIValidatorConfig("development")
	}

	if !config.Enabled {
		slog.Info("OpenAPI validation disabled")
		return passthrough
	}

	router, err := loadOpenAPIRouter(config.SpecPath)
	if err != nil {
		// A broken document must not take the API down with it.
		slog.Error("OpenAPI validation unavailable",
			slog.String("path", config.SpecPath),
			slog.String("error", err.Error()))
		return passthrough
	}

	slog.Info("OpenAPI validation enabled",
		slog.Bool("validate_requests", config.ValidateRequests),
		slog.Bool("validate_responses", config.ValidateResponses),
		slog.String("spec_path", config.SpecPath))

	v := &openAPIValidator{config: config, router: router}
	return v.middleware
}

func passthrough(next http.Handler) http.Handler {
	return next
}

func loadOpenAPIRouter(specPath string) (routers.Router, error) {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true

	doc, err := loader.LoadFromFile(specPath)
	if err != nil {
		return nil, fmt.Errorf("load spec: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("invalid spec: %w", err)
	}
	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("build router: %w", err)
	}
	return router, nil
}

type openAPIValidator struct {
	config *OpenAPIValidatorConfig
	router routers.Router
}

var validationOptions = &openapi3filter.Options{
	// Session and Basic credentials are checked by the auth middleware and handlers.
	AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
}

func (v *openAPIValidator) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if shouldSkipPath(r.URL.Path, v.config.SkipPaths) {
			next.ServeHTTP(w, r)
			return
		}

		route, pathParams, err := v.router.FindRoute(r)
		if err != nil {
			if !v.config.ValidateRequests {
				next.ServeHTTP(w, r)
				return
			}
			v.reject(w, r, "route", fmt.Sprintf("Path not found in OpenAPI spec: %s %s", r.Method, r.URL.Path), err)
			return
		}

		input := &openapi3filter.RequestValidationInput{
			Request:    r,
			PathParams: pathParams,
			Route:      route,
			Options:    validationOptions,
		}

		if v.config.ValidateRequests {
			if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
				v.reject(w, r, "request", "Request validation failed: "+err.Error(), err)
				return
			}
		}

		if !v.config.ValidateResponses {
			next.ServeHTTP(w, r)
			return
		}

		recorder := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(recorder, r)
		v.checkResponse(r, input, recorder)
	})
}

func (v *openAPIValidator) reject(w http.ResponseWriter, r *http.Request, kind, message string, err error) {
	observability.OpenAPIValidationFailures.WithLabelValues(kind).Inc()
	observability.FromContext(r.Context()).Warn("openapi validation rejected request",
		"kind", kind,
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
	)
	writeValidationError(w, message)
}

// checkResponse validates a response that has already been sent, so a
// mismatch is only logged.
func (v *openAPIValidator) checkResponse(r *http.Request, input *openapi3filter.RequestValidationInput, recorder *responseRecorder) {
	err := openapi3filter.ValidateResponse(r.Context(), &openapi3filter.ResponseValidationInput{
		RequestValidationInput: input,
		Status:                 recorder.statusCode,
		Header:                 recorder.Header(),
		Body:                   io.NopCloser(bytes.NewReader(recorder.body)),
		Options:                validationOptions,
	})
	if err == nil {
		return
	}
	observability.OpenAPIValidationFailures.WithLabelValues("response").Inc()
	observability.FromContext(r.Context()).Warn("response does not match OpenAPI spec",
		"method", r.Method,
		"path", r.URL.Path,
		"status", recorder.statusCode,
		"error", err,
	)
}

// shouldSkipPath reports whether path equals a skip path or lies below it.
// A skip path ending in "/" matches everything under it.
func shouldSkipPath(path string, skipPaths []string) bool {
	for _, skipPath := range skipPaths {
		if path == skipPath {
			return true
		}
		prefix := skipPath
		if !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func writeValidationError(w http.ResponseWriter, message string) {
	writeJSONError(w, http.StatusBadRequest, message)
}

// responseRecorder tees the response so it can be validated after it is sent.
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       []byte
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body = append(r.body, b...)
	return r.ResponseWriter.Write(b)
}
