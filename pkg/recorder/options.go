package recorder

import (
	"log/slog"

	"github.com/usestring/apirecord/internal/catalog"
	"github.com/usestring/apirecord/internal/ledger"
	"github.com/usestring/apirecord/internal/openapi"
	"github.com/usestring/apirecord/internal/route"
	"github.com/usestring/apirecord/pkg/infer"
	"github.com/usestring/apirecord/pkg/jsonschema"
)

// DefaultSuccessCodes are the statuses whose requests are sampled. Requests
// of other exchanges are usually deliberate misuse and would pollute the
// request-side schemas.
var DefaultSuccessCodes = []int{200, 201}

// recorderConfig holds configuration built from options.
type recorderConfig struct {
	ledger       *ledger.Ledger
	matcher      route.Matcher
	logger       *slog.Logger
	successCodes []int
	info         openapi.Info
	cacheSize    int
	assemble     *catalog.Options

	emptyQuerySamples bool
}

// Option configures a Recorder.
type Option func(*recorderConfig)

// WithLedger injects the ledger observations are written to. Recorders
// sharing a ledger share their observations.
func WithLedger(l *Ledger) Option {
	return func(cfg *recorderConfig) {
		cfg.ledger = l
	}
}

// WithMatcher sets the route matcher. The default derives templates from
// identifier-like path segments.
func WithMatcher(m Matcher) Option {
	return func(cfg *recorderConfig) {
		cfg.matcher = m
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *recorderConfig) {
		cfg.logger = l
	}
}

// WithSuccessCodes replaces the statuses whose request side is sampled.
func WithSuccessCodes(codes ...int) Option {
	return func(cfg *recorderConfig) {
		cfg.successCodes = append([]int(nil), codes...)
	}
}

// WithInfo sets the document title and version.
func WithInfo(title, version string) Option {
	return func(cfg *recorderConfig) {
		cfg.info = openapi.Info{Title: title, Version: version}
	}
}

// WithCacheSize bounds the number of memoised operation fragments.
func WithCacheSize(n int) Option {
	return func(cfg *recorderConfig) {
		cfg.cacheSize = n
	}
}

// WithStrictEmpty makes an empty object observation clear the required set
// of its position.
func WithStrictEmpty(strict bool) Option {
	return func(cfg *recorderConfig) {
		cfg.assemble.Infer = &infer.Options{StrictEmpty: strict}
	}
}

// WithAdditionalProperties sets additionalProperties on every object schema.
func WithAdditionalProperties(allowed bool) Option {
	return func(cfg *recorderConfig) {
		opts := *cfg.assemble.Schema
		opts.AdditionalProperties = &allowed
		cfg.assemble.Schema = &opts
	}
}

// WithoutConflictAnnotations drops the x-kind-conflicts extension from
// rendered schemas. Conflicts are still logged.
func WithoutConflictAnnotations() Option {
	return func(cfg *recorderConfig) {
		opts := *cfg.assemble.Schema
		opts.AnnotateConflicts = false
		cfg.assemble.Schema = &opts
	}
}

// WithEmptyQuerySamples controls whether a success exchange without a query
// string is sampled as an empty parameter set. It is on by default. Turning it
// off makes a parameter required when every query string carried it.
func WithEmptyQuerySamples(enabled bool) Option {
	return func(cfg *recorderConfig) {
		cfg.emptyQuerySamples = enabled
	}
}

func defaultConfig() *recorderConfig {
	return &recorderConfig{
		logger:       slog.Default(),
		successCodes: DefaultSuccessCodes,
		info:         openapi.DefaultInfo,
		cacheSize:    catalog.DefaultCacheSize,
		assemble: &catalog.Options{
			Infer:  infer.DefaultOptions(),
			Schema: jsonschema.DefaultOptions(),
		},
		emptyQuerySamples: true,
	}
}
