// Package recorder builds OpenAPI documents from HTTP exchanges observed
// while a test suite runs.
//
// A Recorder owns an observation ledger. Every captured exchange is matched
// to an endpoint template and split into slots (request body, response body
// per status, path and query parameters). Schemas are inferred on demand from
// everything recorded so far:
//
//	rec := recorder.New(recorder.WithInfo("Shop API", "v1"))
//	client := &http.Client{Transport: rec.Transport(nil)}
//	// ... run requests ...
//	_ = rec.WriteDocument(os.Stdout, recorder.FormatYAML)
package recorder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"slices"
	"strings"

	"github.com/usestring/apirecord/internal/catalog"
	"github.com/usestring/apirecord/internal/ledger"
	"github.com/usestring/apirecord/internal/openapi"
	"github.com/usestring/apirecord/internal/route"
	"github.com/usestring/apirecord/pkg/infer"
	"github.com/usestring/apirecord/pkg/jsonschema"
	"github.com/usestring/apirecord/pkg/value"
)

// Re-exported collaborator types.
type (
	Ledger            = ledger.Ledger
	Slot              = ledger.Slot
	Observation       = ledger.Observation
	Operation         = ledger.Operation
	Matcher           = route.Matcher
	Route             = route.Route
	OperationFragment = catalog.OperationFragment
	Document          = openapi.Document
	Format            = openapi.Format
	FieldStat         = jsonschema.FieldStat
)

const (
	FormatYAML = openapi.FormatYAML
	FormatJSON = openapi.FormatJSON
)

// Slot constructors.
var (
	RequestBody  = ledger.RequestBody
	ResponseBody = ledger.ResponseBody
	PathParams   = ledger.PathParams
	QueryParams  = ledger.QueryParams
	ParseSlot    = ledger.ParseSlot
)

// ParseFormat accepts yaml, yml and json in any case.
var ParseFormat = openapi.ParseFormat

var (
	// ErrInvalidObservation is returned for values or keys the ledger rejects.
	ErrInvalidObservation = ledger.ErrInvalidObservation
	// ErrNoRoute is returned when no template matches an exchange's path.
	ErrNoRoute = errors.New("no route matches")
	// ErrUnknownOperation is returned for operations that were never recorded.
	ErrUnknownOperation = errors.New("unknown operation")
)

// NewLedger creates an empty ledger for WithLedger.
func NewLedger() *Ledger {
	return ledger.New()
}

// Recorder records exchanges and renders the inferred document. It is safe
// for concurrent use.
type Recorder struct {
	ledger       *ledger.Ledger
	matcher      route.Matcher
	store        *catalog.Store
	cfg          *recorderConfig
	successCodes map[int]bool
}

// New creates a Recorder.
func New(opts ...Option) *Recorder {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.ledger == nil {
		cfg.ledger = ledger.New()
	}
	if cfg.matcher == nil {
		cfg.matcher = route.HeuristicMatcher{}
	}

	store, err := catalog.NewStore(cfg.ledger, cfg.cacheSize, cfg.assemble)
	if err != nil {
		// lru.New only fails for non-positive sizes, which NewStore replaces
		panic(err)
	}

	codes := make(map[int]bool, len(cfg.successCodes))
	for _, c := range cfg.successCodes {
		codes[c] = true
	}

	return &Recorder{
		ledger:       cfg.ledger,
		matcher:      cfg.matcher,
		store:        store,
		cfg:          cfg,
		successCodes: codes,
	}
}

// Ledger returns the ledger the recorder writes to.
func (r *Recorder) Ledger() *Ledger {
	return r.ledger
}

// RecordObservation appends one value to a slot. v may be a value.Value or
// any Go value value.FromAny accepts.
func (r *Recorder) RecordObservation(endpoint, method string, slot Slot, v any) (Observation, error) {
	val, err := value.FromAny(v)
	if err != nil {
		return Observation{}, err
	}
	return r.ledger.Record(endpoint, method, slot, val)
}

// Exchange is one captured request/response pair. URL may be a path with an
// optional query string or an absolute URL.
type Exchange struct {
	Method              string
	URL                 string
	Status              int
	RequestContentType  string
	RequestBody         []byte
	ResponseContentType string
	ResponseBody        []byte
}

// RecordExchange matches the exchange to a route and records its slots. The
// response body is always recorded. The request body and the path and query
// parameters are only recorded for success statuses. Bodies that cannot be
// decoded are logged and recorded as null.
func (r *Recorder) RecordExchange(ctx context.Context, ex Exchange) (Route, error) {
	if err := ctx.Err(); err != nil {
		return Route{}, err
	}
	if ex.Method == "" {
		return Route{}, fmt.Errorf("%w: empty method", ErrInvalidObservation)
	}
	if err := ledger.ResponseBody(ex.Status).Validate(); err != nil {
		return Route{}, err
	}

	u, err := url.Parse(ex.URL)
	if err != nil {
		return Route{}, fmt.Errorf("%w: parsing url %q: %v", ErrInvalidObservation, ex.URL, err)
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}

	rt, ok := r.matcher.Match(path, ex.Method)
	if !ok {
		return Route{}, fmt.Errorf("%w: %s %s", ErrNoRoute, strings.ToUpper(ex.Method), path)
	}
	r.ledger.SetTag(rt.Template, ex.Method, rt.Tag)

	log := r.cfg.logger.With("method", strings.ToUpper(ex.Method), "endpoint", rt.Template, "status", ex.Status)

	response := r.decodeBody(ctx, log, "response", ex.ResponseContentType, ex.ResponseBody)
	if _, err := r.ledger.Record(rt.Template, ex.Method, ledger.ResponseBody(ex.Status), response); err != nil {
		return rt, err
	}

	if !r.successCodes[ex.Status] {
		return rt, nil
	}

	if len(ex.RequestBody) > 0 {
		request := r.decodeBody(ctx, log, "request", ex.RequestContentType, ex.RequestBody)
		if _, err := r.ledger.Record(rt.Template, ex.Method, ledger.RequestBody(), request); err != nil {
			return rt, err
		}
	}

	if len(rt.Params) > 0 {
		pathParams := make(value.Object, len(rt.Params))
		for k, v := range rt.Params {
			pathParams[k] = value.String(v)
		}
		if _, err := r.ledger.Record(rt.Template, ex.Method, ledger.PathParams(), pathParams); err != nil {
			return rt, err
		}
	}

	// an exchange without a query string still counts unless disabled, so
	// parameters seen only sometimes come out optional
	if u.RawQuery == "" && !r.cfg.emptyQuerySamples {
		return rt, nil
	}
	query, err := value.FromAny(u.Query())
	if err != nil {
		return rt, err
	}
	if _, err := r.ledger.Record(rt.Template, ex.Method, ledger.QueryParams(), query); err != nil {
		return rt, err
	}
	return rt, nil
}

func (r *Recorder) decodeBody(ctx context.Context, log *slog.Logger, side, contentType string, data []byte) value.Value {
	v, err := value.DecodeBody(contentType, data)
	switch {
	case err == nil:
		return v
	case errors.Is(err, value.ErrUnsupportedContent):
		log.DebugContext(ctx, "body not sampled", "side", side, "content_type", contentType)
	default:
		log.WarnContext(ctx, "body could not be decoded", "side", side, "content_type", contentType, "error", err)
	}
	return value.Null{}
}

// OperationSchema returns the assembled fragment of one operation.
func (r *Recorder) OperationSchema(endpoint, method string) (*OperationFragment, error) {
	frag, ok := r.store.Fragment(endpoint, method)
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrUnknownOperation, strings.ToUpper(method), endpoint)
	}
	r.logDiagnostics(context.Background(), ledger.NewKey(endpoint, method), frag)
	return frag, nil
}

// Operations lists the recorded operations.
func (r *Recorder) Operations() []Operation {
	return r.ledger.Operations()
}

// Document renders every recorded operation into one document.
func (r *Recorder) Document() *Document {
	entries := r.store.Fragments()
	for _, e := range entries {
		r.logDiagnostics(context.Background(), e.Key, e.Fragment)
	}
	return openapi.Build(r.cfg.info, entries)
}

// WriteDocument renders the document to w.
func (r *Recorder) WriteDocument(w io.Writer, format Format) error {
	return openapi.Write(w, r.Document(), format)
}

// FieldStats computes per-field statistics for one slot.
func (r *Recorder) FieldStats(endpoint, method string, slot Slot) ([]FieldStat, error) {
	if r.ledger.Version(endpoint, method) == 0 {
		return nil, fmt.Errorf("%w: %s %s", ErrUnknownOperation, strings.ToUpper(method), endpoint)
	}
	values := r.ledger.Values(endpoint, method, slot)
	schema := infer.InferWithOptions(r.cfg.assemble.Infer, values)
	return jsonschema.ComputeFieldStats(schema, values), nil
}

func (r *Recorder) logDiagnostics(ctx context.Context, key ledger.Key, frag *OperationFragment) {
	d := frag.Diagnostics
	if d.Empty() {
		return
	}
	log := r.cfg.logger.With("method", key.Method, "endpoint", key.Endpoint)
	for _, c := range d.RequestBody {
		log.WarnContext(ctx, "kind conflict", "slot", ledger.RequestBody().String(), "path", c.Path, "kind", c.Kind, "conflicting", c.Conflicting)
	}
	statuses := make([]string, 0, len(d.Responses))
	for status := range d.Responses {
		statuses = append(statuses, status)
	}
	slices.Sort(statuses)
	for _, status := range statuses {
		for _, c := range d.Responses[status] {
			log.WarnContext(ctx, "kind conflict", "slot", "responseBody["+status+"]", "path", c.Path, "kind", c.Kind, "conflicting", c.Conflicting)
		}
	}
	for _, c := range d.Parameters {
		log.WarnContext(ctx, "parameter kind conflict", "in", c.In, "name", c.Name, "kinds", c.Kinds)
	}
}
