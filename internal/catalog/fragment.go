// Package catalog assembles operation-level document fragments from ledger
// snapshots and memoises them per operation.
package catalog

import (
	"net/http"
	"strconv"

	"github.com/invopop/jsonschema"

	"github.com/usestring/apirecord/internal/ledger"
	"github.com/usestring/apirecord/internal/route"
	"github.com/usestring/apirecord/pkg/infer"
	schemaconv "github.com/usestring/apirecord/pkg/jsonschema"
	"github.com/usestring/apirecord/pkg/params"
	"github.com/usestring/apirecord/pkg/value"
)

// ContentTypeJSON is the media type every schema is published under.
const ContentTypeJSON = "application/json"

// ParameterSchema is the schema of a parameter; only the type is inferred.
type ParameterSchema struct {
	Type string `json:"type"`
}

// Parameter is one entry of an operation's parameter list.
type Parameter struct {
	In       string          `json:"in"`
	Name     string          `json:"name"`
	Schema   ParameterSchema `json:"schema"`
	Required bool            `json:"required"`
}

// MediaType wraps a content schema.
type MediaType struct {
	Schema *jsonschema.Schema `json:"schema"`
}

// RequestBody is the request body entry of an operation.
type RequestBody struct {
	Content map[string]*MediaType `json:"content"`
}

// Response is the entry for one status code.
type Response struct {
	Description string                `json:"description"`
	Content     map[string]*MediaType `json:"content"`
}

// OperationFragment is the document fragment for one (endpoint, method).
type OperationFragment struct {
	Tags        []string             `json:"tags"`
	Parameters  []Parameter          `json:"parameters"`
	RequestBody *RequestBody         `json:"requestBody,omitempty"`
	Responses   map[string]*Response `json:"responses"`

	Diagnostics Diagnostics `json:"-"`
}

// Diagnostics collects the non-fatal conflicts found while assembling.
type Diagnostics struct {
	RequestBody []infer.Conflict            `json:"request_body,omitempty"`
	Responses   map[string][]infer.Conflict `json:"responses,omitempty"`
	Parameters  []params.Conflict           `json:"parameters,omitempty"`
}

// Empty reports whether no conflict was found.
func (d Diagnostics) Empty() bool {
	return len(d.RequestBody) == 0 && len(d.Responses) == 0 && len(d.Parameters) == 0
}

// Options controls assembly.
type Options struct {
	Infer  *infer.Options
	Schema *schemaconv.Options
}

// DefaultOptions returns the default assembly options.
func DefaultOptions() *Options {
	return &Options{
		Infer:  infer.DefaultOptions(),
		Schema: schemaconv.DefaultOptions(),
	}
}

// Assemble builds the fragment for one snapshot. It is a pure function of
// the snapshot contents.
func Assemble(snap *ledger.Snapshot, opts *Options) *OperationFragment {
	if opts == nil {
		opts = DefaultOptions()
	}

	tag := snap.Tag
	if tag == "" {
		tag = route.TagFor(snap.Key.Endpoint)
	}

	frag := &OperationFragment{
		Tags:      []string{tag},
		Responses: make(map[string]*Response, len(snap.Responses)),
	}

	classified := params.ClassifyAll(snap.PathParams, snap.QueryParams)
	descriptors := declareTemplateParams(snap.Key.Endpoint, classified.Descriptors)
	frag.Parameters = make([]Parameter, 0, len(descriptors))
	for _, d := range descriptors {
		frag.Parameters = append(frag.Parameters, Parameter{
			In:       string(d.In),
			Name:     d.Name,
			Schema:   ParameterSchema{Type: string(d.Type)},
			Required: d.Required,
		})
	}
	frag.Diagnostics.Parameters = classified.Conflicts

	request := infer.InferWithOptions(opts.Infer, snap.RequestBodies)
	if request.Kind == infer.KindObject && len(request.Properties) > 0 {
		frag.RequestBody = &RequestBody{Content: map[string]*MediaType{
			ContentTypeJSON: {Schema: schemaconv.FromInferredWithOptions(opts.Schema, request)},
		}}
	}
	frag.Diagnostics.RequestBody = infer.Diagnostics(request)

	for _, code := range snap.StatusCodes() {
		status := strconv.Itoa(code)
		inferred := infer.InferWithOptions(opts.Infer, snap.Responses[code])
		frag.Responses[status] = &Response{
			Description: Description(code),
			Content: map[string]*MediaType{
				ContentTypeJSON: {Schema: schemaconv.FromInferredWithOptions(opts.Schema, inferred)},
			},
		}
		if conflicts := infer.Diagnostics(inferred); len(conflicts) > 0 {
			if frag.Diagnostics.Responses == nil {
				frag.Diagnostics.Responses = make(map[string][]infer.Conflict)
			}
			frag.Diagnostics.Responses[status] = conflicts
		}
	}
	return frag
}

// Description is the placeholder description of a response.
func Description(code int) string {
	if text := http.StatusText(code); text != "" {
		return text
	}
	return "Status " + strconv.Itoa(code)
}

// declareTemplateParams adds a required string path parameter for every
// template placeholder that was never observed, e.g. because the operation
// only ever failed.
func declareTemplateParams(endpoint string, ds []params.Descriptor) []params.Descriptor {
	seen := make(map[string]bool)
	for _, d := range ds {
		if d.In == params.LocationPath {
			seen[d.Name] = true
		}
	}

	added := false
	for _, name := range route.ParamNames(endpoint) {
		if seen[name] {
			continue
		}
		ds = append(ds, params.Descriptor{
			Name:     name,
			In:       params.LocationPath,
			Type:     value.KindString,
			Required: true,
		})
		added = true
	}
	if added {
		params.Sort(ds)
	}
	return ds
}
