// Package tools contains the MCP tool implementations of apirecord.
package tools

import (
	"strings"

	"github.com/usestring/apirecord/internal/config"
	"github.com/usestring/apirecord/pkg/recorder"
)

// MIME type constants.
const (
	MimeJSON = "application/json"
	MimeYAML = "application/yaml"
)

// DocumentURI is the resource template of the rendered document.
const DocumentURI = "apirecord://document/{format}"

// Deps contains all dependencies needed by tool handlers.
type Deps struct {
	Recorder *recorder.Recorder
	Config   *config.Config
}

// DocumentFormat resolves a requested format, falling back to the
// configured default.
func (d *Deps) DocumentFormat(requested string) (recorder.Format, error) {
	if strings.TrimSpace(requested) == "" && d.Config != nil {
		requested = d.Config.Format
	}
	f, err := recorder.ParseFormat(requested)
	if err != nil {
		return "", ErrInvalidInput(err.Error())
	}
	return f, nil
}

// DocumentResourceURI returns the resource URI of the document in format f.
func DocumentResourceURI(f recorder.Format) string {
	return strings.Replace(DocumentURI, "{format}", string(f), 1)
}

// MimeFor returns the MIME type of a document format.
func MimeFor(f recorder.Format) string {
	if f == recorder.FormatJSON {
		return MimeJSON
	}
	return MimeYAML
}
