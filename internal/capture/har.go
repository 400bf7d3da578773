package capture

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/usestring/apirecord/pkg/recorder"
)

// HAR is the subset of a HAR 1.2 archive that carries exchanges.
type HAR struct {
	Log struct {
		Entries []HAREntry `json:"entries"`
	} `json:"log"`
}

// HAREntry is one request/response pair of a HAR archive.
type HAREntry struct {
	Request struct {
		Method   string `json:"method"`
		URL      string `json:"url"`
		PostData *struct {
			MimeType string `json:"mimeType"`
			Text     string `json:"text"`
		} `json:"postData,omitempty"`
	} `json:"request"`
	Response struct {
		Status  int `json:"status"`
		Content struct {
			MimeType string `json:"mimeType"`
			Text     string `json:"text"`
			Encoding string `json:"encoding,omitempty"`
		} `json:"content"`
	} `json:"response"`
}

// Exchange converts the entry for the recorder.
func (e *HAREntry) Exchange() (recorder.Exchange, error) {
	if e.Request.Method == "" || e.Request.URL == "" {
		return recorder.Exchange{}, fmt.Errorf("%w: HAR entry needs method and url", ErrMalformed)
	}

	ex := recorder.Exchange{
		Method:              e.Request.Method,
		URL:                 e.Request.URL,
		Status:              e.Response.Status,
		ResponseContentType: e.Response.Content.MimeType,
		ResponseBody:        []byte(e.Response.Content.Text),
	}
	if e.Response.Content.Encoding == "base64" {
		data, err := base64.StdEncoding.DecodeString(e.Response.Content.Text)
		if err != nil {
			return recorder.Exchange{}, fmt.Errorf("%w: response content: %v", ErrMalformed, err)
		}
		ex.ResponseBody = data
	}
	if pd := e.Request.PostData; pd != nil {
		ex.RequestContentType = pd.MimeType
		ex.RequestBody = []byte(pd.Text)
	}
	return ex, nil
}

// isHAR reports whether a document looks like a HAR archive.
func isHAR(doc json.RawMessage) bool {
	trimmed := bytes.TrimSpace(doc)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return false
	}
	var probe struct {
		Log *struct {
			Entries json.RawMessage `json:"entries"`
		} `json:"log"`
	}
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return false
	}
	return probe.Log != nil && probe.Log.Entries != nil
}

func decodeHAR(doc json.RawMessage) ([]recorder.Exchange, error) {
	var har HAR
	if err := json.Unmarshal(doc, &har); err != nil {
		return nil, fmt.Errorf("%w: HAR: %v", ErrMalformed, err)
	}
	out := make([]recorder.Exchange, 0, len(har.Log.Entries))
	for i := range har.Log.Entries {
		ex, err := har.Log.Entries[i].Exchange()
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		out = append(out, ex)
	}
	return out, nil
}
