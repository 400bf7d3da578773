// Package capture reads recorded HTTP exchanges from files and replays them
// into a recorder.
//
// Supported inputs are streams of exchange records (JSON Lines, a JSON array
// or concatenated JSON values), HAR 1.2 archives, and arbitrary JSON mapped
// into exchange records by a jq expression.
package capture

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/usestring/apirecord/pkg/contenttype"
	"github.com/usestring/apirecord/pkg/recorder"
)

// ErrMalformed is returned for input that is not a valid capture.
var ErrMalformed = errors.New("malformed capture")

// Record is the JSON form of one exchange:
//
//	{"method":"GET","url":"/users/1?x=1","status":200,
//	 "request":{"content_type":"application/json","body":{"a":1}},
//	 "response":{"content_type":"application/json","body":{"id":1}}}
//
// A body may be any JSON value. A JSON string body is taken as the raw text
// of the body, so JSON documents logged as strings are decoded too.
type Record struct {
	Method   string  `json:"method"`
	URL      string  `json:"url"`
	Status   int     `json:"status"`
	Request  Message `json:"request"`
	Response Message `json:"response"`
}

// Message is one side of a Record.
type Message struct {
	ContentType string          `json:"content_type,omitempty"`
	Body        json.RawMessage `json:"body,omitempty"`
}

// Exchange converts the record for the recorder.
func (r *Record) Exchange() (recorder.Exchange, error) {
	if r.Method == "" || r.URL == "" {
		return recorder.Exchange{}, fmt.Errorf("%w: record needs method and url", ErrMalformed)
	}
	reqCT, reqBody, err := r.Request.body()
	if err != nil {
		return recorder.Exchange{}, fmt.Errorf("request body: %w", err)
	}
	respCT, respBody, err := r.Response.body()
	if err != nil {
		return recorder.Exchange{}, fmt.Errorf("response body: %w", err)
	}
	return recorder.Exchange{
		Method:              r.Method,
		URL:                 r.URL,
		Status:              r.Status,
		RequestContentType:  reqCT,
		RequestBody:         reqBody,
		ResponseContentType: respCT,
		ResponseBody:        respBody,
	}, nil
}

func (m Message) body() (string, []byte, error) {
	raw := bytes.TrimSpace(m.Body)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return m.ContentType, nil, nil
	}
	if raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return "", nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return m.ContentType, []byte(text), nil
	}

	// inline bodies are JSON whatever the declared type
	ct := m.ContentType
	if !contenttype.IsJSON(ct) {
		ct = "application/json"
	}
	return ct, []byte(raw), nil
}

// decodeStream splits data into its top-level JSON values. JSON Lines,
// concatenated values and a single document all work.
func decodeStream(data []byte) ([]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	var docs []json.RawMessage
	for {
		var doc json.RawMessage
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			return docs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: value %d: %v", ErrMalformed, len(docs)+1, err)
		}
		docs = append(docs, doc)
	}
}

// decodeRecords reads exchange records from one document: an object is one
// record and an array holds many.
func decodeRecords(doc json.RawMessage) ([]Record, error) {
	trimmed := bytes.TrimSpace(doc)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var records []Record
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return records, nil
	}
	var r Record
	if err := json.Unmarshal(trimmed, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return []Record{r}, nil
}
