package ledger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/usestring/apirecord/pkg/value"
)

// SlotKind names one sampled data surface of an operation.
type SlotKind string

const (
	SlotRequestBody  SlotKind = "requestBody"
	SlotResponseBody SlotKind = "responseBody"
	SlotPathParams   SlotKind = "pathParams"
	SlotQueryParams  SlotKind = "queryParams"
)

// Slot identifies where an observation belongs. Status is only meaningful
// for response bodies.
type Slot struct {
	Kind   SlotKind
	Status int
}

// RequestBody is the request body slot.
func RequestBody() Slot { return Slot{Kind: SlotRequestBody} }

// ResponseBody is the response body slot for one status code.
func ResponseBody(status int) Slot { return Slot{Kind: SlotResponseBody, Status: status} }

// PathParams is the path parameter slot.
func PathParams() Slot { return Slot{Kind: SlotPathParams} }

// QueryParams is the query parameter slot.
func QueryParams() Slot { return Slot{Kind: SlotQueryParams} }

// String renders the slot as requestBody, responseBody[200], pathParams or queryParams.
func (s Slot) String() string {
	if s.Kind == SlotResponseBody {
		return fmt.Sprintf("%s[%d]", s.Kind, s.Status)
	}
	return string(s.Kind)
}

// ParseSlot is the inverse of Slot.String.
func ParseSlot(s string) (Slot, error) {
	switch SlotKind(s) {
	case SlotRequestBody, SlotPathParams, SlotQueryParams:
		return Slot{Kind: SlotKind(s)}, nil
	}

	rest, ok := strings.CutPrefix(s, string(SlotResponseBody)+"[")
	if ok {
		if code, ok := strings.CutSuffix(rest, "]"); ok {
			status, err := strconv.Atoi(code)
			if err == nil {
				slot := ResponseBody(status)
				if err := slot.Validate(); err != nil {
					return Slot{}, err
				}
				return slot, nil
			}
		}
	}
	return Slot{}, fmt.Errorf("%w: unknown slot %q", value.ErrInvalidObservation, s)
}

// Validate reports whether the slot is well formed. Response slots need a
// status in the 100-599 range.
func (s Slot) Validate() error {
	switch s.Kind {
	case SlotRequestBody, SlotPathParams, SlotQueryParams:
		if s.Status != 0 {
			return fmt.Errorf("%w: slot %s carries a status", value.ErrInvalidObservation, s.Kind)
		}
		return nil
	case SlotResponseBody:
		if s.Status < 100 || s.Status > 599 {
			return fmt.Errorf("%w: response status %d out of range", value.ErrInvalidObservation, s.Status)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown slot kind %q", value.ErrInvalidObservation, s.Kind)
	}
}

func (s Slot) isParams() bool {
	return s.Kind == SlotPathParams || s.Kind == SlotQueryParams
}
