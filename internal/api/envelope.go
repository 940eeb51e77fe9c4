package api

import (
	"github.com/danielgtaylor/huma/v2"
)

// envelopeVersion is bumped when the wire envelope shape changes so clients
// can detect incompatible servers.
const envelopeVersion = 1

// ErrorBody is the error half of the response envelope.
type ErrorBody struct {
	Code    string `json:"code" doc:"Machine-readable error code"`
	Message string `json:"message" doc:"Human-readable error message"`
	Details any    `json:"details,omitempty" doc:"Additional error details"`
}

// Envelope is the uniform JSON wrapper around every API response.
type Envelope struct {
	V       int        `json:"v" doc:"Envelope version"`
	Success bool       `json:"success" doc:"Whether the request succeeded"`
	Data    any        `json:"data,omitempty" doc:"Response payload"`
	Error   *ErrorBody `json:"error,omitempty" doc:"Error details when success is false"`
}

// EnvelopeTransformer wraps every huma response body in the versioned
// envelope. Registered as a transformer on the huma config so handlers
// return plain bodies.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	// Already wrapped (e.g. re-entrant transformers).
	if _, ok := v.(Envelope); ok {
		return v, nil
	}

	if apiErr, ok := v.(*APIError); ok {
		return Envelope{
			V:       envelopeVersion,
			Success: false,
			Error: &ErrorBody{
				Code:    apiErr.Code,
				Message: apiErr.Message,
				Details: apiErr.Details,
			},
		}, nil
	}

	success := len(status) > 0 && (status[0] == '2' || status[0] == '3')
	return Envelope{
		V:       envelopeVersion,
		Success: success,
		Data:    v,
	}, nil
}
