package cli

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/wcatz/dashboard-generator/internal/errors"
)

// Machine mode flag - when true, outputs JSON and suppresses human-friendly decorations
var machineMode bool

// MachineMode returns true if machine-readable output is enabled
func MachineMode() bool {
	return machineMode
}

// JSONEnvelope wraps command output in a consistent structure for machine parsing.
// All --json output should use this envelope.
type JSONEnvelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *JSONError  `json:"error,omitempty"`
}

// JSONError provides structured error information for machine parsing.
type JSONError struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Suggestion string      `json:"suggestion,omitempty"`
	Details    interface{} `json:"details,omitempty"`
}

// Error codes for machine-readable output.
const (
	ErrCodeConfigNotFound = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "CONFIG_INVALID"
	ErrCodeDiscovery      = "DISCOVERY_FAILED"
	ErrCodeOutput         = "OUTPUT_FAILED"
	ErrCodePublish        = "PUBLISH_FAILED"
	ErrCodePartial        = "PARTIAL_FAILURE"
	ErrCodeUnknown        = "UNKNOWN"
)

// WriteJSONSuccess writes a successful response with data to the writer.
func WriteJSONSuccess(w io.Writer, data interface{}) error {
	env := JSONEnvelope{
		Success: true,
		Data:    data,
	}
	return writeJSONEnvelope(w, env)
}

// WriteJSONError writes an error response to the writer.
func WriteJSONError(w io.Writer, code, message, suggestion string, details interface{}) error {
	env := JSONEnvelope{
		Success: false,
		Error: &JSONError{
			Code:       code,
			Message:    message,
			Suggestion: suggestion,
			Details:    details,
		},
	}
	return writeJSONEnvelope(w, env)
}

// WriteJSONFromError converts a Go error to a JSON error response.
func WriteJSONFromError(w io.Writer, err error) error {
	env := JSONEnvelope{
		Success: false,
		Error:   ErrorToJSON(err),
	}
	return writeJSONEnvelope(w, env)
}

// WriteJSONResult writes data alongside the error of a run that finished
// but had failures. A nil err is the same as WriteJSONSuccess.
func WriteJSONResult(w io.Writer, data interface{}, err error) error {
	if err == nil {
		return WriteJSONSuccess(w, data)
	}
	env := JSONEnvelope{
		Success: false,
		Data:    data,
		Error:   ErrorToJSON(err),
	}
	return writeJSONEnvelope(w, env)
}

// writeJSONEnvelope writes the envelope with consistent formatting.
func writeJSONEnvelope(w io.Writer, env JSONEnvelope) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}

// ErrorToJSON converts a Go error to a JSONError with appropriate code mapping.
func ErrorToJSON(err error) *JSONError {
	if err == nil {
		return nil
	}

	// Several dashboards failed in one run
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs := joined.Unwrap()
		if len(errs) == 1 {
			return ErrorToJSON(errs[0])
		}
		details := make([]*JSONError, 0, len(errs))
		for _, e := range errs {
			details = append(details, ErrorToJSON(e))
		}
		return &JSONError{
			Code:    ErrCodePartial,
			Message: "Some dashboards failed",
			Details: details,
		}
	}

	var dgErr *errors.Error
	if errors.As(err, &dgErr) {
		return &JSONError{
			Code:       mapErrorCode(dgErr.Code, dgErr.Message),
			Message:    dgErr.Message,
			Suggestion: dgErr.Suggestion,
		}
	}

	return &JSONError{
		Code:    ErrCodeUnknown,
		Message: err.Error(),
	}
}

// mapErrorCode maps internal error codes to machine-readable codes.
func mapErrorCode(internalCode, message string) string {
	switch internalCode {
	case errors.ErrConfig:
		if strings.Contains(strings.ToLower(message), "not found") {
			return ErrCodeConfigNotFound
		}
		return ErrCodeConfigInvalid
	case errors.ErrDiscovery:
		return ErrCodeDiscovery
	case errors.ErrOutput:
		return ErrCodeOutput
	case errors.ErrPublish:
		return ErrCodePublish
	}
	return ErrCodeUnknown
}
