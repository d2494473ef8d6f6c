// Package verrors provides the closed error taxonomy for the evidence
// verifier, split into the three categories from spec §7: input errors
// (schema/parsing), section errors (a single subsystem check failing),
// and delegated errors (the external consensus verifier RPC). None of
// these are fatal to the verifier as a whole except input errors, which
// abort before any section runs.
package verrors

import (
	"fmt"
	"time"
)

// Code is a closed vocabulary of error identifiers. UIs switch on Code,
// not on Error() text, so the set must stay stable.
type Code string

const (
	// Input errors (spec §4.1, §7) — abort verification entirely.
	CodeInvalidJSON  Code = "invalid-json"
	CodeSchemaError  Code = "schema-error"
	CodeUnknownChain Code = "unknown-chain"

	// Section errors (spec §4.2-§4.7) — recorded, siblings still run.
	CodeHashMismatch           Code = "hash-mismatch"
	CodeSignatureUnsupported   Code = "signature-unsupported"
	CodeMPTMalformedProof      Code = "mpt-malformed-proof"
	CodeMPTStepLimitExceeded   Code = "mpt-step-limit-exceeded"
	CodeMPTEmptyProofRejected  Code = "mpt-empty-proof-rejected"
	CodeMPTAddressMismatch     Code = "mpt-address-mismatch"
	CodeCalldataNoData         Code = "calldata-no-data"
	CodeCalldataSelectorMismatch Code = "calldata-selector-mismatch"
	CodeCalldataParamsMismatch Code = "calldata-params-mismatch"
	CodeSimulationMalformed    Code = "simulation-malformed"

	// Delegated / trust-decision reasons (spec §4.8) — the full
	// enumeration a trust classifier must switch on exhaustively.
	CodeStateRootMismatch           Code = "state-root-mismatch"
	CodeBlockNumberMismatch         Code = "block-number-mismatch"
	CodeStaleConsensusEnvelope      Code = "stale-consensus-envelope"
	CodeNonFinalizedConsensusEnvelope Code = "non-finalized-consensus-envelope"
	CodeVerifierPending             Code = "verifier-pending"
	CodeVerifierDisabledByFlag      Code = "verifier-disabled-by-flag"
	CodeUnsupportedMode             Code = "unsupported-mode"
	CodeMalformedPayload            Code = "malformed-payload"
	CodeConsensusProofAlignment     Code = "consensus-proof-alignment"
)

// Error is a structured error carrying a closed Code plus free-form
// context, following the teacher's LiteClientError shape.
type Error struct {
	Code      Code                   `json:"code"`
	Message   string                 `json:"message"`
	Field     string                 `json:"field,omitempty"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Cause     error                  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap supports errors.Is/errors.As against Cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a structured Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message, Timestamp: time.Now()}
}

// Newf creates a structured Error with a formatted message.
func Newf(code Code, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// WithField returns a copy of e annotated with the offending field path.
func (e *Error) WithField(field string) *Error {
	clone := *e
	clone.Field = field
	return &clone
}

// WithCause returns a copy of e wrapping the given cause.
func (e *Error) WithCause(cause error) *Error {
	clone := *e
	clone.Cause = cause
	return &clone
}

// WithContext attaches a key/value pair of diagnostic context.
func (e *Error) WithContext(key string, value interface{}) *Error {
	clone := *e
	clone.Context = cloneContext(clone.Context)
	clone.Context[key] = value
	return &clone
}

func cloneContext(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

// List is an ordered collection of structured errors, returned by the
// schema validator (spec §4.1) when a package fails to parse.
type List []*Error

func (l List) Error() string {
	if len(l) == 0 {
		return "no errors"
	}
	msg := fmt.Sprintf("%d validation error(s): ", len(l))
	for i, e := range l {
		if i > 0 {
			msg += "; "
		}
		msg += e.Error()
	}
	return msg
}
