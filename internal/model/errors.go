package model

import "fmt"

// Reason classifies why a per-ticker task failed. InvalidRequest is fatal to
// the whole request; every other reason is scoped to a single ticker and a
// single task family.
type Reason string

const (
	ReasonInvalidRequest    Reason = "invalid_request"
	ReasonSubmissionFailed  Reason = "submission_failed"
	ReasonResearchFailed    Reason = "research_failed"
	ReasonPollTimeout       Reason = "poll_timeout"
	ReasonMalformedResponse Reason = "malformed_response"
	ReasonNoData            Reason = "no_data"
	ReasonExtractionFailed  Reason = "extraction_failed"
)

// TaskError is the failure half of a task outcome: which ticker failed, a
// reason classification, and a human-readable message. Cause is kept for
// logging but excluded from API responses.
type TaskError struct {
	Ticker  string `json:"ticker"`
	Reason  Reason `json:"reason"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Ticker, e.Reason, e.Message)
}

func (e *TaskError) Unwrap() error {
	return e.Cause
}

// NewTaskError builds a TaskError, deriving the message from cause when none
// is given.
func NewTaskError(ticker string, reason Reason, msg string, cause error) *TaskError {
	if msg == "" && cause != nil {
		msg = cause.Error()
	}
	return &TaskError{Ticker: ticker, Reason: reason, Message: msg, Cause: cause}
}

// InvalidRequestError reports a malformed digest request. It is raised before
// any external call is made.
type InvalidRequestError struct {
	Detail string
}

func (e *InvalidRequestError) Error() string {
	return "invalid request: " + e.Detail
}
