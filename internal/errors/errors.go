package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies where a failure came from, so callers can decide whether
// retrying makes sense.
type Kind string

const (
	KindUnknown   Kind = ""
	KindInput     Kind = "input"
	KindTransient Kind = "transient"
	KindStorage   Kind = "storage"
)

// Error represents a universal error type across the packages and the API.
type Error struct {
	Status  int
	Kind    Kind
	Err     error // The error this wraps
	Details []Detail
}

type Detail struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

func (e *Error) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("%d: %s", e.Status, e.Err)
	}
	return fmt.Sprintf("%d: %s, details: %v", e.Status, e.Err, e.Details)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message is the wrapped error's text, which is what gets shown to a user.
func (e *Error) Message() string {
	if e.Err == nil {
		return http.StatusText(e.Status)
	}
	return e.Err.Error()
}

type transport struct {
	Message string   `json:"message"`
	Kind    Kind     `json:"kind,omitempty"`
	Details []Detail `json:"details"`
	Status  int      `json:"status"`
}

func (s *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(transport{
		Message: s.Message(),
		Kind:    s.Kind,
		Details: s.Details,
		Status:  s.Status,
	})
}

func (s *Error) UnmarshalJSON(byts []byte) error {
	t := transport{}
	if err := json.Unmarshal(byts, &t); err != nil {
		return err
	}

	s.Err = errors.New(t.Message)
	s.Kind = t.Kind
	s.Details = t.Details
	s.Status = t.Status
	return nil
}

// E builds an Error from any mix of a message or error, a status code, a
// Kind and details. A Kind without an explicit status picks the status that
// usually goes with it.
func E(args ...any) *Error {
	ret := &Error{
		Status:  http.StatusInternalServerError,
		Err:     nil,
		Details: nil,
	}

	statusSet := false
	for _, arg := range args {
		switch arg := arg.(type) {
		case string:
			ret.Err = errors.New(arg)
		case error:
			ret.Err = arg
		case int:
			ret.Status = arg
			statusSet = true
		case Kind:
			ret.Kind = arg
		case Detail:
			ret.Details = append(ret.Details, arg)
		case []Detail:
			ret.Details = append(ret.Details, arg...)
		}
	}

	if !statusSet {
		switch ret.Kind {
		case KindInput:
			ret.Status = http.StatusBadRequest
		case KindTransient:
			ret.Status = http.StatusBadGateway
		}
	}

	return ret
}

// KindOf finds the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return KindOf(err) == KindTransient
}
