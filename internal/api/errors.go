package api

import "errors"

var ErrInvalidRequest = errors.New("invalid_request")

// ErrLabelMismatch means the model was not trained as a label classifier.
var ErrLabelMismatch = errors.New("api: output rows do not match labels")

type invalidRequestError struct {
	msg string
}

func (e invalidRequestError) Error() string {
	return e.msg
}

func (e invalidRequestError) Unwrap() error {
	return ErrInvalidRequest
}

func newInvalidRequest(msg string) error {
	return invalidRequestError{msg: msg}
}

// ResponseError is the body of every non-2xx reply.
type ResponseError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}
