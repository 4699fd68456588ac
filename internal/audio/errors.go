package audio

import (
	"errors"
	"fmt"
)

// Code identifies a recorder failure. Engine implementations report the same codes.
type Code string

const (
	CodeInvalidState               Code = "INVALID_STATE"
	CodeRecorderNotPrepared        Code = "RECORDER_NOT_PREPARED"
	CodeNoRecordDataFound          Code = "NO_RECORD_DATA_FOUND"
	CodeNoAccessToWriteToDirectory Code = "NO_ACCESS_TO_WRITE_TO_DIRECTORY"
	CodeFailedToConfigureRecorder  Code = "FAILED_TO_CONFIGURE_MEDIA_RECORDER"
	CodeFailedToPrepareRecorder    Code = "FAILED_TO_PREPARE_RECORDER"
	CodeMethodNotAvailable         Code = "METHOD_NOT_AVAILABLE_ERROR"
	CodeRecorderServerDied         Code = "RECORDER_SERVER_DIED"
	CodeUnknownError               Code = "RECORDER_UNKNOWN_ERROR"
	CodeFailedToEncodeAudio        Code = "AUDIO_ENCODING_ERROR"
)

// Error is a recorder failure with a stable code
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError builds a recorder error
func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// CodeOf returns the recorder code carried by err, if any
func CodeOf(err error) (Code, bool) {
	var recErr *Error
	if errors.As(err, &recErr) {
		return recErr.Code, true
	}
	return "", false
}

// IsCode reports whether err carries the given recorder code
func IsCode(err error, code Code) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}
