package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Operation failures. Every error returned by Client matches exactly one of
// these through errors.Is.
var (
	ErrFetchSurveysFailed         = errors.New("fetch surveys failed")
	ErrFetchSurveyStatsFailed     = errors.New("fetch survey stats failed")
	ErrFetchTemplatesFailed       = errors.New("fetch templates failed")
	ErrFetchTemplateStatsFailed   = errors.New("fetch template stats failed")
	ErrCreateTemplateFailed       = errors.New("create template failed")
	ErrCreateQuestionFailed       = errors.New("create question failed")
	ErrAttachQuestionFailed       = errors.New("attach question failed")
	ErrUpdateTemplateStatusFailed = errors.New("update template status failed")
	ErrDeleteTemplateFailed       = errors.New("delete template failed")
	ErrDeleteQuestionFailed       = errors.New("delete question failed")
)

// Op names a remote operation
type Op string

const (
	OpFetchSurveys         Op = "FetchSurveys"
	OpFetchSurveyStats     Op = "FetchSurveyStats"
	OpFetchTemplates       Op = "FetchTemplates"
	OpFetchTemplateStats   Op = "FetchTemplateStats"
	OpCreateTemplate       Op = "CreateTemplate"
	OpCreateQuestion       Op = "CreateQuestion"
	OpAttachQuestion       Op = "AttachQuestion"
	OpUpdateTemplateStatus Op = "UpdateTemplateStatus"
	OpDeleteTemplate       Op = "DeleteTemplate"
	OpDeleteQuestion       Op = "DeleteQuestion"
)

var opSentinels = map[Op]error{
	OpFetchSurveys:         ErrFetchSurveysFailed,
	OpFetchSurveyStats:     ErrFetchSurveyStatsFailed,
	OpFetchTemplates:       ErrFetchTemplatesFailed,
	OpFetchTemplateStats:   ErrFetchTemplateStatsFailed,
	OpCreateTemplate:       ErrCreateTemplateFailed,
	OpCreateQuestion:       ErrCreateQuestionFailed,
	OpAttachQuestion:       ErrAttachQuestionFailed,
	OpUpdateTemplateStatus: ErrUpdateTemplateStatusFailed,
	OpDeleteTemplate:       ErrDeleteTemplateFailed,
	OpDeleteQuestion:       ErrDeleteQuestionFailed,
}

// Kind classifies why a request failed
type Kind string

const (
	// KindUnreachable means the request never got an HTTP response
	KindUnreachable Kind = "unreachable"
	// KindRejected means the backend answered with a non-2xx status
	KindRejected Kind = "rejected"
	// KindMalformed means the response body could not be used
	KindMalformed Kind = "malformed"
	// KindInvalid means the call was refused before any request was sent
	KindInvalid Kind = "invalid"
)

// Error is returned by every Client method
type Error struct {
	Op         Op
	Kind       Kind
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (HTTP %d): %v", e.Op, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the failed operation
func (e *Error) Is(target error) bool {
	sentinel, ok := opSentinels[e.Op]
	return ok && sentinel == target
}

// IsKind reports whether err is a client error of the given kind
func IsKind(err error, kind Kind) bool {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Kind == kind
	}
	return false
}

// KindOf returns the failure kind of err, or "" if err is not a client error
func KindOf(err error) Kind {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Kind
	}
	return ""
}

// IsNotFound reports whether the backend answered 404.
// A delete that gets 404 has nothing left to remove.
func IsNotFound(err error) bool {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Kind == KindRejected && cerr.StatusCode == http.StatusNotFound
	}
	return false
}
