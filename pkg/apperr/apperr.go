package apperr

import (
	"errors"
	"fmt"
)

const (
	MetaReason   = "reason"
	MetaStage    = "stage"
	MetaField    = "field"
	MetaRunID    = "run_id"
	MetaName     = "selector_name"
	MetaSelector = "selector"
	MetaURL      = "url"
	MetaPath     = "path"
	MetaPage     = "page"

	StagePreparation = "preparation"
	StageBrowser     = "browser"
	StageLogin       = "login"
	StageStore       = "store"
	StageResolve     = "resolve"
	StageScreenshot  = "screenshot"
	StageNavigation  = "navigation"
	StageInteraction = "interaction"
	StagePagination  = "pagination"
	StageReport      = "report"

	CodeInternal         = "internal"
	CodeInvalidArgument  = "invalid_argument"
	CodeNotFound         = "not_found"
	CodeUnavailable      = "unavailable"
	CodeTimeout          = "timeout"
	CodeCancelledByUser  = "cancelled_by_user"
	CodeBrowserNotReady  = "browser_not_ready"
	CodeActionFailed     = "action_failed"
	CodeUnknownSelector  = "unknown_selector"
	CodeLocatorSyntax    = "locator_syntax"
	CodeStoreUnavailable = "store_unavailable"
	CodeStaleElement     = "stale_element"
	CodeAlreadyRunning   = "already_running"
)

type Error struct {
	Op       string
	Code     string
	Err      error
	Metadata map[string]any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}

	return e.Op
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Wrap(op, code string, err error, metadata map[string]any) error {
	if metadata == nil {
		metadata = make(map[string]any)
	}

	return &Error{
		Op:       op,
		Code:     code,
		Err:      err,
		Metadata: metadata,
	}
}

func WrapWithReason(op, code string, err error, reason string) error {
	return Wrap(op, code, err, map[string]any{
		MetaReason: reason,
	})
}

func WrapErrorWithReason(op, code, reason string) error {
	return Wrap(op, code, errors.New(reason), map[string]any{
		MetaReason: reason,
	})
}

func InvalidReqError(op, field string, err error) error {
	return Wrap(op, CodeInvalidArgument, err, map[string]any{
		MetaField:  field,
		MetaReason: "invalid_request",
	})
}

func NotFoundError(op string, err error) error {
	return Wrap(op, CodeNotFound, err, map[string]any{
		MetaReason: "not_found",
	})
}

// HasCode reports whether any *Error in err's chain carries code.
func HasCode(err error, code string) bool {
	for err != nil {
		var appErr *Error
		if !errors.As(err, &appErr) {
			return false
		}

		if appErr.Code == code {
			return true
		}

		err = appErr.Err
	}

	return false
}

// Code returns the outermost application code, or CodeInternal.
func Code(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}

	return CodeInternal
}

// Reason returns the reason recorded on the outermost *Error, if any.
func Reason(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		if reason, ok := appErr.Metadata[MetaReason].(string); ok {
			return reason
		}
	}

	return ""
}
