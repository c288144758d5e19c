package core

// error_messages.go maps technical errors to user-friendly messages with codes
// for support reference.
//
// # Extraction Errors
//
//	COL001 - Invalid column letter: a column map entry is not a letter sequence
//	COL002 - Column out of range: the bulk file is narrower than the column map
//	ENT001 - Entity column: no Entity header and no column B to fall back to
//	SRC001 - Source read: the upload is not a readable workbook or CSV
//	SRC002 - Sheet missing: the workbook has no sheet with the expected name
//	OUT001 - Output write: the result workbook could not be produced
//
// # File and Upload Errors
//
//	FILE001 - File too large
//	FILE004 - No file provided
//	FILE005 - Empty file
//	UPL002  - Too many concurrent extractions
//	UPL004  - Request cancelled
//	UPL005  - Request timed out
//	RATE001 - Rate limited
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Check application logs for the original error.
//
// Sentinel errors are matched first with errors.Is. Transport errors that only
// surface as text are matched case-insensitively with strings.Contains; the
// first matching pattern wins.

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorKind maps a sentinel error to its user message.
type errorKind struct {
	target error
	msg    UserMessage
}

var errorKinds = []errorKind{
	{
		target: ErrInvalidColumnLetter,
		msg: UserMessage{
			Message: "Column map contains an invalid column letter",
			Action:  "Column letters may only contain A-Z",
			Code:    "COL001",
		},
	},
	{
		target: ErrColumnOutOfRange,
		msg: UserMessage{
			Message: "The bulk file does not have all required columns",
			Action:  "Download a fresh Sponsored Products bulk file without removing columns",
			Code:    "COL002",
		},
	},
	{
		target: ErrEntityColumnNotFound,
		msg: UserMessage{
			Message: "Could not locate an Entity column",
			Action:  "Make sure the sheet has an 'Entity' header or the entity type in column B",
			Code:    "ENT001",
		},
	},
	{
		target: ErrSourceSheetMissing,
		msg: UserMessage{
			Message: "The workbook does not contain the expected sheet",
			Action:  "Upload a bulk file containing the 'Sponsored Products Campaigns' sheet",
			Code:    "SRC002",
		},
	},
	{
		target: ErrSourceRead,
		msg: UserMessage{
			Message: "The uploaded file could not be read",
			Action:  "Upload an .xlsx bulk file or a UTF-8 CSV export",
			Code:    "SRC001",
		},
	},
	{
		target: ErrOutputWrite,
		msg: UserMessage{
			Message: "The result workbook could not be written",
			Action:  "Please try again or contact support",
			Code:    "OUT001",
		},
	},
}

// errorPattern defines a text pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Remove unused campaign types from the bulk file and try again",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid upload form",
		msg: UserMessage{
			Message: "The upload could not be parsed",
			Action:  "Send the file as multipart/form-data in a field named 'file'",
			Code:    "FILE002",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a bulk file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Please upload a bulk file with data rows",
			Code:    "FILE005",
		},
	},
	{
		pattern: "too many concurrent",
		msg: UserMessage{
			Message: "System is busy processing other files",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "UPL005",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Returns an empty UserMessage for a nil error.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, k := range errorKinds {
		if errors.Is(err, k.target) {
			return k.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError returns a single-line user message with code and action.
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific, non-default message.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// IsInputError reports whether err was caused by the uploaded data rather
// than by the server or the output sink.
func IsInputError(err error) bool {
	for _, target := range []error{
		ErrInvalidColumnLetter,
		ErrColumnOutOfRange,
		ErrEntityColumnNotFound,
		ErrSourceRead,
		ErrSourceSheetMissing,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
