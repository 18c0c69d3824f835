package core

// # Error Codes Reference
//
// Codes are shown to users next to the message so they can be quoted when
// asking for help. The first matching pattern wins; patterns are matched
// case-insensitively with strings.Contains.
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large          Patterns: "file too large", "request body too large"
//	FILE002 - Not a JSON file         Patterns: "invalid file type"
//	FILE003 - Encoding error          Patterns: "encoding error"
//	FILE004 - No file                 Patterns: "no file provided"
//	FILE005 - Empty file              Patterns: "empty file"
//	FILE006 - Malformed upload        Patterns: "malformed upload"
//
// # Document Errors (JSON001-JSON099)
//
//	JSON001 - Not valid JSON          Patterns: "json parse error"
//	JSON002 - Unsupported structure   Patterns: "invalid document structure"
//	JSON003 - Nothing to convert      Patterns: "no records found"
//
// # Conversion Errors (UPL001-UPL099)
//
//	UPL001 - Unknown null policy      Patterns: "invalid null policy"
//	UPL002 - System busy              Patterns: "too many concurrent conversions"
//	UPL003 - History unavailable      Patterns: "history unavailable"
//	UPL004 - Request cancelled        Patterns: "context canceled"
//	UPL005 - Request timeout          Patterns: "context deadline exceeded"
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Too many requests       Patterns: "rate limit"
//
// # Default (ERR000)
//
// Fallback when nothing matches. Check the server log for the technical
// error, which is always logged with the request ID.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// File errors
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Split the export into smaller files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Split the export into smaller files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid file type",
		msg: UserMessage{
			Message: "Only .json files can be converted",
			Action:  "Select a file with a .json extension",
			Code:    "FILE002",
		},
	},
	{
		pattern: "encoding error",
		msg: UserMessage{
			Message: "File contains invalid characters",
			Action:  "Save the file as UTF-8 or UTF-16 with a byte order mark",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a JSON file to convert",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Please upload a JSON export that contains records",
			Code:    "FILE005",
		},
	},
	{
		pattern: "malformed upload",
		msg: UserMessage{
			Message: "The upload could not be read",
			Action:  "Submit the file again using the upload form",
			Code:    "FILE006",
		},
	},

	// Document errors
	{
		pattern: "json parse error",
		msg: UserMessage{
			Message: "File is not valid JSON",
			Action:  "Fix the syntax error at the reported line and column",
			Code:    "JSON001",
		},
	},
	{
		pattern: "invalid document structure",
		msg: UserMessage{
			Message: "JSON must be an object or an array of objects",
			Action:  "Export the records as an array of objects",
			Code:    "JSON002",
		},
	},
	{
		pattern: "no records found",
		msg: UserMessage{
			Message: "The document contains no records",
			Action:  "Check that the export is not empty",
			Code:    "JSON003",
		},
	},

	// Conversion errors
	{
		pattern: "invalid null policy",
		msg: UserMessage{
			Message: "Unknown missing-value setting",
			Action:  "Use either empty or null",
			Code:    "UPL001",
		},
	},
	{
		pattern: "too many concurrent conversions",
		msg: UserMessage{
			Message: "System is busy processing other conversions",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		pattern: "history unavailable",
		msg: UserMessage{
			Message: "Conversion history could not be loaded",
			Action:  "Please try again in a few moments",
			Code:    "UPL003",
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
			Message: "Conversion timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "UPL005",
		},
	},

	// Rate limiting
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// If no pattern matches, the ERR000 fallback is returned.
//
//	msg := MapError(fmt.Errorf("%w: line 3", ingest.ErrInvalidJSON))
//	// msg.Code == "JSON001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display:
// "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern, i.e. its mapped
// message is more specific than the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message. Error()
// returns the user text; Unwrap exposes the original for logging and
// errors.Is checks.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}

// Detail returns the technical error text when it is safe to show, i.e. when
// it matched a known pattern. Parse errors carry the line and column here.
func (e *UserError) Detail() string {
	if e == nil || !IsUserFacing(e.Technical) {
		return ""
	}
	return e.Technical.Error()
}
