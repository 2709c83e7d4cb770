// # Error Codes Reference
//
// This file defines user-facing error messages with codes for support
// reference. Rule failures are not errors and never reach this table; it
// covers runs that ended with status error and transport failures.
//
// # Parse Errors (PARSE001-PARSE099)
//
//	PARSE001 - txt delimiters: No candidate delimiter produced the required header
//	           Action: Use tab, comma or space separated columns with the exact header
//	           Matched by: *ParseError for a txt report
//
//	PARSE002 - Unreadable report: The file could not be tokenized
//	           Action: Check quoting and that no row has more columns than the header
//	           Matched by: *ParseError for any other report
//
// # Recorder Errors (REC001-REC099)
//
//	REC001 - Recording failed: A verdict could not be saved
//	         Action: Please try again in a few moments
//	         Matched by: *RecordError
//
// # Database Errors (DB004-DB006)
//
//	DB004 - Connection refused    Patterns: "connection refused"
//	DB005 - Connection reset      Patterns: "connection reset"
//	DB006 - Timeout               Patterns: "timeout"
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - Request too large   Patterns: "request body too large"
//	FILE002 - Invalid form        Patterns: "multipart"
//	FILE004 - No file             Patterns: "no file provided"
//	FILE005 - Empty file          Patterns: "empty file"
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL002 - System busy          Patterns: "too many uploads"
//	UPL004 - Request cancelled    Patterns: "context canceled"
//	UPL005 - Request timeout      Patterns: "context deadline exceeded"
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Rate limited        Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Support staff should check the logs for
// the run ID returned alongside the error.
//
// # Pattern Matching
//
// Typed errors are matched first with errors.As. Remaining errors are
// matched case-insensitively with strings.Contains; the first matching
// pattern wins.

package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/filecheck/internal/schema"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var (
	msgParseTXT = UserMessage{
		Message: "Failed to parse the .txt file with common delimiters (tab, comma, space)",
		Action:  "Use tab, comma or space separated columns with the exact header",
		Code:    "PARSE001",
	}
	msgParse = UserMessage{
		Message: "The file could not be read as a delimited report",
		Action:  "Check quoting and that no row has more columns than the header",
		Code:    "PARSE002",
	}
	msgRecord = UserMessage{
		Message: "Validation results could not be saved",
		Action:  "Please try again in a few moments",
		Code:    "REC001",
	}
	msgEmpty = UserMessage{
		Message: "The uploaded file is empty",
		Action:  "Please upload a file with a header row",
		Code:    "FILE005",
	}
)

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (case-insensitive) to user
// messages. Order matters: specific patterns come before general ones.
var errorPatterns = []errorPattern{
	// =========================================================================
	// Upload Errors
	// =========================================================================
	{
		pattern: "too many uploads",
		msg: UserMessage{
			Message: "System is busy processing other uploads",
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
			Action:  "Try again or check your connection",
			Code:    "UPL005",
		},
	},

	// =========================================================================
	// File Errors
	// =========================================================================
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "The upload exceeds the request size limit",
			Action:  "Reports must be under 10 KB",
			Code:    "FILE001",
		},
	},
	{
		pattern: "multipart",
		msg: UserMessage{
			Message: "The upload form could not be read",
			Action:  "Submit the file in the report_file field",
			Code:    "FILE002",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a csv or txt file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg:     msgEmpty,
	},

	// =========================================================================
	// Database Errors
	// =========================================================================
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Please try again later",
			Code:    "DB006",
		},
	},

	// =========================================================================
	// Rate Limiting
	// =========================================================================
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

// MapError converts a technical error to a user-friendly message. A nil
// error maps to the zero UserMessage.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var pe *ParseError
	if errors.As(err, &pe) {
		switch {
		case errors.Is(pe.Err, ErrEmptyFile):
			return msgEmpty
		case pe.Declared == schema.TypeTXT:
			return msgParseTXT
		default:
			return msgParse
		}
	}

	var re *RecordError
	if errors.As(err, &re) {
		return msgRecord
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to something more specific than
// ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error, kept for logging, with the message
// shown to users.
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
