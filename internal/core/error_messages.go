package core

// error_messages.go maps technical errors to user-facing messages with a
// code support staff can look up.
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - Invalid configuration: the file or import options are rejected
//	IMP002 - File outside import directory
//	IMP003 - System busy: all import slots are taken
//	IMP004 - Already running: the same file is being imported
//	IMP005 - Import cancelled
//	IMP006 - Import timed out
//	IMP007 - Import run not found
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - Read failure: the file stream failed mid-import
//
// # Order Errors (ORD001-ORD099)
//
//	ORD001 - Order not found
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key
//	DB004 - Connection refused
//	DB005 - Connection reset
//	DB006 - Timeout
//	DB007 - Deadlock
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Invalid date
//	VAL002 - Invalid number
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Check application logs for the original error.
//
// # Matching
//
// Sentinel errors are matched first with errors.Is, so wrapped errors keep
// their code. Remaining errors are matched case-insensitively by substring;
// the first matching pattern wins.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/OrderImport/internal/ingest"
	"github.com/JonMunkholm/OrderImport/internal/orders"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action"`
	Code    string `json:"code"`
}

type errorKind struct {
	target error
	msg    UserMessage
}

// errorKinds are checked in order with errors.Is.
var errorKinds = []errorKind{
	{ingest.ErrConfig, UserMessage{
		Message: "The import configuration is invalid",
		Action:  "Check the file name, its extension and the import options",
		Code:    "IMP001",
	}},
	{ErrFileOutsideBase, UserMessage{
		Message: "The file is outside the import directory",
		Action:  "Use a path relative to the import directory",
		Code:    "IMP002",
	}},
	{ErrTooManyImports, UserMessage{
		Message: "System is busy processing other imports",
		Action:  "Please wait a moment and try again",
		Code:    "IMP003",
	}},
	{ErrImportInProgress, UserMessage{
		Message: "This file is already being imported",
		Action:  "Wait for the running import to finish",
		Code:    "IMP004",
	}},
	{context.Canceled, UserMessage{
		Message: "Import was cancelled",
		Action:  "Start the import again when ready; already stored orders are kept",
		Code:    "IMP005",
	}},
	{context.DeadlineExceeded, UserMessage{
		Message: "Import timed out",
		Action:  "Re-run the import; orders already stored are updated in place",
		Code:    "IMP006",
	}},
	{ErrRunNotFound, UserMessage{
		Message: "Import run not found",
		Action:  "Only recent runs are kept; list runs to see what is available",
		Code:    "IMP007",
	}},
	{ingest.ErrIO, UserMessage{
		Message: "The import file could not be read",
		Action:  "Check that the file is not being modified and try again",
		Code:    "FILE001",
	}},
	{orders.ErrNotFound, UserMessage{
		Message: "Order not found",
		Action:  "Verify the order id",
		Code:    "ORD001",
	}},
	{orders.ErrDuplicate, UserMessage{
		Message: "An order with this id already exists",
		Action:  "Re-run the import; existing orders are updated in place",
		Code:    "DB001",
	}},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns are matched with strings.Contains after lowercasing.
var errorPatterns = []errorPattern{
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "An order with this id already exists",
			Action:  "Re-run the import; existing orders are updated in place",
			Code:    "DB001",
		},
	},
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
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},
	{
		pattern: "invalid date",
		msg: UserMessage{
			Message: "Invalid date format detected",
			Action:  "Use YYYY-MM-DD, YYYY-MM-DD HH:MM:SS or RFC 3339",
			Code:    "VAL001",
		},
	},
	{
		pattern: "invalid number",
		msg: UserMessage{
			Message: "Invalid number format detected",
			Action:  "Use a plain decimal amount",
			Code:    "VAL002",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
//	msg := MapError(fmt.Errorf("run: %w", ErrTooManyImports))
//	// msg.Code == "IMP003"
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

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
