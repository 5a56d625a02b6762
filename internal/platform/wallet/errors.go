package wallet

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a business or infrastructure failure. Codes are part of
// the wire contract: transports map them to HTTP statuses via StatusFor.
type Code string

const (
	CodeValidationError          Code = "VALIDATION_ERROR"
	CodeRequiredFieldMissing     Code = "REQUIRED_FIELD_MISSING"
	CodeInvalidDataType          Code = "INVALID_DATA_TYPE"
	CodeAccountNotFound          Code = "ACCOUNT_NOT_FOUND"
	CodeInsufficientBalance      Code = "INSUFFICIENT_BALANCE"
	CodePossibleInsufficientBal  Code = "POSSIBLE_INSUFFICIENT_BALANCE"
	CodeInvalidWithdrawAmount    Code = "INVALID_WITHDRAW_AMOUNT"
	CodeInvalidBalance           Code = "INVALID_BALANCE"
	CodeSchedulingError          Code = "SCHEDULING_ERROR"
	CodePastSchedulingNotAllowed Code = "PAST_SCHEDULING_NOT_ALLOWED"
	CodeSchedulingLimitExceeded  Code = "SCHEDULING_LIMIT_EXCEEDED"
	CodeInvalidPixKey            Code = "INVALID_PIX_KEY"
	CodeInvalidPixType           Code = "INVALID_PIX_TYPE"
	CodeUnsupportedMethod        Code = "UNSUPPORTED_WITHDRAW_METHOD"
	CodeNoFieldsToUpdate         Code = "NO_FIELDS_TO_UPDATE"
	CodeWithdrawNotFound         Code = "WITHDRAW_NOT_FOUND"
	CodeLoginValidationError     Code = "LOGIN_VALIDATION_ERROR"
	CodeLoginUnauthorized        Code = "LOGIN_UNAUTHORIZED"
	CodeTokenValidationError     Code = "TOKEN_VALIDATION_ERROR"
	CodeTokenNotProvided         Code = "TOKEN_NOT_PROVIDED"
	CodeInternalError            Code = "INTERNAL_ERROR"
	CodeDatabaseError            Code = "DATABASE_ERROR"
	CodeTransactionError         Code = "TRANSACTION_ERROR"
	CodeEmailSendFailed          Code = "EMAIL_SEND_FAILED"
)

var httpStatusByCode = map[Code]int{
	CodeValidationError:          http.StatusBadRequest,
	CodeRequiredFieldMissing:     http.StatusBadRequest,
	CodeInvalidDataType:          http.StatusBadRequest,
	CodeInvalidWithdrawAmount:    http.StatusBadRequest,
	CodeInvalidBalance:           http.StatusBadRequest,
	CodeSchedulingError:          http.StatusBadRequest,
	CodePastSchedulingNotAllowed: http.StatusBadRequest,
	CodeSchedulingLimitExceeded:  http.StatusBadRequest,
	CodeInvalidPixKey:            http.StatusBadRequest,
	CodeInvalidPixType:           http.StatusBadRequest,
	CodeUnsupportedMethod:        http.StatusBadRequest,
	CodeNoFieldsToUpdate:         http.StatusBadRequest,
	CodeLoginValidationError:     http.StatusUnprocessableEntity,
	CodeLoginUnauthorized:        http.StatusUnauthorized,
	CodeTokenValidationError:     http.StatusUnauthorized,
	CodeTokenNotProvided:         http.StatusUnauthorized,
	CodeAccountNotFound:          http.StatusNotFound,
	CodeWithdrawNotFound:         http.StatusNotFound,
	CodeInsufficientBalance:      http.StatusConflict,
	CodePossibleInsufficientBal:  http.StatusOK,
	CodeInternalError:            http.StatusInternalServerError,
	CodeDatabaseError:            http.StatusInternalServerError,
	CodeTransactionError:         http.StatusInternalServerError,
	CodeEmailSendFailed:          http.StatusInternalServerError,
}

var defaultMessages = map[Code]string{
	CodeValidationError:          "validation error",
	CodeRequiredFieldMissing:     "required fields not provided",
	CodeInvalidDataType:          "invalid data type",
	CodeAccountNotFound:          "account not found",
	CodeInsufficientBalance:      "insufficient balance",
	CodePossibleInsufficientBal:  "current balance does not cover the scheduled amount",
	CodeInvalidWithdrawAmount:    "invalid withdraw amount",
	CodeInvalidBalance:           "invalid balance",
	CodeSchedulingError:          "scheduling error",
	CodePastSchedulingNotAllowed: "scheduling in the past is not allowed",
	CodeSchedulingLimitExceeded:  "scheduling limit exceeded",
	CodeInvalidPixKey:            "invalid pix key",
	CodeInvalidPixType:           "invalid pix type",
	CodeUnsupportedMethod:        "unsupported withdraw method",
	CodeNoFieldsToUpdate:         "no fields to update",
	CodeWithdrawNotFound:         "withdraw not found",
	CodeLoginValidationError:     "login validation error",
	CodeLoginUnauthorized:        "invalid credentials",
	CodeTokenValidationError:     "invalid token",
	CodeTokenNotProvided:         "token not provided",
	CodeInternalError:            "internal server error",
	CodeDatabaseError:            "database error",
	CodeTransactionError:         "transaction error",
	CodeEmailSendFailed:          "email delivery failed",
}

// StatusFor returns the HTTP status mapped to a code, defaulting to 400
// like the upstream contract does for unknown validation codes.
func StatusFor(code Code) int {
	if status, ok := httpStatusByCode[code]; ok {
		return status
	}
	return http.StatusBadRequest
}

// Error is the discriminated failure type raised by the wallet core.
// Transports serialize it as {error_code, message, details} plus the
// mapped status; the wrapped cause stays server-side for diagnostics.
type Error struct {
	Code    Code
	Message string
	Details map[string]any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Status() int { return StatusFor(e.Code) }

// E builds a business error with the code's default message.
func E(code Code, details map[string]any) *Error {
	return &Error{Code: code, Message: defaultMessages[code], Details: details}
}

// Wrap builds an infrastructure error carrying the underlying cause.
func Wrap(code Code, cause error) *Error {
	return &Error{Code: code, Message: defaultMessages[code], cause: cause}
}

// CodeOf extracts the error code, mapping unknown errors to INTERNAL_ERROR
// so internals never leak through a transport.
func CodeOf(err error) Code {
	var we *Error
	if errors.As(err, &we) {
		return we.Code
	}
	return CodeInternalError
}

// As is a convenience wrapper for transports that need the full error.
func As(err error) (*Error, bool) {
	var we *Error
	ok := errors.As(err, &we)
	return we, ok
}
