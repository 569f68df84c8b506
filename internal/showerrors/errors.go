package showerrors

import "fmt"

// Code is a stable machine-readable error code returned across the API
// boundary. Validation failures and external-service failures each get a
// distinct code per failure site.
type Code string

const (
	CodeSuccess Code = "SUCCESS"

	CodeUserNotFound      Code = "USER_NOT_FOUND"
	CodeUserExists        Code = "USER_ALREADY_EXISTS"
	CodeUserBadUsername   Code = "USER_INVALID_USERNAME"
	CodeUserWeakPassword  Code = "USER_WEAK_PASSWORD"
	CodeUserBadLogin      Code = "USER_INVALID_CREDENTIALS"
	CodeUserNotApproved   Code = "USER_NOT_APPROVED"
	CodeInvalidApproval   Code = "USER_INVALID_APPROVAL_CODE"
	CodeInvalidIntegra    Code = "INTEGRATION_INVALID_TYPE"
	CodeServerNotFound    Code = "SERVER_NOT_FOUND"
	CodeServerBadName     Code = "SERVER_INVALID_NAME"
	CodeProjectNotFound   Code = "PROJECT_NOT_FOUND"
	CodeProjectNoEpisode  Code = "PROJECT_NO_EPISODE_UPDATE"
	CodeCollabNotFound    Code = "COLLAB_NOT_FOUND"
	CodeCollabSelfInvite  Code = "COLLAB_SELF_INVITE"
	CodeCollabDuplicate   Code = "COLLAB_ALREADY_LINKED"
	CodeMetadataNotFound  Code = "EXTERNAL_METADATA_NOT_FOUND"
	CodeMetadataUpstream  Code = "EXTERNAL_METADATA_UNAVAILABLE"
	CodeSearchUnavailable Code = "SEARCH_INDEX_UNAVAILABLE"
	CodeStorageFailure    Code = "OBJECT_STORAGE_FAILURE"
	CodeFeedNotFound      Code = "RSS_FEED_NOT_FOUND"
	CodeFeedLimit         Code = "RSS_FEED_LIMIT_REACHED"
	CodePremiumBadGrant   Code = "PREMIUM_INVALID_GRANT"
)

// Error is a typed result value carrying a stable code alongside the
// human-readable message.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// CodeOf extracts the error code, returning INTERNAL_ERROR for plain errors.
func CodeOf(err error) Code {
	if err == nil {
		return CodeSuccess
	}
	if coded, ok := err.(*Error); ok {
		return coded.Code
	}
	return Code("INTERNAL_ERROR")
}
