/*
Package errs provides the application error type and error code constants.

These codes identify specific business or system errors both inside the
server and in responses sent to clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body is not valid JSON.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates trailing content after the JSON document.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates that the request rate exceeded the configured limit.
	ErrRateLimitExceeded = 1005
)

// 3xxx: User, Session, and Security Errors
const (
	// ErrInvalidUsername indicates that the supplied username fails validation.
	ErrInvalidUsername = 3001

	// ErrInvalidPassword indicates that the supplied password fails validation.
	ErrInvalidPassword = 3002

	// ErrUserAlreadyExists indicates a registration attempt for a taken username.
	ErrUserAlreadyExists = 3003

	// ErrInvalidCredentials indicates a failed login (unknown name or wrong password).
	ErrInvalidCredentials = 3004

	// ErrUserNotFound indicates that the named account does not exist.
	ErrUserNotFound = 3005

	// ErrPasswordUnchanged indicates that the new password equals the current one.
	ErrPasswordUnchanged = 3006

	// ErrUnauthorized indicates a missing or invalid bearer token on a guarded route.
	ErrUnauthorized = 3007
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified internal server error.
	ErrUnknown = 5000
)
