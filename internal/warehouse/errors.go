package warehouse

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	dbsqlerr "github.com/databricks/databricks-sql-go/errors"
)

type Kind string

const (
	KindConfiguration   Kind = "configuration_error"
	KindNotFound        Kind = "not_found"
	KindPermission      Kind = "permission_denied"
	KindQuery           Kind = "query_error"
	KindConnection      Kind = "connection_error"
	KindInvalidArgument Kind = "invalid_argument"
)

var (
	ErrClosed = errors.New("warehouse is closed")
)

// Error is the error returned to tool callers. Its text starts with the kind so
// that agents can branch on it without parsing the engine message.
type Error struct {
	Kind    Kind
	Message string
	Hint    string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if e.Hint != "" {
		b.WriteString("\nhint: ")
		b.WriteString(e.Hint)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf builds an Error without an underlying cause.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err, defaulting to KindQuery for errors that did
// not come from this package.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindQuery
}

// SQLSTATE codes reported by Databricks SQL.
const (
	sqlStateTableNotFound    = "42P01"
	sqlStateObjectNotFound   = "42704"
	sqlStatePermissionDenied = "42501"
)

var (
	notFoundMarkers = []string{
		"TABLE_OR_VIEW_NOT_FOUND",
		"SCHEMA_NOT_FOUND",
		"CATALOG_NOT_FOUND",
		"NO_SUCH_CATALOG_EXCEPTION",
		"DOES NOT EXIST",
	}
	permissionMarkers = []string{
		"PERMISSION_DENIED",
		"INSUFFICIENT_PERMISSIONS",
		"UNAUTHORIZED_ACCESS",
		"401 UNAUTHORIZED",
		"403 FORBIDDEN",
		"INVALID ACCESS TOKEN",
	}
	connectionMarkers = []string{
		"TEMPORARILY_UNAVAILABLE",
		"SERVICE UNAVAILABLE",
		"WAREHOUSE IS STOPPED",
		"CONNECTION REFUSED",
		"NO SUCH HOST",
		"I/O TIMEOUT",
	}
)

// Classify maps a driver error onto an error kind. Databricks does not report
// not-found and permission failures consistently across runtime versions, so
// the SQLSTATE is consulted first and the message text second.
func Classify(err error) Kind {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrClosed) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindConnection
	}

	var execErr dbsqlerr.DBExecutionError
	isExecErr := errors.As(err, &execErr)
	if isExecErr {
		switch execErr.SqlState() {
		case sqlStateTableNotFound, sqlStateObjectNotFound:
			return KindNotFound
		case sqlStatePermissionDenied:
			return KindPermission
		}
	}

	msg := strings.ToUpper(err.Error())
	switch {
	case containsAny(msg, permissionMarkers):
		return KindPermission
	case containsAny(msg, notFoundMarkers):
		return KindNotFound
	case isExecErr:
		return KindQuery
	}

	// DBRequestError has the same method set as every driver error, so it
	// only means "request never executed" once execution errors are ruled out.
	var reqErr dbsqlerr.DBRequestError
	if errors.As(err, &reqErr) {
		return KindConnection
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindConnection
	}
	if containsAny(msg, connectionMarkers) {
		return KindConnection
	}
	return KindQuery
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
