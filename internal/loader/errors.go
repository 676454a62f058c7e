package loader

import (
	"fmt"
)

// NotFoundErr is returned when identifier cannot be opened locally and
// no packaged resource fallback is possible or it failed too.
type NotFoundErr struct {
	Identifier string
	Err        error
}

func (e *NotFoundErr) Error() string {
	return "resource not found: " + e.Identifier + ": " + e.Err.Error()
}

func (e *NotFoundErr) Unwrap() error { return e.Err }

// TransportErr is returned on HTTP connection failures and non-success responses.
type TransportErr struct {
	URL        string
	StatusCode int // zero if no response received
	Err        error
}

func (e *TransportErr) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transport: %s: unexpected status code: %d", e.URL, e.StatusCode)
	}
	return "transport: " + e.URL + ": " + e.Err.Error()
}

func (e *TransportErr) Unwrap() error { return e.Err }

// NamespaceNotFoundErr is returned by FSResolver for unregistered namespaces.
type NamespaceNotFoundErr struct {
	Namespace string
}

func (e *NamespaceNotFoundErr) Error() string {
	return "namespace not found: " + e.Namespace
}
