package affected

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound is matched (via errors.Is) by every error reporting that the
// upstream registry has no such package. It is not worth retrying.
var ErrNotFound = errors.New("package not found")

// EnumerateError is the non-retryable enumeration failure.
type EnumerateError struct {
	Ecosystem string
	Package   string
}

func (e *EnumerateError) Error() string {
	return fmt.Sprintf("%s: package %s not found", e.Ecosystem, e.Package)
}

func (e *EnumerateError) Unwrap() error {
	return ErrNotFound
}

// RequestError is returned when a registry answers with a non-200 status.
type RequestError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("GET %s: %d %s: %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

// IsRetryable reports whether err is a transient failure that a caller may
// retry with backoff.
func IsRetryable(err error) bool {
	return err != nil && !errors.Is(err, ErrNotFound)
}

// registryError maps a fetch failure to the boundary error kinds: a 404 from
// the registry becomes an *EnumerateError, anything else stays retryable.
func registryError(ecosystem, pkg string, err error) error {
	var reqErr *RequestError
	if errors.As(err, &reqErr) && reqErr.StatusCode == http.StatusNotFound {
		return &EnumerateError{Ecosystem: ecosystem, Package: pkg}
	}
	return fmt.Errorf("failed to get %s versions for %s: %w", ecosystem, pkg, err)
}
