package classify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/dmitrijs2005/carpool/internal/apperr"
)

// ErrTimeout is the cancellation cause set by the request timeout
// controller. Transport treats it as a timeout rather than a user abort.
var ErrTimeout = errors.New("request timeout exceeded")

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

// FromHTTP adapts an *http.Response to the normalized shape. The body is read
// and closed.
func FromHTTP(resp *http.Response, endpoint string) (Response, error) {
	defer resp.Body.Close()

	var r io.Reader = resp.Body
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		r = io.LimitReader(resp.Body, maxErrorBody)
	}

	body, err := io.ReadAll(r)
	if err != nil {
		return Response{}, fmt.Errorf("read response body: %w", err)
	}

	return Response{
		Status:   resp.StatusCode,
		Body:     body,
		Header:   resp.Header,
		Endpoint: endpoint,
	}, nil
}

// Transport classifies a failure where no response was received. timeout is
// the limit the request ran under; it is reported by TimeoutError.
func Transport(err error, endpoint string, timeout time.Duration) apperr.AppError {
	if err == nil {
		return apperr.New(apperr.CodeUnknown, "", nil)
	}

	if appErr, ok := apperr.As(err); ok {
		return appErr
	}

	switch {
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded), isNetTimeout(err):
		return apperr.NewTimeoutError("", timeout, err)

	case errors.Is(err, context.Canceled):
		return apperr.NewAPIError("Request was cancelled", 0, endpoint, apperr.CodeRequestCancelled, nil)

	case isConnectivity(err):
		return apperr.NewNetworkError("Network error: unable to reach the server", err)
	}

	return apperr.Unknown(err)
}

func isNetTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// connectivityHints are message fragments that identify a connectivity
// failure when the error chain carries no typed cause.
var connectivityHints = []string{
	"connection refused",
	"connection reset",
	"no such host",
	"network is unreachable",
	"host is down",
	"broken pipe",
	"failed to fetch",
	"network error",
}

func isConnectivity(err error) bool {
	var (
		opErr  *net.OpError
		dnsErr *net.DNSError
	)
	switch {
	case errors.As(err, &opErr), errors.As(err, &dnsErr):
		return true
	case errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, hint := range connectivityHints {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}
