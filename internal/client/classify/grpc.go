package classify

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/carpool/internal/apperr"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// grpcStatus maps gRPC codes onto the HTTP status table used by Classify.
var grpcStatus = map[codes.Code]int{
	codes.InvalidArgument:    http.StatusBadRequest,
	codes.FailedPrecondition: http.StatusBadRequest,
	codes.OutOfRange:         http.StatusBadRequest,
	codes.Unauthenticated:    http.StatusUnauthorized,
	codes.PermissionDenied:   http.StatusForbidden,
	codes.NotFound:           http.StatusNotFound,
	codes.AlreadyExists:      http.StatusConflict,
	codes.Aborted:            http.StatusConflict,
	codes.ResourceExhausted:  http.StatusTooManyRequests,
	codes.Internal:           http.StatusInternalServerError,
	codes.Unknown:            http.StatusInternalServerError,
	codes.DataLoss:           http.StatusInternalServerError,
	codes.Unimplemented:      http.StatusNotImplemented,
}

// FromGRPC classifies an error returned by a gRPC invocation. method is used
// as the endpoint. Field violations and retry hints are taken from the status
// details when the server provides them.
func FromGRPC(err error, method string) apperr.AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := apperr.As(err); ok {
		return appErr
	}

	st, ok := status.FromError(err)
	if !ok {
		return Transport(err, method, 0)
	}

	switch st.Code() {
	case codes.DeadlineExceeded:
		return apperr.NewTimeoutError("", 0, err)
	case codes.Canceled:
		return apperr.NewAPIError("Request was cancelled", 0, method, apperr.CodeRequestCancelled, nil)
	case codes.Unavailable:
		return apperr.NewNetworkError(st.Message(), err)
	}

	httpStatus, ok := grpcStatus[st.Code()]
	if !ok {
		return apperr.Unknown(err)
	}

	body := map[string]string{"message": st.Message()}
	header := http.Header{}

	for _, d := range st.Details() {
		switch info := d.(type) {
		case *errdetails.BadRequest:
			if v := info.GetFieldViolations(); len(v) > 0 {
				body["field"] = v[0].GetField()
				if body["message"] == "" {
					body["message"] = v[0].GetDescription()
				}
			}
		case *errdetails.RetryInfo:
			if delay := info.GetRetryDelay(); delay != nil {
				header.Set("Retry-After", retryAfterSeconds(delay.AsDuration()))
			}
		}
	}

	raw, _ := json.Marshal(body)
	return Classify(Response{
		Status:   httpStatus,
		Body:     raw,
		Header:   header,
		Endpoint: method,
	})
}

func retryAfterSeconds(d time.Duration) string {
	return strconv.Itoa(int(math.Ceil(d.Seconds())))
}
