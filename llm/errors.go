package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/basui01/promptgate/types"
)

// Classify maps a provider call's error into the gateway's closed ErrorKind
// set. It prefers the structured signal a ProviderClient gives us (a
// *types.Error carrying a Code and HTTPStatus, which each provider's own
// error-mapping function, e.g. providers/claude's mapError, already produces) and falls
// back to status-code inspection and, as a last resort, string sniffing on
// the message when neither is available.
func Classify(err error) types.ErrorKind {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return types.ErrorKindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return types.ErrorKindConnection
	}

	var structured *types.Error
	if errors.As(err, &structured) {
		if kind := kindFromCode(structured.Code); kind != "" {
			return kind
		}
		if kind := kindFromHTTPStatus(structured.HTTPStatus); kind != "" {
			return kind
		}
	}

	return kindFromMessage(err.Error())
}

func kindFromCode(code types.ErrorCode) types.ErrorKind {
	switch code {
	case types.ErrAuthentication, types.ErrUnauthorized, types.ErrForbidden:
		return types.ErrorKindAPIKey
	case types.ErrRateLimit, types.ErrRateLimited, types.ErrQuotaExceeded:
		return types.ErrorKindRateLimit
	case types.ErrTimeout, types.ErrUpstreamTimeout:
		return types.ErrorKindTimeout
	case types.ErrContentFiltered:
		return types.ErrorKindContentPolicy
	case types.ErrInvalidRequest, types.ErrToolValidation, types.ErrContextTooLong:
		return types.ErrorKindValidation
	case types.ErrModelNotFound, types.ErrModelOverloaded:
		return types.ErrorKindModel
	case types.ErrInternalError:
		return types.ErrorKindInternal
	case types.ErrServiceUnavailable, types.ErrProviderUnavailable, types.ErrUpstreamError:
		return types.ErrorKindConnection
	default:
		return ""
	}
}

func kindFromHTTPStatus(status int) types.ErrorKind {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return types.ErrorKindAPIKey
	case http.StatusTooManyRequests:
		return types.ErrorKindRateLimit
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return types.ErrorKindTimeout
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return types.ErrorKindValidation
	case http.StatusNotFound:
		return types.ErrorKindModel
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		return types.ErrorKindConnection
	case 0:
		return ""
	default:
		if status >= 500 {
			return types.ErrorKindInternal
		}
		return ""
	}
}

func kindFromMessage(msg string) types.ErrorKind {
	upper := strings.ToUpper(msg)
	switch {
	case containsAny(upper, "AUTHENTICATION", "UNAUTHORIZED", "FORBIDDEN", "API_KEY", "API KEY"):
		return types.ErrorKindAPIKey
	case containsAny(upper, "RATE_LIMIT", "RATE LIMIT", "QUOTA_EXCEEDED", "TOO MANY REQUESTS"):
		return types.ErrorKindRateLimit
	case containsAny(upper, "TIMEOUT", "DEADLINE EXCEEDED"):
		return types.ErrorKindTimeout
	case containsAny(upper, "CONTENT_FILTERED", "CONTENT FILTER", "SAFETY"):
		return types.ErrorKindContentPolicy
	case containsAny(upper, "INVALID_REQUEST", "VALIDATION", "CONTEXT_TOO_LONG"):
		return types.ErrorKindValidation
	case containsAny(upper, "MODEL_NOT_FOUND", "MODEL_OVERLOADED", "NO SUCH MODEL"):
		return types.ErrorKindModel
	case containsAny(upper, "CONNECTION", "ECONNREFUSED", "EOF", "BROKEN PIPE"):
		return types.ErrorKindConnection
	default:
		return types.ErrorKindUnknown
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
