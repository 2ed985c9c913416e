package spapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrorKind buckets an upstream failure for the orchestrator's retry and
// surfacing decisions.
type ErrorKind int

const (
	// KindOK means the response carried no error.
	KindOK ErrorKind = iota
	// KindThrottled means the caller exceeded the rate limit and should
	// wait before retrying.
	KindThrottled
	// KindPlacementConfirmed means the inbound plan's placement option is
	// already confirmed so packing can no longer change.
	KindPlacementConfirmed
	// KindInvalidInput means the upstream rejected the request payload.
	KindInvalidInput
	// KindTransient covers timeouts and gateway errors worth a retry.
	KindTransient
	// KindUpstream is every other upstream failure.
	KindUpstream
)

// placementConfirmedMarkers are body substrings the marketplace uses when a
// plan's placement has already been confirmed. The exact wording varies by
// operation so matching is substring-based and case-insensitive.
var placementConfirmedMarkers = []string{
	"placement option is confirmed",
	"placementoption is already confirmed",
	"already confirmed placement",
	"cannot be modified after placement",
}

type errorResponse struct {
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details string `json:"details"`
	} `json:"errors"`
}

// ErrorMessages extracts the human messages out of an upstream error
// envelope. Returns nil when the body is not the standard envelope.
func ErrorMessages(body []byte) []string {
	var env errorResponse
	if err := json.Unmarshal(body, &env); err != nil || len(env.Errors) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(env.Errors))
	for _, e := range env.Errors {
		m := e.Message
		if m == "" {
			m = e.Code
		}
		if e.Details != "" {
			m += ": " + e.Details
		}
		msgs = append(msgs, m)
	}
	return msgs
}

// Classify maps an upstream status and body to an ErrorKind.
func Classify(status int, body []byte) ErrorKind {
	switch {
	case status >= 200 && status < 300:
		return KindOK
	case status == http.StatusTooManyRequests:
		return KindThrottled
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		if IsPlacementConfirmed(body) {
			return KindPlacementConfirmed
		}
		return KindInvalidInput
	case status == http.StatusConflict:
		if IsPlacementConfirmed(body) {
			return KindPlacementConfirmed
		}
		return KindUpstream
	case status == http.StatusRequestTimeout,
		status == http.StatusInternalServerError,
		status == http.StatusBadGateway,
		status == http.StatusServiceUnavailable,
		status == http.StatusGatewayTimeout:
		return KindTransient
	default:
		return KindUpstream
	}
}

// IsPlacementConfirmed reports whether the error body indicates the plan's
// placement option is already confirmed.
func IsPlacementConfirmed(body []byte) bool {
	lowered := strings.ToLower(string(body))
	for _, marker := range placementConfirmedMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

// RetryAfter parses the Retry-After header, falling back to def when the
// header is absent or unparseable. Both delta-seconds and HTTP-date forms
// are accepted.
func RetryAfter(h http.Header, def time.Duration) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return def
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return def
}

// transientGroupReadStatuses are the statuses a group hydration read may
// see while the upstream is still materializing group contents. 0 stands
// in for a transport-level failure.
var transientGroupReadStatuses = map[int]bool{
	0:                              true,
	http.StatusAccepted:            true,
	http.StatusNotFound:            true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// TransientGroupRead reports whether a group-content read with this status
// should be retried rather than failed.
func TransientGroupRead(status int) bool {
	return transientGroupReadStatuses[status]
}
