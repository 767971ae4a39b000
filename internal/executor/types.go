package executor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrTransport covers timeouts, connection failures and non-JSON error replies.
	ErrTransport = errors.New("executor transport failure")
	// ErrMalformedResponse means a 2xx reply that could not be decoded.
	ErrMalformedResponse = fmt.Errorf("%w: malformed response", ErrTransport)
)

type executeRequest struct {
	Script       string `json:"script"`
	Language     string `json:"language"`
	VersionIndex string `json:"versionIndex"`
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
}

// Response is the executor's report for a unit it was able to evaluate.
type Response struct {
	Output     string `json:"output"`
	StatusCode int    `json:"statusCode"`
	Memory     Metric `json:"memory"`
	CPUTime    Metric `json:"cpuTime"`
	Error      string `json:"error,omitempty"`
}

// Metric holds a resource figure the executor may send as a JSON string or number.
type Metric string

func (m *Metric) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*m = Metric(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("metric: %w", err)
	}
	*m = Metric(n.String())
	return nil
}

func (m Metric) String() string {
	return string(m)
}

// Float parses the figure, reporting false when it is absent or not numeric.
func (m Metric) Float() (float64, bool) {
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(string(m), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// RemoteError is a structured error body returned by the executor.
type RemoteError struct {
	HTTPStatus int
	Details    map[string]any
}

func (e *RemoteError) Error() string {
	if msg, ok := e.Details["error"].(string); ok && msg != "" {
		return fmt.Sprintf("executor rejected request (http %d): %s", e.HTTPStatus, msg)
	}
	return fmt.Sprintf("executor rejected request (http %d)", e.HTTPStatus)
}
