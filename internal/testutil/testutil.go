package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
)

// Known-good identifiers. A and B are the ISBN-13/ISBN-10 pairs of one
// edition each; C has no ISBN-10 counterpart here.
const (
	ISBN13A = "9780316423724"
	ISBN10A = "0316423726"
	ISBN13B = "9788375763256"
	ISBN10B = "837576325X"
	ISBN13C = "9781784968168"
)

// NewRequest creates a new HTTP request for testing. A non-nil body is sent
// as JSON.
func NewRequest(method, path string, body any) *http.Request {
	if body == nil {
		return httptest.NewRequest(method, path, nil)
	}
	var reader io.Reader
	if s, ok := body.(string); ok {
		reader = bytes.NewBufferString(s)
	} else {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	}
	r := httptest.NewRequest(method, path, reader)
	r.Header.Set("Content-Type", "application/json")
	return r
}

// RecordResponse records the HTTP response for testing
type RecordResponse struct {
	Code   int
	Header http.Header
	Body   map[string]any
}

// Data returns the "data" member of a success envelope as a map.
func (r RecordResponse) Data() map[string]any {
	m, _ := r.Body["data"].(map[string]any)
	return m
}

// ErrorCode returns error.code from an error envelope.
func (r RecordResponse) ErrorCode() string {
	e, _ := r.Body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

// RecordHTTPResponse decodes the recorded response body as JSON.
func RecordHTTPResponse(w *httptest.ResponseRecorder) RecordResponse {
	result := w.Result()
	defer result.Body.Close()

	bodyBytes, _ := io.ReadAll(result.Body)

	var bodyMap map[string]any
	if len(bodyBytes) > 0 {
		_ = json.Unmarshal(bodyBytes, &bodyMap)
	}

	return RecordResponse{
		Code:   result.StatusCode,
		Header: result.Header,
		Body:   bodyMap,
	}
}
