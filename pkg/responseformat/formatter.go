// Package responseformat writes API payloads as JSON or MessagePack.
package responseformat

import (
	"encoding/json"
	"net/http"

	"github.com/vmihailenco/msgpack/v5"
)

// Supported values of the format query parameter
const (
	FormatJSON    = "json"
	FormatMsgPack = "msgpack"
)

// Formatter handles encoding and writing responses in JSON or MessagePack format
type Formatter struct{}

// NewFormatter creates a new response formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

// ErrorBody is the payload written for failed API requests
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// WriteResponse writes data with status 200 in the format selected by the
// request. JSON is the default; MessagePack is used when format=msgpack.
func (f *Formatter) WriteResponse(w http.ResponseWriter, req *http.Request, data any, headers map[string]string) error {
	return f.WriteStatus(w, req, http.StatusOK, data, headers)
}

// WriteStatus is WriteResponse with an explicit status code
func (f *Formatter) WriteStatus(w http.ResponseWriter, req *http.Request, status int, data any, headers map[string]string) error {
	// Set any provided headers first
	for k, v := range headers {
		w.Header().Set(k, v)
	}

	// Always set CORS header
	w.Header().Set("Access-Control-Allow-Origin", "*")

	if req.URL.Query().Get("format") == FormatMsgPack {
		return f.writeMsgPack(w, status, data)
	}

	return f.writeJSON(w, status, data)
}

// WriteError writes an ErrorBody with the given status
func (f *Formatter) WriteError(w http.ResponseWriter, req *http.Request, status int, errText, message string) error {
	return f.WriteStatus(w, req, status, ErrorBody{Error: errText, Message: message}, nil)
}

func (f *Formatter) writeJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

func (f *Formatter) writeMsgPack(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/x-msgpack")
	w.WriteHeader(status)
	encoder := msgpack.NewEncoder(w)
	encoder.SetCustomStructTag("json") // Use json tags for MessagePack
	return encoder.Encode(data)
}
