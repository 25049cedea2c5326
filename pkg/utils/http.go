package utils

import (
	"encoding/json"
	"net/http"
)

// WriteJSONResponse writes data as the JSON body of the response with the
// given status. The status line is committed before encoding starts, so an
// encoding failure cannot be reported to the client.
func WriteJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}
