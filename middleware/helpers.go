package middleware

import (
	"encoding/json"
	"net/http"
)

type errorBody struct {
	Error  string `json:"error"`
	Logout bool   `json:"logout,omitempty"`
}

func writeError(w http.ResponseWriter, status int, message string, logout bool) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: message, Logout: logout})
}
