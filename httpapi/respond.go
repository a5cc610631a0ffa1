package httpapi

import (
	"encoding/json"
	"net/http"
)

// APIResponse is the uniform JSON envelope for every endpoint. Data is
// flattened into the object via the User field rather than nested, matching
// what browser clients already parse.
type APIResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	User    *UserView `json:"user,omitempty"`
}

// UserView is the public projection of an account. The password hash never
// leaves the server.
type UserView struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

func respond(w http.ResponseWriter, status int, body APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondOK(w http.ResponseWriter, message string) {
	respond(w, http.StatusOK, APIResponse{Success: true, Message: message})
}

func respondError(w http.ResponseWriter, status int, message string) {
	respond(w, status, APIResponse{Success: false, Message: message})
}
