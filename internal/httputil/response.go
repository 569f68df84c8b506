package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/naoTimesdev/showtimes-sub000/internal/showerrors"
)

type Response struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data,omitempty"`
	Error  *ErrorBody  `json:"error,omitempty"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Response{
		Status: "ok",
		Data:   data,
	})
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Response{
		Status: "error",
		Error: &ErrorBody{
			Code:    code,
			Message: message,
		},
	})
}

// WriteServiceError maps a typed service error onto the wire, falling
// back to a 500 for plain errors.
func WriteServiceError(w http.ResponseWriter, err error) {
	code := showerrors.CodeOf(err)
	status := statusFor(code)
	message := err.Error()
	if typed, ok := err.(*showerrors.Error); ok {
		message = typed.Message
	}
	WriteError(w, status, string(code), message)
}

func statusFor(code showerrors.Code) int {
	switch code {
	case showerrors.CodeUserNotFound, showerrors.CodeServerNotFound,
		showerrors.CodeProjectNotFound, showerrors.CodeCollabNotFound,
		showerrors.CodeMetadataNotFound, showerrors.CodeFeedNotFound:
		return http.StatusNotFound
	case showerrors.CodeUserBadLogin, showerrors.CodeUserNotApproved:
		return http.StatusUnauthorized
	case showerrors.CodeUserExists, showerrors.CodeCollabDuplicate:
		return http.StatusConflict
	case showerrors.CodeUserBadUsername, showerrors.CodeUserWeakPassword,
		showerrors.CodeInvalidApproval, showerrors.CodeInvalidIntegra,
		showerrors.CodeCollabSelfInvite, showerrors.CodeProjectNoEpisode,
		showerrors.CodeFeedLimit, showerrors.CodeServerBadName,
		showerrors.CodePremiumBadGrant:
		return http.StatusBadRequest
	case showerrors.CodeMetadataUpstream, showerrors.CodeSearchUnavailable,
		showerrors.CodeStorageFailure:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func ReadJSON(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}
