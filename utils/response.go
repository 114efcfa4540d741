package utils

import (
    "encoding/json"
    "errors"
    "net/http"

    "github.com/typerush/typerush/typerush-backend/models"
    "github.com/typerush/typerush/typerush-backend/responses"
)

// HandleSuccess writes response as a 200 JSON body.
func HandleSuccess(w http.ResponseWriter, response models.ApiResponse) {
    writeJSON(w, http.StatusOK, response)
}

// HandleError writes err as a JSON error body. Errors implementing
// responses.APIError carry their own status code, anything else is a 500.
func HandleError(w http.ResponseWriter, err error) {
    status := http.StatusInternalServerError
    msg := "Internal Server Error"

    var apiErr responses.APIError
    if errors.As(err, &apiErr) {
        status = apiErr.StatusCode()
        msg = apiErr.Error()
    }

    writeJSON(w, status, models.ErrorResponse(msg))
}

func writeJSON(w http.ResponseWriter, status int, body models.ApiResponse) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(status)
    json.NewEncoder(w).Encode(body)
}
