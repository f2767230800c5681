package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"medreport/internal/logging"
	"medreport/internal/util"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	apiErr := toAPIError(code, err)
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		},
	})
}

// writeKindErr picks the status from the error kind.
func writeKindErr(w http.ResponseWriter, err error) {
	writeErr(w, statusFor(err), err)
}

type apiError struct {
	Code    string
	Message string
}

func statusFor(err error) int {
	switch util.KindOf(err) {
	case util.KindInvalidInput, util.KindUnsupportedFormat:
		return http.StatusBadRequest
	case util.KindNotFound:
		return http.StatusNotFound
	case util.KindUnreadable:
		return http.StatusUnprocessableEntity
	case util.KindArtifactLoad:
		return http.StatusServiceUnavailable
	case util.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

var kindCodes = map[util.Kind]string{
	util.KindUnsupportedFormat: "MR-DOC-4150",
	util.KindUnreadable:        "MR-DOC-4220",
	util.KindArtifactLoad:      "MR-INF-5030",
	util.KindInference:         "MR-INF-5001",
	util.KindRender:            "MR-PDF-5001",
	util.KindTimeout:           "MR-API-5040",
}

func toAPIError(status int, err error) apiError {
	msg := "Request failed."
	code := "MR-API-4000"
	raw := ""
	if err != nil {
		raw = strings.ToLower(err.Error())
	}

	kind := util.KindOf(err)
	if c, ok := kindCodes[kind]; ok {
		return apiError{Code: c, Message: util.DetailOf(err)}
	}

	switch {
	case status >= 500:
		switch {
		case strings.Contains(raw, "relation") && strings.Contains(raw, "does not exist"):
			return apiError{
				Code:    "MR-DB-5001",
				Message: "Database schema is not initialized. Run migrations and retry.",
			}
		case strings.Contains(raw, "connect"), strings.Contains(raw, "dial tcp"), strings.Contains(raw, "connection refused"):
			return apiError{
				Code:    "MR-DB-5002",
				Message: "Database connection is unavailable. Check local services and retry.",
			}
		case status == http.StatusServiceUnavailable:
			return apiError{
				Code:    "MR-API-5030",
				Message: "Batch processing is unavailable. Check the workflow service and retry.",
			}
		default:
			return apiError{
				Code:    "MR-API-5000",
				Message: "Internal server error. Please retry or check service logs.",
			}
		}
	case status == http.StatusBadRequest:
		code = "MR-API-4001"
		msg = "Invalid request. Check inputs and retry."
	case status == http.StatusNotFound:
		code = "MR-API-4004"
		msg = "Requested resource was not found."
	case status == http.StatusConflict:
		code = "MR-API-4009"
		msg = "Operation conflicts with current state. Retry after checking status."
	case status == http.StatusMethodNotAllowed:
		code = "MR-API-4005"
		msg = "This endpoint does not support the requested method."
	case status == http.StatusRequestEntityTooLarge:
		code = "MR-API-4130"
		msg = "Uploaded file is too large."
	}

	// For 4xx, keep user-safe validation context only.
	var pe *util.ProcessingError
	if status >= 400 && status < 500 && errors.As(err, &pe) && pe.Detail != "" {
		msg = pe.Detail
	}

	return apiError{Code: code, Message: msg}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+logging.RequestIDHeader)
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
