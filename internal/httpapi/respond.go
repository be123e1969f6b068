package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"assetdesk.org/internal/inventory"
	"assetdesk.org/internal/obs"
)

const maxBodyBytes = 1 << 20

const (
	codeBadRequest       = "BAD_REQUEST"
	codeValidation       = "VALIDATION_ERROR"
	codeConflict         = "CONFLICT"
	codeReference        = "REFERENCE_ERROR"
	codeInUse            = "IN_USE"
	codeNotFound         = "NOT_FOUND"
	codeUnauthorized     = "UNAUTHORIZED"
	codeRateLimited      = "RATE_LIMITED"
	codeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	codeTooLarge         = "BODY_TOO_LARGE"
	codeInternal         = "INTERNAL"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	payload := map[string]any{
		"error": msg,
		"code":  code,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, status, payload)
}

// handleServiceError maps inventory sentinels onto HTTP statuses. Anything
// unclassified is logged and reported as a bare 500.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, inventory.ErrNotFound):
		writeError(w, r, http.StatusNotFound, codeNotFound, err.Error())
	case errors.Is(err, inventory.ErrValidation):
		writeError(w, r, http.StatusBadRequest, codeValidation, err.Error())
	case errors.Is(err, inventory.ErrConflict):
		writeError(w, r, http.StatusBadRequest, codeConflict, err.Error())
	case errors.Is(err, inventory.ErrReference):
		writeError(w, r, http.StatusBadRequest, codeReference, err.Error())
	case errors.Is(err, inventory.ErrInUse):
		writeError(w, r, http.StatusConflict, codeInUse, err.Error())
	case errors.Is(err, inventory.ErrUnauthorized):
		writeError(w, r, http.StatusUnauthorized, codeUnauthorized, err.Error())
	default:
		obs.Error("request failed", map[string]any{
			"request_id": RequestIDFromContext(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
			"err":        err,
		})
		writeError(w, r, http.StatusInternalServerError, codeInternal, "internal error")
	}
}

// decodeJSON reads exactly one JSON value, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func writeDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, r, http.StatusRequestEntityTooLarge, codeTooLarge,
			fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		return
	}
	writeError(w, r, http.StatusBadRequest, codeBadRequest, err.Error())
}

func parsePage(r *http.Request) (inventory.Page, error) {
	q := r.URL.Query()
	offset, err := queryInt(q.Get("offset"), "offset")
	if err != nil {
		return inventory.Page{}, err
	}
	limit, err := queryInt(q.Get("limit"), "limit")
	if err != nil {
		return inventory.Page{}, err
	}
	page := inventory.Page{Offset: offset, Limit: limit, Exact: q.Get("limit") != ""}
	return page.Normalize()
}

func queryInt(raw, name string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", inventory.ErrValidation, name)
	}
	return v, nil
}

func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: id must be a positive integer, got %q", inventory.ErrValidation, raw)
	}
	return id, nil
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusNotFound, codeNotFound, "resource not found")
}
