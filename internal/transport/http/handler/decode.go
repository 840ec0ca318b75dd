package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-otp-gate/internal/pkg/validate"
)

const maxBodyBytes = 1 << 20

// decodeLenient reads the body into a T. A missing or malformed body yields
// the zero T, so the request then fails validation instead of parsing.
func decodeLenient[T any](w http.ResponseWriter, r *http.Request) T {
	var v T
	if r.Body == nil {
		return v
	}
	b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil || len(b) == 0 {
		return v
	}
	if err := json.Unmarshal(b, &v); err != nil {
		var zero T
		return zero
	}
	return v
}

// bind decodes leniently and validates. On failure it writes a 400
// PAYLOAD_INVALID and returns false.
func bind[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	v := decodeLenient[T](w, r)
	if err := validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, CodePayloadInvalid, err.Error())
		return v, false
	}
	return v, true
}

// bindStrict rejects malformed JSON with 400 BAD_JSON before validating.
func bindStrict[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T
	if r.Body == nil {
		writeError(w, http.StatusBadRequest, CodeBadJSON, "request body required")
		return v, false
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&v); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadJSON, "invalid JSON body")
		return v, false
	}
	if err := validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, CodePayloadInvalid, err.Error())
		return v, false
	}
	return v, true
}
