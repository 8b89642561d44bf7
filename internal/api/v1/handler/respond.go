package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"erpsaas/internal/api/v1/dto"
	"erpsaas/internal/apperr"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

// NewValidator returns the request validator. Field errors are reported by
// their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to its status code. Internal failures are logged and
// reported generically.
func writeError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Int("status", status).Msg("Request failed")
	}
	writeJSON(w, status, dto.ErrorResponse{Success: false, Error: apperr.PublicMessage(err)})
}

// decodeAndValidate reads a JSON body into dst and runs its struct tags.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return apperr.Validation("invalid JSON payload: %v", err)
	}
	if err := v.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation("%v", err)
	}
	var missing, invalid []string
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			missing = append(missing, fe.Field())
		} else {
			invalid = append(invalid, fe.Field())
		}
	}
	if len(missing) > 0 {
		return apperr.Validation("missing required fields: %s", strings.Join(missing, ", "))
	}
	return apperr.Validation("invalid fields: %s", strings.Join(invalid, ", "))
}
