package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type createDeviceRequest struct {
	UID            string         `json:"uid" validate:"max=200"`
	TypeName       string         `json:"type_name" validate:"required,max=100"`
	SkillName      string         `json:"skill_name" validate:"required,max=100"`
	ParentLocation int64          `json:"parent_location" validate:"gte=0"`
	DisplayName    string         `json:"display_name" validate:"max=200"`
	Abilities      []string       `json:"abilities" validate:"max=32,dive,required"`
	Settings       map[string]any `json:"settings"`
	DeviceParams   map[string]any `json:"device_params"`
	DeviceConfigs  map[string]any `json:"device_configs"`
}

type updateDeviceRequest struct {
	DisplayName    *string `json:"display_name" validate:"omitempty,max=200"`
	ParentLocation *int64  `json:"parent_location" validate:"omitempty,gte=0"`
}

type abilitiesRequest struct {
	Abilities []string `json:"abilities" validate:"max=32,dive,required"`
}

type pairingRequest struct {
	UID string `json:"uid" validate:"required,max=200"`
}

type createLinkRequest struct {
	TargetLocation int64 `json:"target_location" validate:"gte=0"`
}

type createLocationRequest struct {
	Name           string         `json:"name" validate:"required,max=100"`
	ParentLocation int64          `json:"parent_location" validate:"gte=0"`
	Synonyms       []string       `json:"synonyms" validate:"max=20"`
	Settings       map[string]any `json:"settings"`
}

// decodeBody decodes a JSON request body into dst and runs struct validation.
// On failure it writes the 400 response itself and returns false.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeValidationError(w, describeValidation(err))
		return false
	}
	return true
}

// describeValidation flattens validator errors into "field: tag" pairs.
func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s: failed %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

// pathInt64 parses a positive integer URL parameter. On failure it writes a
// 400 and returns false.
func pathInt64(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		writeBadRequest(w, fmt.Sprintf("invalid %s %q", name, raw))
		return 0, false
	}
	return id, true
}

// splitList splits a comma-separated query value, dropping empty items.
func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
