package lifecycle

import (
	"strings"

	"github.com/yi-nology/park_registry/biz/model/asset"
	"github.com/yi-nology/park_registry/pkg/validator"
)

// Rules holds the deployment specific validation inputs.
type Rules struct {
	Categories []string
}

func (r Rules) knownCategory(c string) bool {
	if len(r.Categories) == 0 {
		return true
	}
	for _, known := range r.Categories {
		if strings.EqualFold(known, c) {
			return true
		}
	}
	return false
}

// validateDraft runs every field rule and reports all offending fields.
// inherited tells whether an existing photo may stand in for a new capture.
func (r Rules) validateDraft(d asset.Draft, inherited bool) error {
	var fields []asset.FieldError
	add := func(field string, err error) {
		fields = append(fields, asset.FieldError{Field: field, Err: err})
	}

	if strings.TrimSpace(d.Name) == "" {
		add("name", asset.ErrRequired)
	}
	if strings.TrimSpace(d.Description) == "" {
		add("description", asset.ErrRequired)
	}
	switch {
	case d.Condition == "":
		add("condition", asset.ErrRequired)
	case !d.Condition.Valid():
		add("condition", asset.ErrInvalid)
	}
	if c := strings.TrimSpace(d.Category); c != "" && !r.knownCategory(c) {
		add("category", asset.ErrInvalid)
	}
	captured := d.Capture != nil && len(d.Capture.Image) > 0
	if !captured && !inherited {
		add("photo", asset.ErrRequired)
	}
	if captured {
		if err := validator.ValidateCoordinates(d.Capture.Location.Latitude, d.Capture.Location.Longitude); err != nil {
			add("location", err)
		}
	}

	if len(fields) > 0 {
		return asset.Validation(fields...)
	}
	return nil
}
