package importer

import (
	"errors"

	"github.com/UnknownOlympus/mnemosyne/internal/models"
	"github.com/go-playground/validator/v10"
)

// Reason names why a record was not imported.
type Reason string

const (
	ReasonMissingID        Reason = "missing_id"
	ReasonMissingExtension Reason = "missing_extension"
	ReasonMissingNameEn    Reason = "missing_name_en"
	ReasonMissingNameFa    Reason = "missing_name_fa"
	ReasonMalformedRecord  Reason = "malformed_record"
	ReasonStoreError       Reason = "store_error"
)

type requiredFields struct {
	Extension string `validate:"required"`
	NameEn    string `validate:"required"`
	NameFa    string `validate:"required"`
}

var (
	validate = validator.New(validator.WithRequiredStructEnabled())

	fieldReasons = map[string]Reason{
		"Extension": ReasonMissingExtension,
		"NameEn":    ReasonMissingNameEn,
		"NameFa":    ReasonMissingNameFa,
	}
)

// Validate returns every reason the record cannot be imported, or nil when it is acceptable.
// Extension, name.en and name.fa must be non-empty, and the id must be present.
// A record without an id is rejected instead of being inserted under a store-assigned key,
// so re-running the same file never creates duplicate rows.
func Validate(rec models.EmployeeRecord) []Reason {
	var reasons []Reason

	if rec.ID == nil {
		reasons = append(reasons, ReasonMissingID)
	}

	err := validate.Struct(requiredFields{
		Extension: string(rec.Extension),
		NameEn:    string(rec.Name.En),
		NameFa:    string(rec.Name.Fa),
	})

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fieldErr := range fieldErrs {
			if reason, ok := fieldReasons[fieldErr.Field()]; ok {
				reasons = append(reasons, reason)
			}
		}
	}

	return reasons
}
