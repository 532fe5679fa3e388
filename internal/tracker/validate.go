package tracker

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"
	"gorm.io/datatypes"

	"jobtracker/internal/database"
	"jobtracker/internal/errcode"
)

const (
	maxNameLength = 255
	maxLinkLength = 512
	maxTags       = 5
)

// Messages shared by every service so the API reports one wording per rule.
const (
	msgRequired    = "This field is required."
	msgBlank       = "This field may not be blank."
	msgNull        = "This field may not be null."
	msgTooLong     = "Ensure this field has no more than 255 characters."
	msgInvalidURL  = "Enter a valid URL."
	msgTooManyTags = "Ensure this field has no more than 5 elements."
	msgBlankTag    = "Tag names may not be blank."
	msgBadDate     = "Date has wrong format. Use one of these formats instead: YYYY-MM-DD."
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func fieldValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// canonicalName trims surrounding whitespace and folds to NFC so visually identical names collide.
func canonicalName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// checkName validates a required, owner-unique display name.
func checkName(errs *errcode.ValidationError, field string, value Optional[string], required bool) string {
	if !value.Set {
		if required {
			errs.Add(field, msgRequired)
		}
		return ""
	}
	if value.Null {
		errs.Add(field, msgNull)
		return ""
	}
	name := canonicalName(value.Value)
	switch {
	case name == "":
		errs.Add(field, msgBlank)
	case utf8.RuneCountInString(name) > maxNameLength:
		errs.Add(field, msgTooLong)
	}
	return name
}

// checkLink validates an optional URL; null and empty both clear it.
func checkLink(errs *errcode.ValidationError, field string, value Optional[string]) string {
	if !value.Present() {
		return ""
	}
	link := strings.TrimSpace(value.Value)
	if link == "" {
		return ""
	}
	if len(link) > maxLinkLength || fieldValidator().Var(link, "url") != nil {
		errs.Add(field, msgInvalidURL)
	}
	return link
}

// checkTagNames enforces the count bound and blank names before any lookup happens.
func checkTagNames(errs *errcode.ValidationError, field string, value Optional[TagNames]) []string {
	if !value.Present() {
		return nil
	}
	if len(value.Value) > maxTags {
		errs.Add(field, msgTooManyTags)
		return nil
	}
	names := make([]string, 0, len(value.Value))
	for _, raw := range value.Value {
		name := canonicalName(raw)
		if name == "" {
			errs.Add(field, msgBlankTag)
			return nil
		}
		if utf8.RuneCountInString(name) > maxNameLength {
			errs.Add(field, msgTooLong)
			return nil
		}
		names = append(names, name)
	}
	return names
}

// ValidEmail reports whether s is a syntactically valid address.
func ValidEmail(s string) bool {
	return fieldValidator().Var(s, "required,email") == nil
}

var statuses = []string{
	database.StatusApplied,
	database.StatusInterviewing,
	database.StatusRejected,
	database.StatusOffer,
	database.StatusAccepted,
}

// checkStatus returns fallback when the key is absent.
func checkStatus(errs *errcode.ValidationError, field string, value Optional[string], fallback string) string {
	if !value.Set {
		return fallback
	}
	if value.Null {
		errs.Add(field, msgNull)
		return fallback
	}
	if !slices.Contains(statuses, value.Value) {
		errs.Add(field, fmt.Sprintf("%q is not a valid choice.", value.Value))
		return fallback
	}
	return value.Value
}

// checkNote accepts any text; null stores an empty note.
func checkNote(value Optional[string]) string {
	if !value.Present() {
		return ""
	}
	return value.Value
}

func checkDate(errs *errcode.ValidationError, field string, value Optional[string], required bool) (datatypes.Date, bool) {
	if !value.Set {
		if required {
			errs.Add(field, msgRequired)
		}
		return datatypes.Date{}, false
	}
	if value.Null {
		errs.Add(field, msgNull)
		return datatypes.Date{}, false
	}
	t, err := time.Parse(dateLayout, strings.TrimSpace(value.Value))
	if err != nil {
		errs.Add(field, msgBadDate)
		return datatypes.Date{}, false
	}
	return datatypes.Date(t), true
}

// checkRequiredRef flags an absent or null key; the ownership lookup happens later.
func checkRequiredRef(errs *errcode.ValidationError, field string, value Optional[uint], required bool) {
	switch {
	case !value.Set && required:
		errs.Add(field, msgRequired)
	case value.Null:
		errs.Add(field, msgNull)
	}
}

func checkTagIDs(errs *errcode.ValidationError, field string, value Optional[[]uint]) []uint {
	if !value.Present() {
		return nil
	}
	if len(value.Value) > maxTags {
		errs.Add(field, msgTooManyTags)
		return nil
	}
	return value.Value
}
