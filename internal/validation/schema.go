// Package validation holds the declarative draft schemas checked between
// composer tabs.
package validation

import (
	"errors"
	"sort"
	"strings"

	"adda/internal/models"

	"github.com/go-playground/validator/v10"
)

// Validate is the shared validator instance with custom tags registered.
var Validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("not_blank", validateNotBlank)
	return v
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// Rules maps draft field names (see models.Draft.Fields) to validator tags.
type Rules map[string]interface{}

const (
	dateRule         = "required,datetime=2006-01-02"
	optionalDateRule = "omitempty,datetime=2006-01-02"
)

// schemas is keyed by post type then tab. Tab 0 holds rules applied at
// every tab; the submit tab combines all of them.
var schemas = map[models.PostType]map[int]Rules{
	models.PostTypeText: {
		0: {"content": "not_blank,max=5000"},
	},
	models.PostTypePhoto: {
		1: {"stagedMedia": "min=1"},
	},
	models.PostTypeVideo: {
		1: {"stagedMedia": "min=1"},
	},
	models.PostTypeArticle: {
		1: {"title": "required,max=300", "articleBody": "required,max=50000"},
	},
	models.PostTypeEvent: {
		1: {
			"title":          "required,max=300",
			"eventStartDate": dateRule,
			"eventEndDate":   optionalDateRule,
			"venue":          "required",
			"description":    "required,max=5000",
		},
	},
}

// For returns the rules that apply to postType at tab. The last tab
// (preview + submit) checks every rule defined for the type.
func For(postType models.PostType, tab int) Rules {
	byTab, ok := schemas[postType]
	if !ok {
		return Rules{}
	}
	out := Rules{}
	for k, v := range byTab[0] {
		out[k] = v
	}
	for t, rules := range byTab {
		if t == tab || (tab >= 2 && t > 0 && t < tab) {
			for k, v := range rules {
				out[k] = v
			}
		}
	}
	return out
}

// Result lists the fields that failed, keyed by field name.
type Result struct {
	Errors map[string]string
}

// Valid reports whether no rule failed.
func (r Result) Valid() bool { return len(r.Errors) == 0 }

// Fields returns the failing field names in sorted order.
func (r Result) Fields() []string {
	out := make([]string, 0, len(r.Errors))
	for k := range r.Errors {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Check validates d against the schema for its type at tab.
func Check(d *models.Draft, tab int) Result {
	rules := For(d.PostType, tab)
	if len(rules) == 0 {
		return Result{}
	}
	failed := Validate.ValidateMap(d.Fields(), rules)
	res := Result{Errors: make(map[string]string, len(failed))}
	for field, v := range failed {
		res.Errors[field] = describe(field, v)
	}
	return res
}

func describe(field string, v interface{}) string {
	err, ok := v.(error)
	if !ok {
		return field + " is invalid"
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return field + " failed " + verrs[0].Tag()
	}
	return err.Error()
}

// CheckPayload validates the enum fields of an assembled payload.
func CheckPayload(p *models.PostPayload) error {
	if err := Validate.Struct(p); err != nil {
		return models.NewValidationError("Invalid post payload: " + err.Error())
	}
	return nil
}
