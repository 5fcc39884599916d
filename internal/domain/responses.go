package domain

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

var errRequired = errors.New("This field is required.")

// ResponseErrors maps question ids to the message explaining why the answer was rejected.
type ResponseErrors map[string]string

func (e ResponseErrors) Error() string {
	ids := make([]string, 0, len(e))
	for id := range e {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, id+": "+e[id])
	}
	return "invalid responses: " + strings.Join(parts, "; ")
}

// ValidateResponses checks answers against every visible question of s.
// Questions hidden by an unmet DependsOn condition are skipped, and answers
// for unknown question ids are rejected.
func ValidateResponses(s Structure, answers map[string]any) error {
	errs := ResponseErrors{}
	for _, sec := range s.Sections {
		for _, q := range sec.Questions {
			b := q.Base()
			if !visible(b, answers) {
				continue
			}
			if err := q.check(answers[b.ID]); err != nil {
				errs[b.ID] = err.Error()
			}
		}
	}
	for id := range answers {
		if _, ok := s.Question(id); !ok {
			errs[id] = "Unknown question."
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func visible(b QuestionBase, answers map[string]any) bool {
	if b.DependsOn == nil {
		return true
	}
	got, ok := answers[b.DependsOn.QuestionID]
	if !ok {
		return false
	}
	return reflect.DeepEqual(got, b.DependsOn.Value)
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	}
	return false
}

func checkText(required bool, maxLength *int, v any) error {
	if isEmpty(v) {
		if required {
			return errRequired
		}
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return errors.New("Must be text.")
	}
	if maxLength != nil && utf8.RuneCountInString(s) > *maxLength {
		return fmt.Errorf("Must be %d characters or less.", *maxLength)
	}
	return nil
}

func (q ShortText) check(v any) error { return checkText(q.Required, q.MaxLength, v) }
func (q LongText) check(v any) error  { return checkText(q.Required, q.MaxLength, v) }

func (q SingleChoice) check(v any) error {
	if isEmpty(v) {
		if q.Required {
			return errRequired
		}
		return nil
	}
	s, ok := v.(string)
	if !ok || !contains(q.Options, s) {
		return errors.New("Must be one of the listed options.")
	}
	return nil
}

func (q MultiChoice) check(v any) error {
	if isEmpty(v) {
		if q.Required {
			return errRequired
		}
		return nil
	}
	var picked []string
	switch t := v.(type) {
	case []string:
		picked = t
	case []any:
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return errors.New("Must be a list of options.")
			}
			picked = append(picked, s)
		}
	default:
		return errors.New("Must be a list of options.")
	}
	for _, s := range picked {
		if !contains(q.Options, s) {
			return fmt.Errorf("%q is not one of the listed options.", s)
		}
	}
	return nil
}

func (q Numeric) check(v any) error {
	if isEmpty(v) {
		if q.Required {
			return errRequired
		}
		return nil
	}
	var num float64
	switch t := v.(type) {
	case float64:
		num = t
	case int:
		num = float64(t)
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return errors.New("Must be a valid number.")
		}
		num = n
	default:
		return errors.New("Must be a valid number.")
	}
	if q.Min != nil && num < *q.Min {
		return fmt.Errorf("Value must be %s or more.", formatNumber(*q.Min))
	}
	if q.Max != nil && num > *q.Max {
		return fmt.Errorf("Value must be %s or less.", formatNumber(*q.Max))
	}
	return nil
}

func (q FileUpload) check(v any) error {
	if isEmpty(v) {
		if q.Required {
			return errRequired
		}
		return nil
	}
	if _, ok := v.(string); !ok {
		return errors.New("Must be a file name.")
	}
	return nil
}

func contains(items []string, s string) bool {
	for _, it := range items {
		if it == s {
			return true
		}
	}
	return false
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
