package query

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	KeySearch = "search"
	KeyQ      = "q"
	KeyGenre  = "genre"
	KeySort   = "sort"
	KeyRating = "rating"
	KeyPage   = "page"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	//nolint:errcheck // registration only fails on an empty tag.
	v.RegisterValidation("sortkey", func(fl validator.FieldLevel) bool {
		key, ok := fl.Field().Interface().(SortKey)
		return ok && key.Valid()
	})
	return v
}

var fieldKeys = map[string]string{
	"SearchText": KeySearch,
	"GenreID":    KeyGenre,
	"Sort":       KeySort,
	"MinRating":  KeyRating,
	"Page":       KeyPage,
}

type FieldError struct {
	Key    string
	Value  string
	Reason string
}

// ParseError lists the query keys that were ignored while parsing.
type ParseError struct {
	Fields []FieldError
}

func (e *ParseError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s %s", f.Key, f.Reason))
	}
	return "invalid query: " + strings.Join(parts, "; ")
}

// Encode projects state onto URL query values. Keys at their default or
// empty value are omitted.
func Encode(s State, mode Mode) url.Values {
	values := url.Values{}
	if text := strings.TrimSpace(s.SearchText); text != "" {
		values.Set(mode.SearchKey(), text)
	}
	if s.GenreID != nil {
		values.Set(KeyGenre, strconv.Itoa(*s.GenreID))
	}
	if s.Sort != "" && s.Sort != DefaultSort {
		values.Set(KeySort, string(s.Sort))
	}
	if s.MinRating != nil {
		values.Set(KeyRating, strconv.FormatFloat(*s.MinRating, 'f', -1, 64))
	}
	if s.Page > 1 {
		values.Set(KeyPage, strconv.Itoa(s.Page))
	}
	return values
}

// Parse reads state from URL query values. It is lenient: every invalid key
// falls back to its default and is reported in a *ParseError, while the
// returned State is always usable.
func Parse(values url.Values, mode Mode) (State, error) {
	st := Default()
	var fieldErrs []FieldError
	bad := func(key, val, reason string) {
		fieldErrs = append(fieldErrs, FieldError{Key: key, Value: val, Reason: reason})
	}

	st.SearchText = strings.TrimSpace(values.Get(mode.SearchKey()))
	if st.SearchText == "" {
		// Links built by the other view still carry their own key.
		other := KeySearch
		if mode == ModeListing {
			other = KeyQ
		}
		st.SearchText = strings.TrimSpace(values.Get(other))
	}

	if raw := strings.TrimSpace(values.Get(KeyGenre)); raw != "" {
		if id, err := strconv.Atoi(raw); err == nil {
			st.GenreID = &id
		} else {
			bad(KeyGenre, raw, "must be a number")
		}
	}

	if raw := strings.TrimSpace(values.Get(KeySort)); raw != "" {
		st.Sort = SortKey(raw)
	}

	if raw := strings.TrimSpace(values.Get(KeyRating)); raw != "" {
		if r, err := strconv.ParseFloat(raw, 64); err == nil {
			st.MinRating = &r
		} else {
			bad(KeyRating, raw, "must be a number")
		}
	}

	if raw := strings.TrimSpace(values.Get(KeyPage)); raw != "" {
		if p, err := strconv.Atoi(raw); err == nil {
			st.Page = p
		} else {
			bad(KeyPage, raw, "must be a number")
		}
	}

	if err := validate.Struct(st); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return Default(), err
		}
		for _, fe := range verrs {
			key := fieldKeys[fe.StructField()]
			if key == KeySearch {
				key = mode.SearchKey()
			}
			bad(key, fmt.Sprint(fe.Value()), validationMessage(fe))
			resetField(&st, fe.StructField())
		}
	}

	st.Page = ClampPage(st.Page, 0)
	if len(fieldErrs) > 0 {
		return st, &ParseError{Fields: fieldErrs}
	}
	return st, nil
}

func resetField(st *State, field string) {
	def := Default()
	switch field {
	case "SearchText":
		st.SearchText = def.SearchText
	case "GenreID":
		st.GenreID = nil
	case "Sort":
		st.Sort = def.Sort
	case "MinRating":
		st.MinRating = nil
	case "Page":
		st.Page = def.Page
	}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "max":
		return fmt.Sprintf("must be at most %s characters long", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "sortkey":
		return "must be one of " + sortKeyList()
	default:
		return "is invalid"
	}
}

func sortKeyList() string {
	keys := make([]string, 0, len(SortKeys))
	for _, k := range SortKeys {
		keys = append(keys, string(k))
	}
	return strings.Join(keys, ", ")
}
