package httpserver

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/helixir/metasearch-service/internal/domain"
)

// searchRequest is the JSON body of POST /search.
type searchRequest struct {
	Query   string          `json:"query" validate:"required,max=1000"`
	Type    string          `json:"type" validate:"omitempty,oneof=keyword title author doi"`
	Limit   int             `json:"limit" validate:"gte=0"`
	Filters *filtersRequest `json:"filters" validate:"omitempty"`
}

type filtersRequest struct {
	YearFrom       int      `json:"yearFrom" validate:"omitempty,gte=1000,lte=3000"`
	YearTo         int      `json:"yearTo" validate:"omitempty,gte=1000,lte=3000"`
	OpenAccessOnly bool     `json:"openAccessOnly"`
	Providers      []string `json:"providers" validate:"omitempty,max=10,dive,required"`
}

// resolveRequest is the JSON body of POST /resolve.
type resolveRequest struct {
	Identifier string `json:"identifier" validate:"required,max=512"`
	Type       string `json:"type" validate:"omitempty,eq=doi"`
}

type providerResponse struct {
	Provider string `json:"provider"`
	Name     string `json:"name"`
	Enabled  bool   `json:"enabled"`
	Circuit  string `json:"circuit,omitempty"`
}

type listProvidersResponse struct {
	Providers []providerResponse `json:"providers"`
	Enabled   int                `json:"enabled"`
}

// toQuery converts a validated request into a domain query. Defaults and
// clamping are left to the fetcher.
func (r searchRequest) toQuery() (domain.SearchQuery, error) {
	q := domain.SearchQuery{
		Query: r.Query,
		Type:  domain.QueryType(r.Type),
		Limit: r.Limit,
	}
	if r.Filters == nil {
		return q, nil
	}

	providers, err := parseProviders(r.Filters.Providers)
	if err != nil {
		return domain.SearchQuery{}, err
	}
	q.Filters = domain.Filters{
		YearFrom:       r.Filters.YearFrom,
		YearTo:         r.Filters.YearTo,
		OpenAccessOnly: r.Filters.OpenAccessOnly,
		Providers:      providers,
	}
	return q, nil
}

func parseProviders(names []string) ([]domain.Provider, error) {
	if len(names) == 0 {
		return nil, nil
	}
	out := make([]domain.Provider, 0, len(names))
	for _, name := range names {
		p, err := domain.ParseProvider(name)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// newValidator returns a validator that reports JSON field names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationMessage renders validator errors as one readable message.
func validationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return "invalid request"
	}

	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, fieldMessage(e))
	}
	return strings.Join(msgs, "; ")
}

func fieldMessage(e validator.FieldError) string {
	field := e.Field()

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "eq":
		return fmt.Sprintf("%s must be %s", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
