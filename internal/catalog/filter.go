package catalog

import (
	"fmt"
	"net/url"
	"strings"

	"welfareportal/pkg/types"

	"github.com/go-playground/form/v4"
)

var decoder = form.NewDecoder()

// FilterSchemes returns the schemes matching f, in input order.
//
// A non-blank search query must appear, case-insensitively, in the title,
// description or category. A category other than "all" must match exactly.
// The demographic fields of f do not narrow the result.
func FilterSchemes(schemes []*types.Scheme, f types.SchemeFilter) []*types.Scheme {
	query := strings.ToLower(strings.TrimSpace(f.SearchQuery))
	category := strings.TrimSpace(f.Category)

	out := make([]*types.Scheme, 0, len(schemes))
	for _, scheme := range schemes {
		if query != "" && !matchesQuery(scheme, query) {
			continue
		}
		if category != "" && category != types.CategoryAll && scheme.Category != category {
			continue
		}
		out = append(out, scheme)
	}
	return out
}

func matchesQuery(scheme *types.Scheme, query string) bool {
	return strings.Contains(strings.ToLower(scheme.Title), query) ||
		strings.Contains(strings.ToLower(scheme.Description), query) ||
		strings.Contains(strings.ToLower(scheme.Category), query)
}

// FilterFromQuery decodes the find-schemes filter from a query string. A
// missing category means all categories.
func FilterFromQuery(values url.Values) (types.SchemeFilter, error) {
	var f types.SchemeFilter
	if err := decoder.Decode(&f, values); err != nil {
		return types.SchemeFilter{}, fmt.Errorf("failed to decode scheme filter: %w", err)
	}

	if strings.TrimSpace(f.Category) == "" {
		f.Category = types.CategoryAll
	}

	return f, nil
}

// Query encodes f back into query values, omitting empty fields.
func Query(f types.SchemeFilter) url.Values {
	values := url.Values{}
	set := func(key, value string) {
		if value = strings.TrimSpace(value); value != "" {
			values.Set(key, value)
		}
	}

	if f.Category != types.CategoryAll {
		set("category", f.Category)
	}
	set("q", f.SearchQuery)
	set("age", f.Age)
	set("gender", f.Gender)
	set("caste", f.Caste)
	set("income", f.Income)
	set("state", f.State)
	set("occupation", f.Occupation)

	return values
}

// Categories returns the distinct categories of schemes in first-seen order.
func Categories(schemes []*types.Scheme) []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, scheme := range schemes {
		if scheme.Category == "" || seen[scheme.Category] {
			continue
		}
		seen[scheme.Category] = true
		out = append(out, scheme.Category)
	}
	return out
}
