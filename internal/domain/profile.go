package domain

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Document is a record returned by a document store: an identifier plus a
// loosely typed field map.
type Document struct {
	ID     string
	Fields map[string]any
}

// Publication is the canonical shape of one profile publication.
// Free-form entries (a bare string in the source document) only set Text.
type Publication struct {
	Title   string `json:"title,omitempty"`
	Year    string `json:"year,omitempty"`
	Journal string `json:"journal,omitempty"`
	Authors string `json:"authors,omitempty"`
	Text    string `json:"text,omitempty"`
}

// Label returns the string used when a publication is quoted in a search
// query: the title, or the free-form text.
func (p Publication) Label() string {
	if p.Title != "" {
		return p.Title
	}
	return p.Text
}

// ProfileRecord is a stored professor profile after normalization. Field
// name fallbacks in the source document are resolved once, here, so the
// scoring code only ever sees this shape.
type ProfileRecord struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	University   string        `json:"university"`
	Department   string        `json:"department,omitempty"`
	ResearchArea string        `json:"research_area,omitempty"`
	Title        string        `json:"title,omitempty"`
	Keywords     []string      `json:"keywords,omitempty"`
	Publications []Publication `json:"publications,omitempty"`
}

// NormalizeProfile converts a raw document into a ProfileRecord.
//
//   - research area: researchArea, then primaryResearchArea
//   - publications: publications, then papers, then a single entry built
//     from pubTitle/pubYear/pubJournal
//   - keywords: an array, or a comma separated string
func NormalizeProfile(doc Document) *ProfileRecord {
	f := doc.Fields
	p := &ProfileRecord{
		ID:         doc.ID,
		Name:       StringValue(f["name"]),
		University: StringValue(f["university"]),
		Department: StringValue(f["department"]),
		Title:      StringValue(f["title"]),
	}

	p.ResearchArea = StringValue(f["researchArea"])
	if !IsTruthy(f["researchArea"]) {
		p.ResearchArea = StringValue(f["primaryResearchArea"])
	}

	switch {
	case IsTruthy(f["publications"]):
		p.Publications = normalizePublications(f["publications"])
	case IsTruthy(f["papers"]):
		p.Publications = normalizePublications(f["papers"])
	case IsTruthy(f["pubTitle"]):
		p.Publications = []Publication{{
			Title:   StringValue(f["pubTitle"]),
			Year:    StringValue(f["pubYear"]),
			Journal: StringValue(f["pubJournal"]),
		}}
	}

	if IsTruthy(f["keywords"]) {
		p.Keywords = normalizeKeywords(f["keywords"])
	}
	return p
}

func normalizePublications(v any) []Publication {
	items, ok := asList(v)
	if !ok {
		items = []any{v}
	}

	pubs := make([]Publication, 0, len(items))
	for _, item := range items {
		m, ok := asFields(item)
		if !ok {
			pubs = append(pubs, Publication{Text: StringValue(item)})
			continue
		}
		pubs = append(pubs, Publication{
			Title:   firstString(m, "title", "pubTitle"),
			Year:    firstString(m, "year", "pubYear"),
			Journal: firstString(m, "journal", "pubJournal"),
			Authors: firstString(m, "authors", "pubAuthors"),
		})
	}
	return pubs
}

// asList returns the elements of any slice or array value. Byte slices are
// text, not lists.
func asList(v any) ([]any, bool) {
	if items, ok := v.([]any); ok {
		return items, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}

// asFields returns a string keyed map view of v.
func asFields(v any) (map[string]any, bool) {
	if m, ok := v.(map[string]any); ok {
		return m, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	m := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		m[iter.Key().String()] = iter.Value().Interface()
	}
	return m, true
}

func normalizeKeywords(v any) []string {
	var raw []string
	if items, ok := asList(v); ok {
		for _, k := range items {
			raw = append(raw, StringValue(k))
		}
	} else {
		raw = strings.Split(StringValue(v), ",")
	}

	out := make([]string, 0, len(raw))
	for _, k := range raw {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// firstString returns the string form of the first truthy key in m.
func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if IsTruthy(m[k]) {
			return StringValue(m[k])
		}
	}
	return ""
}

// IsTruthy mirrors the loose truthiness of document and LLM payloads:
// nil, false, zero numbers, NaN and the empty string are false, everything
// else (including empty arrays and the string "false") is true.
func IsTruthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0 && !math.IsNaN(t)
	case float32:
		return t != 0 && !math.IsNaN(float64(t))
	case int:
		return t != 0
	case int32:
		return t != 0
	case int64:
		return t != 0
	default:
		return true
	}
}

// StringValue renders a loosely typed value as text. Whole floats print
// without a fractional part, so a JSON year of 2020 becomes "2020".
// Lists of strings are joined with ", ".
func StringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case bool:
		return strconv.FormatBool(t)
	case []string:
		return strings.Join(t, ", ")
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			parts = append(parts, StringValue(e))
		}
		return strings.Join(parts, ", ")
	default:
		if items, ok := asList(t); ok {
			parts := make([]string, 0, len(items))
			for _, e := range items {
				parts = append(parts, StringValue(e))
			}
			return strings.Join(parts, ", ")
		}
		return fmt.Sprint(t)
	}
}
