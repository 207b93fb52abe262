// internal/app/system/respond/normalize.go
package respond

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dalemusser/datatracker/internal/domain/models"
)

const (
	internalIDKey = "_id"
	externalIDKey = "id"
	urlKey        = "url"
)

// PrepareResponse returns a copy of data in wire shape: every "_id" key, at
// any depth, is renamed to "id" (replacing a stored "id" field); sequences
// become []any and mappings become map[string]any. When url is non-empty and data is a mapping, a top-level
// "url" key is added.
//
// The transform is one-way and must run exactly once per response.
func PrepareResponse(data any, url string) any {
	out := renameIDs(models.Plain(data))
	if url != "" {
		if m, ok := out.(map[string]any); ok {
			m[urlKey] = url
		}
	}
	return out
}

func renameIDs(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return renameKeys(t, func(k string) string {
			if k == internalIDKey {
				return externalIDKey
			}
			return k
		}, renameIDs)
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = renameIDs(val)
		}
		return out
	}
	return v
}

// renameKeys copies m with every key passed through rename and every value
// through conv. When two keys land on the same name a renamed key wins over
// one that was already in place; among renamed keys the last in sorted
// order wins.
func renameKeys(m map[string]any, rename func(string) string, conv func(any) any) map[string]any {
	out := make(map[string]any, len(m))
	var moved []string
	for k, val := range m {
		if rename(k) != k {
			moved = append(moved, k)
			continue
		}
		out[k] = conv(val)
	}
	sort.Strings(moved)
	for _, k := range moved {
		out[rename(k)] = conv(m[k])
	}
	return out
}

// CamelCaseKeys rewrites every mapping key from snake_case to camelCase,
// recursively through mappings and lists. The first character keeps its
// case: "api_key" becomes "apiKey", "Data_type" becomes "DataType". A
// converted key replaces an existing key of the same name, so
// {"data_type": 1, "dataType": 2} becomes {"dataType": 1}.
func CamelCaseKeys(data any) any {
	switch t := models.Plain(data).(type) {
	case map[string]any:
		return renameKeys(t, ToCamel, CamelCaseKeys)
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = CamelCaseKeys(val)
		}
		return out
	default:
		return t
	}
}

// ToCamel joins the underscore-separated segments of key, capitalizing the
// first letter of every segment after the first. The first character of the
// key is never changed, so "_private" stays "_private".
func ToCamel(key string) string {
	if !strings.Contains(key, "_") {
		return key
	}
	_, size := utf8.DecodeRuneInString(key)
	parts := strings.Split(key[size:], "_")

	var b strings.Builder
	b.Grow(len(key))
	b.WriteString(key[:size])
	b.WriteString(parts[0])
	for _, p := range parts[1:] {
		if p == "" {
			continue
		}
		r, n := utf8.DecodeRuneInString(p)
		if r == utf8.RuneError {
			b.WriteString(p)
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
		b.WriteString(p[n:])
	}
	return b.String()
}

// Key cases accepted by Normalizer.KeyCase.
const (
	KeyCaseSnake = "snake"
	KeyCaseCamel = "camel"
)

// Normalizer is the single response shaping contract: PrepareResponse
// always, then camelCase keys when KeyCase is "camel". BaseURL, when set, is
// joined with the request path to form the top-level "url".
type Normalizer struct {
	KeyCase string
	BaseURL string
}

// Normalize shapes data for the wire. path is the request path used for the
// canonical URL; pass "" to omit it.
func (n Normalizer) Normalize(data any, path string) any {
	out := PrepareResponse(data, n.resourceURL(path))
	if n.KeyCase == KeyCaseCamel {
		out = CamelCaseKeys(out)
	}
	return out
}

func (n Normalizer) resourceURL(path string) string {
	if n.BaseURL == "" || path == "" {
		return ""
	}
	return strings.TrimRight(n.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}
