// Package query rewrites inbound OData query strings against the entity
// catalog: $top is clamped, $orderby is validated field by field, and every
// other parameter passes through byte for byte in its original position.
package query

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/my-pwa-apps/Bloxs/internal/catalog"
)

// Sanitize rewrites rawQuery (without a leading "?") for the given entity.
// The result carries a leading "?", or is empty when no parameters remain.
func Sanitize(rawQuery, entity string) string {
	if rawQuery == "" {
		return ""
	}

	pairs := strings.Split(rawQuery, "&")
	out := make([]string, 0, len(pairs))

	for _, pair := range pairs {
		if pair == "" {
			continue
		}

		rawKey, rawValue, hasValue := strings.Cut(pair, "=")
		key := decode(rawKey)

		switch key {
		case "$top":
			if !hasValue {
				continue
			}
			if clamped, ok := clampTop(decode(rawValue), entity); ok {
				out = append(out, rawKey+"="+strconv.Itoa(clamped))
			}
			// Unparseable $top is dropped, not escalated.
		case "$orderby":
			value := ""
			if hasValue {
				value = decode(rawValue)
			}
			if rewritten, keep := rewriteOrderBy(value, entity); keep {
				out = append(out, rawKey+"="+encode(rewritten))
			}
		default:
			out = append(out, pair)
		}
	}

	if len(out) == 0 {
		return ""
	}
	return "?" + strings.Join(out, "&")
}

// clampTop parses a $top value and applies the entity's cap. The second
// return is false when the value is not a positive integer.
func clampTop(value, entity string) (int, bool) {
	t, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || t <= 0 {
		return 0, false
	}
	if cap := catalog.TopCapFor(entity); t > cap {
		return cap, true
	}
	return t, true
}

// rewriteOrderBy validates each comma-separated segment against the
// entity's sortable fields. Invalid segments are dropped; when nothing
// survives, a safe default field takes their place. The second return is
// false when $orderby should be removed entirely.
func rewriteOrderBy(value, entity string) (string, bool) {
	fields := catalog.FieldsFor(entity)
	if len(fields) == 0 {
		return "", false
	}

	var kept []string
	for _, segment := range strings.Split(value, ",") {
		tokens := strings.Fields(segment)
		if len(tokens) == 0 {
			continue
		}
		canonical, ok := matchField(tokens[0], fields)
		if !ok {
			continue
		}
		if len(tokens) > 1 && strings.EqualFold(tokens[1], "desc") {
			canonical += " desc"
		}
		// Any direction other than desc normalises to implicit ascending.
		kept = append(kept, canonical)
	}

	if len(kept) > 0 {
		return strings.Join(kept, ", "), true
	}

	safe := safeField(fields)
	if strings.Contains(strings.ToLower(value), "desc") {
		safe += " desc"
	}
	return safe, true
}

// matchField finds the canonical spelling of a field, compared
// case-insensitively.
func matchField(name string, fields []string) (string, bool) {
	for _, f := range fields {
		if strings.EqualFold(f, name) {
			return f, true
		}
	}
	return "", false
}

// safeField picks the first field ending in Id or named Reference, else the
// first field.
func safeField(fields []string) string {
	for _, f := range fields {
		if strings.HasSuffix(f, "Id") || f == "Reference" {
			return f
		}
	}
	return fields[0]
}

// decode unescapes a query component, falling back to the raw bytes when
// the escaping is malformed.
func decode(s string) string {
	if d, err := url.QueryUnescape(s); err == nil {
		return d
	}
	return s
}

// encode escapes a rewritten value, using %20 for spaces as OData expects.
func encode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
