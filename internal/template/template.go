// Package template binds filter values into data-binding request parameters.
//
// A parameter whose value is exactly "{{filter.<key>}}" is replaced by the
// current value of <key>. Unresolved or empty placeholders are dropped from
// the output entirely so downstream endpoints fall back to their own
// defaults instead of receiving an empty filter.
package template

import (
	"regexp"

	"github.com/GregMSThompson/dashboard-backend/internal/document"
	"github.com/GregMSThompson/dashboard-backend/internal/models"
)

var placeholder = regexp.MustCompile(`^\{\{\s*filter\.([A-Za-z0-9_.\-]+)\s*\}\}$`)

// FilterKey returns the referenced filter key when v is a placeholder.
func FilterKey(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	m := placeholder.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Resolve substitutes placeholders in params with values from filterValues.
func Resolve(params map[string]any, filterValues map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for name, v := range params {
		key, ok := FilterKey(v)
		if !ok {
			out[name] = v
			continue
		}
		if val, present := filterValues[key]; present && !isEmpty(val) {
			out[name] = val
		}
	}
	return out
}

// ResolveBinding resolves a binding's params and then injects the ambient
// time range when the filter values carry both ends of it and the binding
// has not already produced those keys itself.
func ResolveBinding(b *models.DataBinding, filterValues map[string]any) map[string]any {
	var params map[string]any
	if b != nil {
		params = b.RequestParams
	}
	out := Resolve(params, filterValues)

	start, okStart := filterValues[document.StartTimeKey]
	end, okEnd := filterValues[document.EndTimeKey]
	if !okStart || !okEnd || isEmpty(start) || isEmpty(end) {
		return out
	}
	if _, defined := out[document.StartTimeKey]; !defined {
		out[document.StartTimeKey] = start
	}
	if _, defined := out[document.EndTimeKey]; !defined {
		out[document.EndTimeKey] = end
	}
	return out
}

// References lists the filter keys a binding depends on, in no particular order.
func References(b *models.DataBinding) []string {
	if b == nil {
		return nil
	}
	var keys []string
	for _, v := range b.RequestParams {
		if k, ok := FilterKey(v); ok {
			keys = append(keys, k)
		}
	}
	return keys
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}
