package service

import (
	"sort"

	"github.com/goliatone/go-servicelayer/store"
)

// Params are the raw keyword arguments a handler passes to New, Create or Update,
// typically decoded form values.
type Params map[string]any

// TransportKeys are form fields that never reach a record.
var TransportKeys = []string{"csrf_token", "submit"}

// PreprocessParams returns a copy of raw without transport-only keys. When sparse is
// true, keys whose value is the empty string are dropped as well.
func PreprocessParams(raw Params, sparse bool) Params {
	cleaned := make(Params, len(raw))
	for k, v := range raw {
		cleaned[k] = v
	}
	for _, k := range TransportKeys {
		delete(cleaned, k)
	}
	if sparse {
		for k, v := range cleaned {
			if isEmptyString(v) {
				delete(cleaned, k)
			}
		}
	}
	return cleaned
}

// Changes turns raw update params into an ordered change list: every empty-string key
// becomes a Clear, followed by a Set for each remaining preprocessed key.
func Changes(raw Params, sparse bool) []store.Change {
	var clears, sets []store.Change

	for _, k := range sortedKeys(raw) {
		if isTransportKey(k) {
			continue
		}
		if isEmptyString(raw[k]) {
			clears = append(clears, store.Clear(k))
		}
	}

	cleaned := PreprocessParams(raw, sparse)
	for _, k := range sortedKeys(cleaned) {
		sets = append(sets, store.Set(k, cleaned[k]))
	}

	return append(clears, sets...)
}

func isEmptyString(v any) bool {
	s, ok := v.(string)
	return ok && s == ""
}

func isTransportKey(k string) bool {
	for _, t := range TransportKeys {
		if t == k {
			return true
		}
	}
	return false
}

func sortedKeys(p Params) []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
