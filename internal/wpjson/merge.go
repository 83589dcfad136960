package wpjson

import (
	"strings"

	"github.com/wpcore-go/wpcore/internal/wperr"
	"github.com/wpcore-go/wpcore/internal/wplog"
)

var mergeLog = wplog.New("wpjson.merge")

const overridePrefix = "override."

// Merge combines old and new into a single value per the configuration
// layering rules: objects are merged key by key (a key prefixed with
// "override." on either side suppresses recursion and replaces the
// plain key outright, the prefix stripped from the resulting key),
// arrays are concatenated (new's elements appended after old's), and
// any other combination of kinds has no defined result — Merge fails
// and the caller decides whether to replace, skip, or keep the value
// it already has.
//
// Grounded on the original engine's merge_json/merge_json_objects/
// merge_json_arrays in conf.c, which likewise return NULL for an
// incompatible top-level pair and leave recovery to the caller.
func Merge(old, new Value) (Value, error) {
	switch {
	case old.Kind() == KindObject && new.Kind() == KindObject:
		return mergeObjects(old, new)
	case old.Kind() == KindArray && new.Kind() == KindArray:
		return mergeArrays(old, new)
	default:
		return Value{}, wperr.Withf(wperr.KindOperationFailed, "Merge",
			"no defined merge of %s with %s", old.Kind(), new.Kind())
	}
}

func mergeObjects(old, new Value) (Value, error) {
	oldKeys, oldValues, err := old.Properties()
	if err != nil {
		return Value{}, err
	}
	newKeys, newValues, err := new.Properties()
	if err != nil {
		return Value{}, err
	}

	// Old-side keys are stored under their plain name; an "override."
	// prefix on the old side only matters for this one merge level and
	// must not leak into the result.
	resultKeys := make([]string, 0, len(oldKeys))
	resultValues := append([]Value(nil), oldValues...)
	index := make(map[string]int, len(oldKeys))
	oldOverride := make(map[string]bool)
	for i, k := range oldKeys {
		plain := strings.TrimPrefix(k, overridePrefix)
		resultKeys = append(resultKeys, plain)
		index[plain] = i
		if plain != k {
			oldOverride[plain] = true
		}
	}

	for i, k := range newKeys {
		nv := newValues[i]
		if strings.HasPrefix(k, overridePrefix) {
			plain := strings.TrimPrefix(k, overridePrefix)
			if pos, ok := index[plain]; ok {
				resultValues[pos] = nv
			} else {
				index[plain] = len(resultKeys)
				resultKeys = append(resultKeys, plain)
				resultValues = append(resultValues, nv)
			}
			continue
		}
		if pos, ok := index[k]; ok {
			if oldOverride[k] {
				// The old side's "override." key replaces the plain one.
				continue
			}
			merged, err := Merge(resultValues[pos], nv)
			if err != nil {
				if wperr.Is(err, wperr.KindOperationFailed) {
					mergeLog.Warning("skipping incompatible merge, keeping existing value",
						"key", k, "old", resultValues[pos].Kind(), "new", nv.Kind())
					continue
				}
				return Value{}, err
			}
			resultValues[pos] = merged
		} else {
			index[k] = len(resultKeys)
			resultKeys = append(resultKeys, k)
			resultValues = append(resultValues, nv)
		}
	}
	return Object(resultKeys, resultValues), nil
}

func mergeArrays(old, new Value) (Value, error) {
	oldElems, err := old.Elements()
	if err != nil {
		return Value{}, err
	}
	newElems, err := new.Elements()
	if err != nil {
		return Value{}, err
	}
	out := append([]Value(nil), oldElems...)
	out = append(out, newElems...)
	return Array(out...), nil
}

// MergeAll folds Merge across values left to right, returning Null for
// an empty slice.
func MergeAll(values ...Value) (Value, error) {
	if len(values) == 0 {
		return Null, nil
	}
	acc := values[0]
	for _, v := range values[1:] {
		var err error
		acc, err = Merge(acc, v)
		if err != nil {
			return Value{}, err
		}
	}
	return acc, nil
}
