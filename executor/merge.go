package executor

import "fmt"

// deepMerge recursively merges source into target: sub-objects are merged
// key-wise in place, scalars and lists from source overwrite target, lists
// are replaced rather than concatenated. Merged sub-objects keep their
// identity, so later plan steps observe the merged state.
func deepMerge(target ResultMap, source map[string]any) {
	for k, v := range source {
		existing, ok := target[k]
		if !ok {
			target[k] = v
			continue
		}

		existingMap, existingIsMap := toResultMap(existing)
		sourceMap, sourceIsMap := toResultMap(v)
		if existingIsMap && sourceIsMap {
			deepMerge(existingMap, sourceMap)
			target[k] = existingMap
			continue
		}

		target[k] = v
	}
}

func toResultMap(v any) (ResultMap, bool) {
	switch m := v.(type) {
	case ResultMap:
		return m, true
	case map[string]any:
		return ResultMap(m), true
	default:
		return nil, false
	}
}

// mergeEntities deep-merges each element of replies into the corresponding
// element of entities, by position. It is an error for the lengths to
// differ; callers (the Fetch Executor) are expected to have already
// validated alignment before calling this for an entity fetch.
func mergeEntities(entities []ResultMap, replies []map[string]any) error {
	if len(entities) != len(replies) {
		return fmt.Errorf("entity merge: length mismatch: %d entities, %d replies", len(entities), len(replies))
	}
	for i := range entities {
		if replies[i] == nil {
			continue
		}
		deepMerge(entities[i], replies[i])
	}
	return nil
}
