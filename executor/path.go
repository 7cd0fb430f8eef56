package executor

// flatten resolves path against value, descending through list markers.
// It returns either a single value (path had no list marker left to expand)
// or a []any of sub-results. The returned values are references into value,
// never copies: mutating them mutates the working tree.
func flatten(value any, path ResponsePath) any {
	if len(path) == 0 {
		return value
	}
	if value == nil {
		return nil
	}

	head, tail := path[0], path[1:]

	if head.IsListMarker {
		list, ok := value.([]any)
		if !ok {
			return nil
		}
		out := make([]any, 0, len(list))
		for _, elem := range list {
			sub := flatten(elem, tail)
			if subList, ok := sub.([]any); ok {
				out = append(out, subList...)
			} else if sub != nil {
				out = append(out, sub)
			}
		}
		return out
	}

	obj, ok := value.(ResultMap)
	if !ok {
		if m, ok := value.(map[string]any); ok {
			obj = ResultMap(m)
		} else {
			return nil
		}
	}
	next, exists := obj[head.Field]
	if !exists {
		return nil
	}
	return flatten(next, tail)
}

// asSlice normalizes a flatten() result or a single entity into a flat list
// of ResultMap entities, per the Fetch Executor's "entity normalization"
// step. Non-object, nil, and absent entries are dropped.
func asSlice(value any) []ResultMap {
	switch v := value.(type) {
	case nil:
		return nil
	case []any:
		out := make([]ResultMap, 0, len(v))
		for _, elem := range v {
			out = append(out, asSlice(elem)...)
		}
		return out
	case ResultMap:
		return []ResultMap{v}
	case map[string]any:
		return []ResultMap{ResultMap(v)}
	default:
		return nil
	}
}
