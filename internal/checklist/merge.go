package checklist

// DeepMerge applies src into dst in place, block by block. Maps merge
// recursively; a later scalar wins only when the value already present is an
// empty string, nil, or absent; lists are replaced wholesale by the later
// block.
func DeepMerge(dst, src map[string]any) {
	for key, value := range src {
		existing, ok := dst[key]
		if !ok {
			dst[key] = value
			continue
		}
		srcMap, srcIsMap := value.(map[string]any)
		dstMap, dstIsMap := existing.(map[string]any)
		if srcIsMap && dstIsMap {
			DeepMerge(dstMap, srcMap)
			continue
		}
		if _, isList := value.([]any); isList {
			dst[key] = value
			continue
		}
		if isEmptyValue(existing) {
			dst[key] = value
		}
	}
}

func isEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}
