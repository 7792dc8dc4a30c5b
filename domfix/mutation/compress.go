package mutation

// Compress folds runs of consecutive writes to the same target into one
// record: successive attr records on the same (xpath, name) and successive
// text records on the same xpath. The folded record keeps the first
// OldValue and the last Value. Structural records are never folded.
func Compress(recs []Record) []Record {
	if len(recs) <= 1 {
		return recs
	}
	out := make([]Record, 0, len(recs))
	for _, rec := range recs {
		if n := len(out); n > 0 && foldable(out[n-1], rec) {
			old := out[n-1].OldValue
			out[n-1] = rec
			out[n-1].OldValue = old
			continue
		}
		out = append(out, rec)
	}
	return out
}

func foldable(prev, next Record) bool {
	if prev.Op != next.Op || prev.XPath != next.XPath {
		return false
	}
	switch next.Op {
	case OpAttr:
		return prev.Name == next.Name
	case OpText:
		return true
	}
	return false
}
