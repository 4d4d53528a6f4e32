package prompt

// FitHistory selects the maximal suffix of history whose cumulative content
// length stays within maxChars, keeping chronological order. It never splits
// a message, and if even the newest message alone exceeds the budget it is
// returned on its own rather than producing an empty result.
func FitHistory(history []Segment, maxChars int) []Segment {
	if len(history) == 0 {
		return nil
	}
	total := 0
	start := len(history)
	for i := len(history) - 1; i >= 0; i-- {
		size := len(history[i].Content)
		if total+size > maxChars && start < len(history) {
			break
		}
		total += size
		start = i
		if total > maxChars {
			break
		}
	}
	out := make([]Segment, len(history)-start)
	copy(out, history[start:])
	return out
}
