package search

// extractContext builds the bounded-length, single-line context string for
// a match plus its adjusted offset:
//
//  1. remaining = maxContextLength - matchLength.
//  2. If remaining <= 0, the context is the match substring truncated to
//     maxContextLength and the adjusted index is 0.
//  3. Otherwise expand symmetrically: first grow the end by remaining/2
//     (clamped to the line's end), then grow the start leftward by
//     whatever remains (clamped to 0), then — if the start hit 0 before the
//     budget ran out — grow the end again with the leftover.
func extractContext(line string, matchIndex, matchLength, maxContextLength int) (context string, adjustedIndex int) {
	if matchLength > maxContextLength {
		return line[matchIndex : matchIndex+maxContextLength], 0
	}

	remaining := maxContextLength - matchLength
	start, end := matchIndex, matchIndex+matchLength

	growEnd := remaining / 2
	newEnd := end + growEnd
	if newEnd > len(line) {
		newEnd = len(line)
	}
	remaining -= newEnd - end
	end = newEnd

	newStart := start - remaining
	if newStart < 0 {
		newStart = 0
	}
	remaining -= start - newStart
	start = newStart

	if remaining > 0 {
		newEnd = end + remaining
		if newEnd > len(line) {
			newEnd = len(line)
		}
		end = newEnd
	}

	if start == 0 && end == len(line) {
		return line, matchIndex
	}
	return line[start:end], matchIndex - start
}

// collectContextLines collects the pre- or post-match lines out of window, skipping
// null (out-of-bounds) entries and truncating each surviving line to
// maxContextLength. It always returns a non-nil, possibly empty, slice:
// an empty list is preferable to a null one.
func collectContextLines(window *ringBuffer, from, to, maxContextLength int) []string {
	lines := []string{}
	for i := from; i < to; i++ {
		v := window.get(i)
		if v == nil {
			continue
		}
		s := *v
		if len(s) > maxContextLength {
			s = s[:maxContextLength]
		}
		lines = append(lines, s)
	}
	return lines
}

// buildMatch assembles a Match for one (line, offset) hit against the
// current context window. lineNumber is 1-based.
func buildMatch(window *ringBuffer, numContext, lineNumber int, line string, matchIndex, matchLength, maxContextLength int) Match {
	ctx, adjIdx := extractContext(line, matchIndex, matchLength, maxContextLength)
	pre := collectContextLines(window, 0, numContext, maxContextLength)
	post := collectContextLines(window, numContext+1, window.capacity(), maxContextLength)
	return Match{
		LineNumber:  lineNumber,
		Context:     ctx,
		MatchIndex:  adjIdx,
		MatchLength: matchLength,
		PreContext:  pre,
		PostContext: post,
	}
}
