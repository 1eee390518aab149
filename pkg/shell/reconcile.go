package shell

import "strings"

// combineOutputs slices the raw captured pane text down to the output
// attributable to the command bounded by the given marker occurrences.
//
// With two or more occurrences the wanted text lies between consecutive
// markers; the segments are concatenated in order to cover the (rare) case
// where several commands completed between polls. With exactly one
// occurrence the call site decides the ambiguity: beforeLast means the
// terminating marker was evicted by the history limit and the content BEFORE
// the surviving marker is the (truncated) output; otherwise the single
// marker is the pre-command prompt and everything after it is output. With
// no occurrences the whole capture is returned as a best effort.
func combineOutputs(paneContent string, occurrences []Occurrence, beforeLast bool) string {
	switch len(occurrences) {
	case 0:
		return paneContent
	case 1:
		occ := occurrences[0]
		if beforeLast {
			return paneContent[:clamp(occ.Start, len(paneContent))]
		}
		return paneContent[clamp(occ.End+1, len(paneContent)):]
	}

	var b strings.Builder
	for i := 0; i < len(occurrences)-1; i++ {
		segStart := clamp(occurrences[i].End+1, len(paneContent))
		segEnd := clamp(occurrences[i+1].Start, len(paneContent))
		if segStart < segEnd {
			b.WriteString(paneContent[segStart:segEnd])
		}
		b.WriteString("\n")
	}
	last := occurrences[len(occurrences)-1]
	b.WriteString(paneContent[clamp(last.End+1, len(paneContent)):])
	return b.String()
}

// removeCommandEcho strips the echoed command itself from the head of the
// reconciled output, tolerating the leading whitespace the terminal may have
// introduced around it.
func removeCommandEcho(output, command string) string {
	trimmed := strings.TrimLeft(output, " \t\r\n")
	trimmed = strings.TrimPrefix(trimmed, strings.TrimLeft(command, " \t\r\n"))
	return strings.TrimLeft(trimmed, " \t\r\n")
}

func clamp(i, max int) int {
	if i < 0 {
		return 0
	}
	if i > max {
		return max
	}
	return i
}
