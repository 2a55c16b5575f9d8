package safety

import "strings"

// splitScript breaks a shell script on the &&, ||, ;, | and & connectors
// while respecting single and double quotes. Connectors inside quotes stay
// part of their segment.
func splitScript(script string) []string {
	var segments []string
	var current strings.Builder
	inSingle, inDouble := false, false

	flush := func() {
		seg := strings.TrimSpace(current.String())
		if seg != "" {
			segments = append(segments, seg)
		}
		current.Reset()
	}

	runes := []rune(script)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		if ch == '\'' && !inDouble {
			inSingle = !inSingle
			current.WriteRune(ch)
			continue
		}
		if ch == '"' && !inSingle {
			inDouble = !inDouble
			current.WriteRune(ch)
			continue
		}
		if inSingle || inDouble {
			current.WriteRune(ch)
			continue
		}
		switch ch {
		case ';':
			flush()
		case '|':
			if i+1 < len(runes) && runes[i+1] == '|' {
				i++
			}
			flush()
		case '&':
			if i+1 < len(runes) && runes[i+1] == '&' {
				i++
			}
			flush()
		default:
			current.WriteRune(ch)
		}
	}
	if inSingle || inDouble {
		// Unbalanced quotes: refuse to pretend we understood the script.
		return nil
	}
	flush()
	return segments
}

// tokenize splits one segment into an argument vector, stripping quotes.
// Returns ok=false when the segment uses shell features plain word
// splitting cannot represent (redirection, unbalanced quotes).
func tokenize(segment string) ([]string, bool) {
	var argv []string
	var current strings.Builder
	inSingle, inDouble := false, false
	hasCurrent := false

	flush := func() {
		if hasCurrent {
			argv = append(argv, current.String())
			current.Reset()
			hasCurrent = false
		}
	}

	for _, ch := range segment {
		switch {
		case ch == '\'' && !inDouble:
			inSingle = !inSingle
			hasCurrent = true
		case ch == '"' && !inSingle:
			inDouble = !inDouble
			hasCurrent = true
		case (ch == ' ' || ch == '\t' || ch == '\n') && !inSingle && !inDouble:
			flush()
		case (ch == '<' || ch == '>') && !inSingle && !inDouble:
			return nil, false
		default:
			current.WriteRune(ch)
			hasCurrent = true
		}
	}
	if inSingle || inDouble {
		return nil, false
	}
	flush()
	return argv, true
}
