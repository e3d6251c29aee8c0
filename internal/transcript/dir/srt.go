package dir

import (
	"strings"
)

// Cue is one subtitle entry of an SRT file.
type Cue struct {
	Start string
	End   string
	Text  string
}

// ParseSRT reads SRT subtitles:
//
//	1
//	00:00:00,000 --> 00:00:01,830
//	I'm happy to
//	have you here today.
//
// Sequence numbers are dropped and multi-line cues are joined with a space.
func ParseSRT(s string) []Cue {
	if s == "" {
		return nil
	}
	s = strings.TrimPrefix(s, "\ufeff")
	var cues []Cue
	var cur *Cue
	flush := func() {
		if cur != nil && cur.Text != "" {
			cues = append(cues, *cur)
		}
		cur = nil
	}
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			flush()
		case isDigitOnly(line) && cur == nil:
		case strings.Contains(line, "-->"):
			flush()
			parts := strings.SplitN(line, "-->", 2)
			cur = &Cue{Start: strings.TrimSpace(parts[0]), End: strings.TrimSpace(parts[1])}
		default:
			if cur == nil {
				cur = &Cue{}
			}
			if cur.Text != "" {
				cur.Text += " "
			}
			cur.Text += line
		}
	}
	flush()
	return cues
}

// JoinSRT flattens subtitles into plain transcript text.
func JoinSRT(s string) string {
	cues := ParseSRT(s)
	parts := make([]string, 0, len(cues))
	for _, c := range cues {
		parts = append(parts, c.Text)
	}
	return strings.Join(parts, " ")
}

func isDigitOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
