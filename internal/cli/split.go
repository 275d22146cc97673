package cli

import (
	"strings"

	"github.com/joomcode/errorx"
)

var errUnbalancedQuotes = errorx.IllegalArgument.New("unbalanced quotes")

// splitLine splits command line into words. Double quoted words may contain
// spaces and escapes \" \\ \n \r \t.
func splitLine(line string) ([]string, error) {
	var words []string
	var cur strings.Builder
	inWord, quoted := false, false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quoted && c == '\\' && i+1 < len(line):
			i++
			switch line[i] {
			case 'n':
				cur.WriteByte('\n')
			case 'r':
				cur.WriteByte('\r')
			case 't':
				cur.WriteByte('\t')
			default:
				cur.WriteByte(line[i])
			}
		case c == '"':
			quoted = !quoted
			inWord = true
		case !quoted && (c == ' ' || c == '\t'):
			if inWord {
				words = append(words, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteByte(c)
			inWord = true
		}
	}
	if quoted {
		return nil, errUnbalancedQuotes
	}
	if inWord {
		words = append(words, cur.String())
	}
	return words, nil
}
