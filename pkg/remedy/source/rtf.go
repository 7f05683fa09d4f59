package source

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// LoadRTF reads an RTF document and splits its plain text into entries.
func LoadRTF(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}
	return Chunks(RTFToText(string(data))), nil
}

// destinations whose content is not document text.
var rtfDestinations = map[string]bool{
	"fonttbl": true, "colortbl": true, "stylesheet": true, "info": true,
	"pict": true, "header": true, "headerl": true, "headerr": true, "headerf": true,
	"footer": true, "footerl": true, "footerr": true, "footerf": true,
	"listtable": true, "listoverridetable": true, "revtbl": true, "rsidtbl": true,
	"generator": true, "themedata": true, "colorschememapping": true,
	"datastore": true, "latentstyles": true, "xmlnstbl": true, "object": true,
	"fldinst": true, "filetbl": true, "expandedcolortbl": true,
}

var rtfSymbols = map[string]string{
	"par": "\n", "line": "\n", "sect": "\n\n", "page": "\n\n", "row": "\n",
	"tab": "\t", "cell": "\t",
	"emdash": "—", "endash": "–", "bullet": "•",
	"lquote": "‘", "rquote": "’", "ldblquote": "“", "rdblquote": "”",
	"emspace": " ", "enspace": " ", "qmspace": " ",
}

type rtfGroup struct {
	skip   bool
	ucSkip int
}

// RTFToText strips RTF markup and returns the document text. Hex escapes are
// decoded as Latin-1, \u escapes as UTF-16 code units.
func RTFToText(doc string) string {
	var (
		out     strings.Builder
		stack   []rtfGroup
		cur     = rtfGroup{ucSkip: 1}
		pending int  // fallback characters still to drop after a \u escape
		high    rune // high surrogate waiting for its low half
	)
	emit := func(s string) {
		if cur.skip {
			return
		}
		if pending > 0 {
			pending--
			return
		}
		out.WriteString(s)
	}

	for i := 0; i < len(doc); {
		c := doc[i]
		switch c {
		case '{':
			stack = append(stack, cur)
			i++
		case '}':
			if n := len(stack); n > 0 {
				cur = stack[n-1]
				stack = stack[:n-1]
			}
			pending = 0
			high = 0
			i++
		case '\r', '\n':
			i++
		case '\\':
			i++
			if i >= len(doc) {
				break
			}
			next := doc[i]
			switch {
			case next == '\\' || next == '{' || next == '}':
				emit(string(next))
				i++
			case next == '\'':
				if i+2 < len(doc) {
					if b, err := strconv.ParseUint(doc[i+1:i+3], 16, 8); err == nil {
						emit(string(rune(b)))
					}
				}
				i += 3
			case next == '*':
				cur.skip = true
				i++
			case next == '~':
				emit(" ")
				i++
			case next == '_':
				emit("-")
				i++
			case next == '\n' || next == '\r':
				emit("\n")
				i++
			case isASCIILetter(next):
				start := i
				for i < len(doc) && isASCIILetter(doc[i]) {
					i++
				}
				word := doc[start:i]
				paramStart := i
				if i < len(doc) && doc[i] == '-' {
					i++
				}
				for i < len(doc) && doc[i] >= '0' && doc[i] <= '9' {
					i++
				}
				param, hasParam := 0, false
				if i > paramStart {
					if p, err := strconv.Atoi(doc[paramStart:i]); err == nil {
						param, hasParam = p, true
					}
				}
				if i < len(doc) && doc[i] == ' ' {
					i++
				}
				handleControlWord(word, param, hasParam, &cur, &pending, &high, emit)
			default:
				// control symbols such as \- (optional hyphen) produce nothing
				i++
			}
		default:
			// copy a run of plain bytes so multi-byte UTF-8 stays intact
			start := i
			for i < len(doc) && !isRTFSpecial(doc[i]) {
				i++
			}
			if cur.skip {
				continue
			}
			run := doc[start:i]
			for pending > 0 && run != "" {
				_, size := utf8.DecodeRuneInString(run)
				run = run[size:]
				pending--
			}
			out.WriteString(run)
		}
	}
	return out.String()
}

func handleControlWord(word string, param int, hasParam bool, cur *rtfGroup, pending *int, high *rune, emit func(string)) {
	if rtfDestinations[word] {
		cur.skip = true
		return
	}
	if sym, ok := rtfSymbols[word]; ok {
		emit(sym)
		return
	}
	switch word {
	case "uc":
		if hasParam && param >= 0 {
			cur.ucSkip = param
		}
	case "u":
		if !hasParam {
			return
		}
		if param < 0 {
			param += 65536
		}
		r := rune(param)
		*pending = 0
		switch {
		case r >= 0xD800 && r < 0xDC00:
			if *high != 0 {
				emit(string(utf8.RuneError))
			}
			*high = r
		case utf16.IsSurrogate(r):
			if *high != 0 {
				emit(string(utf16.DecodeRune(*high, r)))
			} else {
				emit(string(utf8.RuneError))
			}
			*high = 0
		default:
			if *high != 0 {
				emit(string(utf8.RuneError))
				*high = 0
			}
			emit(string(r))
		}
		*pending = cur.ucSkip
	}
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isRTFSpecial(b byte) bool {
	return b == '\\' || b == '{' || b == '}' || b == '\r' || b == '\n'
}
