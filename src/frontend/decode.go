// decode.go implements the token decoder: it validates and decodes escape
// sequences inside a string literal's quotes, after the raw DFA has already
// located the opening and closing '"'. The lexer state machine hands this
// function the literal text between the quotes, unescaped.
//
// decodeString reports failures as a returned *decodeErr rather than
// calling the diagnostic sink directly: the lexer runs on its own
// goroutine (see lexer.go/run), while the sink must be invoked from the
// single goroutine that owns the rest of compilation so a terminating
// Exit always unwinds on the caller's own stack. The consumer that reads
// the resulting item from the lexer's channel turns a non-nil decodeErr
// into the matching diag.Sink call.
package frontend

import "strings"

// decodeErr describes a malformed escape sequence found by decodeString.
// hex is true for a malformed \xHH escape (seq is "x", "xA" or "xAB", per
// how many characters follow the 'x' in the literal, up to two, whether
// valid hex digits or not); hex is false for any
// other undefined single-character escape (seq is the offending letter, or
// empty if the string ended right after the backslash).
type decodeErr struct {
	hex bool
	seq string
}

// decodeString decodes escape sequences in raw, the literal text between
// (but not including) the surrounding quotes of a string literal. It
// returns the decoded text and a nil error on success.
//
// \n \r \t \\ \" decode to the obvious single byte. \0 terminates the
// decoded string outright, matching a C-style NUL-terminated literal. A
// \xHH escape is valid only when the first hex digit is in 2-7 and the
// second is in 0-9|A-E|a-e, restricting decoded bytes to the printable
// ASCII range this grammar allows as literal content.
func decodeString(raw string) (string, *decodeErr) {
	var sb strings.Builder
	runes := []rune(raw)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		if c != '\\' {
			sb.WriteRune(c)
			continue
		}

		// c == '\\': an escape sequence follows.
		i++
		if i >= len(runes) {
			return "", &decodeErr{seq: ""}
		}
		esc := runes[i]
		switch esc {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case '\\':
			sb.WriteByte('\\')
		case '"':
			sb.WriteByte('"')
		case '0':
			return sb.String(), nil
		case 'x':
			b, consumed, err := decodeHexEscape(runes, i)
			if err != nil {
				return "", err
			}
			sb.WriteByte(b)
			i += consumed
		default:
			return "", &decodeErr{seq: string(esc)}
		}
	}
	return sb.String(), nil
}

// decodeHexEscape decodes the two hex digits following '\x' starting at
// runes[xIdx+1]. It returns the decoded byte and the number of runes
// consumed after 'x' on success. On failure the reported seq names exactly
// the characters present after 'x' (zero, one or two of them, whichever
// the literal actually has before it ends), not how many were valid hex
// digits: "x" when nothing follows, "xA" when one character follows, "xAB"
// when two follow but the pair isn't a valid escape.
func decodeHexEscape(runes []rune, xIdx int) (byte, int, *decodeErr) {
	has1 := xIdx+1 < len(runes)
	has2 := xIdx+2 < len(runes)
	if has1 && has2 && isHighHexDigit(runes[xIdx+1]) && isLowHexDigit(runes[xIdx+2]) {
		hi, lo := runes[xIdx+1], runes[xIdx+2]
		return byte(hexVal(hi)<<4 | hexVal(lo)), 2, nil
	}

	seq := "x"
	if has1 {
		seq += string(runes[xIdx+1])
	}
	if has1 && has2 {
		seq += string(runes[xIdx+2])
	}
	return 0, 0, &decodeErr{hex: true, seq: seq}
}

// isHighHexDigit reports whether r is a valid first hex digit of a \xHH
// escape: the range 2-7.
func isHighHexDigit(r rune) bool {
	return r >= '2' && r <= '7'
}

// isLowHexDigit reports whether r is a valid second hex digit of a \xHH
// escape: 0-9, A-E or a-e.
func isLowHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'A' && r <= 'E') || (r >= 'a' && r <= 'e')
}

// hexVal returns the numeric value of a hex digit already validated by
// isHighHexDigit or isLowHexDigit.
func hexVal(r rune) int {
	switch {
	case r >= '0' && r <= '9':
		return int(r - '0')
	case r >= 'A' && r <= 'E':
		return int(r-'A') + 10
	default:
		return int(r-'a') + 10
	}
}
