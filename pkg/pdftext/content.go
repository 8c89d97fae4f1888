package pdftext

import (
	"encoding/hex"
	"strconv"
	"strings"
	"unicode/utf16"
)

// tjSpaceThreshold is the TJ kerning adjustment (in thousandths of an em)
// beyond which a gap between glyph runs reads as a word space.
const tjSpaceThreshold = -200

type operandKind int

const (
	operandOther operandKind = iota
	operandNumber
	operandString
	operandArray
)

type operand struct {
	kind  operandKind
	num   float64
	str   string
	items []operand
}

// textWriter accumulates shown text, inserting newlines on line moves.
type textWriter struct {
	b strings.Builder
}

func (w *textWriter) show(s string) {
	w.b.WriteString(s)
}

func (w *textWriter) newline() {
	s := w.b.String()
	if s == "" || strings.HasSuffix(s, "\n") {
		return
	}
	w.b.WriteByte('\n')
}

func (w *textWriter) space() {
	s := w.b.String()
	if s == "" || strings.HasSuffix(s, " ") || strings.HasSuffix(s, "\n") {
		return
	}
	w.b.WriteByte(' ')
}

// textFromContentStream returns the text shown by a page content stream.
// T*, ', " and vertical Td/TD/Tm moves start a new line; each BT starts a
// new line too.
func textFromContentStream(data []byte) string {
	var w textWriter
	var operands []operand
	lastY, haveY := 0.0, false

	for i := 0; i < len(data); {
		c := data[i]
		switch {
		case isWhitespace(c):
			i++
			continue
		case c == '%':
			for i < len(data) && data[i] != '\n' && data[i] != '\r' {
				i++
			}
			continue
		}

		if op, next, ok := readOperand(data, i); ok {
			operands = append(operands, op)
			i = next
			continue
		}

		keyword, next := readKeyword(data, i)
		i = next
		if keyword == "" {
			// Stray delimiter such as ']' or '}'.
			i++
			continue
		}

		switch keyword {
		case "BT":
			w.newline()
		case "Tj":
			if s, ok := lastString(operands); ok {
				w.show(s)
			}
		case "TJ":
			if len(operands) > 0 && operands[len(operands)-1].kind == operandArray {
				for _, item := range operands[len(operands)-1].items {
					switch item.kind {
					case operandString:
						w.show(item.str)
					case operandNumber:
						if item.num < tjSpaceThreshold {
							w.space()
						}
					}
				}
			}
		case "'", "\"":
			w.newline()
			if s, ok := lastString(operands); ok {
				w.show(s)
			}
		case "T*":
			w.newline()
		case "Td", "TD":
			if len(operands) >= 2 && operands[len(operands)-1].kind == operandNumber {
				if operands[len(operands)-1].num != 0 {
					w.newline()
				} else {
					w.space()
				}
			}
		case "Tm":
			if len(operands) >= 6 && operands[len(operands)-1].kind == operandNumber {
				y := operands[len(operands)-1].num
				if haveY && y != lastY {
					w.newline()
				} else if haveY {
					w.space()
				}
				lastY, haveY = y, true
			}
		case "BI":
			i = skipInlineImage(data, i)
		}
		operands = operands[:0]
	}

	return w.b.String()
}

func lastString(operands []operand) (string, bool) {
	if len(operands) == 0 || operands[len(operands)-1].kind != operandString {
		return "", false
	}
	return operands[len(operands)-1].str, true
}

// readOperand parses one operand starting at data[i]. It returns ok=false
// when data[i] starts an operator keyword instead.
func readOperand(data []byte, i int) (operand, int, bool) {
	c := data[i]
	switch {
	case c == '(':
		raw, next := readLiteral(data, i)
		return operand{kind: operandString, str: decodeTextBytes(raw)}, next, true
	case c == '<' && i+1 < len(data) && data[i+1] == '<':
		return operand{kind: operandOther}, skipDict(data, i), true
	case c == '<':
		raw, next := readHexString(data, i)
		return operand{kind: operandString, str: decodeTextBytes(raw)}, next, true
	case c == '[':
		return readArray(data, i)
	case c == '/':
		j := i + 1
		for j < len(data) && isRegular(data[j]) {
			j++
		}
		return operand{kind: operandOther}, j, true
	case c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
		j := i + 1
		for j < len(data) && (data[j] == '.' || (data[j] >= '0' && data[j] <= '9')) {
			j++
		}
		num, err := strconv.ParseFloat(string(data[i:j]), 64)
		if err != nil {
			return operand{kind: operandOther}, j, true
		}
		return operand{kind: operandNumber, num: num}, j, true
	}
	return operand{}, i, false
}

func readKeyword(data []byte, i int) (string, int) {
	j := i
	for j < len(data) && isRegular(data[j]) {
		j++
	}
	return string(data[i:j]), j
}

func readArray(data []byte, i int) (operand, int, bool) {
	arr := operand{kind: operandArray}
	i++ // '['
	for i < len(data) {
		c := data[i]
		if isWhitespace(c) {
			i++
			continue
		}
		if c == ']' {
			return arr, i + 1, true
		}
		item, next, ok := readOperand(data, i)
		if !ok {
			// Keywords such as true/false/null inside arrays.
			_, next = readKeyword(data, i)
			if next == i {
				next++
			}
			item = operand{kind: operandOther}
		}
		arr.items = append(arr.items, item)
		i = next
	}
	return arr, i, true
}

// readLiteral reads a balanced (...) string and resolves its escapes.
func readLiteral(data []byte, i int) ([]byte, int) {
	var out []byte
	depth := 0
	for i < len(data) {
		c := data[i]
		switch c {
		case '(':
			depth++
			if depth > 1 {
				out = append(out, c)
			}
			i++
		case ')':
			depth--
			i++
			if depth == 0 {
				return out, i
			}
			out = append(out, c)
		case '\\':
			i++
			if i >= len(data) {
				return out, i
			}
			e := data[i]
			switch e {
			case 'n':
				out = append(out, '\n')
				i++
			case 'r':
				out = append(out, '\r')
				i++
			case 't':
				out = append(out, '\t')
				i++
			case 'b':
				out = append(out, '\b')
				i++
			case 'f':
				out = append(out, '\f')
				i++
			case '\r':
				i++
				if i < len(data) && data[i] == '\n' {
					i++
				}
			case '\n':
				i++
			default:
				if e >= '0' && e <= '7' {
					val := 0
					n := 0
					for n < 3 && i < len(data) && data[i] >= '0' && data[i] <= '7' {
						val = val*8 + int(data[i]-'0')
						i++
						n++
					}
					out = append(out, byte(val))
				} else {
					out = append(out, e)
					i++
				}
			}
		default:
			out = append(out, c)
			i++
		}
	}
	return out, i
}

func readHexString(data []byte, i int) ([]byte, int) {
	i++ // '<'
	var digits []byte
	for i < len(data) && data[i] != '>' {
		if !isWhitespace(data[i]) {
			digits = append(digits, data[i])
		}
		i++
	}
	if i < len(data) {
		i++ // '>'
	}
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out, err := hex.DecodeString(string(digits))
	if err != nil {
		return nil, i
	}
	return out, i
}

func skipDict(data []byte, i int) int {
	depth := 0
	for i < len(data) {
		switch {
		case data[i] == '(':
			_, i = readLiteral(data, i)
			continue
		case i+1 < len(data) && data[i] == '<' && data[i+1] == '<':
			depth++
			i += 2
			continue
		case i+1 < len(data) && data[i] == '>' && data[i+1] == '>':
			depth--
			i += 2
			if depth == 0 {
				return i
			}
			continue
		}
		i++
	}
	return i
}

// skipInlineImage advances past the binary data of an inline image to the
// byte after its EI operator.
func skipInlineImage(data []byte, i int) int {
	for i+2 < len(data) {
		if isWhitespace(data[i]) && data[i+1] == 'E' && data[i+2] == 'I' &&
			(i+3 == len(data) || !isRegular(data[i+3])) {
			return i + 3
		}
		i++
	}
	return len(data)
}

// decodeTextBytes converts string operand bytes to text. UTF-16BE strings
// carry a byte order mark; everything else is read as WinAnsi.
func decodeTextBytes(raw []byte) string {
	if len(raw) >= 2 && raw[0] == 0xFE && raw[1] == 0xFF {
		units := make([]uint16, 0, (len(raw)-2)/2)
		for j := 2; j+1 < len(raw); j += 2 {
			units = append(units, uint16(raw[j])<<8|uint16(raw[j+1]))
		}
		return string(utf16.Decode(units))
	}

	var b strings.Builder
	b.Grow(len(raw))
	for _, c := range raw {
		switch {
		case c == '\n' || c == '\r' || c == '\t':
			b.WriteByte(' ')
		case c < 0x20:
			// control bytes carry no text
		case c < 0x80:
			b.WriteByte(c)
		default:
			if r, ok := winAnsiHigh[c]; ok {
				b.WriteRune(r)
			} else {
				b.WriteRune(rune(c))
			}
		}
	}
	return b.String()
}

// winAnsiHigh maps the WinAnsi bytes that differ from Latin-1.
var winAnsiHigh = map[byte]rune{
	0x80: '€', 0x82: '‚', 0x83: 'ƒ', 0x84: '„', 0x85: '…', 0x86: '†',
	0x87: '‡', 0x88: 'ˆ', 0x89: '‰', 0x8A: 'Š', 0x8B: '‹', 0x8C: 'Œ',
	0x8E: 'Ž', 0x91: '‘', 0x92: '’', 0x93: '“', 0x94: '”', 0x95: '•',
	0x96: '–', 0x97: '—', 0x98: '˜', 0x99: '™', 0x9A: 'š', 0x9B: '›',
	0x9C: 'œ', 0x9E: 'ž', 0x9F: 'Ÿ',
}

func isWhitespace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t' || c == '\f' || c == 0
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isRegular(c byte) bool {
	return !isWhitespace(c) && !isDelimiter(c)
}
