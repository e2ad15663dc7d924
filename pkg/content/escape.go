package content

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// mustEscape reports the characters archives store as \uXXXX: the
// backslash itself, characters XML cannot carry, and carriage return,
// which XML readers would fold into a line feed.
func mustEscape(r rune) bool {
	switch {
	case r == '\\':
		return true
	case r <= 0x8, r == 0xB, r == 0xC, r == 0xD:
		return true
	case r >= 0xE && r <= 0x1F:
		return true
	case r >= 0x7F && r <= 0x9F:
		return true
	case r == 0xFFFE, r == 0xFFFF:
		return true
	}
	return false
}

func writeUnicodeEscape(b *strings.Builder, r rune) {
	b.WriteString(`\u`)
	h := strings.ToUpper(strconv.FormatInt(int64(r), 16))
	for i := len(h); i < 4; i++ {
		b.WriteByte('0')
	}
	b.WriteString(h)
}

func flushSpaces(b *strings.Builder, n int) {
	if n == 1 {
		b.WriteByte(' ')
		return
	}
	for i := 0; i < n; i++ {
		b.WriteString(`\u0020`)
	}
}

// EncodeText renders cell text for an XML element body. Single spaces stay
// literal; runs of spaces are escaped so XML whitespace handling cannot
// collapse them.
func EncodeText(s string) string {
	var b strings.Builder
	b.Grow(len(s) + len(s)/8)
	spaces := 0
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		if r == ' ' {
			spaces++
			continue
		}
		if spaces > 0 {
			flushSpaces(&b, spaces)
			spaces = 0
		}
		switch {
		case r == utf8.RuneError && size == 1:
			writeUnicodeEscape(&b, utf8.RuneError)
		case mustEscape(r):
			writeUnicodeEscape(&b, r)
		case r == '&':
			b.WriteString("&amp;")
		case r == '<':
			b.WriteString("&lt;")
		case r == '>':
			b.WriteString("&gt;")
		case r == '"':
			b.WriteString("&quot;")
		case r == '\'':
			b.WriteString("&apos;")
		default:
			b.WriteRune(r)
		}
	}
	if spaces > 0 {
		flushSpaces(&b, spaces)
	}
	return b.String()
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// DecodeText reverses the \uXXXX escapes of EncodeText. XML entities are
// expected to be resolved already by the XML reader.
func DecodeText(s string) string {
	if !strings.Contains(s, `\u`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		if s[i] == '\\' && i+1 < len(s) && s[i+1] == 'u' {
			j := i + 1
			for j < len(s) && s[j] == 'u' {
				j++
			}
			if j < len(s) && s[j] == '+' {
				j++
			}
			if j+4 <= len(s) && isHex(s[j]) && isHex(s[j+1]) && isHex(s[j+2]) && isHex(s[j+3]) {
				v, _ := strconv.ParseUint(s[j:j+4], 16, 32)
				b.WriteRune(rune(v))
				i = j + 4
				continue
			}
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}
