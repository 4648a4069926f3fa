package document

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
)

// DefaultIndent is the number of spaces per nesting level.
const DefaultIndent = 4

type encodeOpts struct {
	indent          string
	trailingNewline bool
}

// EncodeOption configures Encode and Marshal.
type EncodeOption func(*encodeOpts)

// WithIndent sets the number of spaces used per nesting level.
func WithIndent(n int) EncodeOption {
	return func(o *encodeOpts) {
		o.indent = strings.Repeat(" ", max(n, 0))
	}
}

// WithTrailingNewline controls whether the output ends with a newline.
func WithTrailingNewline(b bool) EncodeOption {
	return func(o *encodeOpts) {
		o.trailingNewline = b
	}
}

// Marshal encodes v and returns the bytes.
func Marshal(v *Value, opts ...EncodeOption) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, v, opts...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encode writes v to w as multi-line indented JSON. Object members keep
// their order, numbers keep their literal text and non-ASCII characters are
// written as-is rather than escaped. Empty containers are written as [] and {}.
func Encode(w io.Writer, v *Value, opts ...EncodeOption) error {
	o := &encodeOpts{
		indent:          strings.Repeat(" ", DefaultIndent),
		trailingNewline: true,
	}
	for _, opt := range opts {
		opt(o)
	}

	e := &encoder{w: bufio.NewWriter(w), opts: o}

	if err := e.encode(v, 0); err != nil {
		return err
	}
	if o.trailingNewline {
		_ = e.w.WriteByte('\n')
	}
	return e.w.Flush()
}

type encoder struct {
	w    *bufio.Writer
	opts *encodeOpts
}

func (e *encoder) encode(v *Value, depth int) error {
	if v == nil {
		_, err := e.w.WriteString("null")
		return err
	}

	switch v.Kind {
	case Null:
		_, _ = e.w.WriteString("null")
	case Bool:
		if v.Bool {
			_, _ = e.w.WriteString("true")
		} else {
			_, _ = e.w.WriteString("false")
		}
	case Number:
		if v.Number == "" {
			return fmt.Errorf("empty number literal")
		}
		_, _ = e.w.WriteString(v.Number.String())
	case String:
		return e.quote(v.String)
	case Array:
		return e.encodeArray(v, depth)
	case Object:
		return e.encodeObject(v, depth)
	default:
		return fmt.Errorf("cannot encode value of kind %s", v.Kind)
	}
	return nil
}

func (e *encoder) encodeArray(v *Value, depth int) error {
	if len(v.Values) == 0 {
		_, _ = e.w.WriteString("[]")
		return nil
	}
	_ = e.w.WriteByte('[')
	for i, elem := range v.Values {
		if i > 0 {
			_ = e.w.WriteByte(',')
		}
		e.newline(depth + 1)
		if err := e.encode(elem, depth+1); err != nil {
			return err
		}
	}
	e.newline(depth)
	_ = e.w.WriteByte(']')
	return nil
}

func (e *encoder) encodeObject(v *Value, depth int) error {
	if len(v.Members) == 0 {
		_, _ = e.w.WriteString("{}")
		return nil
	}
	_ = e.w.WriteByte('{')
	for i, m := range v.Members {
		if i > 0 {
			_ = e.w.WriteByte(',')
		}
		e.newline(depth + 1)
		if err := e.quote(m.Key); err != nil {
			return err
		}
		_, _ = e.w.WriteString(": ")
		if err := e.encode(m.Value, depth+1); err != nil {
			return err
		}
	}
	e.newline(depth)
	_ = e.w.WriteByte('}')
	return nil
}

func (e *encoder) newline(depth int) {
	_ = e.w.WriteByte('\n')
	for range depth {
		_, _ = e.w.WriteString(e.opts.indent)
	}
}

const hexDigits = "0123456789abcdef"

// quote writes s as a JSON string literal. Only the quote, the backslash and
// control characters below U+0020 are escaped; everything else, U+2028 and
// U+2029 included, is written as-is.
func (e *encoder) quote(s string) error {
	_ = e.w.WriteByte('"')
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 0x20 && c != '"' && c != '\\' {
			continue
		}
		_, _ = e.w.WriteString(s[start:i])
		switch c {
		case '"', '\\':
			_ = e.w.WriteByte('\\')
			_ = e.w.WriteByte(c)
		case '\n':
			_, _ = e.w.WriteString(`\n`)
		case '\r':
			_, _ = e.w.WriteString(`\r`)
		case '\t':
			_, _ = e.w.WriteString(`\t`)
		case '\b':
			_, _ = e.w.WriteString(`\b`)
		case '\f':
			_, _ = e.w.WriteString(`\f`)
		default:
			_, _ = e.w.WriteString(`\u00`)
			_ = e.w.WriteByte(hexDigits[c>>4])
			_ = e.w.WriteByte(hexDigits[c&0xf])
		}
		start = i + 1
	}
	_, err := e.w.WriteString(s[start:])
	if err != nil {
		return err
	}
	return e.w.WriteByte('"')
}
