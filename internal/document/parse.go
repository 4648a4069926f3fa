package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode/utf16"
	"unicode/utf8"
)

// SyntaxError describes input that is not valid JSON.
type SyntaxError struct {
	Msg    string
	Offset int64 // byte offset into the input
	Line   int   // 1-based
	Column int   // 1-based, in bytes
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: line %d column %d (char %d)", e.Msg, e.Line, e.Column, e.Offset)
}

// Parse decodes data into a Value. The whole input must hold exactly one
// JSON value, optionally surrounded by whitespace.
func Parse(data []byte) (*Value, error) {
	if !utf8.Valid(data) {
		return nil, newSyntaxError(data, int64(firstInvalidUTF8(data)), "invalid UTF-8 encoding")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, toSyntaxError(data, dec, err)
	}

	if off := skipSpace(data, dec.InputOffset()); off < int64(len(data)) {
		return nil, newSyntaxError(data, off, "extra data")
	}

	// The decoder replaces unpaired surrogate escapes with U+FFFD, which
	// would silently alter the string on rewrite.
	if off := loneSurrogate(data); off >= 0 {
		return nil, newSyntaxError(data, off, "unpaired surrogate escape")
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (*Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '[':
			return decodeArray(dec)
		case '{':
			return decodeObject(dec)
		}
		return nil, fmt.Errorf("unexpected delimiter %q", rune(t))
	case string:
		return FromString(t), nil
	case json.Number:
		return FromNumber(t), nil
	case bool:
		return FromBool(t), nil
	case nil:
		return NullValue(), nil
	default:
		return nil, fmt.Errorf("unexpected token %T", tok)
	}
}

func decodeArray(dec *json.Decoder) (*Value, error) {
	arr := FromSlice()
	for dec.More() {
		v, err := decodeValue(dec)
		if err != nil {
			return nil, unexpectedEOF(err)
		}
		arr.Values = append(arr.Values, v)
	}
	if err := closeDelim(dec, ']'); err != nil {
		return nil, err
	}
	return arr, nil
}

func decodeObject(dec *json.Decoder) (*Value, error) {
	obj := FromMembers()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, unexpectedEOF(err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("object key must be a string, got %v", tok)
		}
		v, err := decodeValue(dec)
		if err != nil {
			return nil, unexpectedEOF(err)
		}
		obj.Members = append(obj.Members, Member{Key: key, Value: v})
	}
	if err := closeDelim(dec, '}'); err != nil {
		return nil, err
	}
	return obj, nil
}

func closeDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return unexpectedEOF(err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", rune(want), tok)
	}
	return nil
}

// unexpectedEOF turns io.EOF inside a container into io.ErrUnexpectedEOF.
func unexpectedEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

func toSyntaxError(data []byte, dec *json.Decoder, err error) *SyntaxError {
	var se *json.SyntaxError
	switch {
	case errors.As(err, &se):
		return newSyntaxError(data, se.Offset, se.Error())
	case errors.Is(err, io.ErrUnexpectedEOF):
		return newSyntaxError(data, int64(len(data)), "unexpected end of JSON input")
	default:
		return newSyntaxError(data, dec.InputOffset(), err.Error())
	}
}

func newSyntaxError(data []byte, off int64, msg string) *SyntaxError {
	off = max(0, min(off, int64(len(data))))
	line := 1 + bytes.Count(data[:off], []byte{'\n'})
	lineStart := int64(bytes.LastIndexByte(data[:off], '\n') + 1)
	return &SyntaxError{
		Msg:    msg,
		Offset: off,
		Line:   line,
		Column: int(off-lineStart) + 1,
	}
}

func skipSpace(data []byte, off int64) int64 {
	for off < int64(len(data)) {
		switch data[off] {
		case ' ', '\t', '\n', '\r':
			off++
		default:
			return off
		}
	}
	return off
}

// loneSurrogate returns the offset of the first \u escape holding a UTF-16
// surrogate that is not part of a high/low pair, or -1. data must already
// be valid JSON.
func loneSurrogate(data []byte) int64 {
	inString := false
	for i := 0; i < len(data); i++ {
		c := data[i]
		if !inString {
			inString = c == '"'
			continue
		}
		switch c {
		case '"':
			inString = false
		case '\\':
			if i+1 >= len(data) || data[i+1] != 'u' {
				i++
				continue
			}
			r, ok := hex4(data, i+2)
			if !ok || !utf16.IsSurrogate(r) {
				i += 5
				continue
			}
			if r >= 0xDC00 {
				return int64(i)
			}
			if i+7 >= len(data) || data[i+6] != '\\' || data[i+7] != 'u' {
				return int64(i)
			}
			low, ok := hex4(data, i+8)
			if !ok || low < 0xDC00 || low > 0xDFFF {
				return int64(i)
			}
			i += 11
		}
	}
	return -1
}

func hex4(data []byte, at int) (rune, bool) {
	if at+4 > len(data) {
		return 0, false
	}
	var r rune
	for _, c := range data[at : at+4] {
		r <<= 4
		switch {
		case '0' <= c && c <= '9':
			r |= rune(c - '0')
		case 'a' <= c && c <= 'f':
			r |= rune(c - 'a' + 10)
		case 'A' <= c && c <= 'F':
			r |= rune(c - 'A' + 10)
		default:
			return 0, false
		}
	}
	return r, true
}

func firstInvalidUTF8(data []byte) int {
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return len(data)
}
