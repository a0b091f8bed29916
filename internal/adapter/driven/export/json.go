package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// CollapseWidth is the longest single-line rendering an array of scalars
// may have to be collapsed onto one line.
const CollapseWidth = 100

const jsonIndent = "    "

// WriteJSON writes v as indented JSON. Arrays whose elements are all
// scalars are written on one line when they fit in CollapseWidth.
func (r *ExportRepositoryImpl) WriteJSON(w io.Writer, v any) error {
	out, err := MarshalCollapsed(v)
	if err != nil {
		return err
	}
	_, err = w.Write(append(out, '\n'))
	return err
}

// MarshalCollapsed is the encoder behind WriteJSON.
func MarshalCollapsed(v any) ([]byte, error) {
	var raw bytes.Buffer
	enc := json.NewEncoder(&raw)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("error encoding JSON data: %w", err)
	}

	dec := json.NewDecoder(&raw)
	dec.UseNumber()

	var out bytes.Buffer
	if _, err := writeValue(dec, &out, 0); err != nil {
		return nil, fmt.Errorf("error formatting JSON data: %w", err)
	}
	return out.Bytes(), nil
}

// writeValue copies the next value from dec to out and reports whether it was a scalar.
func writeValue(dec *json.Decoder, out *bytes.Buffer, depth int) (bool, error) {
	tok, err := dec.Token()
	if err != nil {
		return false, err
	}
	switch t := tok.(type) {
	case json.Delim:
		if t == '{' {
			return false, writeObject(dec, out, depth)
		}
		return false, writeArray(dec, out, depth)
	default:
		return true, writeScalar(out, t)
	}
}

func writeObject(dec *json.Decoder, out *bytes.Buffer, depth int) error {
	if !dec.More() {
		out.WriteString("{}")
		_, err := dec.Token()
		return err
	}

	out.WriteString("{")
	first := true
	for dec.More() {
		key, err := dec.Token()
		if err != nil {
			return err
		}
		if !first {
			out.WriteString(",")
		}
		first = false
		newline(out, depth+1)
		if err := writeScalar(out, key); err != nil {
			return err
		}
		out.WriteString(": ")
		if _, err := writeValue(dec, out, depth+1); err != nil {
			return err
		}
	}
	newline(out, depth)
	out.WriteString("}")
	_, err := dec.Token()
	return err
}

func writeArray(dec *json.Decoder, out *bytes.Buffer, depth int) error {
	var elems []string
	allScalar := true
	for dec.More() {
		var elem bytes.Buffer
		scalar, err := writeValue(dec, &elem, depth+1)
		if err != nil {
			return err
		}
		allScalar = allScalar && scalar
		elems = append(elems, elem.String())
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	if len(elems) == 0 {
		out.WriteString("[]")
		return nil
	}

	if allScalar {
		line := "[" + strings.Join(elems, ", ") + "]"
		if len(line) <= CollapseWidth {
			out.WriteString(line)
			return nil
		}
	}

	out.WriteString("[")
	for i, elem := range elems {
		if i > 0 {
			out.WriteString(",")
		}
		newline(out, depth+1)
		out.WriteString(elem)
	}
	newline(out, depth)
	out.WriteString("]")
	return nil
}

func writeScalar(out *bytes.Buffer, tok json.Token) error {
	switch t := tok.(type) {
	case nil:
		out.WriteString("null")
	case bool:
		if t {
			out.WriteString("true")
		} else {
			out.WriteString("false")
		}
	case json.Number:
		out.WriteString(t.String())
	case string:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(t); err != nil {
			return err
		}
		out.Write(bytes.TrimRight(buf.Bytes(), "\n"))
	default:
		return fmt.Errorf("unexpected JSON token %v", tok)
	}
	return nil
}

func newline(out *bytes.Buffer, depth int) {
	out.WriteString("\n")
	out.WriteString(strings.Repeat(jsonIndent, depth))
}
