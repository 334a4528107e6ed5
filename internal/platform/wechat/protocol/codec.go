// Package protocol implements the gateway's V2 wire format: flat key/value
// payloads carried as CDATA leaves of an <xml> envelope, authenticated by an
// MD5 merchant signature.
package protocol

import (
	"bytes"
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"encoding/xml"
	"io"
	"sort"
	"strings"
)

// Encode wraps every field as <key><![CDATA[value]]></key> inside a root
// <xml> element, in insertion order.
func Encode(f *Fields) []byte {
	var b bytes.Buffer
	b.WriteString("<xml>")
	for _, k := range f.keys {
		b.WriteString("<")
		b.WriteString(k)
		b.WriteString("><![CDATA[")
		b.WriteString(f.values[k])
		b.WriteString("]]></")
		b.WriteString(k)
		b.WriteString(">")
	}
	b.WriteString("</xml>")
	return b.Bytes()
}

// Decode parses top-level children of the root element into Fields. The
// gateway requires leniency here: malformed XML yields empty Fields, never an
// error and never a partially-garbage map. Nested elements are skipped.
func Decode(data []byte) *Fields {
	f := NewFields()
	dec := xml.NewDecoder(bytes.NewReader(data))

	// depth 0 = before root, 1 = inside root, 2 = inside a leaf field
	depth := 0
	var leaf string
	var text strings.Builder

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return NewFields()
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch depth {
			case 2:
				leaf = t.Name.Local
				text.Reset()
			case 3:
				// nested structure: drop the enclosing leaf entirely
				leaf = ""
			}
		case xml.EndElement:
			if depth == 2 && leaf != "" {
				f.Set(leaf, text.String())
				leaf = ""
			}
			depth--
			if depth < 0 {
				return NewFields()
			}
		case xml.CharData:
			if depth == 2 && leaf != "" {
				text.Write(t)
			}
		}
	}
	if depth != 0 {
		return NewFields()
	}
	return f
}

// Sign computes the V2 merchant signature: exclude the sign field and any
// empty-valued field, sort remaining keys ascending, join as k=v pairs with
// '&', append '&key=<merchantKey>', MD5, upper-case hex.
func Sign(f *Fields, merchantKey string) string {
	keys := make([]string, 0, f.Len())
	for k := range f.values {
		if k == FieldSign || f.values[k] == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(f.values[k])
		b.WriteString("&")
	}
	b.WriteString("key=")
	b.WriteString(merchantKey)

	sum := md5.Sum([]byte(b.String()))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// Verify recomputes the signature over f (sign excluded) and compares it to
// the provided one in constant time.
func Verify(f *Fields, providedSign, merchantKey string) bool {
	if providedSign == "" {
		return false
	}
	expected := Sign(f, merchantKey)
	provided := strings.ToUpper(providedSign)
	if len(expected) != len(provided) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) == 1
}
