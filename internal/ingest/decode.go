package ingest

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/korean"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type candidate struct {
	name string
	enc  encoding.Encoding
}

// Tried in order after UTF-8. Latin-1 maps every byte, so it always succeeds.
var fallbacks = []candidate{
	{name: "cp949", enc: korean.EUCKR},
	{name: "latin-1", enc: charmap.ISO8859_1},
}

// Decode converts raw text bytes to a string, trying UTF-8, then CP949/EUC-KR,
// then Latin-1. It returns the text and the name of the encoding used.
func Decode(data []byte) (string, string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), "utf-8", nil
	}

	for _, c := range fallbacks {
		out, err := c.enc.NewDecoder().Bytes(data)
		if err != nil {
			continue
		}
		s := string(out)
		if strings.ContainsRune(s, utf8.RuneError) {
			continue
		}
		return s, c.name, nil
	}
	return "", "", invalid("Could not detect the text encoding. Save the file as UTF-8 and try again.")
}
