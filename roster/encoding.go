/*
encoding.go - Upload encoding detection

PURPOSE:
  Roster exports come from spreadsheet tools that save UTF-8 with BOM,
  UTF-16, or legacy Windows-1252 interchangeably. This detects the
  encoding, strips any BOM, and hands back UTF-8 bytes.

SEE ALSO:
  - csv.go: Consumes the decoded bytes
*/
package roster

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// DetectAndDecode detects the input encoding, strips any BOM, and returns
// UTF-8 bytes plus the detected encoding name.
func DetectAndDecode(data []byte) ([]byte, string, error) {
	if len(data) == 0 {
		return data, "utf-8", nil
	}

	if bytes.HasPrefix(data, bomUTF8) {
		return data[3:], "utf-8-bom", nil
	}

	if bytes.HasPrefix(data, bomUTF16LE) {
		decoded, err := decodeUTF16(data, unicode.LittleEndian)
		if err != nil {
			return nil, "", fmt.Errorf("utf-16le decode: %w", err)
		}
		return decoded, "utf-16le", nil
	}

	if bytes.HasPrefix(data, bomUTF16BE) {
		decoded, err := decodeUTF16(data, unicode.BigEndian)
		if err != nil {
			return nil, "", fmt.Errorf("utf-16be decode: %w", err)
		}
		return decoded, "utf-16be", nil
	}

	if utf8.Valid(data) {
		return data, "utf-8", nil
	}

	// Not valid UTF-8 and no BOM: assume a legacy single-byte export.
	decoded, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), data)
	if err != nil {
		return nil, "", fmt.Errorf("windows-1252 decode: %w", err)
	}
	return decoded, "windows-1252", nil
}

func decodeUTF16(data []byte, endianness unicode.Endianness) ([]byte, error) {
	dec := unicode.UTF16(endianness, unicode.UseBOM).NewDecoder()
	out, _, err := transform.Bytes(dec, data)
	return out, err
}
