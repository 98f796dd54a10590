// Package fits reads keyword cards from FITS primary headers. It exists so
// the stacking stage can name its output after the OBJECT keyword without a
// host round trip; it is not a general FITS implementation.
package fits

import (
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	blockSize = 2880
	cardSize  = 80
)

// ReadKeyword scans the primary header of the FITS file at path and returns
// the string value of the given keyword. A missing keyword is reported with
// found=false rather than an error.
func ReadKeyword(path, keyword string) (value string, found bool, err error) {
	file, err := os.Open(path)
	if err != nil {
		return "", false, fmt.Errorf("open fits: %w", err)
	}
	defer file.Close()

	keyword = strings.ToUpper(strings.TrimSpace(keyword))
	block := make([]byte, blockSize)
	for {
		if _, err := io.ReadFull(file, block); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return "", false, nil
			}
			return "", false, fmt.Errorf("read fits header: %w", err)
		}
		for offset := 0; offset < blockSize; offset += cardSize {
			card := string(block[offset : offset+cardSize])
			name := strings.TrimSpace(card[:8])
			if name == "END" {
				return "", false, nil
			}
			if name != keyword || len(card) < 10 || card[8] != '=' {
				continue
			}
			return parseCardValue(card[10:]), true, nil
		}
	}
}

// parseCardValue extracts the value portion of a header card, unquoting
// string values and dropping any trailing comment.
func parseCardValue(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "'") {
		rest := raw[1:]
		var b strings.Builder
		for i := 0; i < len(rest); i++ {
			if rest[i] != '\'' {
				b.WriteByte(rest[i])
				continue
			}
			// Doubled quote is an escaped quote inside the value.
			if i+1 < len(rest) && rest[i+1] == '\'' {
				b.WriteByte('\'')
				i++
				continue
			}
			break
		}
		return strings.TrimRight(b.String(), " ")
	}
	if idx := strings.IndexByte(raw, '/'); idx >= 0 {
		raw = raw[:idx]
	}
	return strings.TrimSpace(raw)
}
