package fits

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func card(s string) string {
	if len(s) > 80 {
		return s[:80]
	}
	return s + strings.Repeat(" ", 80-len(s))
}

func writeHeader(t *testing.T, cards ...string) string {
	t.Helper()
	var b strings.Builder
	for _, c := range cards {
		b.WriteString(card(c))
	}
	b.WriteString(card("END"))
	for b.Len()%2880 != 0 {
		b.WriteString(" ")
	}
	path := filepath.Join(t.TempDir(), "test.fit")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadKeywordString(t *testing.T) {
	path := writeHeader(t,
		"SIMPLE  =                    T / conforms to FITS standard",
		"OBJECT  = 'M 31    '           / observed object",
	)

	value, found, err := ReadKeyword(path, "OBJECT")
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("expected OBJECT keyword")
	}
	if value != "M 31" {
		t.Fatalf("value = %q, want %q", value, "M 31")
	}
}

func TestReadKeywordMissing(t *testing.T) {
	path := writeHeader(t, "SIMPLE  =                    T")

	_, found, err := ReadKeyword(path, "OBJECT")
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Fatal("did not expect OBJECT keyword")
	}
}

func TestReadKeywordNumeric(t *testing.T) {
	path := writeHeader(t, "EXPTIME =                300.0 / exposure seconds")

	value, found, err := ReadKeyword(path, "EXPTIME")
	if err != nil {
		t.Fatal(err)
	}
	if !found || value != "300.0" {
		t.Fatalf("value = %q found=%v", value, found)
	}
}

func TestReadKeywordEscapedQuote(t *testing.T) {
	path := writeHeader(t, "OBJECT  = 'Barnard''s Loop'")

	value, found, err := ReadKeyword(path, "OBJECT")
	if err != nil {
		t.Fatal(err)
	}
	if !found || value != "Barnard's Loop" {
		t.Fatalf("value = %q found=%v", value, found)
	}
}
