package extract

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/parquet-go/parquet-go"
)

// delimited renders each record as its cells joined by a single space.
func delimited(raw []byte, comma rune) (string, error) {
	raw = bytes.TrimPrefix(raw, bom)
	if !utf8.Valid(raw) {
		return "", &UnsupportedFormatError{Reason: "not valid UTF-8 text"}
	}
	r := csv.NewReader(bytes.NewReader(raw))
	r.Comma = comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	var b strings.Builder
	first := true
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read table: %w", err)
		}
		if !first {
			b.WriteByte('\n')
		}
		first = false
		b.WriteString(strings.Join(rec, " "))
	}
	return b.String(), nil
}

// columnar renders one parquet row per line, non-null leaf values joined by
// a single space in schema order.
func columnar(raw []byte) (string, error) {
	f, err := parquet.OpenFile(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("open parquet: %w", err)
	}
	r := parquet.NewReader(f)
	defer func() { _ = r.Close() }()

	var b strings.Builder
	rows := make([]parquet.Row, 64)
	first := true
	for {
		n, err := r.ReadRows(rows)
		for _, row := range rows[:n] {
			if !first {
				b.WriteByte('\n')
			}
			first = false
			sep := false
			for _, v := range row {
				if v.IsNull() {
					continue
				}
				if sep {
					b.WriteByte(' ')
				}
				b.WriteString(v.String())
				sep = true
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read parquet rows: %w", err)
		}
		if n == 0 {
			break
		}
	}
	return b.String(), nil
}
