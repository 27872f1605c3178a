package recipients

import (
	"encoding/csv"
	"errors"
	"io"
	"net/mail"
	"strings"
)

const defaultMaxRows = 1000

// Row is one recipient from a CSV import. Fields carries the columns other
// than the address, keyed by header, for use as template variables.
type Row struct {
	Email  string
	Fields map[string]string
}

// ParseRows reads recipient rows from an uploaded CSV. The header must
// contain an Email column, any casing. Rows whose address is blank or does
// not parse are dropped; maxRows bounds the number of data rows kept.
func ParseRows(r io.Reader, maxRows int) ([]Row, error) {
	if maxRows <= 0 {
		maxRows = defaultMaxRows
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, err
	}

	emailIdx := -1
	for i, name := range header {
		header[i] = strings.TrimSpace(name)
		if strings.EqualFold(header[i], "email") {
			emailIdx = i
		}
	}
	if emailIdx == -1 {
		return nil, errors.New("csv must contain an Email column")
	}

	var rows []Row
	for len(rows) < maxRows {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		addr := strings.TrimSpace(record[emailIdx])
		if _, err := mail.ParseAddress(addr); err != nil {
			continue
		}

		fields := make(map[string]string, len(header)-1)
		for i, value := range record {
			if i == emailIdx || header[i] == "" {
				continue
			}
			fields[header[i]] = strings.TrimSpace(value)
		}
		rows = append(rows, Row{Email: addr, Fields: fields})
	}

	if len(rows) == 0 {
		return nil, errors.New("csv contains no usable recipient rows")
	}
	return rows, nil
}
