package attendance

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Roster CSV column order is part of the storage format; rep tooling and
// downloaded records both depend on it.
var csvHeader = []string{"S/N", "Surname", "First Name", "Middle Name", "Matric Number", "Timestamp"}

func marshalEntries(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, errors.Wrap(err, "writing roster header")
	}
	for i, e := range entries {
		row := []string{strconv.Itoa(i + 1), e.Surname, e.FirstName, e.MiddleName, e.Matric, e.Timestamp}
		if err := w.Write(row); err != nil {
			return nil, errors.Wrap(err, "writing roster row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, errors.Wrap(err, "flushing roster")
	}
	return buf.Bytes(), nil
}

func unmarshalEntries(data []byte) ([]Entry, error) {
	if len(data) == 0 {
		return nil, nil
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "reading roster")
	}
	if len(records) <= 1 {
		return nil, nil
	}

	entries := make([]Entry, 0, len(records)-1)
	for _, rec := range records[1:] { // skip header
		if len(rec) < len(csvHeader) {
			continue
		}
		entries = append(entries, Entry{
			Surname:    rec[1],
			FirstName:  rec[2],
			MiddleName: rec[3],
			Matric:     rec[4],
			Timestamp:  rec[5],
		})
	}
	return entries, nil
}

func normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// hasDupName checks the normalized (surname, first, middle) triple against
// every entry in the set.
func hasDupName(surname, first, middle string, entries []Entry) bool {
	key := normalize(surname) + normalize(first) + normalize(middle)
	for _, e := range entries {
		if normalize(e.Surname)+normalize(e.FirstName)+normalize(e.MiddleName) == key {
			return true
		}
	}
	return false
}

func hasDupMatric(matric string, entries []Entry) bool {
	m := normalize(matric)
	for _, e := range entries {
		if normalize(e.Matric) == m {
			return true
		}
	}
	return false
}

// excluding returns entries without the one at idx. Used when editing in
// place so an entry is not flagged as a duplicate of its own prior value.
func excluding(entries []Entry, idx int) []Entry {
	others := make([]Entry, 0, len(entries))
	for i, e := range entries {
		if i != idx {
			others = append(others, e)
		}
	}
	return others
}
