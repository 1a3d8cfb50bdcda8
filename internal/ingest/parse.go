package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"

	"github.com/joseph-ayodele/foodgram/constants"
	"github.com/joseph-ayodele/foodgram/internal/common"
)

// Record is one fixture row: an ingredient (Name, Unit) or a tag (Name, Slug).
type Record struct {
	Name string
	Unit string
	Slug string
}

type jsonRecord struct {
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
	Slug            string `json:"slug"`
}

// ParseJSON validates data against the kind's schema and decodes it.
func ParseJSON(kind Kind, data []byte) ([]Record, error) {
	if err := ValidateJSONAgainstSchema(schemaFor(kind), data); err != nil {
		return nil, err
	}
	var rows []jsonRecord
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	out := make([]Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, Record{Name: r.Name, Unit: r.MeasurementUnit, Slug: r.Slug})
	}
	if err := validateRecords(kind, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ParseCSV reads a CSV file whose first row names the columns. Ingredients
// need name and measurement_unit; tags need name and slug. A file without
// a recognised header is read positionally.
func ParseCSV(kind Kind, r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, errors.New("csv is empty")
	}

	second := "measurement_unit"
	if kind == KindTags {
		second = "slug"
	}
	nameCol, otherCol := 0, 1
	header := map[string]int{}
	for i, h := range rows[0] {
		header[strings.ToLower(strings.TrimSpace(h))] = i
	}
	ni, okName := header["name"]
	oi, okOther := header[second]
	if okName && okOther {
		nameCol, otherCol = ni, oi
		rows = rows[1:]
	}

	out := make([]Record, 0, len(rows))
	for line, row := range rows {
		if len(row) <= nameCol || len(row) <= otherCol {
			return nil, fmt.Errorf("csv row %d: expected name and %s", line+1, second)
		}
		name := strings.TrimSpace(row[nameCol])
		other := strings.TrimSpace(row[otherCol])
		if name == "" || other == "" {
			return nil, fmt.Errorf("csv row %d: name and %s are required", line+1, second)
		}
		rec := Record{Name: name}
		if kind == KindTags {
			rec.Slug = other
		} else {
			rec.Unit = other
		}
		out = append(out, rec)
	}
	if err := validateRecords(kind, out); err != nil {
		return nil, err
	}
	return out, nil
}

// validateRecords applies the catalog field rules. CSV rows only get
// them here; JSON rows were already shaped by the schema.
func validateRecords(kind Kind, records []Record) error {
	v := common.NewValidator()
	for _, rec := range records {
		if kind == KindTags {
			v.Field("name", rec.Name, common.Required, common.MaxLength(constants.TagNameMaxLength))
			v.Field("slug", rec.Slug, common.Required, common.Slug, common.MaxLength(constants.TagSlugMaxLength))
			continue
		}
		v.Field("name", rec.Name, common.Required, common.MaxLength(constants.NameMaxLength))
		v.Field("measurement_unit", rec.Unit, common.Required, common.MaxLength(constants.MeasurementUnitMaxLength))
	}
	if err := v.Error(); err != nil {
		return fmt.Errorf("%s: %w", kind, err)
	}
	return nil
}
