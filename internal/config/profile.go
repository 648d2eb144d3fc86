package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile describes the layout of one delimited report. Unset fields keep
// the importer defaults.
//
//	column_separator: "\t"
//	line_separator: "\n"
//	revenue_marker: Winning Bid (Revenue)
//	columns: [event_date, posting_date, event_type, ...]
//	fields:
//	  order_id: unique_transaction_id
//	  price: total_sale_amount
type Profile struct {
	ColumnSeparator string            `yaml:"column_separator"`
	LineSeparator   string            `yaml:"line_separator"`
	RevenueMarker   string            `yaml:"revenue_marker"`
	ChunkSize       int               `yaml:"chunk_size"`
	Columns         []string          `yaml:"columns"`
	Fields          map[string]string `yaml:"fields"`
}

var profileFields = map[string]bool{
	"event_type": true,
	"order_id":   true,
	"shop_id":    true,
	"price":      true,
	"event_time": true,
}

// LoadProfile reads a YAML profile. Unknown keys are an error so typos in
// field names fail on startup instead of silently using defaults.
func LoadProfile(path string) (*Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open profile: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	var p Profile
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse profile %s: %w", path, err)
	}

	for name := range p.Fields {
		if !profileFields[name] {
			return nil, fmt.Errorf("profile %s: unknown field %q", path, name)
		}
	}
	if p.ChunkSize < 0 {
		return nil, fmt.Errorf("profile %s: chunk_size must be non-negative", path)
	}

	return &p, nil
}
