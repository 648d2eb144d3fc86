package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Format selects the parser used for a file.
type Format string

const (
	FormatDelimited Format = "delimited"
	FormatElement   Format = "element"
)

// Extension returns the file extension a source of this format must carry.
func (f Format) Extension() string {
	switch f {
	case FormatDelimited:
		return ".csv"
	case FormatElement:
		return ".xml"
	default:
		return ""
	}
}

// Chunk size limits. Delimited sizes outside [Min, Max] fall back to the
// default; element sizes below the minimum fall back to the fallback size.
const (
	DefaultDelimitedChunkSize = 50000
	MinDelimitedChunkSize     = 25000
	MaxDelimitedChunkSize     = 100000

	DefaultElementChunkSize  = 10000
	MinElementChunkSize      = 64
	FallbackElementChunkSize = 5000
)

const (
	DefaultColumnSeparator = "\t"
	DefaultLineSeparator   = "\n"
	DefaultElementName     = "item"
	DefaultRevenueMarker   = "Winning Bid (Revenue)"
)

// DefaultColumns is the 23-column affiliate transaction report layout.
var DefaultColumns = []string{
	"event_date",
	"posting_date",
	"event_type",
	"amount",
	"program_id",
	"program_name",
	"campaign_id",
	"campaign_name",
	"tool_id",
	"tool_name",
	"custom_id",
	"click_timestamp",
	"item_id",
	"leaf_category_id",
	"quantity_sold",
	"total_sale_amount",
	"site_id",
	"meta_category_id",
	"unique_transaction_id",
	"user_frequency_id",
	"earnings",
	"traffic_type",
	"item_name",
}

// FieldMap names the delimited columns feeding each canonical attribute.
type FieldMap struct {
	EventType string `yaml:"event_type"`
	OrderID   string `yaml:"order_id"`
	ShopID    string `yaml:"shop_id"`
	Price     string `yaml:"price"`
	EventTime string `yaml:"event_time"`
}

// DefaultFieldMap matches DefaultColumns.
var DefaultFieldMap = FieldMap{
	EventType: "event_type",
	OrderID:   "unique_transaction_id",
	ShopID:    "program_id",
	Price:     "total_sale_amount",
	EventTime: "click_timestamp",
}

// Options configures one import run. Zero values take the defaults above.
type Options struct {
	Format   Format
	Filename string

	// ChunkSize is the maximum number of bytes read per I/O call.
	ChunkSize int

	// Delimited input.
	ColumnSeparator string
	LineSeparator   string
	Columns         []string
	Fields          FieldMap
	RevenueMarker   string

	// Tag-delimited input.
	ElementName string
}

// withDefaults fills unset options and clamps the chunk size per format.
func (o Options) withDefaults() Options {
	switch o.Format {
	case FormatDelimited:
		if o.ChunkSize < MinDelimitedChunkSize || o.ChunkSize > MaxDelimitedChunkSize {
			o.ChunkSize = DefaultDelimitedChunkSize
		}
	case FormatElement:
		if o.ChunkSize == 0 {
			o.ChunkSize = DefaultElementChunkSize
		} else if o.ChunkSize < MinElementChunkSize {
			o.ChunkSize = FallbackElementChunkSize
		}
	}

	if o.ColumnSeparator == "" {
		o.ColumnSeparator = DefaultColumnSeparator
	}
	if o.LineSeparator == "" {
		o.LineSeparator = DefaultLineSeparator
	}
	if len(o.Columns) == 0 {
		o.Columns = DefaultColumns
	}
	if o.Fields == (FieldMap{}) {
		o.Fields = DefaultFieldMap
	}
	if o.RevenueMarker == "" {
		o.RevenueMarker = DefaultRevenueMarker
	}
	if o.ElementName == "" {
		o.ElementName = DefaultElementName
	}
	return o
}

// Validate checks the options and the source file. Every problem found is
// reported; each one matches ErrConfig.
func (o Options) Validate() error {
	var errs []error

	ext := o.Format.Extension()
	if ext == "" {
		errs = append(errs, configErr("format", "unknown format %q", o.Format))
	}

	switch {
	case o.Filename == "":
		errs = append(errs, configErr("filename", "is required"))
	case ext != "" && !strings.EqualFold(filepath.Ext(o.Filename), ext):
		errs = append(errs, configErr("filename", "%s must be *%s", filepath.Base(o.Filename), ext))
	default:
		info, err := os.Stat(o.Filename)
		if err != nil {
			errs = append(errs, configErr("filename", "%s doesn't exist", o.Filename))
		} else if !info.Mode().IsRegular() {
			errs = append(errs, configErr("filename", "%s is not a regular file", o.Filename))
		}
	}

	if o.ChunkSize <= 0 {
		errs = append(errs, configErr("chunk_size", "must be positive"))
	}

	switch o.Format {
	case FormatDelimited:
		errs = append(errs, o.validateDelimited()...)
	case FormatElement:
		errs = append(errs, o.validateElement()...)
	}

	return errors.Join(errs...)
}

func (o Options) validateDelimited() []error {
	var errs []error

	if o.ColumnSeparator == "" || o.LineSeparator == "" {
		errs = append(errs, configErr("separators", "column and line separators must be set"))
	} else if strings.Contains(o.ColumnSeparator, o.LineSeparator) || strings.Contains(o.LineSeparator, o.ColumnSeparator) {
		errs = append(errs, configErr("separators", "column separator %q overlaps line separator %q", o.ColumnSeparator, o.LineSeparator))
	}

	seen := make(map[string]bool, len(o.Columns))
	for _, c := range o.Columns {
		if c == "" {
			errs = append(errs, configErr("columns", "empty column name"))
			continue
		}
		if seen[c] {
			errs = append(errs, configErr("columns", "duplicate column %q", c))
		}
		seen[c] = true
	}

	for _, f := range []struct{ option, column string }{
		{"fields.event_type", o.Fields.EventType},
		{"fields.order_id", o.Fields.OrderID},
		{"fields.shop_id", o.Fields.ShopID},
		{"fields.price", o.Fields.Price},
		{"fields.event_time", o.Fields.EventTime},
	} {
		if !seen[f.column] {
			errs = append(errs, configErr(f.option, "column %q is not in the schema", f.column))
		}
	}

	if o.RevenueMarker == "" {
		errs = append(errs, configErr("revenue_marker", "is required"))
	}

	return errs
}

func (o Options) validateElement() []error {
	var errs []error

	if o.ElementName == "" || strings.ContainsAny(o.ElementName, "<>/ \t\r\n") {
		errs = append(errs, configErr("element", "invalid element name %q", o.ElementName))
		return errs
	}
	if o.ChunkSize > 0 && o.ChunkSize < len(closeTag(o.ElementName)) {
		errs = append(errs, configErr("chunk_size", "%d is shorter than the close tag", o.ChunkSize))
	}

	return errs
}
