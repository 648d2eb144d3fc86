package core

import (
	"github.com/JonMunkholm/OrderImport/internal/config"
	"github.com/JonMunkholm/OrderImport/internal/ingest"
)

// ImportRequest names one file to import and optional per-run overrides.
type ImportRequest struct {
	Format      ingest.Format `json:"format"`
	File        string        `json:"file"`
	ChunkSize   int           `json:"chunkSize,omitempty"`
	ElementName string        `json:"element,omitempty"`
}

// BuildOptions layers request overrides over the profile over the
// environment configuration. path is the already resolved file.
// Range checks are left to the importer.
func BuildOptions(cfg config.ImportConfig, profile *config.Profile, req ImportRequest, path string) (ingest.Options, error) {
	opts := ingest.Options{
		Format:   req.Format,
		Filename: path,
	}

	switch req.Format {
	case ingest.FormatElement:
		opts.ChunkSize = firstPositive(req.ChunkSize, cfg.ElementChunkSize)
		opts.ElementName = firstNonEmpty(req.ElementName, cfg.ElementName)

	case ingest.FormatDelimited:
		col, line, err := cfg.Separators()
		if err != nil {
			return ingest.Options{}, &ingest.ConfigError{Option: "separators", Reason: err.Error()}
		}
		opts.ColumnSeparator = col
		opts.LineSeparator = line
		opts.RevenueMarker = cfg.RevenueMarker

		chunk := cfg.DelimitedChunkSize
		if profile != nil {
			chunk = firstPositive(profile.ChunkSize, chunk)
			opts.ColumnSeparator = firstNonEmpty(profile.ColumnSeparator, opts.ColumnSeparator)
			opts.LineSeparator = firstNonEmpty(profile.LineSeparator, opts.LineSeparator)
			opts.RevenueMarker = firstNonEmpty(profile.RevenueMarker, opts.RevenueMarker)
			opts.Columns = profile.Columns
			opts.Fields = profileFields(profile.Fields)
		}
		opts.ChunkSize = firstPositive(req.ChunkSize, chunk)
	}

	return opts, nil
}

// profileFields overlays the profile's field names on the default mapping.
func profileFields(m map[string]string) ingest.FieldMap {
	f := ingest.DefaultFieldMap
	if v := m["event_type"]; v != "" {
		f.EventType = v
	}
	if v := m["order_id"]; v != "" {
		f.OrderID = v
	}
	if v := m["shop_id"]; v != "" {
		f.ShopID = v
	}
	if v := m["price"]; v != "" {
		f.Price = v
	}
	if v := m["event_time"]; v != "" {
		f.EventTime = v
	}
	return f
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
