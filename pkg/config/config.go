// Package config defines the YAML job file that describes one conversion:
// where rows come from, where they go, how they are filtered and how the
// run is observed.
//
// Example job file:
//
//	name: nightly-export
//	input:
//	  location: s3://exports/${DAY}/rows.csv.gz
//	output:
//	  location: out/rows.avro
//	  compression: zstd
//	filters:
//	  columns: [id, name, amount]
//	max_rows: 100000
//	logging:
//	  level: debug
//
// Values of the form ${VAR} or ${VAR:-default} are replaced from the
// environment before parsing.
package config

import (
	"strings"

	"github.com/ajitpratap0/rowstream/pkg/codec/core"
	"github.com/ajitpratap0/rowstream/pkg/compression"
	"github.com/ajitpratap0/rowstream/pkg/errors"
	"github.com/ajitpratap0/rowstream/pkg/logger"
	"github.com/ajitpratap0/rowstream/pkg/observability"
	"github.com/ajitpratap0/rowstream/pkg/storage"
)

// JobConfig describes a single conversion.
type JobConfig struct {
	Name    string         `yaml:"name"`
	Input   EndpointConfig `yaml:"input"`
	Output  EndpointConfig `yaml:"output"`
	Filters FiltersConfig  `yaml:"filters"`
	// MaxRows bounds the rows read from the input. Absent means unlimited.
	MaxRows *uint64 `yaml:"max_rows,omitempty"`

	Storage storage.Config       `yaml:"storage"`
	Logging logger.Config        `yaml:"logging"`
	Metrics MetricsConfig        `yaml:"metrics"`
	Tracing observability.Config `yaml:"tracing"`
}

// EndpointConfig locates one side of a conversion.
type EndpointConfig struct {
	// Location is a path, "-", or an s3:// or gs:// URI.
	Location string `yaml:"location"`
	// MimeType overrides detection from the location name or content.
	MimeType string `yaml:"mime_type,omitempty"`
	// Compression overrides detection from the location extension.
	Compression string `yaml:"compression,omitempty"`
	// CompressionLevel applies to output only: 1 fastest to 9 best.
	CompressionLevel int `yaml:"compression_level,omitempty"`
}

// FiltersConfig lists converter-level filters.
type FiltersConfig struct {
	// Columns keeps only these columns, in this order.
	Columns []string `yaml:"columns,omitempty"`
}

// MetricsConfig controls metric export.
type MetricsConfig struct {
	// TextfilePath receives the Prometheus text format when the run ends.
	TextfilePath string `yaml:"textfile_path,omitempty"`
}

// Defaults returns a job with every optional setting filled in.
func Defaults() *JobConfig {
	return &JobConfig{
		Name:    "rowstream",
		Output:  EndpointConfig{CompressionLevel: int(compression.Default)},
		Logging: logger.Config{Level: "info", Encoding: "json"},
		Tracing: observability.DefaultConfig(),
	}
}

// LoadJob reads a job file on top of Defaults. The result is not validated.
func LoadJob(path string) (*JobConfig, error) {
	cfg := Defaults()
	if err := Load(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Bound returns the decoder row bound for MaxRows.
func (c *JobConfig) Bound() core.Bound {
	if c.MaxRows == nil {
		return core.Unlimited()
	}
	return core.Limit(*c.MaxRows)
}

// SetMaxRows sets MaxRows. A negative n clears it.
func (c *JobConfig) SetMaxRows(n int64) {
	if n < 0 {
		c.MaxRows = nil
		return
	}
	v := uint64(n)
	c.MaxRows = &v
}

// Validate checks the job for errors that would only surface mid-run.
func (c *JobConfig) Validate() error {
	if err := c.Input.validate("input"); err != nil {
		return err
	}
	if err := c.Output.validate("output"); err != nil {
		return err
	}
	if c.Output.CompressionLevel < 0 || c.Output.CompressionLevel > int(compression.Best) {
		return errors.Newf(errors.ErrorTypeConfig, "output compression_level must be between 0 and %d", compression.Best)
	}

	for _, col := range c.Filters.Columns {
		if strings.TrimSpace(col) == "" {
			return errors.New(errors.ErrorTypeConfig, "filters.columns contains an empty name")
		}
	}

	if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
		return errors.New(errors.ErrorTypeConfig, "tracing.sampling_rate must be between 0 and 1")
	}
	return nil
}

func (e EndpointConfig) validate(side string) error {
	if e.Location == "" {
		return errors.Newf(errors.ErrorTypeConfig, "%s.location is required", side)
	}
	if _, err := storage.ParseLocation(e.Location); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, side+".location is invalid")
	}
	if e.MimeType != "" && !strings.Contains(e.MimeType, "/") {
		return errors.Newf(errors.ErrorTypeConfig, "%s.mime_type %q is not a MIME type", side, e.MimeType)
	}
	if _, err := compression.Parse(e.Compression); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, side+".compression is invalid")
	}
	return nil
}
