package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/rowstream/pkg/errors"
)

const jobYAML = `
name: nightly
input:
  location: s3://${ROWSTREAM_TEST_BUCKET}/rows.csv.gz
output:
  location: ${ROWSTREAM_TEST_OUT:-out/rows.json}
  compression: zstd
  compression_level: 9
filters:
  columns: [id, name]
max_rows: 25
storage:
  s3:
    region: eu-west-1
logging:
  level: debug
tracing:
  enabled: true
  sampling_rate: 0.5
metrics:
  textfile_path: /tmp/rowstream.prom
`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "job.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadJob(t *testing.T) {
	t.Setenv("ROWSTREAM_TEST_BUCKET", "exports")

	cfg, err := LoadJob(writeFile(t, jobYAML))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "nightly", cfg.Name)
	assert.Equal(t, "s3://exports/rows.csv.gz", cfg.Input.Location)
	assert.Equal(t, "out/rows.json", cfg.Output.Location)
	assert.Equal(t, "zstd", cfg.Output.Compression)
	assert.Equal(t, 9, cfg.Output.CompressionLevel)
	assert.Equal(t, []string{"id", "name"}, cfg.Filters.Columns)
	assert.Equal(t, "eu-west-1", cfg.Storage.S3.Region)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Encoding)
	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, 0.5, cfg.Tracing.SamplingRate)
	assert.Equal(t, "rowstream", cfg.Tracing.ServiceName)
	assert.Equal(t, "/tmp/rowstream.prom", cfg.Metrics.TextfilePath)

	n, limited := cfg.Bound().Limited()
	assert.True(t, limited)
	assert.Equal(t, uint64(25), n)
}

func TestLoadErrors(t *testing.T) {
	_, err := LoadJob(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	_, err = LoadJob(writeFile(t, "input: [unclosed"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	_, err = LoadJob(writeFile(t, "max_rows: -1\n"))
	require.Error(t, err)
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("ROWSTREAM_TEST_A", "alpha")
	t.Setenv("ROWSTREAM_TEST_EMPTY", "")

	assert.Equal(t, "x alpha y", substituteEnvVars("x ${ROWSTREAM_TEST_A} y"))
	assert.Equal(t, "fallback", substituteEnvVars("${ROWSTREAM_TEST_EMPTY:-fallback}"))
	assert.Equal(t, "alpha", substituteEnvVars("${ROWSTREAM_TEST_A:-fallback}"))
	assert.Equal(t, "", substituteEnvVars("${ROWSTREAM_TEST_UNSET_VAR}"))
	assert.Equal(t, "keep ${open", substituteEnvVars("keep ${open"))
	assert.Equal(t, "alpha-alpha", substituteEnvVars("${ROWSTREAM_TEST_A}-${ROWSTREAM_TEST_A}"))
}

func TestDefaultsAreUnboundedAndDisabled(t *testing.T) {
	cfg := Defaults()
	_, limited := cfg.Bound().Limited()
	assert.False(t, limited)
	assert.False(t, cfg.Tracing.Enabled)

	cfg.SetMaxRows(0)
	n, limited := cfg.Bound().Limited()
	assert.True(t, limited)
	assert.Zero(t, n)

	cfg.SetMaxRows(-1)
	assert.Nil(t, cfg.MaxRows)
}

func TestValidate(t *testing.T) {
	valid := func() *JobConfig {
		cfg := Defaults()
		cfg.Input.Location = "in.csv"
		cfg.Output.Location = "-"
		return cfg
	}
	require.NoError(t, valid().Validate())

	cases := map[string]func(*JobConfig){
		"missing input":     func(c *JobConfig) { c.Input.Location = "" },
		"missing output":    func(c *JobConfig) { c.Output.Location = "" },
		"bad scheme":        func(c *JobConfig) { c.Input.Location = "ftp://host/x.csv" },
		"bad mime":          func(c *JobConfig) { c.Input.MimeType = "csv" },
		"bad compression":   func(c *JobConfig) { c.Output.Compression = "brotli" },
		"bad level":         func(c *JobConfig) { c.Output.CompressionLevel = 12 },
		"empty column":      func(c *JobConfig) { c.Filters.Columns = []string{"id", " "} },
		"bad sampling rate": func(c *JobConfig) { c.Tracing.SamplingRate = 1.5 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := Defaults()
	cfg.Input.Location = "in.csv"
	cfg.Output.Location = "gs://bucket/out.avro"
	cfg.Filters.Columns = []string{"b", "a"}
	cfg.SetMaxRows(7)

	path := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, Save(path, cfg))

	loaded, err := LoadJob(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Input, loaded.Input)
	assert.Equal(t, cfg.Output, loaded.Output)
	assert.Equal(t, cfg.Filters, loaded.Filters)
	require.NotNil(t, loaded.MaxRows)
	assert.Equal(t, uint64(7), *loaded.MaxRows)
}
