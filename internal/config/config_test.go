package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mangatl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 0.3, cfg.Grouping.IoUThreshold)
	assert.Equal(t, 0.8, cfg.Detector.Confidence)
	assert.Equal(t, 0.1, cfg.Grouping.ShrinkFactor)
	assert.Equal(t, "cpu", cfg.Device)
	assert.Equal(t, 896, cfg.Inpaint.MaxDim)
	assert.Equal(t, 8, cfg.Inpaint.Stride)
	assert.Equal(t, 30, cfg.Layout.MaxFontSize)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
device: cuda:1
grouping:
  order: confidence
translation:
  provider: none
  retry_delay: 500ms
inpaint:
  engine: lama
  model: models/lama.onnx
output:
  archive: out/chapter.cbz
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "cuda:1", cfg.Device)
	assert.Equal(t, "confidence", cfg.Grouping.Order)
	assert.Equal(t, 0.3, cfg.Grouping.IoUThreshold, "untouched keys keep defaults")
	assert.Equal(t, "none", cfg.Translation.Provider)
	assert.Equal(t, 500*time.Millisecond, cfg.Translation.RetryDelay)
	assert.True(t, cfg.Translation.Uppercase)
	assert.Equal(t, "lama", cfg.Inpaint.Engine)
	assert.Equal(t, "out/chapter.cbz", cfg.Output.Archive)
}

func TestLoadEmpty(t *testing.T) {
	cfg, err := Load(writeFile(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := Load(writeFile(t, "grouping:\n  iou: 0.5\n"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"iou above one", func(c *Config) { c.Grouping.IoUThreshold = 1.5 }},
		{"shrink too large", func(c *Config) { c.Grouping.ShrinkFactor = 0.5 }},
		{"unknown order", func(c *Config) { c.Grouping.Order = "random" }},
		{"bad device", func(c *Config) { c.Device = "tpu" }},
		{"cpu with id", func(c *Config) { c.Device = "cpu:0" }},
		{"stride zero", func(c *Config) { c.Inpaint.Stride = 0 }},
		{"max dim below stride", func(c *Config) { c.Inpaint.MaxDim = 4 }},
		{"unknown align", func(c *Config) { c.Layout.Align = "justify" }},
		{"unknown provider", func(c *Config) { c.Translation.Provider = "babelfish" }},
		{"no languages", func(c *Config) { c.OCR.Languages = nil }},
		{"zero confidence", func(c *Config) { c.Detector.Confidence = 0 }},
		{"unlisted inpaint engine", func(c *Config) { c.Inpaint.Engine = "opencv" }},
		{"empty inpaint engine", func(c *Config) { c.Inpaint.Engine = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateReportsAll(t *testing.T) {
	cfg := Default()
	cfg.Workers = 0
	cfg.Layout.Align = "justify"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workers")
	assert.Contains(t, err.Error(), "layout.align")
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("MANGATL_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg := Default()
	cfg.ApplyEnv()
	assert.Equal(t, "sk-test", cfg.Translation.APIKey)

	cfg.Translation.APIKey = "from-file"
	t.Setenv("MANGATL_API_KEY", "sk-other")
	cfg.ApplyEnv()
	assert.Equal(t, "from-file", cfg.Translation.APIKey)
}

func TestValidateInpaintEngines(t *testing.T) {
	for _, engine := range []string{"telea", "ns", "lama"} {
		cfg := Default()
		cfg.Inpaint.Engine = engine
		assert.NoError(t, cfg.Validate(), engine)
	}
}
