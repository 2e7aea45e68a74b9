package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full run configuration. It is loaded from YAML over Default
// and then overridden by command line flags.
type Config struct {
	InputPath    string `yaml:"input"`
	Workers      int    `yaml:"workers"`
	BatchSize    int    `yaml:"batch_size"` // pages per detector call
	DPI          int    `yaml:"dpi"`        // PDF render resolution
	Device       string `yaml:"device"`     // cpu | cuda | cuda:<id>
	ONNXLibrary  string `yaml:"onnx_library"`
	LogLevel     string `yaml:"log_level"`
	ShowStats    bool   `yaml:"show_stats"`
	BuildVersion string `yaml:"-"`

	Detector    DetectorConfig    `yaml:"detector"`
	Grouping    GroupingConfig    `yaml:"grouping"`
	OCR         OCRConfig         `yaml:"ocr"`
	Translation TranslationConfig `yaml:"translation"`
	Inpaint     InpaintConfig     `yaml:"inpaint"`
	Layout      LayoutConfig      `yaml:"layout"`
	Output      OutputConfig      `yaml:"output"`
}

type DetectorConfig struct {
	Variant    string  `yaml:"variant"` // onnx | contrast
	ModelPath  string  `yaml:"model"`
	InputSize  int     `yaml:"input_size"`
	Confidence float64 `yaml:"confidence"`
}

type GroupingConfig struct {
	IoUThreshold float64 `yaml:"iou_threshold"`
	Order        string  `yaml:"order"` // detector | confidence
	ShrinkFactor float64 `yaml:"shrink_factor"`
}

type OCRConfig struct {
	Languages []string `yaml:"languages"`
}

type TranslationConfig struct {
	Provider   string        `yaml:"provider"` // openai | none
	Model      string        `yaml:"model"`
	BaseURL    string        `yaml:"base_url"`
	APIKey     string        `yaml:"api_key"`
	Source     string        `yaml:"source"`
	Target     string        `yaml:"target"`
	Uppercase  bool          `yaml:"uppercase"`
	MaxRetries uint64        `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

type InpaintConfig struct {
	Engine    string  `yaml:"engine"` // telea | ns | lama
	ModelPath string  `yaml:"model"`
	MaxDim    int     `yaml:"max_dim"`
	Stride    int     `yaml:"stride"`
	Padding   int     `yaml:"padding"` // mask dilation in pixels
	Radius    float32 `yaml:"radius"`
}

type LayoutConfig struct {
	FontPath    string  `yaml:"font"` // empty uses the embedded Go font
	MaxFontSize int     `yaml:"max_font_size"`
	LineSpacing float64 `yaml:"line_spacing"`
	Align       string  `yaml:"align"` // left | center
}

type OutputConfig struct {
	Dir        string `yaml:"dir"`
	Format     string `yaml:"format"`
	DebugBoxes bool   `yaml:"debug_boxes"`
	Archive    string `yaml:"archive"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Workers:   4,
		BatchSize: 4,
		DPI:       150,
		Device:    "cpu",
		LogLevel:  "info",
		Detector: DetectorConfig{
			Variant:    "onnx",
			ModelPath:  "models/comic-text-and-bubble-detector.onnx",
			InputSize:  640,
			Confidence: 0.80,
		},
		Grouping: GroupingConfig{
			IoUThreshold: 0.3,
			Order:        "detector",
			ShrinkFactor: 0.1,
		},
		OCR: OCRConfig{Languages: []string{"jpn_vert", "jpn"}},
		Translation: TranslationConfig{
			Provider:   "openai",
			Source:     "Japanese",
			Target:     "English",
			Uppercase:  true,
			MaxRetries: 3,
			RetryDelay: 2 * time.Second,
		},
		Inpaint: InpaintConfig{
			Engine: "telea",
			MaxDim: 896,
			Stride: 8,
			Radius: 3,
		},
		Layout: LayoutConfig{
			MaxFontSize: 30,
			LineSpacing: 4,
			Align:       "left",
		},
		Output: OutputConfig{Dir: "output"},
	}
}

// Load reads path over Default. An empty path returns Default. Unknown keys
// are rejected.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv fills secrets from the environment when the file left them empty.
func (c *Config) ApplyEnv() {
	if c.Translation.APIKey != "" {
		return
	}
	for _, key := range []string{"MANGATL_API_KEY", "OPENAI_API_KEY"} {
		if v := os.Getenv(key); v != "" {
			c.Translation.APIKey = v
			return
		}
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Workers >= 1, "workers must be at least 1, got %d", c.Workers)
	check(c.BatchSize >= 1, "batch_size must be at least 1, got %d", c.BatchSize)
	check(c.DPI > 0, "dpi must be positive, got %d", c.DPI)
	check(validDevice(c.Device), "device must be cpu, cuda or cuda:<id>, got %q", c.Device)

	check(oneOf(c.Detector.Variant, "onnx", "contrast"), "detector.variant: unknown %q", c.Detector.Variant)
	check(c.Detector.Confidence > 0 && c.Detector.Confidence <= 1, "detector.confidence must be in (0, 1], got %v", c.Detector.Confidence)

	check(c.Grouping.IoUThreshold >= 0 && c.Grouping.IoUThreshold <= 1, "grouping.iou_threshold must be in [0, 1], got %v", c.Grouping.IoUThreshold)
	check(oneOf(c.Grouping.Order, "detector", "confidence"), "grouping.order: unknown %q", c.Grouping.Order)
	check(c.Grouping.ShrinkFactor >= 0 && c.Grouping.ShrinkFactor < 0.5, "grouping.shrink_factor must be in [0, 0.5), got %v", c.Grouping.ShrinkFactor)

	check(len(c.OCR.Languages) > 0, "ocr.languages must not be empty")

	check(oneOf(c.Translation.Provider, "openai", "none"), "translation.provider: unknown %q", c.Translation.Provider)

	check(oneOf(c.Inpaint.Engine, "telea", "ns", "lama"), "inpaint.engine: unknown %q", c.Inpaint.Engine)
	check(c.Inpaint.Stride >= 1, "inpaint.stride must be at least 1, got %d", c.Inpaint.Stride)
	check(c.Inpaint.MaxDim >= c.Inpaint.Stride, "inpaint.max_dim must be at least the stride, got %d", c.Inpaint.MaxDim)
	check(c.Inpaint.Padding >= 0, "inpaint.padding must not be negative, got %d", c.Inpaint.Padding)

	check(c.Layout.MaxFontSize >= 1, "layout.max_font_size must be at least 1, got %d", c.Layout.MaxFontSize)
	check(c.Layout.LineSpacing >= 0, "layout.line_spacing must not be negative, got %v", c.Layout.LineSpacing)
	check(oneOf(c.Layout.Align, "left", "center"), "layout.align: unknown %q", c.Layout.Align)

	check(oneOf(strings.ToLower(c.Output.Format), "", "png", "jpg", "jpeg"), "output.format: unknown %q", c.Output.Format)

	return errors.Join(errs...)
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

func validDevice(d string) bool {
	name, id, hasID := strings.Cut(strings.ToLower(d), ":")
	switch name {
	case "cpu":
		return !hasID
	case "cuda":
		return !hasID || id != ""
	}
	return false
}
