package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/penwyp/go-cfs-perfmon/internal/analyzer"
	"github.com/penwyp/go-cfs-perfmon/internal/core/constants"
	"github.com/penwyp/go-cfs-perfmon/internal/core/model"
	"github.com/penwyp/go-cfs-perfmon/internal/core/registry"
	"github.com/penwyp/go-cfs-perfmon/internal/core/timebase"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

type IDConfig struct {
	ID    string   `yaml:"id"`
	Name  string   `yaml:"name"`
	Color string   `yaml:"color"`
	Min   *float64 `yaml:"min"`
	Max   *float64 `yaml:"max"`
	Plot  *bool    `yaml:"plot"`
	Notes string   `yaml:"notes"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	File   string `yaml:"file"`
	Format string `yaml:"format"`
}

type Config struct {
	TickRate      *float64 `yaml:"tick_rate"`
	Precision     *int     `yaml:"precision"`
	AutoPrecision bool     `yaml:"auto_precision"`
	RelativeTime  bool     `yaml:"relative_time"`

	FrameMarkerID string  `yaml:"frame_marker_id"`
	FramePeriod   float64 `yaml:"frame_period"`
	LeadingTrim   float64 `yaml:"leading_trim"`
	TrailingTrim  float64 `yaml:"trailing_trim"`

	Sort        string `yaml:"sort"`
	Concurrency int    `yaml:"concurrency"`
	CacheSize   int    `yaml:"cache_size"`

	IDList string     `yaml:"id_list"`
	IDs    []IDConfig `yaml:"ids"`

	Log LogConfig `yaml:"log"`
}

// DefaultDir is the per-user directory holding the config file and logs.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cfs-perfmon"
	}
	return filepath.Join(home, ".cfs-perfmon")
}

func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

func Default() *Config {
	c := &Config{}
	c.fillDefault()
	return c
}

func (c *Config) fillDefault() {
	if c.TickRate == nil {
		tickRate := float64(constants.DefaultTickRate)
		c.TickRate = &tickRate
	}
	if c.Precision == nil {
		precision := constants.DefaultPrecision
		c.Precision = &precision
	}
	if c.Sort == "" {
		c.Sort = model.SortByName.String()
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Log.File == "" {
		c.Log.File = filepath.Join(DefaultDir(), "logs", "app.log")
	}
}

// Load reads a YAML config from fs. Unknown keys are rejected.
func Load(afs afero.Fs, configPath string) (*Config, error) {
	file, err := afs.Open(configPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err) {
			return nil, fmt.Errorf("config file does not exist: %s", configPath)
		}
		return nil, fmt.Errorf("can't open config file: %s", configPath)
	}
	defer file.Close()

	var conf Config

	dec := yaml.NewDecoder(file)
	dec.KnownFields(true)
	if err := dec.Decode(&conf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("can't parse config: %s, with error: %w", configPath, err)
	}

	conf.fillDefault()

	if conf.IDList != "" && !filepath.IsAbs(conf.IDList) {
		conf.IDList = filepath.Join(filepath.Dir(configPath), conf.IDList)
	}

	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}
	return &conf, nil
}

// LoadOrDefault behaves like Load but returns the defaults when the file
// does not exist.
func LoadOrDefault(afs afero.Fs, configPath string) (*Config, error) {
	exists, err := afero.Exists(afs, configPath)
	if err != nil {
		return nil, err
	}
	if !exists {
		return Default(), nil
	}
	return Load(afs, configPath)
}

func (c *Config) TimeBase() timebase.Config {
	tickRate := float64(constants.DefaultTickRate)
	if c.TickRate != nil {
		tickRate = *c.TickRate
	}
	precision := constants.DefaultPrecision
	if c.Precision != nil {
		precision = *c.Precision
	}
	return timebase.Config{
		TickRate:      tickRate,
		Precision:     precision,
		AutoPrecision: c.AutoPrecision,
		RelativeTime:  c.RelativeTime,
		LeadingTrim:   c.LeadingTrim,
		TrailingTrim:  c.TrailingTrim,
	}
}

// Validate rejects settings the pipeline cannot use.
func (c *Config) Validate() error {
	if err := c.TimeBase().Validate(); err != nil {
		return err
	}
	if c.FramePeriod < 0 {
		return fmt.Errorf("frame_period must not be negative: %v", c.FramePeriod)
	}
	if _, err := model.ParseSortOrder(c.Sort); err != nil {
		return err
	}
	if _, err := c.FrameMarker(); err != nil {
		return err
	}
	if c.Concurrency < 0 || c.CacheSize < 0 {
		return fmt.Errorf("concurrency and cache_size must not be negative")
	}
	if _, err := c.Definitions(); err != nil {
		return err
	}
	return nil
}

// FrameMarker parses frame_marker_id; an empty value disables overruns.
func (c *Config) FrameMarker() (*uint32, error) {
	if c.FrameMarkerID == "" {
		return nil, nil
	}
	id, err := registry.ParseIDValue(c.FrameMarkerID)
	if err != nil {
		return nil, fmt.Errorf("frame_marker_id: %w", err)
	}
	return &id, nil
}

// Definitions converts the ids section.
func (c *Config) Definitions() ([]registry.Definition, error) {
	defs := make([]registry.Definition, 0, len(c.IDs))
	for i, entry := range c.IDs {
		id, err := registry.ParseIDValue(entry.ID)
		if err != nil {
			return nil, fmt.Errorf("ids[%d]: %w", i, err)
		}
		def := registry.Definition{
			ID:       id,
			Name:     entry.Name,
			MinValue: entry.Min,
			MaxValue: entry.Max,
			Plot:     entry.Plot,
			Notes:    entry.Notes,
		}
		if entry.Color != "" {
			color, err := registry.ParseColor(entry.Color)
			if err != nil {
				return nil, fmt.Errorf("ids[%d]: %w", i, err)
			}
			def.Color = &color
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// AnalyzerConfig builds the pipeline settings.
func (c *Config) AnalyzerConfig() (analyzer.Config, error) {
	marker, err := c.FrameMarker()
	if err != nil {
		return analyzer.Config{}, err
	}
	order, err := model.ParseSortOrder(c.Sort)
	if err != nil {
		return analyzer.Config{}, err
	}
	return analyzer.Config{
		TimeBase:    c.TimeBase(),
		FrameMarker: marker,
		FramePeriod: c.FramePeriod,
		SortOrder:   order,
		Concurrency: c.Concurrency,
		CacheSize:   c.CacheSize,
	}, nil
}

// BuildRegistry applies the ID list file first and the ids section on top.
func (c *Config) BuildRegistry(afs afero.Fs) (*registry.Registry, error) {
	reg := registry.New()

	if c.IDList != "" {
		defs, err := registry.LoadIDListFile(afs, c.IDList)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.IDList, err)
		}
		reg.DefineAll(defs)
	}

	defs, err := c.Definitions()
	if err != nil {
		return nil, err
	}
	reg.DefineAll(defs)
	return reg, nil
}
