package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ZehenForever/dpsboard/internal/engine"
	"github.com/ZehenForever/dpsboard/internal/feed"
	"github.com/ZehenForever/dpsboard/internal/httpapi"
	"github.com/ZehenForever/dpsboard/internal/model"
	"github.com/ZehenForever/dpsboard/internal/ranking"
	"github.com/ZehenForever/dpsboard/internal/render"
	"github.com/ZehenForever/dpsboard/internal/series"
)

type AppConfig struct {
	Feed struct {
		URL    string `yaml:"url"`
		Record string `yaml:"record"`
	} `yaml:"feed"`
	Render struct {
		Debounce string `yaml:"debounce"`
	} `yaml:"render"`
	Sampling struct {
		Interval string `yaml:"interval"`
		Capacity int    `yaml:"capacity"`
		TopN     int    `yaml:"topN"`
	} `yaml:"sampling"`
	Idle struct {
		Timeout string `yaml:"timeout"`
		Check   string `yaml:"check"`
	} `yaml:"idle"`
	UI struct {
		View     string `yaml:"view"`
		BossMode string `yaml:"bossMode"`
		Single   bool   `yaml:"single"`
		Chart    bool   `yaml:"chart"`
	} `yaml:"ui"`
	API struct {
		Addr string `yaml:"addr"`
	} `yaml:"api"`
	Export struct {
		Dir string `yaml:"dir"`
	} `yaml:"export"`
}

func DefaultConfig() AppConfig {
	var cfg AppConfig
	cfg.Feed.URL = feed.DefaultURL
	cfg.Render.Debounce = render.DefaultDebounce.String()
	cfg.Sampling.Interval = render.DefaultSampleEvery.String()
	cfg.Sampling.Capacity = series.DefaultCapacity
	cfg.Sampling.TopN = series.DefaultTopN
	cfg.Idle.Timeout = engine.DefaultIdleTimeout.String()
	cfg.Idle.Check = engine.DefaultIdleCheck.String()
	cfg.UI.View = "card"
	cfg.UI.BossMode = string(model.BossLastAttacked)
	cfg.API.Addr = httpapi.DefaultAddr
	cfg.Export.Dir = defaultExportDir()
	return cfg
}

func LoadConfig() (cfg AppConfig, path string, err error) {
	cfg = DefaultConfig()

	envPath := strings.TrimSpace(os.Getenv("DPSBOARD_CONFIG"))
	if envPath != "" {
		b, readErr := os.ReadFile(envPath)
		if readErr != nil {
			if errors.Is(readErr, os.ErrNotExist) {
				return cfg, "", nil
			}
			return cfg, envPath, readErr
		}
		return overlayFile(cfg, envPath, b)
	}

	for _, p := range candidateConfigPaths() {
		if strings.TrimSpace(p) == "" {
			continue
		}
		b, readErr := os.ReadFile(p)
		if readErr != nil {
			if errors.Is(readErr, os.ErrNotExist) {
				continue
			}
			// Found path, but cannot read.
			return cfg, p, readErr
		}
		return overlayFile(cfg, p, b)
	}

	return cfg, "", nil
}

func overlayFile(def AppConfig, path string, b []byte) (AppConfig, string, error) {
	var raw AppConfig
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return def, path, err
	}
	cfg := def
	overlay(&cfg, raw)
	if err := cfg.validate(); err != nil {
		return def, path, err
	}
	return cfg, path, nil
}

// overlay copies non-empty and positive values from raw.
func overlay(cfg *AppConfig, raw AppConfig) {
	str := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	str(&cfg.Feed.URL, raw.Feed.URL)
	str(&cfg.Feed.Record, raw.Feed.Record)
	str(&cfg.Render.Debounce, raw.Render.Debounce)
	str(&cfg.Sampling.Interval, raw.Sampling.Interval)
	str(&cfg.Idle.Timeout, raw.Idle.Timeout)
	str(&cfg.Idle.Check, raw.Idle.Check)
	str(&cfg.UI.View, raw.UI.View)
	str(&cfg.UI.BossMode, raw.UI.BossMode)
	str(&cfg.API.Addr, raw.API.Addr)
	str(&cfg.Export.Dir, raw.Export.Dir)
	if raw.Sampling.Capacity > 0 {
		cfg.Sampling.Capacity = raw.Sampling.Capacity
	}
	if raw.Sampling.TopN > 0 {
		cfg.Sampling.TopN = raw.Sampling.TopN
	}
	if raw.UI.Single {
		cfg.UI.Single = true
	}
	if raw.UI.Chart {
		cfg.UI.Chart = true
	}
}

func (c AppConfig) validate() error {
	for _, d := range []struct{ key, val string }{
		{"render.debounce", c.Render.Debounce},
		{"sampling.interval", c.Sampling.Interval},
		{"idle.timeout", c.Idle.Timeout},
		{"idle.check", c.Idle.Check},
	} {
		v, err := time.ParseDuration(d.val)
		if err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
		if v <= 0 {
			return fmt.Errorf("%s: must be positive", d.key)
		}
	}
	return nil
}

// EngineConfig converts the validated config into engine settings.
func (c AppConfig) EngineConfig() engine.Config {
	return engine.Config{
		Mode:           ranking.Mode{Boss: model.ParseBossMode(c.UI.BossMode), Single: c.UI.Single},
		IdleTimeout:    mustDuration(c.Idle.Timeout, engine.DefaultIdleTimeout),
		SampleCapacity: c.Sampling.Capacity,
		TopN:           c.Sampling.TopN,
		Debounce:       mustDuration(c.Render.Debounce, render.DefaultDebounce),
		SampleEvery:    mustDuration(c.Sampling.Interval, render.DefaultSampleEvery),
	}
}

func (c AppConfig) IdleCheck() time.Duration {
	return mustDuration(c.Idle.Check, engine.DefaultIdleCheck)
}

func mustDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func candidateConfigPaths() []string {
	var out []string

	if exe, err := os.Executable(); err == nil {
		out = append(out, filepath.Join(filepath.Dir(exe), "dpsboard.yaml"))
	}

	if base, err := os.UserConfigDir(); err == nil {
		out = append(out, filepath.Join(base, appFolder(), "dpsboard.yaml"))
	}

	return out
}

func appFolder() string {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		return "DPSBoard"
	}
	return "dpsboard"
}

func defaultExportDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, appFolder())
}
