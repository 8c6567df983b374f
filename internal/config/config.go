package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MikeSquared-Agency/TariffIndex/internal/entity"
	"github.com/MikeSquared-Agency/TariffIndex/internal/factors"
	"github.com/MikeSquared-Agency/TariffIndex/internal/index"
	"github.com/MikeSquared-Agency/TariffIndex/internal/pricing"
)

type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Hermes        HermesConfig        `yaml:"hermes"`
	Redis         RedisConfig         `yaml:"redis"`
	Sources       SourcesConfig       `yaml:"sources"`
	Engine        EngineConfig        `yaml:"engine"`
	Entities      []entity.Info       `yaml:"entities"`
	Manufacturing ManufacturingConfig `yaml:"manufacturing"`
	ExportPrice   ExportPriceConfig   `yaml:"export_price"`
	Refresh       RefreshConfig       `yaml:"refresh"`
	Report        ReportConfig        `yaml:"report"`
	Logging       LoggingConfig       `yaml:"logging"`
}

type ServerConfig struct {
	Port           int     `yaml:"port"`
	MetricsPort    int     `yaml:"metrics_port"`
	AdminToken     string  `yaml:"admin_token"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`
}

// DatabaseConfig enables Postgres persistence when URL is set.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// HermesConfig enables event publishing when URL is set.
type HermesConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig enables the factor cache when Addr is set.
type RedisConfig struct {
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	TTLSeconds int    `yaml:"ttl_seconds"`
	KeyPrefix  string `yaml:"key_prefix"`
}

type SourcesConfig struct {
	// Kind is one of sample, file, postgres, http.
	Kind string `yaml:"kind"`
	// Dir holds snapshot.json for the file source.
	Dir string `yaml:"dir"`
	// Fallback serves sample data when the configured source fails.
	Fallback bool             `yaml:"fallback"`
	HTTP     HTTPSourceConfig `yaml:"http"`
}

type HTTPSourceConfig struct {
	URL       string  `yaml:"url"`
	Token     string  `yaml:"token"`
	RPS       float64 `yaml:"rps"`
	Burst     int     `yaml:"burst"`
	TimeoutMs int     `yaml:"timeout_ms"`
}

type EngineConfig struct {
	Reference       string  `yaml:"reference"`
	WeightTolerance float64 `yaml:"weight_tolerance"`
	StrictWeightSum bool    `yaml:"strict_weight_sum"`
}

type ManufacturingConfig struct {
	DefaultCategory string                   `yaml:"default_category"`
	Categories      map[string]index.Weights `yaml:"categories"`
}

type ExportPriceConfig struct {
	DefaultVariant string                   `yaml:"default_variant"`
	Variants       map[string]VariantConfig `yaml:"variants"`
	HSCodes        map[string]HSCodeConfig  `yaml:"hs_codes"`
}

type VariantConfig struct {
	Weights index.Weights `yaml:"weights"`
	Rebase  bool          `yaml:"rebase"`
}

type HSCodeConfig struct {
	Description string `yaml:"description"`
	Category    string `yaml:"category"`
}

type RefreshConfig struct {
	Enabled      bool `yaml:"enabled"`
	IntervalMs   int  `yaml:"interval_ms"`
	HistoryLimit int  `yaml:"history_limit"`
}

type ReportConfig struct {
	MarketLabel string `yaml:"market_label"`
	OutputDir   string `yaml:"output_dir"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Refresh.IntervalMs) * time.Millisecond
}

func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.Sources.HTTP.TimeoutMs) * time.Millisecond
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Redis.TTLSeconds) * time.Second
}

// Reference returns the configured reference entity.
func (c *Config) Reference() index.Entity {
	return index.Entity(c.Engine.Reference)
}

// Categories returns the configured manufacturing category names, sorted.
func (c *Config) Categories() []string {
	return sortedKeys(c.Manufacturing.Categories)
}

// Variants returns the configured export price variant names, sorted.
func (c *Config) Variants() []string {
	return sortedKeys(c.ExportPrice.Variants)
}

// Pricing converts the manufacturing and export price sections into
// calculator settings.
func (c *Config) Pricing() pricing.Settings {
	variants := make(map[string]pricing.Variant, len(c.ExportPrice.Variants))
	for name, v := range c.ExportPrice.Variants {
		variants[name] = pricing.Variant{Weights: v.Weights, Rebase: v.Rebase}
	}
	hs := make([]pricing.HSCode, 0, len(c.ExportPrice.HSCodes))
	for _, code := range sortedKeys(c.ExportPrice.HSCodes) {
		h := c.ExportPrice.HSCodes[code]
		hs = append(hs, pricing.HSCode{Code: code, Description: h.Description, Category: h.Category})
	}
	return pricing.Settings{
		Reference:       c.Reference(),
		DefaultCategory: c.Manufacturing.DefaultCategory,
		DefaultVariant:  c.ExportPrice.DefaultVariant,
		Categories:      c.Manufacturing.Categories,
		Variants:        variants,
		HSCodes:         hs,
	}
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:           8700,
			MetricsPort:    8701,
			RateLimitRPS:   20,
			RateLimitBurst: 40,
		},
		Hermes: HermesConfig{
			URL: "nats://localhost:4222",
		},
		Redis: RedisConfig{
			TTLSeconds: 3600,
			KeyPrefix:  "tariffindex:",
		},
		Sources: SourcesConfig{
			Kind:     "sample",
			Dir:      "data",
			Fallback: true,
			HTTP: HTTPSourceConfig{
				RPS:       5,
				Burst:     5,
				TimeoutMs: 10000,
			},
		},
		Engine: EngineConfig{
			Reference:       "KR",
			WeightTolerance: index.DefaultTolerance,
			StrictWeightSum: true,
		},
		Entities: entity.Defaults(),
		Manufacturing: ManufacturingConfig{
			DefaultCategory: "general",
			Categories: map[string]index.Weights{
				"general":   manufacturingWeights(0.10, 0.05, 0.35, 0.10, 0.15, 0.15, 0.10),
				"eps_motor": manufacturingWeights(0.05, 0.05, 0.40, 0.05, 0.25, 0.10, 0.10),
				"aluminium": manufacturingWeights(0.05, 0.05, 0.20, 0.05, 0.40, 0.20, 0.05),
			},
		},
		ExportPrice: ExportPriceConfig{
			DefaultVariant: "general",
			Variants: map[string]VariantConfig{
				"general": {Weights: exportWeights(0.8, 0.1, 0.1), Rebase: true},
				"hs_code": {Weights: exportWeights(0.7, 0.1, 0.2), Rebase: true},
			},
			HSCodes: map[string]HSCodeConfig{
				factors.HSDCMotors: {Description: "DC motors, output not exceeding 750 W", Category: "eps_motor"},
				factors.HSFans:     {Description: "Fans and blowers", Category: "general"},
			},
		},
		Refresh: RefreshConfig{
			Enabled:      false,
			IntervalMs:   24 * 60 * 60 * 1000,
			HistoryLimit: 100,
		},
		Report: ReportConfig{
			MarketLabel: "US market",
			OutputDir:   "reports",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func manufacturingWeights(tax, interest, labor, land, utility, logistics, fx float64) index.Weights {
	return index.Weights{
		factors.CorporateTax:    tax,
		factors.InterestRate:    interest,
		factors.LaborCost:       labor,
		factors.LandCost:        land,
		factors.UtilityCost:     utility,
		factors.LogisticsCost:   logistics,
		factors.FXInflationRisk: fx,
	}
}

func exportWeights(manufacturing, freight, tariff float64) index.Weights {
	return index.Weights{
		factors.ExportManufacturing: manufacturing,
		factors.ExportFreight:       freight,
		factors.ExportTariff:        tariff,
	}
}

// Validate checks the configuration for internal consistency. Weight sums
// are only enforced when the engine runs in strict mode.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.MetricsPort <= 0 {
		return fmt.Errorf("server ports must be positive")
	}
	reg, err := entity.NewRegistry(c.Entities)
	if err != nil {
		return err
	}
	if _, ok := reg.Lookup(c.Reference()); !ok {
		return fmt.Errorf("reference entity %q is not in entities", c.Engine.Reference)
	}
	if c.Engine.WeightTolerance < 0 {
		return fmt.Errorf("engine.weight_tolerance must not be negative")
	}

	if len(c.Manufacturing.Categories) == 0 {
		return fmt.Errorf("no manufacturing categories configured")
	}
	for _, name := range c.Categories() {
		if err := c.checkWeights("manufacturing category "+name, c.Manufacturing.Categories[name], factors.Manufacturing()); err != nil {
			return err
		}
	}
	if _, ok := c.Manufacturing.Categories[c.Manufacturing.DefaultCategory]; !ok {
		return fmt.Errorf("default category %q is not configured", c.Manufacturing.DefaultCategory)
	}

	exportFactors := []index.Factor{factors.ExportManufacturing, factors.ExportFreight, factors.ExportTariff}
	for _, name := range c.Variants() {
		if err := c.checkWeights("export variant "+name, c.ExportPrice.Variants[name].Weights, exportFactors); err != nil {
			return err
		}
	}
	if _, ok := c.ExportPrice.Variants[c.ExportPrice.DefaultVariant]; !ok {
		return fmt.Errorf("default variant %q is not configured", c.ExportPrice.DefaultVariant)
	}
	for code, hs := range c.ExportPrice.HSCodes {
		if _, ok := c.Manufacturing.Categories[hs.Category]; !ok {
			return fmt.Errorf("hs code %s maps to unknown category %q", code, hs.Category)
		}
	}

	switch c.Sources.Kind {
	case "sample", "file", "postgres", "http":
	default:
		return fmt.Errorf("unknown source kind %q", c.Sources.Kind)
	}
	if c.Sources.Kind == "postgres" && c.Database.URL == "" {
		return fmt.Errorf("source kind postgres requires database.url")
	}
	if c.Sources.Kind == "http" && c.Sources.HTTP.URL == "" {
		return fmt.Errorf("source kind http requires sources.http.url")
	}

	if c.Refresh.Enabled && c.Refresh.IntervalMs <= 0 {
		return fmt.Errorf("refresh.interval_ms must be positive")
	}
	if c.Refresh.HistoryLimit <= 0 {
		return fmt.Errorf("refresh.history_limit must be positive")
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unknown logging format %q", c.Logging.Format)
	}
	return nil
}

func (c *Config) checkWeights(name string, w index.Weights, want []index.Factor) error {
	if len(w) != len(want) {
		return fmt.Errorf("%s: expected %d weights, got %d", name, len(want), len(w))
	}
	for _, f := range want {
		if _, ok := w[f]; !ok {
			return fmt.Errorf("%s: missing weight for %s", name, f)
		}
	}
	tol := c.Engine.WeightTolerance
	if !c.Engine.StrictWeightSum {
		// Sum violations are tolerated at compute time; only shape is checked here.
		for _, f := range w.Factors() {
			if w[f] < 0 {
				return fmt.Errorf("%s: %w", name, &index.Error{Op: "validate weights", Kind: index.ErrNegativeWeight, Factor: f})
			}
		}
		return nil
	}
	if err := w.Validate(tol); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("TARIFFINDEX_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("TARIFFINDEX_METRICS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MetricsPort = n
		}
	}
	if v := os.Getenv("TARIFFINDEX_ADMIN_TOKEN"); v != "" {
		cfg.Server.AdminToken = v
	}
	if v := os.Getenv("TARIFFINDEX_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("TARIFFINDEX_HERMES_URL"); v != "" {
		cfg.Hermes.URL = v
	}
	if v := os.Getenv("TARIFFINDEX_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("TARIFFINDEX_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("TARIFFINDEX_SOURCE_KIND"); v != "" {
		cfg.Sources.Kind = v
	}
	if v := os.Getenv("TARIFFINDEX_SOURCE_DIR"); v != "" {
		cfg.Sources.Dir = v
	}
	if v := os.Getenv("TARIFFINDEX_SOURCE_HTTP_URL"); v != "" {
		cfg.Sources.HTTP.URL = v
	}
	if v := os.Getenv("TARIFFINDEX_SOURCE_HTTP_TOKEN"); v != "" {
		cfg.Sources.HTTP.Token = v
	}
	if v := os.Getenv("TARIFFINDEX_REFERENCE"); v != "" {
		cfg.Engine.Reference = v
	}
	if v := os.Getenv("TARIFFINDEX_STRICT_WEIGHT_SUM"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Engine.StrictWeightSum = b
		}
	}
	if v := os.Getenv("TARIFFINDEX_REFRESH_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Refresh.Enabled = b
		}
	}
	if v := os.Getenv("TARIFFINDEX_REFRESH_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Refresh.IntervalMs = n
		}
	}
	if v := os.Getenv("TARIFFINDEX_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TARIFFINDEX_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
