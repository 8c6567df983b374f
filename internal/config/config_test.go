package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MikeSquared-Agency/TariffIndex/internal/factors"
)

var envVars = []string{
	"TARIFFINDEX_PORT", "TARIFFINDEX_METRICS_PORT", "TARIFFINDEX_ADMIN_TOKEN",
	"TARIFFINDEX_DATABASE_URL", "TARIFFINDEX_HERMES_URL", "TARIFFINDEX_REDIS_ADDR",
	"TARIFFINDEX_REDIS_PASSWORD", "TARIFFINDEX_SOURCE_KIND", "TARIFFINDEX_SOURCE_DIR",
	"TARIFFINDEX_SOURCE_HTTP_URL", "TARIFFINDEX_SOURCE_HTTP_TOKEN", "TARIFFINDEX_REFERENCE",
	"TARIFFINDEX_STRICT_WEIGHT_SUM", "TARIFFINDEX_REFRESH_ENABLED",
	"TARIFFINDEX_REFRESH_INTERVAL_MS", "TARIFFINDEX_LOG_LEVEL", "TARIFFINDEX_LOG_FORMAT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envVars {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tariffindex.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8700 {
		t.Errorf("expected port 8700, got %d", cfg.Server.Port)
	}
	if cfg.Server.MetricsPort != 8701 {
		t.Errorf("expected metrics port 8701, got %d", cfg.Server.MetricsPort)
	}
	if cfg.Hermes.URL != "nats://localhost:4222" {
		t.Errorf("expected nats URL, got %s", cfg.Hermes.URL)
	}
	if cfg.Sources.Kind != "sample" {
		t.Errorf("expected sample source, got %s", cfg.Sources.Kind)
	}
	if cfg.Reference() != "KR" {
		t.Errorf("expected reference KR, got %s", cfg.Reference())
	}
	if !cfg.Engine.StrictWeightSum {
		t.Error("expected strict weight sum by default")
	}
	if len(cfg.Entities) != 9 {
		t.Errorf("expected 9 entities, got %d", len(cfg.Entities))
	}
	if cfg.Refresh.HistoryLimit != 100 {
		t.Errorf("expected history limit 100, got %d", cfg.Refresh.HistoryLimit)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got '%s'", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("expected log format 'json', got '%s'", cfg.Logging.Format)
	}

	if got := strings.Join(cfg.Categories(), ","); got != "aluminium,eps_motor,general" {
		t.Errorf("unexpected categories %s", got)
	}
	if got := strings.Join(cfg.Variants(), ","); got != "general,hs_code" {
		t.Errorf("unexpected variants %s", got)
	}
	for _, name := range cfg.Categories() {
		if sum := cfg.Manufacturing.Categories[name].Sum(); math.Abs(sum-1.0) > 1e-9 {
			t.Errorf("category %s weights sum to %f", name, sum)
		}
	}
	if w := cfg.Manufacturing.Categories["eps_motor"][factors.LaborCost]; w != 0.40 {
		t.Errorf("expected eps_motor labor weight 0.40, got %f", w)
	}
	if hs := cfg.ExportPrice.HSCodes[factors.HSDCMotors]; hs.Category != "eps_motor" {
		t.Errorf("expected 8501.31 to map to eps_motor, got %q", hs.Category)
	}
	if v := cfg.ExportPrice.Variants["hs_code"]; !v.Rebase || v.Weights[factors.ExportTariff] != 0.2 {
		t.Errorf("unexpected hs_code variant %+v", v)
	}

	if cfg.RefreshInterval() != 24*time.Hour {
		t.Errorf("expected RefreshInterval 24h, got %v", cfg.RefreshInterval())
	}
	if cfg.HTTPTimeout() != 10*time.Second {
		t.Errorf("expected HTTPTimeout 10s, got %v", cfg.HTTPTimeout())
	}
	if cfg.CacheTTL() != time.Hour {
		t.Errorf("expected CacheTTL 1h, got %v", cfg.CacheTTL())
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("TARIFFINDEX_PORT", "9000")
	t.Setenv("TARIFFINDEX_METRICS_PORT", "9001")
	t.Setenv("TARIFFINDEX_ADMIN_TOKEN", "secret-token")
	t.Setenv("TARIFFINDEX_DATABASE_URL", "postgres://localhost/tariffindex_test")
	t.Setenv("TARIFFINDEX_HERMES_URL", "nats://nats:4222")
	t.Setenv("TARIFFINDEX_REDIS_ADDR", "redis:6379")
	t.Setenv("TARIFFINDEX_SOURCE_KIND", "postgres")
	t.Setenv("TARIFFINDEX_REFERENCE", "JP")
	t.Setenv("TARIFFINDEX_STRICT_WEIGHT_SUM", "false")
	t.Setenv("TARIFFINDEX_REFRESH_ENABLED", "true")
	t.Setenv("TARIFFINDEX_REFRESH_INTERVAL_MS", "60000")
	t.Setenv("TARIFFINDEX_LOG_LEVEL", "debug")
	t.Setenv("TARIFFINDEX_LOG_FORMAT", "text")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	if cfg.Server.MetricsPort != 9001 {
		t.Errorf("expected metrics port 9001, got %d", cfg.Server.MetricsPort)
	}
	if cfg.Server.AdminToken != "secret-token" {
		t.Errorf("expected admin token 'secret-token', got '%s'", cfg.Server.AdminToken)
	}
	if cfg.Database.URL != "postgres://localhost/tariffindex_test" {
		t.Errorf("expected database URL, got '%s'", cfg.Database.URL)
	}
	if cfg.Hermes.URL != "nats://nats:4222" {
		t.Errorf("expected hermes URL, got '%s'", cfg.Hermes.URL)
	}
	if cfg.Redis.Addr != "redis:6379" {
		t.Errorf("expected redis addr, got '%s'", cfg.Redis.Addr)
	}
	if cfg.Sources.Kind != "postgres" {
		t.Errorf("expected postgres source, got '%s'", cfg.Sources.Kind)
	}
	if cfg.Reference() != "JP" {
		t.Errorf("expected reference JP, got %s", cfg.Reference())
	}
	if cfg.Engine.StrictWeightSum {
		t.Error("expected strict weight sum disabled")
	}
	if !cfg.Refresh.Enabled || cfg.RefreshInterval() != time.Minute {
		t.Errorf("expected refresh every minute, got enabled=%v interval=%v", cfg.Refresh.Enabled, cfg.RefreshInterval())
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got '%s'", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("expected log format 'text', got '%s'", cfg.Logging.Format)
	}
}

func TestLoadFromFileMergesCategories(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
server:
  port: 9100
manufacturing:
  default_category: battery
  categories:
    battery:
      corporate_tax: 0.10
      interest_rate: 0.10
      labor_cost: 0.20
      land_cost: 0.10
      utility_cost: 0.30
      logistics_cost: 0.10
      fx_inflation_risk: 0.10
report:
  market_label: EU market
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("expected port 9100, got %d", cfg.Server.Port)
	}
	if cfg.Server.MetricsPort != 8701 {
		t.Errorf("expected default metrics port to survive, got %d", cfg.Server.MetricsPort)
	}
	if len(cfg.Manufacturing.Categories) != 4 {
		t.Errorf("expected file category merged with defaults, got %v", cfg.Categories())
	}
	if cfg.Manufacturing.DefaultCategory != "battery" {
		t.Errorf("expected default category battery, got %s", cfg.Manufacturing.DefaultCategory)
	}
	if cfg.Report.MarketLabel != "EU market" {
		t.Errorf("expected market label override, got %s", cfg.Report.MarketLabel)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "weights do not sum to one",
			body: `
manufacturing:
  categories:
    general:
      corporate_tax: 0.5
      interest_rate: 0.5
      labor_cost: 0.5
      land_cost: 0.0
      utility_cost: 0.0
      logistics_cost: 0.0
      fx_inflation_risk: 0.0
`,
			want: "weight sum invariant violated",
		},
		{
			name: "missing factor weight",
			body: `
export_price:
  variants:
    general:
      rebase: true
      weights:
        manufacturing: 0.9
        freight: 0.1
`,
			want: "expected 3 weights",
		},
		{
			name: "unknown reference",
			body: "engine:\n  reference: BR\n",
			want: "reference entity",
		},
		{
			name: "unknown source kind",
			body: "sources:\n  kind: ftp\n",
			want: "unknown source kind",
		},
		{
			name: "http source without url",
			body: "sources:\n  kind: http\n",
			want: "requires sources.http.url",
		},
		{
			name: "hs code with unknown category",
			body: "export_price:\n  hs_codes:\n    \"8471.30\":\n      category: laptops\n",
			want: "unknown category",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestTolerantModeAllowsSumDrift(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
engine:
  strict_weight_sum: false
export_price:
  variants:
    general:
      rebase: true
      weights:
        manufacturing: 0.8
        freight: 0.1
        tariff: 0.2
`)
	if _, err := Load(path); err != nil {
		t.Fatalf("expected tolerant config to load, got %v", err)
	}
}

func TestPricingSettings(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s := cfg.Pricing()
	if s.Reference != "KR" {
		t.Errorf("expected reference KR, got %s", s.Reference)
	}
	if len(s.Categories) != 3 {
		t.Errorf("expected 3 categories, got %d", len(s.Categories))
	}
	if v, ok := s.Variants["hs_code"]; !ok || !v.Rebase {
		t.Errorf("expected rebased hs_code variant, got %+v", v)
	}
	if len(s.HSCodes) != 2 || s.HSCodes[0].Code != "8414.59" || s.HSCodes[1].Category != "eps_motor" {
		t.Errorf("unexpected hs codes %+v", s.HSCodes)
	}
}
