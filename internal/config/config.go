// Package config loads pintmap configuration with viper and bootstraps logging.
package config

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/pintmap/internal/assign"
	"github.com/sells-group/pintmap/internal/crs"
	"github.com/sells-group/pintmap/internal/export"
	"github.com/sells-group/pintmap/internal/model"
	"github.com/sells-group/pintmap/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Area       AreaConfig       `yaml:"area" mapstructure:"area"`
	Regions    RegionsConfig    `yaml:"regions" mapstructure:"regions"`
	Projection ProjectionConfig `yaml:"projection" mapstructure:"projection"`
	Data       DataConfig       `yaml:"data" mapstructure:"data"`
	Guindex    GuindexConfig    `yaml:"guindex" mapstructure:"guindex"`
	Assign     AssignConfig     `yaml:"assign" mapstructure:"assign"`
	Aggregate  AggregateConfig  `yaml:"aggregate" mapstructure:"aggregate"`
	Output     OutputConfig     `yaml:"output" mapstructure:"output"`
	Render     RenderConfig     `yaml:"render" mapstructure:"render"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// AreaConfig selects the observations to analyse.
type AreaConfig struct {
	County string `yaml:"county" mapstructure:"county"`
	Years  []int  `yaml:"years" mapstructure:"years"`
}

// RegionsConfig locates the region polygons and the ordered code list.
type RegionsConfig struct {
	Shapefile  string           `yaml:"shapefile" mapstructure:"shapefile"`
	ArchiveURL string           `yaml:"archive_url" mapstructure:"archive_url"`
	CodeField  string           `yaml:"code_field" mapstructure:"code_field"`
	NameField  string           `yaml:"name_field" mapstructure:"name_field"`
	SourceCRS  string           `yaml:"source_crs" mapstructure:"source_crs"`
	Codes      []model.CodeName `yaml:"codes" mapstructure:"codes"`
}

// ProjectionConfig sets the reference system regions and points are compared in.
type ProjectionConfig struct {
	TargetCRS string `yaml:"target_crs" mapstructure:"target_crs"`
}

// DataConfig locates the local CSV caches.
type DataConfig struct {
	Dir       string `yaml:"dir" mapstructure:"dir"`
	PintsFile string `yaml:"pints_file" mapstructure:"pints_file"`
	PubsFile  string `yaml:"pubs_file" mapstructure:"pubs_file"`
}

// PintsPath is the observation cache path.
func (d DataConfig) PintsPath() string {
	return filepath.Join(d.Dir, d.PintsFile)
}

// PubsPath is the known-point cache path. Empty when PubsFile is unset.
func (d DataConfig) PubsPath() string {
	if d.PubsFile == "" {
		return ""
	}
	return filepath.Join(d.Dir, d.PubsFile)
}

// GuindexConfig configures the remote pricing API.
type GuindexConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
	PageSize    int     `yaml:"page_size" mapstructure:"page_size"`
}

// AssignConfig configures point-in-region assignment.
type AssignConfig struct {
	Workers  int    `yaml:"workers" mapstructure:"workers"`
	Boundary string `yaml:"boundary" mapstructure:"boundary"`
}

// AggregateConfig configures aggregation outputs.
type AggregateConfig struct {
	MinRidgelineObservations int `yaml:"min_ridgeline_observations" mapstructure:"min_ridgeline_observations"`
}

// OutputConfig sets where and what to export.
type OutputConfig struct {
	Dir     string   `yaml:"dir" mapstructure:"dir"`
	Formats []string `yaml:"formats" mapstructure:"formats"`
}

// RenderConfig configures the plot renderer.
type RenderConfig struct {
	Enabled  bool    `yaml:"enabled" mapstructure:"enabled"`
	Labels   bool    `yaml:"labels" mapstructure:"labels"`
	WidthIn  float64 `yaml:"width_in" mapstructure:"width_in"`
	HeightIn float64 `yaml:"height_in" mapstructure:"height_in"`
}

// StoreConfig configures the run history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DublinRegions is the default catalog: the Dublin routing keys in plotting order.
var DublinRegions = []model.CodeName{
	{Code: "D01", Name: "Dublin 1"},
	{Code: "D02", Name: "Dublin 2"},
	{Code: "D03", Name: "Dublin 3"},
	{Code: "D04", Name: "Dublin 4"},
	{Code: "D05", Name: "Dublin 5"},
	{Code: "D06", Name: "Dublin 6"},
	{Code: "D6W", Name: "Dublin 6 West"},
	{Code: "D07", Name: "Dublin 7"},
	{Code: "D08", Name: "Dublin 8"},
	{Code: "D09", Name: "Dublin 9"},
	{Code: "D10", Name: "Dublin 10"},
	{Code: "D11", Name: "Dublin 11"},
	{Code: "D12", Name: "Dublin 12"},
	{Code: "D13", Name: "Dublin 13"},
	{Code: "D14", Name: "Dublin 14"},
	{Code: "D15", Name: "Dublin 15"},
	{Code: "D16", Name: "Dublin 16"},
	{Code: "D17", Name: "Dublin 17"},
	{Code: "D18", Name: "Dublin 18"},
	{Code: "D20", Name: "Dublin 20"},
	{Code: "D22", Name: "Dublin 22"},
	{Code: "D24", Name: "Dublin 24"},
	{Code: "K32", Name: "Balbriggan"},
	{Code: "A41", Name: "Ballyboughal"},
	{Code: "A94", Name: "Blackrock"},
	{Code: "A42", Name: "Garristown"},
	{Code: "A96", Name: "Glenageary"},
	{Code: "K78", Name: "Lucan"},
	{Code: "K45", Name: "Lusk"},
	{Code: "K36", Name: "Malahide"},
	{Code: "A45", Name: "Oldtown"},
	{Code: "K56", Name: "Rush"},
	{Code: "K34", Name: "Skerries"},
	{Code: "K67", Name: "Swords"},
}

// Load reads configuration from ./config.yaml (optional) and PINTMAP_* environment
// variables.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. An empty path searches the
// working directory for config.yaml.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("PINTMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	codes := make([]map[string]any, len(DublinRegions))
	for i, c := range DublinRegions {
		codes[i] = map[string]any{"code": c.Code, "name": c.Name}
	}

	v.SetDefault("area.county", "Dublin")
	v.SetDefault("area.years", []int{2017, 2018})
	v.SetDefault("regions.shapefile", "data/routing_keys/RoutingKeys_region.shp")
	v.SetDefault("regions.archive_url", "")
	v.SetDefault("regions.code_field", "RoutingKey")
	v.SetDefault("regions.name_field", "Descriptor")
	v.SetDefault("regions.source_crs", crs.WGS84)
	v.SetDefault("regions.codes", codes)
	v.SetDefault("projection.target_crs", crs.WGS84)
	v.SetDefault("data.dir", "data")
	v.SetDefault("data.pints_file", "pints.csv")
	v.SetDefault("data.pubs_file", "")
	v.SetDefault("guindex.base_url", "https://guindex.ie/api")
	v.SetDefault("guindex.rate_limit", 2.0)
	v.SetDefault("guindex.timeout_secs", 30)
	v.SetDefault("guindex.max_retries", 3)
	v.SetDefault("guindex.page_size", 500)
	v.SetDefault("assign.workers", 4)
	v.SetDefault("assign.boundary", string(assign.BoundaryInclusive))
	v.SetDefault("aggregate.min_ridgeline_observations", 3)
	v.SetDefault("output.dir", "results")
	v.SetDefault("output.formats", []string{"csv", "xlsx", "geojson"})
	v.SetDefault("render.enabled", true)
	v.SetDefault("render.labels", false)
	v.SetDefault("render.width_in", 16.0)
	v.SetDefault("render.height_in", 9.0)
	v.SetDefault("store.driver", store.DriverSQLite)
	v.SetDefault("store.database_url", "pintmap.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if len(c.Regions.Codes) == 0 {
		return eris.New("config: regions.codes is empty")
	}
	seen := make(map[string]struct{}, len(c.Regions.Codes))
	names := make(map[string]struct{}, len(c.Regions.Codes))
	for _, cn := range c.Regions.Codes {
		if strings.TrimSpace(cn.Code) == "" || strings.TrimSpace(cn.Name) == "" {
			return eris.Errorf("config: regions.codes entry %+v needs both code and name", cn)
		}
		if _, dup := seen[cn.Code]; dup {
			return eris.Errorf("config: regions.codes has duplicate code %q", cn.Code)
		}
		if _, dup := names[cn.Name]; dup {
			return eris.Errorf("config: regions.codes has duplicate name %q", cn.Name)
		}
		seen[cn.Code] = struct{}{}
		names[cn.Name] = struct{}{}
	}
	if c.Regions.CodeField == "" {
		return eris.New("config: regions.code_field is required")
	}
	for _, code := range []string{c.Regions.SourceCRS, c.Projection.TargetCRS} {
		if _, err := crs.Lookup(code); err != nil {
			return eris.Wrap(err, "config: projection")
		}
	}
	for _, y := range c.Area.Years {
		if y < 1900 || y > 2200 {
			return eris.Errorf("config: area.years has implausible year %d", y)
		}
	}
	if c.Data.PintsFile == "" {
		return eris.New("config: data.pints_file is required")
	}
	if _, err := assign.ParseBoundary(c.Assign.Boundary); err != nil {
		return eris.Wrap(err, "config: assign.boundary")
	}
	if c.Assign.Workers < 0 {
		return eris.Errorf("config: assign.workers must be >= 0, got %d", c.Assign.Workers)
	}
	if c.Aggregate.MinRidgelineObservations < 0 {
		return eris.Errorf("config: aggregate.min_ridgeline_observations must be >= 0, got %d",
			c.Aggregate.MinRidgelineObservations)
	}
	if _, err := c.Output.ParsedFormats(); err != nil {
		return eris.Wrap(err, "config: output.formats")
	}
	if c.Guindex.RateLimit <= 0 {
		return eris.New("config: guindex.rate_limit must be positive")
	}
	switch c.Store.Driver {
	case store.DriverSQLite, store.DriverPostgres:
		if c.Store.DatabaseURL == "" {
			return eris.Errorf("config: store.database_url is required for driver %q", c.Store.Driver)
		}
	case store.DriverNone:
	default:
		return eris.Errorf("config: unknown store.driver %q", c.Store.Driver)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return eris.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return eris.Wrap(err, "config: log.level")
	}
	return nil
}

// ParsedFormats returns the export formats as typed values.
func (o OutputConfig) ParsedFormats() ([]export.Format, error) {
	out := make([]export.Format, 0, len(o.Formats))
	for _, f := range o.Formats {
		pf, err := export.ParseFormat(strings.ToLower(strings.TrimSpace(f)))
		if err != nil {
			return nil, err
		}
		out = append(out, pf)
	}
	return out, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
