// Package config loads the application configuration and initializes
// the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Scene       SceneConfig       `yaml:"scene" mapstructure:"scene"`
	Boundary    BoundaryConfig    `yaml:"boundary" mapstructure:"boundary"`
	Training    TrainingConfig    `yaml:"training" mapstructure:"training"`
	Reflectance ReflectanceConfig `yaml:"reflectance" mapstructure:"reflectance"`
	Tree        TreeConfig        `yaml:"tree" mapstructure:"tree"`
	Classify    ClassifyConfig    `yaml:"classify" mapstructure:"classify"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// SceneConfig locates the multi-band scene.
type SceneConfig struct {
	Dir       string   `yaml:"dir" mapstructure:"dir"`
	BandNames []string `yaml:"band_names" mapstructure:"band_names"`
	Proj4     string   `yaml:"proj4" mapstructure:"proj4"`
}

// BoundaryConfig locates the clipping boundary. Proj4 overrides the
// shapefile's .prj when set.
type BoundaryConfig struct {
	Path  string `yaml:"path" mapstructure:"path"`
	Proj4 string `yaml:"proj4" mapstructure:"proj4"`
}

// TrainingConfig locates the labeled training-site polygons.
type TrainingConfig struct {
	Path       string `yaml:"path" mapstructure:"path"`
	LabelField string `yaml:"label_field" mapstructure:"label_field"`
	Proj4      string `yaml:"proj4" mapstructure:"proj4"`
}

// ReflectanceConfig holds the DN-to-reflectance conversion constants.
type ReflectanceConfig struct {
	ValidMin float64 `yaml:"valid_min" mapstructure:"valid_min"`
	ValidMax float64 `yaml:"valid_max" mapstructure:"valid_max"`
	Scale    float64 `yaml:"scale" mapstructure:"scale"`
	Offset   float64 `yaml:"offset" mapstructure:"offset"`
}

// TreeConfig holds the decision-tree stopping rules.
type TreeConfig struct {
	MaxDepth            int     `yaml:"max_depth" mapstructure:"max_depth"`
	MinSamplesLeaf      int     `yaml:"min_samples_leaf" mapstructure:"min_samples_leaf"`
	MinImpurityDecrease float64 `yaml:"min_impurity_decrease" mapstructure:"min_impurity_decrease"`
}

// ClassifyConfig configures per-pixel classification.
type ClassifyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// OutputConfig locates run artifacts.
type OutputConfig struct {
	Dir     string `yaml:"dir" mapstructure:"dir"`
	MapPNG  string `yaml:"map_png" mapstructure:"map_png"`
	GridASC string `yaml:"grid_asc" mapstructure:"grid_asc"`
	Report  string `yaml:"report" mapstructure:"report"`
	Palette string `yaml:"palette" mapstructure:"palette"`
}

// StoreConfig configures the run database.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LANDCOVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("scene.dir", "scene")
	v.SetDefault("scene.band_names", []string{"blue", "green", "red", "nir", "swir1", "swir2", "thermal"})
	v.SetDefault("scene.proj4", "+proj=utm +zone=11 +datum=WGS84 +units=m +no_defs")
	v.SetDefault("training.label_field", "CLASS")
	v.SetDefault("reflectance.valid_min", 7273)
	v.SetDefault("reflectance.valid_max", 43636)
	v.SetDefault("reflectance.scale", 0.0000275)
	v.SetDefault("reflectance.offset", -0.2)
	v.SetDefault("tree.max_depth", 12)
	v.SetDefault("tree.min_samples_leaf", 1)
	v.SetDefault("tree.min_impurity_decrease", 1e-7)
	v.SetDefault("classify.workers", 0)
	v.SetDefault("output.dir", "out")
	v.SetDefault("output.map_png", "landcover.png")
	v.SetDefault("output.grid_asc", "landcover.asc")
	v.SetDefault("output.report", "class_areas.xlsx")
	v.SetDefault("store.path", "landcover.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
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
