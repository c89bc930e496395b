package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Kind is the only config kind this app reads.
const Kind = "mazerl"

// EnvPrefix prefixes environment overrides, e.g. MAZERL_DEF_SERVER_PORT=9090.
const EnvPrefix = "MAZERL"

var ErrKind = errors.New("config: unexpected kind")

type OuterConfig struct {
	Kind string      `mapstructure:"kind"`
	Def  interface{} `mapstructure:"def"`
}

// AppConfig is the def block of the config file. Viper lowercases every key it
// reads, so the yaml tags are lowercase too.
type AppConfig struct {
	Server     Server     `yaml:"server"`
	Training   Training   `yaml:"training"`
	Generation Generation `yaml:"generation"`
	Store      Store      `yaml:"store"`
}

type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// StepDelay paces animated simulation runs.
	StepDelay time.Duration `yaml:"stepdelay"`
}

func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type Training struct {
	// ServiceURL is the base url of the external training service.
	ServiceURL   string        `yaml:"serviceurl"`
	PollInterval time.Duration `yaml:"pollinterval"`
	Algorithm    string        `yaml:"algorithm"`
	MCMethod     string        `yaml:"mcmethod"`
	// HyperParams is a key-val pair of param names and their value. Any
	// param given here overrides the per-tier preset.
	HyperParams []HyperParameter `yaml:"hyperparams"`
}

type HyperParameter struct {
	Key string  `yaml:"key"`
	Val float64 `yaml:"val"`
}

func (cfg *Training) GetHyperParamOrDefault(param string, defaultVal float64) float64 {
	for _, kvp := range cfg.HyperParams {
		if kvp.Key == param {
			return kvp.Val
		}
	}
	return defaultVal
}

type Generation struct {
	MaxAttempts     int `yaml:"maxattempts"`
	CloseMatchAfter int `yaml:"closematchafter"`
	// Seed fixes the generator's random source; zero seeds from the clock.
	Seed int64 `yaml:"seed"`
}

// Store selects and addresses the saved-maze backend.
type Store struct {
	// Kind is one of file, mongo, redis.
	Kind string `yaml:"kind"`
	// Path is the json file for the file store.
	Path string `yaml:"path"`
	// URI, Database and Collection address the mongo store.
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
	// Addr and Key address the redis store; Key names the hash.
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	Key      string `yaml:"key"`
}

// Default returns a config that runs locally without any file.
func Default() *AppConfig {
	return &AppConfig{
		Server: Server{
			Host:      "localhost",
			Port:      8080,
			StepDelay: 250 * time.Millisecond,
		},
		Training: Training{
			ServiceURL:   "http://localhost:8000",
			PollInterval: time.Second,
			Algorithm:    QLearning,
			MCMethod:     FirstVisit,
		},
		Generation: Generation{
			MaxAttempts:     50,
			CloseMatchAfter: 20,
		},
		Store: Store{
			Kind:       "file",
			Path:       "saved_mazes.json",
			URI:        "mongodb://localhost:27017",
			Database:   "mazerl",
			Collection: "mazes",
			Addr:       "localhost:6379",
			Key:        "mazerl:mazes",
		},
	}
}

// LoadEnv reads .env files into the environment. Missing files are not an
// error; with no paths it looks for .env in the working directory.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config: load %s: %w", path, err)
		}
	}
	return nil
}

// FromYaml reads the config at path over the defaults. Environment variables
// named MAZERL_<KEY PATH> override file values for keys present in the file.
func FromYaml(path string) (*AppConfig, error) {
	if err := LoadEnv(); err != nil {
		return nil, err
	}

	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("yaml")

	var err error
	if err = vp.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	applyEnv(vp)

	outerConfig := &OuterConfig{}
	if err = vp.Unmarshal(outerConfig); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if outerConfig.Kind != Kind {
		return nil, fmt.Errorf("%w: %q", ErrKind, outerConfig.Kind)
	}

	var spec []byte
	if spec, err = yaml.Marshal(outerConfig.Def); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	innerConfig := Default()
	if err = yaml.Unmarshal(spec, innerConfig); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return innerConfig, nil
}

// applyEnv overrides file keys from the environment. Values are parsed as yaml
// scalars so numbers stay numbers through the yaml re-decode of the def block;
// viper's AutomaticEnv would hand them over as strings.
func applyEnv(vp *viper.Viper) {
	replacer := strings.NewReplacer(".", "_")
	for _, key := range vp.AllKeys() {
		raw, ok := os.LookupEnv(EnvPrefix + "_" + strings.ToUpper(replacer.Replace(key)))
		if !ok {
			continue
		}
		var val interface{}
		if err := yaml.Unmarshal([]byte(raw), &val); err != nil || val == nil {
			val = raw
		}
		vp.Set(key, val)
	}
}
