package config

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"sync"
	"time"

	"energyadmin/utility"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	AssignPessimistic = "pessimistic"
	AssignOptimistic  = "optimistic"
)

type Config struct {
	IsDebug  bool   `yaml:"is_debug" env:"IS_DEBUG" env-default:"false"`
	TimeZone string `yaml:"time_zone" env:"TIME_ZONE" env-default:"UTC"`
	SeedFile string `yaml:"seed_file" env:"SEED_FILE" env-default:""`
	Listen   struct {
		BindIP   string `yaml:"bind_ip" env:"LISTEN_BIND_IP" env-default:"0.0.0.0"`
		Port     string `yaml:"port" env:"LISTEN_PORT" env-default:"5000"`
		TLS      bool   `yaml:"tls_enabled" env-default:"false"`
		CertFile string `yaml:"cert_file" env-default:""`
		KeyFile  string `yaml:"key_file" env-default:""`
	} `yaml:"listen"`
	// cleanenv applies env-default to zero values read from YAML, so a zero
	// delay or failure rate cannot be configured directly; Instant selects
	// the zero delay, never failing policy.
	Simulation struct {
		Instant     bool          `yaml:"instant" env:"SIM_INSTANT" env-default:"false"`
		MinDelay    time.Duration `yaml:"min_delay" env:"SIM_MIN_DELAY" env-default:"200ms"`
		MaxDelay    time.Duration `yaml:"max_delay" env:"SIM_MAX_DELAY" env-default:"700ms"`
		FailureRate float64       `yaml:"failure_rate" env:"SIM_FAILURE_RATE" env-default:"0.05"`
		Seed        int64         `yaml:"seed" env:"SIM_SEED" env-default:"0"`
	} `yaml:"simulation"`
	Admin struct {
		AssignPolicy string `yaml:"assign_policy" env:"ADMIN_ASSIGN_POLICY" env-default:"pessimistic"`
	} `yaml:"admin"`
	Log struct {
		File    string `yaml:"file" env:"LOG_FILE" env-default:""`
		MaxSize int    `yaml:"max_size" env-default:"100"`
		MaxAge  int    `yaml:"max_age" env-default:"7"`
	} `yaml:"log"`
	Mongo struct {
		Enabled  bool   `yaml:"enabled" env:"MONGO_ENABLED" env-default:"false"`
		Host     string `yaml:"host" env:"MONGO_HOST" env-default:"127.0.0.1"`
		Port     string `yaml:"port" env:"MONGO_PORT" env-default:"27017"`
		User     string `yaml:"user" env:"MONGO_USER" env-default:""`
		Password string `yaml:"password" env:"MONGO_PASSWORD" env-default:""`
		Database string `yaml:"database" env:"MONGO_DATABASE" env-default:"energyadmin"`
	} `yaml:"mongo"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" env:"METRICS_ENABLED" env-default:"false"`
		BindIP  string `yaml:"bind_ip" env-default:"0.0.0.0"`
		Port    string `yaml:"port" env-default:"9100"`
	} `yaml:"metrics"`
	Telegram struct {
		Enabled bool   `yaml:"enabled" env:"TELEGRAM_ENABLED" env-default:"false"`
		ApiKey  string `yaml:"api_key" env:"TELEGRAM_API_KEY" env-default:""`
	} `yaml:"telegram"`
}

var instance *Config
var once sync.Once

// GetConfig reads the configuration once per process
func GetConfig(path string) (*Config, error) {
	var err error
	once.Do(func() {
		log.Println("reading config")
		instance, err = ReadConfig(path)
		if err != nil {
			desc, _ := cleanenv.GetDescription(&Config{}, nil)
			log.Println(desc)
			log.Println(err)
			instance = nil
		}
	})
	return instance, err
}

// ReadConfig loads .env if present, then the YAML file, then environment overrides.
// A missing file falls back to environment and defaults.
func ReadConfig(path string) (*Config, error) {
	if err := LoadEnvFile(".env"); err != nil {
		return nil, err
	}
	conf := &Config{}
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err = cleanenv.ReadConfig(path, conf); err != nil {
				return nil, err
			}
			return conf, conf.check()
		}
	}
	if err := cleanenv.ReadEnv(conf); err != nil {
		return nil, err
	}
	return conf, conf.check()
}

// LoadEnvFile exports the variables of a dotenv file, ignoring a missing file
func LoadEnvFile(path string) error {
	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (c *Config) check() error {
	switch c.Admin.AssignPolicy {
	case AssignPessimistic, AssignOptimistic:
	default:
		return utility.Errf("admin.assign_policy must be %s or %s, got %q", AssignPessimistic, AssignOptimistic, c.Admin.AssignPolicy)
	}
	if c.Simulation.FailureRate < 0 || c.Simulation.FailureRate > 1 {
		return utility.Errf("simulation.failure_rate must be between 0 and 1, got %v", c.Simulation.FailureRate)
	}
	return nil
}
