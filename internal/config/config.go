package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	EnvSerial   = "ANDROID_SERIAL"
	EnvADBPath  = "INSTALLSYSCERT_ADB"
	EnvCertPath = "INSTALLSYSCERT_CERT_PATH"
	EnvDebug    = "INSTALLSYSCERT_DEBUG"

	DefaultADBPath  = "adb"
	DefaultCertPath = "/system/etc/security/cacerts/"
)

// Config holds the settings of one run.
type Config struct {
	ADBPath      string `yaml:"adb_path"`
	CertPath     string `yaml:"cert_path"`
	DeviceSerial string `yaml:"device_serial"`
	Root         bool   `yaml:"root"`
	Remount      bool   `yaml:"remount"`
	Debug        bool   `yaml:"debug"`
}

func Default() Config {
	return Config{
		ADBPath:  DefaultADBPath,
		CertPath: DefaultCertPath,
	}
}

// LoadFile overlays the YAML file at path on cfg. Keys missing from the file
// keep their current value.
func LoadFile(cfg Config, path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %q: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overlays environment variables on cfg.
func ApplyEnv(cfg Config) Config {
	cfg.DeviceSerial = envOrDefault(EnvSerial, cfg.DeviceSerial)
	cfg.ADBPath = envOrDefault(EnvADBPath, cfg.ADBPath)
	cfg.CertPath = envOrDefault(EnvCertPath, cfg.CertPath)
	cfg.Debug = boolEnvOrDefault(EnvDebug, cfg.Debug)
	return cfg
}

// Normalize gives CertPath its trailing slash.
func (c Config) Normalize() Config {
	if c.CertPath != "" && !strings.HasSuffix(c.CertPath, "/") {
		c.CertPath += "/"
	}
	return c
}

// Validate checks that the configuration is coherent.
func (c Config) Validate() error {
	if c.ADBPath == "" {
		return fmt.Errorf("invalid adb path: must not be empty")
	}
	if c.CertPath == "" {
		return fmt.Errorf("invalid cert path: must not be empty")
	}
	if !strings.HasPrefix(c.CertPath, "/") {
		return fmt.Errorf("invalid cert path %q: must be absolute", c.CertPath)
	}
	if !strings.HasSuffix(c.CertPath, "/") {
		return fmt.Errorf("invalid cert path %q: must end with /", c.CertPath)
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func boolEnvOrDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
