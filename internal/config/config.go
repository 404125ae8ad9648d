package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	minPort = 1024
	maxPort = 65535
)

type Config struct {
	LogLevel          string `yaml:"log-level" env-default:"info"`
	TCPPort           int    `yaml:"tcp-port" env-default:"8002"`
	SQLiteStoragePath string `yaml:"sqlite-storage-path" env-default:"./users.db"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	if config.TCPPort < minPort || config.TCPPort > maxPort {
		panic(fmt.Errorf("port number %d out of range %d..%d", config.TCPPort, minPort, maxPort))
	}

	return config
}

func (that *Config) GetListenAddr() string {
	return fmt.Sprintf(":%d", that.TCPPort)
}
