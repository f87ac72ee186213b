package config

import (
	"fmt"
	"os"

	"github.com/go-yaml/yaml"

	"github.com/plotwise/seedtrace"
)

type Config struct {
	Server    Server     `yaml:"server"`
	Defaults  Defaults   `yaml:"defaults"`
	Operators []Operator `yaml:"operators"`
}

type Server struct {
	ListenAddr    string `yaml:"listenAddr"`
	PostgresDsn   string `yaml:"postgresDsn"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	RedisDB       int    `yaml:"redisDB"`
	MemcachedAddr string `yaml:"memcachedAddr"`
	EnableTrace   bool   `yaml:"enableTrace"`
	TraceEndpoint string `yaml:"traceEndpoint"`
}

// Defaults is the site/year/record-type scope applied when an operator has
// not stored their own.
type Defaults struct {
	Site       string `yaml:"site"`
	Year       string `yaml:"year"`
	RecordType string `yaml:"recordType"`
}

// Operator maps a bearer token to an operator identity.
type Operator struct {
	ID    string `yaml:"id"`
	Token string `yaml:"token"`
}

func Load(path string) (Config, error) {

	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	var config Config
	err = yaml.NewDecoder(file).Decode(&config)
	if err != nil {
		return Config{}, err
	}

	if config.Server.ListenAddr == "" {
		config.Server.ListenAddr = ":8000"
	}
	if config.Server.PostgresDsn == "" {
		return Config{}, fmt.Errorf("server.postgresDsn is required")
	}

	return config, nil
}

// DefaultScope converts the configured defaults into a query scope.
func (c Config) DefaultScope() seedtrace.Scope {
	return seedtrace.Scope{
		Site:       c.Defaults.Site,
		Year:       c.Defaults.Year,
		RecordType: c.Defaults.RecordType,
	}
}

// OperatorByToken resolves a bearer token to an operator id.
func (c Config) OperatorByToken(token string) (string, bool) {
	if token == "" {
		return "", false
	}
	for _, op := range c.Operators {
		if op.Token == token {
			return op.ID, true
		}
	}
	return "", false
}
