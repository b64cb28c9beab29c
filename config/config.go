// config/config.go
package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Configuration stores all the configurations
type Configuration struct {
	Redis Redis
	Audit Audit
	Risk  Risk
	Cache Cache
}

// Redis stores data for the Redis-backed policy lookup cache
type Redis struct {
	Addr     string
	Password string
	DB       int
}

// Audit stores settings for the audit chain persistence
type Audit struct {
	SQLitePath string
	QueueSize  int
}

// Risk stores risk-scoring settings
type Risk struct {
	HighRiskCountries   []string
	DefaultMaxRiskScore float64
}

// Cache stores policy lookup cache settings
type Cache struct {
	TTL time.Duration
}

var config *Configuration

func InitConfig() error {
	viper.AddConfigPath("config") // path to look for the config file in
	viper.SetConfigName("config") // name of the config file (without extension)
	viper.SetConfigType("yaml")

	viper.AutomaticEnv() // read in environment variables that match

	// Set default configurations
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("audit.sqlitePath", "citadel_audit.db")
	viper.SetDefault("audit.queueSize", 1024)
	viper.SetDefault("risk.highRiskCountries", []string{})
	viper.SetDefault("risk.defaultMaxRiskScore", 70.0)
	viper.SetDefault("cache.ttl", "10m")

	// Attempt to read the config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found. Using default settings and environment variables.")
		} else {
			return err
		}
	}

	// Unmarshal the configuration into the Configuration struct
	err := viper.Unmarshal(&config)
	if err != nil {
		return err
	}

	return nil
}

// GetConfig returns the loaded configuration
func GetConfig() *Configuration {
	return config
}

// GetString retrieves a string value from the configuration
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt retrieves an integer value from the configuration
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetFloat64 retrieves a float64 value from the configuration
func GetFloat64(key string) float64 {
	return viper.GetFloat64(key)
}

// GetStringSlice retrieves a string slice value from the configuration
func GetStringSlice(key string) []string {
	return viper.GetStringSlice(key)
}

// GetDuration retrieves a duration value from the configuration
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}
