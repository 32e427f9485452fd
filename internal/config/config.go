package config

import (
	"github.com/spf13/viper"
)

type Config struct {
	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	RedisHost     string
	RedisPort     string
	SessionSecret string
	GinMode       string
	OpenAIAPIKey  string
	TreeCacheTTL  int // seconds; 0 disables the strategy-tree cache
	ListenAddr    string
}

// Load reads configuration from environment variables with defaults suitable
// for local development.
func Load() *Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "3306")
	v.SetDefault("DB_USER", "lifecycle")
	v.SetDefault("DB_PASSWORD", "lifecycle")
	v.SetDefault("DB_NAME", "product_lifecycle")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("SESSION_SECRET", "default-secret-key-change-me")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("OPENAI_API_KEY", "")
	v.SetDefault("TREE_CACHE_TTL", 60)
	v.SetDefault("LISTEN_ADDR", ":8080")

	return &Config{
		DBHost:        v.GetString("DB_HOST"),
		DBPort:        v.GetString("DB_PORT"),
		DBUser:        v.GetString("DB_USER"),
		DBPassword:    v.GetString("DB_PASSWORD"),
		DBName:        v.GetString("DB_NAME"),
		RedisHost:     v.GetString("REDIS_HOST"),
		RedisPort:     v.GetString("REDIS_PORT"),
		SessionSecret: v.GetString("SESSION_SECRET"),
		GinMode:       v.GetString("GIN_MODE"),
		OpenAIAPIKey:  v.GetString("OPENAI_API_KEY"),
		TreeCacheTTL:  v.GetInt("TREE_CACHE_TTL"),
		ListenAddr:    v.GetString("LISTEN_ADDR"),
	}
}

// RedisAddr returns the host:port address of the redis instance.
func (c *Config) RedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}
