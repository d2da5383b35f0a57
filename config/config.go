// api/config/config.go
package config

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Configuration stores all the configurations
type Configuration struct {
	Server        ServerConfiguration        `mapstructure:"server"`
	Neo4j         DatabaseConfiguration      `mapstructure:"neo4j"`
	Redis         RedisConfiguration         `mapstructure:"redis"`
	Elasticsearch ElasticsearchConfiguration `mapstructure:"elasticsearch"`
	PDP           PDPConfiguration           `mapstructure:"pdp"`
	Audit         AuditConfiguration         `mapstructure:"audit"`
	Auth          AuthConfiguration          `mapstructure:"auth"`
	Notification  NotificationConfiguration  `mapstructure:"notification"`
	Log           LogConfiguration           `mapstructure:"log"`
}

// ServerConfiguration stores the port and other web server settings
type ServerConfiguration struct {
	Port      string                 `mapstructure:"port"`
	RateLimit RateLimitConfiguration `mapstructure:"rateLimit"`
}

type RateLimitConfiguration struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// DatabaseConfiguration stores data for database connection
type DatabaseConfiguration struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// RedisConfiguration stores data for Redis connection
type RedisConfiguration struct {
	Addr          string `mapstructure:"addr"`
	Password      string `mapstructure:"password"`
	DB            int    `mapstructure:"db"`
	EncryptionKey string `mapstructure:"encryptionKey"`
}

// ElasticsearchConfiguration stores data for Elasticsearch connection
type ElasticsearchConfiguration struct {
	URL   string `mapstructure:"url"`
	Index string `mapstructure:"index"`
}

// PDPConfiguration tunes the access decision engine
type PDPConfiguration struct {
	CacheTTL     time.Duration `mapstructure:"cacheTTL"`
	CacheBackend string        `mapstructure:"cacheBackend"`
	CacheSize    int           `mapstructure:"cacheSize"`
	PolicyFile   string        `mapstructure:"policyFile"`
	WatchPolicy  bool          `mapstructure:"watchPolicy"`
	AuditTimeout time.Duration `mapstructure:"auditTimeout"`
	MaxBatchSize int           `mapstructure:"maxBatchSize"`
}

type AuditConfiguration struct {
	ChainFile     string        `mapstructure:"chainFile"`
	RetryAttempts int           `mapstructure:"retryAttempts"`
	RetryBackoff  time.Duration `mapstructure:"retryBackoff"`
}

type AuthConfiguration struct {
	Cognito     CognitoConfiguration `mapstructure:"cognito"`
	AdminGroups []string             `mapstructure:"adminGroups"`
}

type CognitoConfiguration struct {
	AWSRegion  string `mapstructure:"aws_region"`
	UserPoolID string `mapstructure:"user_pool_id"`
}

type NotificationConfiguration struct {
	Recipients []string `mapstructure:"recipients"`
}

type LogConfiguration struct {
	Dir string `mapstructure:"dir"`
}

const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

var config *Configuration

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.rateLimit.requests", 100)
	v.SetDefault("server.rateLimit.window", time.Minute)
	v.SetDefault("neo4j.uri", "bolt://localhost:7687")
	v.SetDefault("neo4j.username", "neo4j")
	v.SetDefault("neo4j.password", "")
	v.SetDefault("neo4j.database", "")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("elasticsearch.url", "http://localhost:9200")
	v.SetDefault("elasticsearch.index", "access-audit")
	v.SetDefault("pdp.cacheTTL", 2*time.Minute)
	v.SetDefault("pdp.cacheBackend", CacheBackendMemory)
	v.SetDefault("pdp.cacheSize", 10000)
	v.SetDefault("pdp.policyFile", "")
	v.SetDefault("pdp.watchPolicy", false)
	v.SetDefault("pdp.auditTimeout", 5*time.Second)
	v.SetDefault("pdp.maxBatchSize", 50)
	v.SetDefault("audit.chainFile", "audit/access-chain.jsonl")
	v.SetDefault("audit.retryAttempts", 3)
	v.SetDefault("audit.retryBackoff", 200*time.Millisecond)
	v.SetDefault("auth.adminGroups", []string{"compliance", "admin"})
	v.SetDefault("notification.recipients", []string{})
	v.SetDefault("log.dir", "logging")
}

func configure(v *viper.Viper) {
	v.SetConfigType("yaml") // REQUIRED if the config file does not have the extension in the name
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv() // read in environment variables that match
	setDefaults(v)
}

// InitConfig loads the process-wide configuration from path, or from
// config/config.yaml when path is empty.
func InitConfig(path string) error {
	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.AddConfigPath("config") // path to look for the config file in
		viper.SetConfigName("config") // name of the config file (without extension)
	}
	configure(viper.GetViper())

	// Attempt to read the config file
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			log.Println("No config file found. Using default settings and environment variables.")
		} else {
			return err
		}
	}

	// Unmarshal the configuration into the Configuration struct
	return viper.Unmarshal(&config)
}

// Load reads a configuration from an explicit file, or defaults plus
// environment when path is empty. It does not touch the global instance.
func Load(path string) (*Configuration, error) {
	v := viper.New()
	configure(v)
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
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

// GetBool retrieves a boolean value from the configuration
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration retrieves a duration value from the configuration
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// GetStringSlice retrieves a list of strings from the configuration
func GetStringSlice(key string) []string {
	return viper.GetStringSlice(key)
}
