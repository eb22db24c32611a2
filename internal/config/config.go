package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/logging"
)

const (
	DefaultAPIURL            = "http://localhost:5002/api"
	DefaultSocketURL         = "http://localhost:5002"
	DefaultElectionTarget    = "2026-01-05T08:00:00+06:00"
	DefaultReconnectDelay    = time.Second
	DefaultReconnectAttempts = 5
	DefaultCacheTTL          = 60 * time.Second
	DefaultHTTPAddr          = ":8080"
)

type Config struct {
	API      APIConfig
	Socket   SocketConfig
	Cache    CacheConfig
	Election ElectionConfig
	HTTP     HTTPConfig
	Kafka    KafkaConfig
	Log      LogConfig
}

type APIConfig struct {
	URL     string
	Timeout time.Duration
}

type SocketConfig struct {
	URL               string
	ReconnectDelay    time.Duration
	ReconnectAttempts int
	ResyncOnReconnect bool
	InitialDataGrace  time.Duration
}

type CacheConfig struct {
	TTL       time.Duration
	Retention time.Duration
	RedisURL  string
}

type ElectionConfig struct {
	Target time.Time
}

type HTTPConfig struct {
	Addr string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

type LogConfig struct {
	Level string
}

// Load reads an optional .env file, an optional config file and the
// environment, in increasing order of precedence. An empty path looks for
// config.yaml in the working directory.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Names used by the web front end's build environment.
	_ = v.BindEnv("api.url", "API_URL", "VITE_API_URL")
	_ = v.BindEnv("socket.url", "SOCKET_URL", "VITE_SOCKET_URL")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(path == "" && errors.Is(err, os.ErrNotExist)) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		logging.Log.Debug("no config file found, using environment and defaults")
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	target, err := time.Parse(time.RFC3339, getStringOrDefault(v, "election.target", DefaultElectionTarget))
	if err != nil {
		return nil, fmt.Errorf("invalid election.target: %w", err)
	}

	attempts := getIntOrDefault(v, "realtime.reconnect_attempts", DefaultReconnectAttempts)
	if attempts < 0 {
		return nil, fmt.Errorf("invalid realtime.reconnect_attempts: %d", attempts)
	}

	cfg := &Config{
		API: APIConfig{
			URL:     strings.TrimRight(getStringOrDefault(v, "api.url", DefaultAPIURL), "/"),
			Timeout: getDurationOrDefault(v, "api.timeout", 10*time.Second),
		},
		Socket: SocketConfig{
			URL:               strings.TrimRight(getStringOrDefault(v, "socket.url", DefaultSocketURL), "/"),
			ReconnectDelay:    getDurationOrDefault(v, "realtime.reconnect_delay", DefaultReconnectDelay),
			ReconnectAttempts: attempts,
			ResyncOnReconnect: getBoolOrDefault(v, "realtime.resync_on_reconnect", true),
			InitialDataGrace:  getDurationOrDefault(v, "realtime.initial_data_grace", 2*time.Second),
		},
		Cache: CacheConfig{
			TTL:       getDurationOrDefault(v, "cache.ttl", DefaultCacheTTL),
			Retention: getDurationOrDefault(v, "cache.retention", 10*time.Minute),
			RedisURL:  getStringOrDefault(v, "cache.redis_url", ""),
		},
		Election: ElectionConfig{Target: target},
		HTTP:     HTTPConfig{Addr: getStringOrDefault(v, "http.addr", DefaultHTTPAddr)},
		Kafka: KafkaConfig{
			Brokers: splitList(getStringOrDefault(v, "kafka.brokers", "")),
			Topic:   getStringOrDefault(v, "kafka.topic", "election-events"),
			GroupID: getStringOrDefault(v, "kafka.group_id", "election-replay"),
		},
		Log: LogConfig{Level: getStringOrDefault(v, "log.level", "info")},
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getStringOrDefault(v *viper.Viper, name string, def string) string {
	if v.IsSet(name) {
		logging.Log.Debugf("found '%s' in viper", name)
		return v.GetString(name)
	}
	return def
}

func getIntOrDefault(v *viper.Viper, name string, def int) int {
	if v.IsSet(name) {
		logging.Log.Debugf("found '%s' in viper", name)
		return v.GetInt(name)
	}
	return def
}

func getBoolOrDefault(v *viper.Viper, name string, def bool) bool {
	if v.IsSet(name) {
		logging.Log.Debugf("found '%s' in viper", name)
		return v.GetBool(name)
	}
	return def
}

func getDurationOrDefault(v *viper.Viper, name string, def time.Duration) time.Duration {
	if v.IsSet(name) {
		logging.Log.Debugf("found '%s' in viper", name)
		return v.GetDuration(name)
	}
	return def
}
