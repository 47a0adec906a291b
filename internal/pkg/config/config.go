// internal/pkg/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration 让 yaml 配置可以写 "2s"、"20ms" 这样的时长字面量。
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std 转回标准库的 time.Duration。
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config 是服务的全量配置，来源为 yaml 文件，关键项可被环境变量覆盖。
type Config struct {
	App struct {
		ServiceName string `yaml:"serviceName"`
		Port        int    `yaml:"port"`
	} `yaml:"app"`
	Infra struct {
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
		Mysql struct {
			DSN string `yaml:"dsn"`
		} `yaml:"mysql"`
		Jaeger struct {
			Endpoint string `yaml:"endpoint"`
		} `yaml:"jaeger"`
	} `yaml:"infra"`
	Seckill struct {
		Stream            string   `yaml:"stream"`
		Group             string   `yaml:"group"`
		Consumer          string   `yaml:"consumer"`
		BlockTimeout      Duration `yaml:"blockTimeout"`
		RetryBackoff      Duration `yaml:"retryBackoff"`
		MaxHandleAttempts int      `yaml:"maxHandleAttempts"`
		LockTTL           Duration `yaml:"lockTTL"`
	} `yaml:"seckill"`
}

// Load 读取 yaml 配置文件并应用环境变量覆盖。
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	// 环境变量优先级高于文件，便于容器化部署时按环境注入
	cfg.Infra.Redis.Addr = getEnv("REDIS_ADDR", cfg.Infra.Redis.Addr)
	cfg.Infra.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Infra.Redis.Password)
	cfg.Infra.Mysql.DSN = getEnv("MYSQL_DSN", cfg.Infra.Mysql.DSN)
	cfg.Infra.Jaeger.Endpoint = getEnv("JAEGER_ENDPOINT", cfg.Infra.Jaeger.Endpoint)

	return cfg, nil
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.App.ServiceName = "seckill-service"
	cfg.App.Port = 8080
	cfg.Infra.Redis.Addr = "localhost:6379"
	cfg.Seckill.Stream = "stream.orders"
	cfg.Seckill.Group = "g1"
	cfg.Seckill.Consumer = "c1"
	cfg.Seckill.BlockTimeout = Duration(2 * time.Second)
	cfg.Seckill.RetryBackoff = Duration(20 * time.Millisecond)
	cfg.Seckill.MaxHandleAttempts = 16
	cfg.Seckill.LockTTL = Duration(10 * time.Second)
	return cfg
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
