package config

import (
	"fmt"
	"strings"

	"github.com/dujiao-next/voucher-engine/internal/constants"
	"github.com/dujiao-next/voucher-engine/internal/logger"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Queue    QueueConfig    `mapstructure:"queue"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Security SecurityConfig `mapstructure:"security"`
	Voucher  VoucherConfig  `mapstructure:"voucher"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
}

// LogConfig 日志配置
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver string             `mapstructure:"driver"` // 数据库驱动（sqlite/postgres/mysql）
	DSN    string             `mapstructure:"dsn"`    // 数据库连接串
	Pool   DatabasePoolConfig `mapstructure:"pool"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	RedeemRateLimit RateLimitConfig `mapstructure:"redeem_rate_limit"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxRequests   int `mapstructure:"max_requests"`
}

// VoucherConfig 优惠码引擎配置
type VoucherConfig struct {
	FreeShipMode            string `mapstructure:"free_ship_mode"`             // percent / full
	RedeemMaxAttempts       int    `mapstructure:"redeem_max_attempts"`        // 核销事务冲突最大尝试次数
	RedeemRetryDelayMS      int    `mapstructure:"redeem_retry_delay_ms"`      // 冲突重试间隔
	RedeemAttemptTimeoutMS  int    `mapstructure:"redeem_attempt_timeout_ms"`  // 单次事务超时
	UsageBatchSize          int    `mapstructure:"usage_batch_size"`           // 批量统计单次 IN 查询的最大 ID 数
	CodeCacheTTLSeconds     int    `mapstructure:"code_cache_ttl_seconds"`     // 优惠码查询缓存时长
	ReconcileCron           string `mapstructure:"reconcile_cron"`             // 用量对账计划（含秒）
	ReconcileLockTTLSeconds int    `mapstructure:"reconcile_lock_ttl_seconds"` // 对账分布式锁时长
}

// Normalize 补齐非法或缺省的优惠码配置
func (c VoucherConfig) Normalize() VoucherConfig {
	mode := strings.ToLower(strings.TrimSpace(c.FreeShipMode))
	if mode != constants.FreeShipModeFull {
		mode = constants.FreeShipModePercent
	}
	c.FreeShipMode = mode
	if c.RedeemMaxAttempts <= 0 {
		c.RedeemMaxAttempts = 4
	}
	if c.RedeemMaxAttempts > 5 {
		c.RedeemMaxAttempts = 5
	}
	if c.RedeemRetryDelayMS < 0 {
		c.RedeemRetryDelayMS = 0
	}
	if c.RedeemAttemptTimeoutMS <= 0 {
		c.RedeemAttemptTimeoutMS = 3000
	}
	if c.UsageBatchSize <= 0 {
		c.UsageBatchSize = 30
	}
	if c.CodeCacheTTLSeconds < 0 {
		c.CodeCacheTTLSeconds = 0
	}
	if strings.TrimSpace(c.ReconcileCron) == "" {
		c.ReconcileCron = "0 */10 * * * *"
	}
	if c.ReconcileLockTTLSeconds <= 0 {
		c.ReconcileLockTTLSeconds = 300
	}
	return c
}

// Load 从 config.yml 加载配置
func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")     // 从当前目录查找
	viper.AddConfigPath("./")    // 备用路径
	viper.AddConfigPath("../")   // 如果从 cmd/server 运行
	viper.AddConfigPath("./etc") // etc 文件夹

	viper.SetEnvPrefix("VOUCHER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("log.dir", "")
	viper.SetDefault("log.filename", "voucher.log")
	viper.SetDefault("log.max_size_mb", 100)
	viper.SetDefault("log.max_backups", 7)
	viper.SetDefault("log.max_age_days", 30)
	viper.SetDefault("log.compress", true)
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.dsn", "./db/voucher.db")
	viper.SetDefault("database.pool.max_open_conns", 1)
	viper.SetDefault("database.pool.max_idle_conns", 1)
	viper.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	viper.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "127.0.0.1")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.prefix", "vc")
	viper.SetDefault("queue.enabled", false)
	viper.SetDefault("queue.host", "127.0.0.1")
	viper.SetDefault("queue.port", 6379)
	viper.SetDefault("queue.password", "")
	viper.SetDefault("queue.db", 1)
	viper.SetDefault("queue.concurrency", 10)
	viper.SetDefault("queue.queues", map[string]int{constants.QueueDefault: 1})
	viper.SetDefault("cors.allowed_origins", []string{"*"})
	viper.SetDefault("cors.allow_credentials", false)
	viper.SetDefault("cors.max_age", 600)
	viper.SetDefault("security.redeem_rate_limit.window_seconds", 60)
	viper.SetDefault("security.redeem_rate_limit.max_requests", 30)
	viper.SetDefault("voucher.free_ship_mode", constants.FreeShipModePercent)
	viper.SetDefault("voucher.redeem_max_attempts", 4)
	viper.SetDefault("voucher.redeem_retry_delay_ms", 50)
	viper.SetDefault("voucher.redeem_attempt_timeout_ms", 3000)
	viper.SetDefault("voucher.usage_batch_size", 30)
	viper.SetDefault("voucher.code_cache_ttl_seconds", 60)
	viper.SetDefault("voucher.reconcile_cron", "0 */10 * * * *")
	viper.SetDefault("voucher.reconcile_lock_ttl_seconds", 300)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Println("未找到 config.yml，使用默认配置")
		} else {
			fmt.Printf("读取配置文件失败: %v，使用默认配置\n", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("解析配置失败: %w", err))
	}
	config.Voucher = config.Voucher.Normalize()
	return &config
}
