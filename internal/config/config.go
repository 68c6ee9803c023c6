package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"snapmail/backend/internal/logger"
)

// ServerConfig 定义 HTTP 服务器的监听配置参数
type ServerConfig struct {
	Host string // 监听地址，默认 "0.0.0.0"
	Port int    // 监听端口，默认 3001
}

// MailboxConfig 定义邮箱服务的核心业务配置
type MailboxConfig struct {
	Domain      string // 邮箱地址的域名后缀
	ListLimit   int    // 单次邮件列表查询返回的最大条数
	MaxBodySize int64  // 入站请求体大小上限（字节）
}

// SweepConfig 定义过期邮箱回收器的配置
type SweepConfig struct {
	Interval  time.Duration // 扫描周期，默认 1 分钟
	BatchSize int           // 单轮回收的邮箱数上限
	Workers   int           // 回收删除操作的并发数
}

// RateLimitConfig 定义限流配置
type RateLimitConfig struct {
	CreateLimit   int           // 创建邮箱：窗口内最大次数
	CreateWindow  time.Duration // 创建邮箱：窗口长度
	GeneralLimit  int           // 普通接口：窗口内最大次数
	GeneralWindow time.Duration // 普通接口：窗口长度
}

// CORSConfig 定义跨域资源共享 (CORS) 配置
type CORSConfig struct {
	AllowedOrigins []string // 允许的来源列表，"*" 表示允许所有来源
}

// DatabaseConfig 定义数据库连接配置（支持 MySQL 和 PostgreSQL）
type DatabaseConfig struct {
	Type string // 数据库类型: "mysql" 或 "postgres"，留空使用内存存储
	DSN  string // 数据库连接字符串
}

// RedisConfig 定义 Redis 缓存服务配置
type RedisConfig struct {
	Enabled  bool   // 是否启用 Redis（配合数据库时组成混合存储）
	Address  string // Redis 服务地址，格式 "host:port"
	Password string // Redis 认证密码，留空表示无密码
	DB       int    // Redis 数据库编号，默认 0
}

// Config 是系统核心配置的根结构体，包含所有子系统的配置
type Config struct {
	Server    ServerConfig    // HTTP 服务器配置
	Mailbox   MailboxConfig   // 邮箱服务配置
	Sweep     SweepConfig     // 过期回收配置
	RateLimit RateLimitConfig // 限流配置
	CORS      CORSConfig      // 跨域配置
	Log       logger.Config   // 日志配置
	Database  DatabaseConfig  // 数据库配置
	Redis     RedisConfig     // Redis 配置
}

// Load 从环境变量和 .env 文件加载系统配置
//
// 配置加载优先级（从高到低）：
//  1. 系统环境变量（最高优先级）
//  2. .env 文件（如果存在）
//  3. 默认值
//
// 环境变量前缀: SNAPMAIL_
// 例如: SNAPMAIL_SERVER_PORT, SNAPMAIL_MAILBOX_DOMAIN
func Load() (*Config, error) {
	// 尝试加载 .env 文件（静默失败，因为 .env 文件是可选的）
	loadEnvFile()

	viper.SetEnvPrefix("snapmail")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 3001)
	viper.SetDefault("mailbox.domain", "snapmail.temp")
	viper.SetDefault("mailbox.list_limit", 50)
	viper.SetDefault("mailbox.max_body_size", 1<<20)
	viper.SetDefault("sweep.interval", "1m")
	viper.SetDefault("sweep.batch_size", 100)
	viper.SetDefault("sweep.workers", 4)
	viper.SetDefault("ratelimit.create_limit", 10)
	viper.SetDefault("ratelimit.create_window", "1h")
	viper.SetDefault("ratelimit.general_limit", 100)
	viper.SetDefault("ratelimit.general_window", "15m")
	viper.SetDefault("cors.allowed_origins", "*")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.development", false)
	viper.SetDefault("log.log_file", "")
	viper.SetDefault("log.max_size", 100)
	viper.SetDefault("log.max_backups", 3)
	viper.SetDefault("log.max_age", 28)
	viper.SetDefault("log.compress", true)
	viper.SetDefault("database.type", "") // 默认为空，使用内存存储
	viper.SetDefault("database.dsn", "")
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.address", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	domain := strings.ToLower(strings.TrimSpace(viper.GetString("mailbox.domain")))
	if domain == "" {
		return nil, fmt.Errorf("mailbox.domain must not be empty")
	}

	sweepInterval, err := time.ParseDuration(viper.GetString("sweep.interval"))
	if err != nil {
		return nil, fmt.Errorf("invalid sweep.interval: %w", err)
	}
	if sweepInterval <= 0 {
		return nil, fmt.Errorf("sweep.interval must be positive")
	}

	batchSize := viper.GetInt("sweep.batch_size")
	if batchSize <= 0 {
		batchSize = 100
	}

	workers := viper.GetInt("sweep.workers")
	if workers <= 0 {
		workers = 4
	}

	createWindow, err := time.ParseDuration(viper.GetString("ratelimit.create_window"))
	if err != nil {
		createWindow = time.Hour
	}
	generalWindow, err := time.ParseDuration(viper.GetString("ratelimit.general_window"))
	if err != nil {
		generalWindow = 15 * time.Minute
	}

	corsOrigins := parseList(viper.GetString("cors.allowed_origins"))
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	dbType := viper.GetString("database.type")
	if dbType != "" && viper.GetString("database.dsn") == "" {
		return nil, fmt.Errorf("database.dsn is required when database.type is set")
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: viper.GetString("server.host"),
			Port: viper.GetInt("server.port"),
		},
		Mailbox: MailboxConfig{
			Domain:      domain,
			ListLimit:   viper.GetInt("mailbox.list_limit"),
			MaxBodySize: viper.GetInt64("mailbox.max_body_size"),
		},
		Sweep: SweepConfig{
			Interval:  sweepInterval,
			BatchSize: batchSize,
			Workers:   workers,
		},
		RateLimit: RateLimitConfig{
			CreateLimit:   viper.GetInt("ratelimit.create_limit"),
			CreateWindow:  createWindow,
			GeneralLimit:  viper.GetInt("ratelimit.general_limit"),
			GeneralWindow: generalWindow,
		},
		CORS: CORSConfig{
			AllowedOrigins: corsOrigins,
		},
		Log: logger.Config{
			Level:       viper.GetString("log.level"),
			Development: viper.GetBool("log.development"),
			LogFile:     viper.GetString("log.log_file"),
			MaxSize:     viper.GetInt("log.max_size"),
			MaxBackups:  viper.GetInt("log.max_backups"),
			MaxAge:      viper.GetInt("log.max_age"),
			Compress:    viper.GetBool("log.compress"),
		},
		Database: DatabaseConfig{
			Type: dbType,
			DSN:  viper.GetString("database.dsn"),
		},
		Redis: RedisConfig{
			Enabled:  viper.GetBool("redis.enabled"),
			Address:  viper.GetString("redis.address"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
	}

	return cfg, nil
}

// parseList 将逗号分隔的字符串解析为字符串切片
func parseList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// loadEnvFile 尝试加载 .env 文件
//
// 加载顺序：
//  1. 当前目录的 .env
//  2. 父目录的 .env（从 backend/ 子目录运行时）
//
// 已存在的环境变量不会被覆盖。
func loadEnvFile() {
	if err := godotenv.Load(".env"); err == nil {
		return
	}

	parentEnv := filepath.Join("..", ".env")
	if _, err := os.Stat(parentEnv); err == nil {
		_ = godotenv.Load(parentEnv)
	}
}
