package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
	Roadmap  RoadmapConfig  `mapstructure:"roadmap"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port         int             `mapstructure:"port"`
	BaseURL      string          `mapstructure:"base_url"`
	CORS         CORSConfig      `mapstructure:"cors"`
	MaxBodyBytes int64           `mapstructure:"max_body_bytes"` // 培养方案导入请求体上限
	RateLimit    RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig 事件与批量审核接口限流（依赖 Redis，未配置时不限流）
type RateLimitConfig struct {
	EventsPerWindow int           `mapstructure:"events_per_window"`
	SweepPerWindow  int           `mapstructure:"sweep_per_window"`
	Window          time.Duration `mapstructure:"window"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 缓存配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig JWT 认证配置
// Token 由统一身份服务签发，本服务只负责校验
type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
	Issuer         string        `mapstructure:"issuer"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RoadmapConfig 培养方案路线引擎配置
type RoadmapConfig struct {
	PassingThreshold  float64              `mapstructure:"passing_threshold"`  // 及格线（10 分制）
	Classification    []ClassificationTier `mapstructure:"classification"`     // 毕业等级，按 min_average 降序
	CurriculumFile    string               `mapstructure:"curriculum_file"`    // 启动时导入的培养方案 YAML，可为空
	OpenCacheTTL      time.Duration        `mapstructure:"open_cache_ttl"`     // 可选课程缓存有效期
	GraduationWorkers int                  `mapstructure:"graduation_workers"` // 批量毕业审核并发数
}

// ClassificationTier 毕业等级阈值
type ClassificationTier struct {
	Name       string  `mapstructure:"name"`
	MinAverage float64 `mapstructure:"min_average"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.rate_limit.events_per_window", 600)
	v.SetDefault("server.rate_limit.sweep_per_window", 2)
	v.SetDefault("server.rate_limit.window", "1m")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "edu_records")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Asia/Shanghai")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)  // 60分钟
	v.SetDefault("db.conn_max_idle_time", 30) // 30分钟

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.jwt_secret", "") // 未注册的 key 不会被 AutomaticEnv 解析
	v.SetDefault("auth.access_token_ttl", "15m")
	v.SetDefault("auth.issuer", "edu-records")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("roadmap.passing_threshold", 5.0)
	v.SetDefault("roadmap.classification", DefaultClassification())
	v.SetDefault("roadmap.curriculum_file", "")
	v.SetDefault("roadmap.open_cache_ttl", "10m")
	v.SetDefault("roadmap.graduation_workers", 8)

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("EDU")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	// ── 关键配置校验 ──
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// DefaultClassification 默认毕业等级（10 分制）
func DefaultClassification() []ClassificationTier {
	return []ClassificationTier{
		{Name: "Excellent", MinAverage: 8.5},
		{Name: "Good", MinAverage: 7.0},
		{Name: "Average", MinAverage: 5.5},
		{Name: "Pass", MinAverage: 0},
	}
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 不能为空")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	return c.Roadmap.Validate()
}

// Validate 校验路线引擎配置
func (r *RoadmapConfig) Validate() error {
	if r.PassingThreshold <= 0 || r.PassingThreshold > 10 {
		return fmt.Errorf("配置校验失败: roadmap.passing_threshold 必须在 (0, 10] 之间")
	}
	if len(r.Classification) == 0 {
		return fmt.Errorf("配置校验失败: roadmap.classification 不能为空")
	}
	for i, tier := range r.Classification {
		if tier.Name == "" {
			return fmt.Errorf("配置校验失败: roadmap.classification[%d].name 不能为空", i)
		}
		if i > 0 && tier.MinAverage >= r.Classification[i-1].MinAverage {
			return fmt.Errorf("配置校验失败: roadmap.classification 必须按 min_average 严格降序")
		}
	}
	if r.GraduationWorkers < 0 {
		return fmt.Errorf("配置校验失败: roadmap.graduation_workers 不能为负数")
	}
	return nil
}
