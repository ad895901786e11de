package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Numbering NumberingConfig `mapstructure:"numbering"`
	Approval  ApprovalConfig  `mapstructure:"approval"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	Mode         string `mapstructure:"mode"` // debug, release, test
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // 秒
	AutoMigrate     bool   `mapstructure:"auto_migrate"`      // 是否自动迁移表结构
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`      // 连接池大小
	MinIdleConns int    `mapstructure:"min_idle_conns"` // 最小空闲连接数
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, /path/to/log
}

// AuthConfig 认证配置
type AuthConfig struct {
	JWTSecret     string `mapstructure:"jwt_secret"`
	Issuer        string `mapstructure:"issuer"`
	AccessExpiry  int    `mapstructure:"access_expiry"`  // 访问令牌有效期（分钟）
	RefreshExpiry int    `mapstructure:"refresh_expiry"` // 刷新令牌有效期（分钟）
}

// NumberingConfig 报价单编号规则配置
type NumberingConfig struct {
	Prefix        string `mapstructure:"prefix"`         // 编号前缀，如 QUO
	Separator     string `mapstructure:"separator"`      // 分隔符，如 -
	DateFormat    string `mapstructure:"date_format"`    // year / year_month / year_month_day
	SequenceWidth int    `mapstructure:"sequence_width"` // 序列号位数（零填充）
	ResetPolicy   string `mapstructure:"reset_policy"`   // never / yearly / monthly / daily
}

// ApprovalConfig 审批相关配置
type ApprovalConfig struct {
	SweepInterval string `mapstructure:"sweep_interval"` // 超时巡检周期（cron 表达式或 @every 语法）
	RecentLimit   int    `mapstructure:"recent_limit"`   // 仪表盘"最近完成"条数上限
	EnableSweeper bool   `mapstructure:"enable_sweeper"` // 是否启用超时巡检 worker
}

var globalConfig *Config

// Load 加载配置
// env: 环境名称（dev, prod, test）
// configPath: 配置文件路径（可选）
func Load(env string, configPath string) (*Config, error) {
	v := viper.New()

	if configPath == "" {
		v.SetConfigName(env) // dev.yaml, prod.yaml
		v.AddConfigPath("./config")
		v.AddConfigPath("../config")
		v.AddConfigPath("../../config")
	} else {
		v.SetConfigFile(configPath)
	}

	v.SetConfigType("yaml")

	// 读取环境变量（优先级高于配置文件）
	v.SetEnvPrefix("APP") // 环境变量前缀：APP_
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // 支持嵌套配置：APP_DATABASE_HOST

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Numbering.Validate(); err != nil {
		return nil, fmt.Errorf("编号配置无效: %w", err)
	}

	globalConfig = &cfg
	return &cfg, nil
}

// Get 获取全局配置
func Get() *Config {
	if globalConfig == nil {
		panic("配置未初始化，请先调用 Load()")
	}
	return globalConfig
}

// applyDefaults 填充缺省值
func (c *Config) applyDefaults() {
	if c.Numbering.Prefix == "" {
		c.Numbering.Prefix = "QUO"
	}
	if c.Numbering.Separator == "" {
		c.Numbering.Separator = "-"
	}
	if c.Numbering.DateFormat == "" {
		c.Numbering.DateFormat = "year"
	}
	if c.Numbering.SequenceWidth <= 0 {
		c.Numbering.SequenceWidth = 6
	}
	if c.Numbering.ResetPolicy == "" {
		c.Numbering.ResetPolicy = "yearly"
	}
	if c.Approval.SweepInterval == "" {
		c.Approval.SweepInterval = "@every 1h"
	}
	if c.Approval.RecentLimit <= 0 {
		c.Approval.RecentLimit = 10
	}
	if c.Auth.AccessExpiry <= 0 {
		c.Auth.AccessExpiry = 120
	}
	if c.Auth.RefreshExpiry <= 0 {
		c.Auth.RefreshExpiry = 7 * 24 * 60
	}
}

// 日期段与重置策略的粒度等级，用于校验两者是否自洽
var (
	dateFormatRank = map[string]int{
		"year":           1,
		"year_month":     2,
		"year_month_day": 3,
	}
	resetPolicyRank = map[string]int{
		"never":   0,
		"yearly":  1,
		"monthly": 2,
		"daily":   3,
	}
)

// Validate 校验编号规则是否自洽
// 重置策略不能比编号里的日期段更细：否则新周期的检索前缀
// 永远匹配不到已有编号，生成器会反复产出同一个冲突候选
func (c NumberingConfig) Validate() error {
	dateRank, ok := dateFormatRank[c.DateFormat]
	if !ok {
		return fmt.Errorf("不支持的日期段格式: %s", c.DateFormat)
	}
	resetRank, ok := resetPolicyRank[c.ResetPolicy]
	if !ok {
		return fmt.Errorf("不支持的重置策略: %s", c.ResetPolicy)
	}
	if resetRank > dateRank {
		return fmt.Errorf("重置策略 %s 比日期段 %s 更细，序列无法按周期定位", c.ResetPolicy, c.DateFormat)
	}
	return nil
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// Addr Redis 地址
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
