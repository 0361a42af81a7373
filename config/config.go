package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	Gateway      GatewayConfig      `mapstructure:"gateway"`
	Admin        AdminConfig        `mapstructure:"admin"`
	Credit       CreditConfig       `mapstructure:"credit"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	Verification VerificationConfig `mapstructure:"verification"`
	Indexing     IndexingConfig     `mapstructure:"indexing"`
	Queue        QueueConfig        `mapstructure:"queue"`
	CORS         CORSConfig         `mapstructure:"cors"`
	Email        EmailConfig        `mapstructure:"email"`
	OSS          OSSConfig          `mapstructure:"oss"`
	Upload       UploadConfig       `mapstructure:"upload"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// GatewayConfig 聊天网关接入配置（网关用共享密钥为用户换取 token）
type GatewayConfig struct {
	SecretHash string `mapstructure:"secret_hash"` // 共享密钥的 bcrypt 哈希
}

// AdminConfig 管理后台账号配置
type AdminConfig struct {
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"password_hash"` // bcrypt 哈希
}

// CreditConfig 积分相关配置
type CreditConfig struct {
	FreeCredits    int64 `mapstructure:"free_credits"`      // 新用户赠送积分
	MaxURLsPerFile int   `mapstructure:"max_urls_per_file"` // 单文件 URL 上限
}

// RateLimitConfig 限流默认限额（按类目）
type RateLimitConfig struct {
	FilesPerHour      int `mapstructure:"files_per_hour"`
	URLsPerDay        int `mapstructure:"urls_per_day"`
	APICallsPerMinute int `mapstructure:"api_calls_per_minute"`
	CommandsPerMinute int `mapstructure:"commands_per_minute"`
}

// VerificationConfig 域名归属校验配置
type VerificationConfig struct {
	ServiceAccountFile string `mapstructure:"service_account_file"`
	CacheTTLHours      int    `mapstructure:"cache_ttl_hours"`
}

// IndexingConfig 收录提交配置
type IndexingConfig struct {
	Provider           string `mapstructure:"provider"` // google / rapid / hybrid
	ServiceAccountFile string `mapstructure:"service_account_file"`
	RapidAPIKey        string `mapstructure:"rapid_api_key"`
	RapidEndpoint      string `mapstructure:"rapid_endpoint"`
	MaxRetries         int    `mapstructure:"max_retries"`
	BatchTimeoutMin    int    `mapstructure:"batch_timeout_minutes"`
	Parallelism        int    `mapstructure:"parallelism"` // 单批次内并发提交数
}

type QueueConfig struct {
	DispatchQueue   string `mapstructure:"dispatch_queue"`
	MaxWorkers      int    `mapstructure:"max_workers"`
	StaleAfterHours int    `mapstructure:"stale_after_hours"` // 超时未对账批次由巡检回收
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

type EmailConfig struct {
	SMTPHost   string `mapstructure:"smtp_host"`
	SMTPPort   int    `mapstructure:"smtp_port"`
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`
	From       string `mapstructure:"from"`
	AdminEmail string `mapstructure:"admin_email"` // 日报收件人，留空不发
}

type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	BucketName      string `mapstructure:"bucket_name"`
	CDNDomain       string `mapstructure:"cdn_domain"`
}

type UploadConfig struct {
	MaxSize           int64    `mapstructure:"max_size"`            // 最大文件大小（字节）
	AllowedExtensions []string `mapstructure:"allowed_extensions"`  // 允许的扩展名
	PendingTTLMin     int      `mapstructure:"pending_ttl_minutes"` // 待确认批次保留时长
	PendingCapacity   int      `mapstructure:"pending_capacity"`    // 待确认批次总容量上限
}

func Load(configPath string) (*Config, error) {
	// 优先尝试读取 config.local.yaml（包含真实密钥，不提交到git）
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")

	// 检查 config.local.yaml 是否存在
	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	// 环境变量覆盖
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
