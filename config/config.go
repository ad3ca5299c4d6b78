package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Security SecurityConfig `mapstructure:"security"`
	Log      LogConfig      `mapstructure:"log"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Mail     MailConfig     `mapstructure:"mail"`
	Vehicle  VehicleConfig  `mapstructure:"vehicle"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	Debug          bool          `mapstructure:"debug"`
	Env            string        `mapstructure:"env"`   // development | production
	Route          string        `mapstructure:"route"` // API prefix, e.g. "api"
	UploadDir      string        `mapstructure:"upload_dir"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	// AdminIPs restricts destructive maintenance routes. Empty allows all.
	AdminIPs []string `mapstructure:"admin_ips"`
}

// Production reports whether stack traces must be withheld from responses.
func (s ServerConfig) Production() bool {
	return strings.EqualFold(s.Env, "production")
}

type DatabaseConfig struct {
	Mode         string        `mapstructure:"mode"` // sqlite | sqlite_memory | mysql
	SQLitePath   string        `mapstructure:"sqlite_path"`
	MySQLDSN     string        `mapstructure:"mysql_dsn"`
	MySQLMaxOpen int           `mapstructure:"mysql_max_open"`
	MySQLMaxIdle int           `mapstructure:"mysql_max_idle"`
	MySQLMaxLife time.Duration `mapstructure:"mysql_max_life"`
}

type CacheConfig struct {
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
}

type SecurityConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	UserTokenTTL   time.Duration `mapstructure:"user_token_ttl"`
	AdminTokenTTL  time.Duration `mapstructure:"admin_token_ttl"`
	BcryptCost     int           `mapstructure:"bcrypt_cost"`
	OTPTTL         time.Duration `mapstructure:"otp_ttl"`
	OTPMaxAttempts int           `mapstructure:"otp_max_attempts"`
	ResetWindow    time.Duration `mapstructure:"reset_window"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
}

type LogConfig struct {
	Dir            string `mapstructure:"dir"`
	MaxSizeMB      int    `mapstructure:"max_size_mb"`
	MaxBackups     int    `mapstructure:"max_backups"`
	MaxAgeDays     int    `mapstructure:"max_age_days"`
	Compress       bool   `mapstructure:"compress"`
	Console        bool   `mapstructure:"console"` // mirror API records to stdout
	MaxBodyBytes   int    `mapstructure:"max_body_bytes"`
	PersistAPILogs bool   `mapstructure:"persist_api_logs"`
	RetentionDays  int    `mapstructure:"retention_days"`
}

type AdminConfig struct {
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
	FullName string `mapstructure:"full_name"`
}

type MailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type VehicleConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	BackupURL string        `mapstructure:"backup_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
}

// Load reads config from the given YAML file path. Every key can be
// overridden by an environment variable, e.g. DENTCLAIM_SERVER_PORT.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("DENTCLAIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration without reading any file.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 4000)
	v.SetDefault("server.debug", false)
	v.SetDefault("server.env", "development")
	v.SetDefault("server.route", "api")
	v.SetDefault("server.upload_dir", "./uploads")
	v.SetDefault("server.request_timeout", "30s")
	v.SetDefault("server.admin_ips", []string{})
	v.SetDefault("database.mode", "sqlite")
	v.SetDefault("database.sqlite_path", "./data/dentclaim.db")
	v.SetDefault("database.mysql_max_open", 50)
	v.SetDefault("database.mysql_max_idle", 10)
	v.SetDefault("database.mysql_max_life", "1h")
	v.SetDefault("cache.local_gc_interval", "30s")
	v.SetDefault("security.jwt_secret", "change-me")
	v.SetDefault("security.user_token_ttl", "72h")
	v.SetDefault("security.admin_token_ttl", "168h")
	v.SetDefault("security.bcrypt_cost", 10)
	v.SetDefault("security.otp_ttl", "5m")
	v.SetDefault("security.otp_max_attempts", 5)
	v.SetDefault("security.reset_window", "10m")
	v.SetDefault("security.rate_limit_rps", 20)
	v.SetDefault("security.rate_limit_burst", 40)
	v.SetDefault("log.dir", "./logs")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 14)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)
	v.SetDefault("log.console", false)
	v.SetDefault("log.max_body_bytes", 64*1024)
	v.SetDefault("log.persist_api_logs", false)
	v.SetDefault("log.retention_days", 30)
	v.SetDefault("admin.email", "admin@admin.com")
	v.SetDefault("admin.password", "admin123")
	v.SetDefault("admin.full_name", "Administrator")
	v.SetDefault("mail.enabled", false)
	v.SetDefault("mail.port", 587)
	v.SetDefault("vehicle.base_url", "https://vpic.nhtsa.dot.gov/api/vehicles")
	v.SetDefault("vehicle.timeout", "10s")
	v.SetDefault("vehicle.cache_ttl", "24h")
}
