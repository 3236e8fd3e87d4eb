package config

import (
	"os"
	"path"
	"strings"

	"github.com/spf13/cast"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// DBConfig Database config
type DBConfig struct {
	Type     string `yaml:"type"` // postgres | sqlite
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Passwd   string `yaml:"passwd"`
	MaxConn  int    `yaml:"max_conn"`
	IdleConn int    `yaml:"idle_conn"`
	Debug    bool   `yaml:"debug"`
}

// SysConfig System config
type SysConfig struct {
	Appid    string `yaml:"appid"`
	Location string `yaml:"location"`
	Workdir  string `yaml:"workdir"`
	Debug    bool   `yaml:"debug"`
}

// WebConfig Web server config
type WebConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	Secret        string `yaml:"secret"`
	TokenExpire   int    `yaml:"token_expire"` // hours
	UploadDir     string `yaml:"upload_dir"`
	MaxUploadSize int64  `yaml:"max_upload_size"` // bytes
}

type LogConfig struct {
	Mode       string `yaml:"mode"`
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

// PosConfig holds store level settings.
type PosConfig struct {
	LowStockThreshold   int `yaml:"low_stock_threshold"`
	OprLogRetentionDays int `yaml:"oprlog_retention_days"`
	DefaultPageSize     int `yaml:"default_page_size"`
	MaxPageSize         int `yaml:"max_page_size"`
}

type AppConfig struct {
	System   SysConfig `yaml:"system"`
	Web      WebConfig `yaml:"web"`
	Database DBConfig  `yaml:"database"`
	Logger   LogConfig `yaml:"logger"`
	Pos      PosConfig `yaml:"pos"`
}

func (c *AppConfig) GetLogDir() string {
	return path.Join(c.System.Workdir, "logs")
}

func (c *AppConfig) GetDataDir() string {
	return path.Join(c.System.Workdir, "data")
}

// GetUploadDir returns the product image directory, relative paths resolve under the workdir.
func (c *AppConfig) GetUploadDir() string {
	if path.IsAbs(c.Web.UploadDir) {
		return c.Web.UploadDir
	}
	return path.Join(c.System.Workdir, c.Web.UploadDir)
}

func (c *AppConfig) initDirs() {
	for _, dir := range []string{c.GetLogDir(), c.GetDataDir(), c.GetUploadDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			zap.S().Warnf("create dir %s error: %v", dir, err)
		}
	}
}

var DefaultAppConfig = &AppConfig{
	System: SysConfig{
		Appid:    "ToughPOS",
		Location: "Asia/Jakarta",
		Workdir:  "/var/toughpos",
		Debug:    true,
	},
	Web: WebConfig{
		Host:          "0.0.0.0",
		Port:          5000,
		Secret:        "9b6de5cc-0731-4bfc-8f4e-b1c2ad3b9b2d",
		TokenExpire:   24 * 30,
		UploadDir:     "uploads",
		MaxUploadSize: 1024 * 1024,
	},
	Database: DBConfig{
		Type:     "postgres",
		Host:     "127.0.0.1",
		Port:     5432,
		Name:     "toughpos",
		User:     "postgres",
		Passwd:   "myroot",
		MaxConn:  100,
		IdleConn: 10,
		Debug:    false,
	},
	Logger: LogConfig{
		Mode:       "development",
		FileEnable: true,
		Filename:   "/var/toughpos/toughpos.log",
	},
	Pos: PosConfig{
		LowStockThreshold:   5,
		OprLogRetentionDays: 365,
		DefaultPageSize:     10,
		MaxPageSize:         100,
	},
}

// LoadConfig reads the yaml file (when present) over the defaults and
// then applies TOUGHPOS_* environment overrides.
func LoadConfig(cfile string) *AppConfig {
	cfg := *DefaultAppConfig
	if cfile == "" {
		cfile = "toughpos.yml"
	}
	if !fileExists(cfile) {
		cfile = "/etc/toughpos.yml"
	}
	if fileExists(cfile) {
		data, err := os.ReadFile(cfile)
		if err != nil {
			zap.S().Errorf("read config file %s error: %v", cfile, err)
		} else if err = yaml.Unmarshal(data, &cfg); err != nil {
			zap.S().Errorf("parse config file %s error: %v", cfile, err)
		}
	}

	setEnvValue("TOUGHPOS_SYSTEM_WORKER_DIR", &cfg.System.Workdir)
	setEnvValue("TOUGHPOS_SYSTEM_LOCATION", &cfg.System.Location)
	setEnvBoolValue("TOUGHPOS_SYSTEM_DEBUG", &cfg.System.Debug)

	setEnvValue("TOUGHPOS_WEB_HOST", &cfg.Web.Host)
	setEnvIntValue("TOUGHPOS_WEB_PORT", &cfg.Web.Port)
	setEnvValue("TOUGHPOS_WEB_SECRET", &cfg.Web.Secret)
	setEnvIntValue("TOUGHPOS_WEB_TOKEN_EXPIRE", &cfg.Web.TokenExpire)
	setEnvValue("TOUGHPOS_WEB_UPLOAD_DIR", &cfg.Web.UploadDir)

	setEnvValue("TOUGHPOS_DB_TYPE", &cfg.Database.Type)
	setEnvValue("TOUGHPOS_DB_HOST", &cfg.Database.Host)
	setEnvIntValue("TOUGHPOS_DB_PORT", &cfg.Database.Port)
	setEnvValue("TOUGHPOS_DB_NAME", &cfg.Database.Name)
	setEnvValue("TOUGHPOS_DB_USER", &cfg.Database.User)
	setEnvValue("TOUGHPOS_DB_PWD", &cfg.Database.Passwd)
	setEnvBoolValue("TOUGHPOS_DB_DEBUG", &cfg.Database.Debug)

	setEnvValue("TOUGHPOS_LOGGER_MODE", &cfg.Logger.Mode)
	setEnvBoolValue("TOUGHPOS_LOGGER_FILE_ENABLE", &cfg.Logger.FileEnable)

	setEnvIntValue("TOUGHPOS_LOW_STOCK_THRESHOLD", &cfg.Pos.LowStockThreshold)
	setEnvIntValue("TOUGHPOS_OPRLOG_RETENTION_DAYS", &cfg.Pos.OprLogRetentionDays)

	cfg.initDirs()
	return &cfg
}

func fileExists(file string) bool {
	info, err := os.Stat(file)
	return err == nil && !info.IsDir()
}

func setEnvValue(name string, val *string) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		*val = v
	}
}

func setEnvBoolValue(name string, val *bool) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		*val = cast.ToBool(v)
	}
}

func setEnvIntValue(name string, val *int) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		if i, err := cast.ToIntE(v); err == nil {
			*val = i
		}
	}
}
