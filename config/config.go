package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/angas/solarquote-go/logging"
)

type AppConfigApi struct {
	Address string
	Port    int
	// If not assigned, the server will serve embedded files.
	// If assigned, the server will serve files from the directory,
	// that must contain a "static" and "templates" directory.
	// This is useful for development.
	WwwDir *string `mapstructure:"www_dir"`
	// Hash key for the session cookie, 32 or 64 bytes. A random key is generated when
	// missing, sessions are then lost on restart.
	SessionKey *string `mapstructure:"session_key"`
	// Quote calculations per second and client IP, default: 5
	RateLimit *float64 `mapstructure:"rate_limit"`
	// Burst of calculations allowed above the rate, default: 10
	RateBurst *int `mapstructure:"rate_burst"`
}

func (a AppConfigApi) GetRateLimit() float64 {
	if a.RateLimit == nil {
		return 5
	}
	return *a.RateLimit
}

func (a AppConfigApi) GetRateBurst() int {
	if a.RateBurst == nil {
		return 10
	}
	return *a.RateBurst
}

type AppConfigDatabase struct {
	Path string
	// How many days log entries are kept, default: 30
	LogRetentionDays *int `mapstructure:"log_retention_days"`
	// How many days daily backup files should be stored before they gets deleted, default: 14
	BackupRetentionDays *int `mapstructure:"backup_retention_days"`
}

func (d AppConfigDatabase) GetLogRetentionDays() int {
	if d.LogRetentionDays == nil {
		return 30
	}
	return *d.LogRetentionDays
}

func (d AppConfigDatabase) GetBackupRetentionDays() int {
	if d.BackupRetentionDays == nil {
		return 14
	}
	return *d.BackupRetentionDays
}

type AppConfigMqtt struct {
	Host          string // MQTT is disabled when empty
	Port          int
	Username      string
	Password      string
	ClientId      *string `mapstructure:"client_id"`
	RequestTopic  *string `mapstructure:"request_topic"`
	ResponseTopic *string `mapstructure:"response_topic"`
}

func (m AppConfigMqtt) Enabled() bool {
	return m.Host != ""
}

func (m AppConfigMqtt) GetClientId() string {
	if m.ClientId == nil {
		return "solarquote"
	}
	return *m.ClientId
}

func (m AppConfigMqtt) GetRequestTopic() string {
	if m.RequestTopic == nil {
		return "solarquote/request"
	}
	return *m.RequestTopic
}

func (m AppConfigMqtt) GetResponseTopic() string {
	if m.ResponseTopic == nil {
		return "solarquote/response"
	}
	return *m.ResponseTopic
}

type AppConfigMaintenance struct {
	// Cron expression, default: "30 2 * * *"
	RunAt *string `mapstructure:"run_at"`
}

func (m AppConfigMaintenance) GetRunAt() string {
	if m.RunAt == nil {
		return "30 2 * * *"
	}
	return *m.RunAt
}

type AppConfigLogging struct {
	// Min log level for database : "DEBUG", "INFO", "WARN", "ERROR", default: "INFO"
	DbLevel *string `mapstructure:"db_level"`
	// Log attributes format: "TEXT", "JSON", default: "JSON"
	DbAttrsFormat *string `mapstructure:"db_attrs_format"`
	// Maximum number of log entries in the database, default: 10000
	DbMaxEntries *int `mapstructure:"db_max_entries"`
	// Min log level for database console: "DEBUG", "INFO", "WARN", "ERROR", default: "INFO"
	ConsoleLevel *string `mapstructure:"console_level"`
}

func (l AppConfigLogging) GetDbLevel() slog.Level {
	return logging.LevelFromString(l.DbLevel)
}

func (l AppConfigLogging) GetDbAttrsFormat() logging.LogAttrFormat {
	if l.DbAttrsFormat != nil && strings.EqualFold(*l.DbAttrsFormat, "text") {
		return logging.LogAttrFormatText
	}
	return logging.LogAttrFormatJSON
}

func (l AppConfigLogging) GetDbMaxEntries() int {
	if l.DbMaxEntries == nil {
		return 10000
	}
	return *l.DbMaxEntries
}

func (l AppConfigLogging) GetConsoleLevel() slog.Level {
	return logging.LevelFromString(l.ConsoleLevel)
}

type AppConfig struct {
	Api         AppConfigApi
	Database    AppConfigDatabase
	Mqtt        AppConfigMqtt
	Maintenance AppConfigMaintenance `mapstructure:"maintenance"`
	Logging     AppConfigLogging     `mapstructure:"logging"`
	Quote       AppConfigQuote       `mapstructure:"quote"`
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("config")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.address", "")
	v.SetDefault("api.port", 8080)
	v.SetDefault("database.path", "solarquote.db")
	setQuoteDefaults(v)
}

func read(v *viper.Viper, explicitPath bool) error {
	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if err != nil && !explicitPath && errors.As(err, &notFound) {
		return nil // Defaults only
	}
	if err != nil {
		return fmt.Errorf("unable to read config file: %w", err)
	}
	return nil
}

func decode(v *viper.Viper) (*AppConfig, error) {
	var c AppConfig
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config file: %w", err)
	}
	return &c, nil
}

// Load reads the config file at path, or config/config.yaml when path is empty.
// Without a file at the default location all defaults apply.
func Load(path string) (*AppConfig, error) {
	v := newViper(path)
	if err := read(v, path != ""); err != nil {
		return nil, err
	}
	return decode(v)
}

// LoadAndWatch is Load, and calls onChange with the new config every time the file
// is written. A file that can't be decoded is reported through err.
func LoadAndWatch(path string, onChange func(c *AppConfig, err error)) (*AppConfig, error) {
	v := newViper(path)
	if err := read(v, path != ""); err != nil {
		return nil, err
	}
	c, err := decode(v)
	if err != nil {
		return nil, err
	}

	if v.ConfigFileUsed() == "" {
		return c, nil // Nothing to watch
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		onChange(decode(v))
	})
	v.WatchConfig()

	return c, nil
}
