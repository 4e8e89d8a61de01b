// Package config provides the eportal configuration loader.
// Config is loaded by merging ~/.eportal/config.ini → ./config.ini → EPORTAL_* env vars.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"

	v1 "github.com/f9-o/eportal/api/v1"
	"github.com/f9-o/eportal/pkg/errs"
	"github.com/f9-o/eportal/pkg/netutil"
)

// FileName is the config file searched for from the working directory upward.
const FileName = "config.ini"

// sensitiveKeyRegex matches config keys that should be redacted in output.
var sensitiveKeyRegex = regexp.MustCompile(`(?i)(password|token|secret|passphrase)`)

// Defaults contains factory-default values applied before any config file is loaded.
//
// Every key is listed, even with an empty value, so EPORTAL_* variables are
// picked up for keys no file mentions.
var Defaults = map[string]any{
	"network.url":                 "http://172.17.10.100/eportal/InterFace.do",
	"network.user_id":             "",
	"network.password":            "",
	"network.service":             "教学区免费上网",
	"network.auto_login":          false,
	"network.custom_ip":           "",
	"network.custom_mac":          "",
	"network.online_marker":       "已经在线",
	"network.check_interval":      "60s",
	"network.max_attempts":        3,
	"network.login_timeout":       "5s",
	"network.probe_timeout":       "3s",
	"debug.enable_packet_capture": false,
	"log.level":                   "info",
	"log.format":                  "text",
	"log.file":                    "",
}

// ─────────────────────────────────────────────────────────────────────────────
// Config types
// ─────────────────────────────────────────────────────────────────────────────

// Config is the fully-decoded configuration.
type Config struct {
	Network NetworkConfig `mapstructure:"network"`
	Debug   DebugConfig   `mapstructure:"debug"`
	Log     LogConfig     `mapstructure:"log"`

	path     string
	settings map[string]any
}

// NetworkConfig holds the portal account and endpoint.
type NetworkConfig struct {
	URL           string        `mapstructure:"url"`
	UserID        string        `mapstructure:"user_id"`
	Password      string        `mapstructure:"password"`
	Service       string        `mapstructure:"service"`
	AutoLogin     bool          `mapstructure:"auto_login"`
	CustomIP      string        `mapstructure:"custom_ip"`
	CustomMAC     string        `mapstructure:"custom_mac"`
	OnlineMarker  string        `mapstructure:"online_marker"`
	CheckInterval time.Duration `mapstructure:"check_interval"`
	MaxAttempts   int           `mapstructure:"max_attempts"`
	LoginTimeout  time.Duration `mapstructure:"login_timeout"`
	ProbeTimeout  time.Duration `mapstructure:"probe_timeout"`
}

// DebugConfig controls diagnostic output.
type DebugConfig struct {
	EnablePacketCapture bool `mapstructure:"enable_packet_capture"`
}

// LogConfig controls logging behaviour.
type LogConfig struct {
	Level  string `mapstructure:"level"` // debug | info | warn | error
	File   string `mapstructure:"file"`
	Format string `mapstructure:"format"` // json | text
}

// ─────────────────────────────────────────────────────────────────────────────
// Loader
// ─────────────────────────────────────────────────────────────────────────────

// Load discovers and loads the configuration. The global file is read first,
// then the explicit file (or config.ini found walking up from the CWD) is
// merged over it, then environment variables win.
func Load(explicitPath string) (*Config, error) {
	v := viper.New()

	for k, val := range Defaults {
		v.SetDefault(k, val)
	}

	// EPORTAL_NETWORK_PASSWORD → network.password
	v.SetEnvPrefix("EPORTAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	used := ""
	globalCfg := filepath.Join(Home(), FileName)
	if _, err := os.Stat(globalCfg); err == nil {
		v.SetConfigFile(globalCfg)
		if err := v.ReadInConfig(); err != nil {
			return nil, readError(globalCfg, err)
		}
		used = globalCfg
	}

	projectCfg := explicitPath
	if projectCfg == "" {
		if path, err := discoverProjectConfig(); err == nil && path != globalCfg {
			projectCfg = path
		}
	}
	if projectCfg != "" {
		v.SetConfigFile(projectCfg)
		if err := v.MergeInConfig(); err != nil {
			return nil, readError(projectCfg, err)
		}
		used = projectCfg
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errs.New(errs.ErrConfig, "config.unmarshal", err)
	}
	cfg.path = used
	cfg.settings = v.AllSettings()

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Path returns the file the config was last merged from, or "" for defaults only.
func (c *Config) Path() string {
	return c.path
}

// Credentials implements portal.Provider.
func (c *Config) Credentials() v1.Credentials {
	return v1.Credentials{
		UserID:   c.Network.UserID,
		Password: c.Network.Password,
		Service:  c.Network.Service,
	}
}

// PortalURL implements portal.Provider.
func (c *Config) PortalURL() string {
	return c.Network.URL
}

// CustomIdentity implements portal.Provider. It returns nil unless both
// custom_ip and custom_mac are configured.
func (c *Config) CustomIdentity() *v1.DeviceIdentity {
	if c.Network.CustomIP == "" || c.Network.CustomMAC == "" {
		return nil
	}
	return &v1.DeviceIdentity{IP: c.Network.CustomIP, MAC: c.Network.CustomMAC}
}

// Policy returns the login retry policy.
func (c *Config) Policy() v1.RetryPolicy {
	return v1.RetryPolicy{
		MaxAttempts:  c.Network.MaxAttempts,
		LoginTimeout: c.Network.LoginTimeout,
		ProbeTimeout: c.Network.ProbeTimeout,
	}
}

// Setting is one effective key/value pair.
type Setting struct {
	Key   string
	Value string
}

// Redacted returns every effective setting sorted by key, with sensitive
// values masked.
func (c *Config) Redacted() []Setting {
	flat := map[string]string{}
	flatten("", c.settings, flat)
	out := make([]Setting, 0, len(flat))
	for k, val := range flat {
		if IsSensitiveKey(k) && val != "" {
			val = "********"
		}
		out = append(out, Setting{Key: k, Value: val})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// IsSensitiveKey returns true if key matches a known sensitive pattern.
func IsSensitiveKey(key string) bool {
	return sensitiveKeyRegex.MatchString(key)
}

// ─────────────────────────────────────────────────────────────────────────────
// Internal helpers
// ─────────────────────────────────────────────────────────────────────────────

// discoverProjectConfig walks up from the CWD looking for config.ini.
func discoverProjectConfig() (string, error) {
	start, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for dir := start; ; {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", fmt.Errorf("%s not found (searched up from %s)", FileName, start)
}

func flatten(prefix string, in map[string]any, out map[string]string) {
	for k, val := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := val.(map[string]any); ok {
			flatten(key, nested, out)
			continue
		}
		out[key] = fmt.Sprint(val)
	}
}

func readError(path string, err error) error {
	return errs.New(errs.ErrConfig, "config.read", err).
		WithResource(path).
		WithAdvice("fix the file or run 'eportal init' to write a fresh one")
}

// validate performs semantic validation on the loaded config and normalises
// the custom MAC.
func validate(cfg *Config) error {
	if err := netutil.ValidatePortalURL(cfg.Network.URL); err != nil {
		return errs.New(errs.ErrPortalURL, "config.validate", err).WithResource("network.url")
	}

	ip, mac := cfg.Network.CustomIP, cfg.Network.CustomMAC
	switch {
	case ip == "" && mac == "":
	case ip == "" || mac == "":
		return errs.New(errs.ErrIdentity, "config.validate",
			errors.New("custom_ip and custom_mac must be set together")).
			WithResource("network.custom_ip")
	default:
		if !netutil.IsValidIPv4(ip) {
			return errs.Newf(errs.ErrIdentity, "config.validate", "invalid IPv4 address %q", ip).
				WithResource("network.custom_ip")
		}
		norm, err := netutil.NormalizeMAC(mac)
		if err != nil {
			return errs.New(errs.ErrIdentity, "config.validate", err).WithResource("network.custom_mac")
		}
		cfg.Network.CustomMAC = norm
	}

	if cfg.Network.CheckInterval <= 0 {
		return errs.Newf(errs.ErrValidation, "config.validate",
			"check_interval must be positive, got %s", cfg.Network.CheckInterval).
			WithResource("network.check_interval")
	}
	if cfg.Network.MaxAttempts < 1 {
		return errs.Newf(errs.ErrValidation, "config.validate",
			"max_attempts must be at least 1, got %d", cfg.Network.MaxAttempts).
			WithResource("network.max_attempts")
	}
	if cfg.Network.LoginTimeout <= 0 || cfg.Network.ProbeTimeout <= 0 {
		return errs.Newf(errs.ErrValidation, "config.validate",
			"login_timeout and probe_timeout must be positive").
			WithResource("network.login_timeout")
	}
	return nil
}

// Home returns the eportal home directory (~/.eportal).
func Home() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".eportal"
	}
	return filepath.Join(home, ".eportal")
}

// DefaultConfigTemplate is the content written by `eportal init`. The two
// verbs are the user id and the password.
const DefaultConfigTemplate = `; eportal configuration
; Every key can be overridden with EPORTAL_<SECTION>_<KEY>, e.g. EPORTAL_NETWORK_PASSWORD.

[Network]
url = http://172.17.10.100/eportal/InterFace.do
user_id = %s
password = %s
service = 教学区免费上网
auto_login = false
online_marker = 已经在线
check_interval = 60s
max_attempts = 3
login_timeout = 5s
probe_timeout = 3s
; Present a fixed identity with 'eportal login --custom'.
; custom_ip = 172.17.20.30
; custom_mac = 00:1A:2B:3C:4D:5E

[Debug]
enable_packet_capture = false

[Log]
level = info
format = text
`

// RenderTemplate fills [DefaultConfigTemplate] with the account. Values that
// span lines cannot be stored in INI and are refused.
func RenderTemplate(userID, password string) (string, error) {
	for _, v := range []struct{ key, val string }{{"user_id", userID}, {"password", password}} {
		if strings.ContainsAny(v.val, "\r\n") {
			return "", errs.Newf(errs.ErrValidation, "config.init", "%s cannot contain a line break", v.key).
				WithAdvice("set it through EPORTAL_NETWORK_" + strings.ToUpper(v.key) + " instead")
		}
	}
	return fmt.Sprintf(DefaultConfigTemplate, iniValue(userID), iniValue(password)), nil
}

// iniValue backtick-quotes values the INI reader would otherwise alter. The
// reader closes a backtick value at the last backtick on the line, so
// embedded backticks survive.
func iniValue(s string) string {
	if !strings.ContainsAny(s, "#;`\"'\\") && strings.TrimSpace(s) == s {
		return s
	}
	return "`" + s + "`"
}

// WriteTemplate renders the template to path, creating parent directories.
// An existing file is left untouched unless force is set.
func WriteTemplate(path, userID, password string, force bool) error {
	content, err := RenderTemplate(userID, password)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil && !force {
		return errs.Newf(errs.ErrConfig, "config.init", "%s already exists", path).
			WithResource(path).
			WithAdvice("pass --force to overwrite it")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return errs.New(errs.ErrConfig, "config.init", err).WithResource(path)
	}
	// The file holds a password.
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return errs.New(errs.ErrConfig, "config.init", err).WithResource(path)
	}
	return nil
}
