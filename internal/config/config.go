// Package config assembles the run settings for the pipeline from a
// YAML config file, environment variables, and command-line flags.
// Flags win over environment variables, which win over the file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Settings holds every run parameter the pipeline needs. It is built
// once at process start and passed explicitly into each component;
// nothing reads configuration ambiently.
type Settings struct {
	// IMAP connection for the inbox the posts arrive in.
	Hostname string `mapstructure:"hostname"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Mailbox  string `mapstructure:"mailbox"`

	// Dropbox application credentials. RefreshToken may be empty, in
	// which case the keyring is consulted. Code is only set during the
	// one-time authorization flow.
	DropboxAppKey       string `mapstructure:"dropbox_app_key"`
	DropboxAppSecret    string `mapstructure:"dropbox_app_secret"`
	DropboxRefreshToken string `mapstructure:"dropbox_refresh_token"`
	DropboxCode         string `mapstructure:"dropbox_code"`

	// Output layout: the static site checkout, plus the media and
	// posts directories relative to it.
	OutputDir string `mapstructure:"output_dir"`
	MediaPath string `mapstructure:"media_path"`
	PostsPath string `mapstructure:"posts_path"`

	// Width is the thumbnail width in pixels.
	Width uint16 `mapstructure:"width"`

	// Expunge marks the message seen and deleted after processing.
	Expunge bool `mapstructure:"expunge"`

	// ShowOutline prints the MIME structure before extraction.
	ShowOutline bool `mapstructure:"show_outline"`
}

// DefaultConfigPath returns the default location of the configuration
// file, located at ~/.config/email-to-blog/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "email-to-blog", "config.yaml")
}

// flagBindings maps config keys to their command-line flag names.
var flagBindings = map[string]string{
	"hostname":              "hostname",
	"port":                  "port",
	"user":                  "user",
	"password":              "password",
	"mailbox":               "mailbox",
	"dropbox_app_key":       "dropbox-app-key",
	"dropbox_app_secret":    "dropbox-app-secret",
	"dropbox_refresh_token": "dropbox-refresh-token",
	"dropbox_code":          "dropbox-code",
	"output_dir":            "output-dir",
	"media_path":            "media-path",
	"posts_path":            "posts-path",
	"width":                 "width",
	"expunge":               "expunge",
	"show_outline":          "show-outline",
}

// envBindings maps config keys to the environment variables the tool
// has historically read, so existing deployments keep working.
var envBindings = map[string]string{
	"hostname":              "IMAP_HOSTNAME",
	"port":                  "IMAP_PORT",
	"user":                  "IMAP_USER",
	"password":              "IMAP_PASSWORD",
	"mailbox":               "MAILBOX",
	"dropbox_app_key":       "DROPBOX_APP_KEY",
	"dropbox_app_secret":    "DROPBOX_APP_SECRET",
	"dropbox_refresh_token": "DROPBOX_REFRESH_TOKEN",
	"dropbox_code":          "DROPBOX_CODE",
	"output_dir":            "OUT_DIR",
	"media_path":            "MEDIA_PATH",
	"posts_path":            "POSTS_PATH",
	"width":                 "IMAGE_WIDTH",
	"expunge":               "EXPUNGE",
}

// Load reads configuration from path (if the file exists), the
// environment, and the given flag set, and returns the merged settings.
func Load(path string, flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("hostname", "imap.gmail.com")
	v.SetDefault("port", 993)
	v.SetDefault("mailbox", "INBOX")
	v.SetDefault("width", 500)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", env, err)
		}
	}

	if flags != nil {
		for key, name := range flagBindings {
			flag := flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("binding flag --%s: %w", name, err)
			}
		}
	}

	// A missing config file is fine; env, flags, and defaults remain.
	if err := v.ReadInConfig(); err != nil {
		_, pathErr := err.(*os.PathError)
		_, notFoundErr := err.(viper.ConfigFileNotFoundError)
		if !pathErr && !notFoundErr {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &Settings{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the fields the processing run cannot do without.
// The authorization flow has weaker requirements and checks its own.
func (s *Settings) Validate() error {
	missing := ""
	switch {
	case s.User == "":
		missing = "IMAP user"
	case s.Password == "":
		missing = "IMAP password"
	case s.OutputDir == "":
		missing = "output dir"
	case s.MediaPath == "":
		missing = "media path"
	case s.PostsPath == "":
		missing = "posts path"
	}
	if missing != "" {
		return fmt.Errorf("missing required setting: %s", missing)
	}
	if s.Width == 0 {
		return fmt.Errorf("thumbnail width must be positive")
	}
	return nil
}
