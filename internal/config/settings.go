package config

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/inodb/vibe-sync/internal/session"
)

// Settings are the application settings read through viper from
// ~/.vibe-sync.yaml, VIBE_SYNC_* environment variables and flags.
type Settings struct {
	Compile  CompileSettings  `mapstructure:"compile"`
	Session  SessionSettings  `mapstructure:"session"`
	Server   ServerSettings   `mapstructure:"server"`
	Viewport ViewportSettings `mapstructure:"viewport"`
}

// CompileSettings configure the synchronization compiler.
type CompileSettings struct {
	Workers int  `mapstructure:"workers"`
	Strict  bool `mapstructure:"strict"`
}

// SessionSettings select where sessions are saved.
type SessionSettings struct {
	Driver     string     `mapstructure:"driver"` // file, sqlite or s3
	Dir        string     `mapstructure:"dir"`
	SQLitePath string     `mapstructure:"sqlite_path"`
	S3         S3Settings `mapstructure:"s3"`
}

// S3Settings configure the S3 session store.
type S3Settings struct {
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	Prefix    string `mapstructure:"prefix"`
	PathStyle bool   `mapstructure:"path_style"`
}

// ServerSettings configure the HTTP server.
type ServerSettings struct {
	Addr string `mapstructure:"addr"`
}

// ViewportSettings configure viewport queries.
type ViewportSettings struct {
	DefaultPPB float64 `mapstructure:"default_ppb"`
}

// DefaultDir returns ~/.vibe-sync, or .vibe-sync when the home directory
// is unknown.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".vibe-sync"
	}
	return filepath.Join(home, ".vibe-sync")
}

// SetDefaults registers the default value of every setting on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("compile.workers", 0)
	v.SetDefault("compile.strict", false)
	v.SetDefault("session.driver", "file")
	v.SetDefault("session.dir", filepath.Join(DefaultDir(), "sessions"))
	v.SetDefault("session.sqlite_path", filepath.Join(DefaultDir(), "sessions.db"))
	v.SetDefault("session.s3.region", "us-east-1")
	v.SetDefault("session.s3.prefix", "sessions/")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("viewport.default_ppb", 1.0)
}

// Load decodes the settings held by v.
func Load(v *viper.Viper) (Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return s, fmt.Errorf("decode settings: %w", err)
	}
	if ppb := s.Viewport.DefaultPPB; ppb <= 0 || math.IsNaN(ppb) || math.IsInf(ppb, 0) {
		return s, fmt.Errorf("viewport.default_ppb must be positive and finite, got %v", ppb)
	}
	return s, nil
}

// OpenStore opens the configured session store. The returned close
// function releases it.
func (s Settings) OpenStore(ctx context.Context) (session.Store, func() error, error) {
	noop := func() error { return nil }
	switch s.Session.Driver {
	case "", "file":
		return session.NewFileStore(s.Session.Dir), noop, nil
	case "sqlite":
		st, err := session.OpenSQLite(s.Session.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	case "s3":
		st, err := session.NewS3Store(ctx, session.S3Config{
			Bucket:          s.Session.S3.Bucket,
			Region:          s.Session.S3.Region,
			Endpoint:        s.Session.S3.Endpoint,
			Prefix:          s.Session.S3.Prefix,
			PathStyle:       s.Session.S3.PathStyle,
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		})
		if err != nil {
			return nil, nil, err
		}
		return st, noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown session driver %q (want file, sqlite or s3)", s.Session.Driver)
	}
}
