// Package config loads the application configuration from
// ~/.bookery/config.yaml and BOOKERY_* environment variables, applies
// defaults, and validates the result.
package config

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/mold/v4/modifiers"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"

	"github.com/bookerybooks/bookery/pkg/errcodes"
)

const envPrefix = "BOOKERY_"

type Config struct {
	Database Database `koanf:"database"`
	Output   Output   `koanf:"output"`
	Provider Provider `koanf:"provider"`
	HTTP     HTTP     `koanf:"http"`
	Review   Review   `koanf:"review"`
	Match    Match    `koanf:"match"`
}

type Database struct {
	// Path is the sqlite file. Defaults to ~/.bookery/library.db.
	Path              string        `koanf:"path" mod:"trim" validate:"required"`
	Debug             bool          `koanf:"debug"`
	BusyTimeout       time.Duration `koanf:"busy_timeout" default:"5s" validate:"min=0"`
	MaxRetries        int           `koanf:"max_retries" default:"5" validate:"min=0"`
	ConnectRetryCount int           `koanf:"connect_retry_count" default:"5" validate:"min=1"`
	ConnectRetryDelay time.Duration `koanf:"connect_retry_delay" default:"2s" validate:"min=0"`
}

type Output struct {
	Dir string `koanf:"dir" mod:"trim" default:"bookery-output" validate:"required"`
}

type Provider struct {
	BaseURL     string `koanf:"base_url" mod:"trim" default:"https://openlibrary.org" validate:"required,url"`
	SearchLimit int    `koanf:"search_limit" default:"5" validate:"min=1,max=100"`
	EnrichLimit int    `koanf:"enrich_limit" default:"3" validate:"min=0,max=10"`
}

type HTTP struct {
	RequestsPerSecond float64       `koanf:"requests_per_second" default:"10" validate:"gt=0"`
	Burst             int           `koanf:"burst" default:"1" validate:"min=1"`
	MaxRetries        int           `koanf:"max_retries" default:"3" validate:"min=0"`
	RetryDelay        time.Duration `koanf:"retry_delay" default:"1s" validate:"min=0"`
	Timeout           time.Duration `koanf:"timeout" default:"30s" validate:"gt=0"`
}

type Review struct {
	Threshold float64 `koanf:"threshold" default:"0.8" validate:"gt=0,lte=1"`
}

type Match struct {
	Workers    int  `koanf:"workers" default:"1" validate:"min=1,max=8"`
	EmbedCover bool `koanf:"embed_cover"`
}

// Options control where the configuration file is read from.
type Options struct {
	// Path points at an alternate config file. When empty the default
	// location is used and is allowed to be absent; an explicit path is
	// not.
	Path string
}

func New(opts Options) (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	path := opts.Path
	explicit := path != ""
	if !explicit {
		path = DefaultPath(home)
	}

	k := koanf.New(".")
	err = k.Load(file.Provider(path), yaml.Parser())
	if err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrapf(err, "loading config %s", path)
		}
	}

	// Environment overrides the file: BOOKERY_REVIEW__THRESHOLD=0.9
	// becomes review.threshold.
	err = k.Load(env.Provider(envPrefix, ".", func(name string) string {
		key := strings.ToLower(strings.TrimPrefix(name, envPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	cfg := &Config{}
	err = k.Unmarshal("", cfg)
	if err != nil {
		return nil, errors.Wrap(err, "parsing config")
	}

	err = conform.Struct(context.Background(), cfg)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	err = defaults.Set(cfg)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = DefaultDatabasePath(home)
	}
	cfg.Database.Path = expandHome(cfg.Database.Path, home)
	cfg.Output.Dir = expandHome(cfg.Output.Dir, home)

	err = validate.Struct(cfg)
	if err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, errcodes.Validation("config: " + formatFieldError(verrs[0]))
		}
		return nil, errors.WithStack(err)
	}

	return cfg, nil
}

// DefaultPath returns the default config file location under home.
func DefaultPath(home string) string {
	return filepath.Join(home, ".bookery", "config.yaml")
}

// DefaultDatabasePath returns the default library database location under
// home.
func DefaultDatabasePath(home string) string {
	return filepath.Join(home, ".bookery", "library.db")
}

func expandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, strings.TrimPrefix(path, "~/"))
	}
	return path
}

var (
	conform  = modifiers.New()
	validate = validator.New()
	trans    ut.Translator
)

func init() {
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := fld.Tag.Get("koanf")
		if name == "" {
			return fld.Name
		}
		return name
	})

	english := en.New()
	uni := ut.New(english, english)
	trans, _ = uni.GetTranslator("en")
	if err := entranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		panic(err)
	}
}

// formatFieldError renders a validation failure with its full config key,
// so the two max_retries keys are not ambiguous in the message.
func formatFieldError(verr validator.FieldError) string {
	msg := verr.Translate(trans)

	// Namespace is Config.database.path; the leading struct name is noise.
	key := verr.Namespace()
	if idx := strings.Index(key, "."); idx >= 0 {
		key = key[idx+1:]
	}

	// Translated messages lead with the bare field name.
	return strings.Replace(msg, verr.Field(), key, 1)
}
