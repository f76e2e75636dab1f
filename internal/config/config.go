// Package config loads the YAML configuration of a typegraph server.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/hanpama/typegraph/internal/catalog"
	"github.com/hanpama/typegraph/internal/node"
)

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Server ServerConfig  `yaml:"server"`
	Store  StoreConfig   `yaml:"store"`
	Tables []TableConfig `yaml:"tables" validate:"dive"`
	Log    LogConfig     `yaml:"log"`
	OTel   OTelConfig    `yaml:"otel"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" validate:"required"`
	Timeout         time.Duration `yaml:"timeout" validate:"gte=0"`
	Pretty          bool          `yaml:"pretty"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes" validate:"gte=0"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	MetadataHeaders []string      `yaml:"metadata_headers" validate:"dive,required"`
	ListConcurrency int           `yaml:"list_concurrency" validate:"gte=0"`
}

// StoreConfig selects the key-value store behind the tables.
type StoreConfig struct {
	Driver string `yaml:"driver" validate:"oneof=memory sqlite postgres mysql grpc"`
	DSN    string `yaml:"dsn"`
	Table  string `yaml:"table"`
	// SnapshotFile persists the memory store across restarts.
	SnapshotFile        string        `yaml:"snapshot_file"`
	Endpoints           []string      `yaml:"endpoints" validate:"dive,hostname_port"`
	MaxConnsPerEndpoint int           `yaml:"max_conns_per_endpoint" validate:"gte=0"`
	RPCTimeout          time.Duration `yaml:"rpc_timeout" validate:"gte=0"`
}

type TableConfig struct {
	Name        string            `yaml:"name" validate:"required"`
	Description string            `yaml:"description"`
	Attributes  []AttributeConfig `yaml:"attributes" validate:"dive"`
}

type AttributeConfig struct {
	Name        string `yaml:"name" validate:"required"`
	Type        string `yaml:"type" validate:"omitempty,oneof=String Int Float Boolean ID DateTime UUID"`
	Required    bool   `yaml:"required"`
	Description string `yaml:"description"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

type OTelConfig struct {
	Endpoint string `yaml:"endpoint" validate:"omitempty,hostname_port"`
	Service  string `yaml:"service" validate:"required"`
}

// Default returns the configuration used for absent keys.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:         ":8080",
			Timeout:      10 * time.Second,
			MaxBodyBytes: 1 << 20,
		},
		Store: StoreConfig{
			Driver:              "memory",
			MaxConnsPerEndpoint: 2,
			RPCTimeout:          3 * time.Second,
		},
		Log:  LogConfig{Level: "info", Format: "text"},
		OTel: OTelConfig{Service: "typegraph"},
	}
}

// Load reads and validates the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		return name
	})
	v.RegisterStructValidation(storeRules, StoreConfig{})
	return v
}

func storeRules(sl validator.StructLevel) {
	s := sl.Current().Interface().(StoreConfig)
	switch s.Driver {
	case "sqlite", "postgres", "mysql":
		if s.DSN == "" {
			sl.ReportError(s.DSN, "dsn", "DSN", "required_for_sql", s.Driver)
		}
	case "grpc":
		if len(s.Endpoints) == 0 {
			sl.ReportError(s.Endpoints, "endpoints", "Endpoints", "required_for_grpc", "")
		}
	}
}

// Validate checks field rules and reports every violation.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		ns := fe.Namespace()
		if _, rest, ok := strings.Cut(ns, "."); ok {
			ns = rest
		}
		msg := fmt.Sprintf("%s: failed %q", ns, fe.Tag())
		if fe.Param() != "" {
			msg += fmt.Sprintf(" (%s)", fe.Param())
		}
		msgs = append(msgs, errors.New(msg))
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(msgs...))
}

// CatalogTables converts the table section for catalog.New.
func (c *Config) CatalogTables() []catalog.Table {
	out := make([]catalog.Table, len(c.Tables))
	for i, t := range c.Tables {
		out[i] = catalog.Table{Name: t.Name, Description: t.Description}
		for _, a := range t.Attributes {
			out[i].Attributes = append(out[i].Attributes, node.Attribute{
				Name:        a.Name,
				Type:        a.Type,
				Required:    a.Required,
				Description: a.Description,
			})
		}
	}
	return out
}
