// Package config describes configuration of the krause-deploy tool.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"
)

// Default values of the optional settings.
const (
	DefaultDialTimeout    = 15 * time.Second
	DefaultRequestTimeout = 15 * time.Second
	DefaultLogLevel       = "info"
)

// Config is the root of the YAML configuration file.
type Config struct {
	RPC    RPC    `yaml:"rpc"`
	Wallet Wallet `yaml:"wallet"`

	// Directory with compiled contracts, one subdirectory per contract.
	Artifacts string `yaml:"artifacts" validate:"required" jsonschema:"description=Directory with compiled contracts"`

	// Optional path to the JSON report of the run. The file must not exist.
	Report string `yaml:"report,omitempty" jsonschema:"description=Path of the JSON run report"`

	LogLevel string `yaml:"log_level,omitempty" validate:"omitempty,oneof=debug info warn error" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

// RPC configures connection to the Neo RPC server.
type RPC struct {
	Endpoint       string        `yaml:"endpoint" validate:"required,url" jsonschema:"description=Neo RPC server URL"`
	// Timeouts need a unit suffix: bare YAML integers are nanoseconds and are
	// rejected by the validation.
	DialTimeout    time.Duration `yaml:"dial_timeout,omitempty" validate:"omitempty,min=1ms"`
	RequestTimeout time.Duration `yaml:"request_timeout,omitempty" validate:"omitempty,min=1ms"`
}

// Wallet configures account signing the deployment transactions.
type Wallet struct {
	Path string `yaml:"path" validate:"required" jsonschema:"description=NEP-6 wallet file"`

	// Account address. The first wallet account is used if empty.
	Account string `yaml:"account,omitempty"`

	Password string `yaml:"password,omitempty"`
}

var validate = validator.New()

// Default returns Config with all optional settings set to their defaults.
func Default() Config {
	return Config{
		RPC: RPC{
			DialTimeout:    DefaultDialTimeout,
			RequestTimeout: DefaultRequestTimeout,
		},
		LogLevel: DefaultLogLevel,
	}
}

// Load reads Config from the YAML file. Settings missing in the file keep
// their default values. Load does not validate the result.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

// Decode reads Config from the YAML stream. See Load.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	err := dec.Decode(&cfg)
	if err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode YAML config: %w", err)
	}

	return cfg, nil
}

// Validate checks all settings required for the deployment.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return nil
}

// ValidateOffline checks settings required for the operations which do not
// connect to the network: wallet, artifacts and logging.
func (c Config) ValidateOffline() error {
	err := validate.Struct(c.Wallet)
	if err == nil {
		err = validate.Var(c.Artifacts, "required")
	}
	if err == nil {
		err = validate.Var(c.LogLevel, "omitempty,oneof=debug info warn error")
	}
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return nil
}

// Schema returns JSON schema of the configuration file.
func Schema() ([]byte, error) {
	r := jsonschema.Reflector{
		FieldNameTag: "yaml",
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t == reflect.TypeOf(time.Duration(0)) {
				return &jsonschema.Schema{
					Type:        "string",
					Description: "Duration in Go format with a unit suffix, e.g. 15s",
				}
			}
			return nil
		},
	}

	s := r.Reflect(new(Config))
	s.Title = "krause-deploy configuration"

	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")

	err := enc.Encode(s)
	if err != nil {
		return nil, fmt.Errorf("encode JSON schema: %w", err)
	}

	return buf.Bytes(), nil
}
