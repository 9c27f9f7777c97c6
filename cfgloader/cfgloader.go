// Package cfgloader loads and validates configuration at application start.
package cfgloader

import (
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"slices"
	"strings"

	"github.com/code19m/errx"
	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rise-and-shine/actionrpc/val"
)

const (
	EnvProduction = "production"
	EnvStaging    = "staging"
	EnvDev        = "dev"
	EnvLocal      = "local"
	EnvTest       = "test"
)

const CodeInvalidConfig = "INVALID_CONFIG"

// MustLoad loads ./config/${ENVIRONMENT}.yaml into T and exits the process
// on any failure. A .env file in the working directory is loaded first.
//
// Environment variables referenced as $VAR or ${VAR} in the file are
// expanded. Fields left empty receive their `default` tag and the result is
// validated by its `validate` tags.
//
// Example:
//
//	type Config struct {
//	    Server server.Config `yaml:"server"`
//	    Redis  rediswr.Config `yaml:"redis"`
//	}
func MustLoad[T any](opts ...Option) T {
	o := buildOptions(opts)

	_ = godotenv.Load()

	env := os.Getenv("ENVIRONMENT")
	if !slices.Contains([]string{EnvProduction, EnvStaging, EnvDev, EnvLocal, EnvTest}, env) {
		fail("ENVIRONMENT env variable is not set or invalid. Choices are: production, staging, dev, local, test")
	}

	config, err := Load[T](fmt.Sprintf("./config/%s.yaml", env))
	if err != nil {
		fail(describe(err))
	}

	if !o.Silent {
		printConfig(config)
	}
	return config
}

// Load reads, expands, defaults and validates the YAML file at path.
func Load[T any](path string) (T, error) {
	var config T

	if reflect.TypeOf(config) == nil || reflect.TypeOf(config).Kind() == reflect.Pointer {
		return config, invalid("type argument must be a non-pointer struct", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return config, errx.Wrap(err, errx.WithCode(CodeInvalidConfig), errx.WithDetails(errx.D{"path": path}))
	}

	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &config); err != nil {
		return config, invalid("failed to unmarshal config: "+err.Error(), path)
	}

	if err := defaults.Set(&config); err != nil {
		return config, invalid("failed to set default values: "+err.Error(), path)
	}

	if err := val.ValidateSchema(config); err != nil {
		return config, err
	}

	return config, nil
}

func invalid(msg, path string) error {
	return errx.New(msg,
		errx.WithCode(CodeInvalidConfig),
		errx.WithType(errx.T_Validation),
		errx.WithDetails(errx.D{"path": path}),
	)
}

// describe flattens failed fields into a single line.
func describe(err error) string {
	e := errx.AsErrorX(err)
	if len(e.Fields()) == 0 {
		return e.Error()
	}

	failed := make([]string, 0, len(e.Fields()))
	for field, desc := range e.Fields() {
		failed = append(failed, field+": "+desc)
	}
	slices.Sort(failed)
	return "invalid config fields -> " + strings.Join(failed, ", ")
}

func fail(msg string) {
	slog.Error("[cfgloader]: " + msg)
	os.Exit(1)
}
