// Package config loads the accounts server configuration.
//
// Values resolve in order: flag defaults, then the YAML file, then flags set
// on the command line.
package config

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/goliatone/go-accounts"
)

// Supported database drivers
const (
	DriverSQLite   = accounts.DriverSQLite
	DriverPostgres = accounts.DriverPostgres
	DriverMongo    = "mongo"
)

// Config is the server configuration
type Config struct {
	Debug    bool     `koanf:"debug" json:"debug"`
	Server   Server   `koanf:"server" json:"server"`
	Database Database `koanf:"database" json:"database"`
	Auth     Auth     `koanf:"auth" json:"auth"`
	Mail     Mail     `koanf:"mail" json:"mail"`
	Routes   Routes   `koanf:"routes" json:"routes"`
}

// Server holds the listener addresses
type Server struct {
	Address        string        `koanf:"address" json:"address"`
	MetricsAddress string        `koanf:"metrics_address" json:"metrics_address"`
	ShutdownGrace  time.Duration `koanf:"shutdown_grace" json:"shutdown_grace"`
}

// Database selects the credential store
type Database struct {
	Driver string `koanf:"driver" json:"driver"`
	DSN    string `koanf:"dsn" json:"dsn"`
	// Name is the mongo database name
	Name string `koanf:"name" json:"name"`
}

// Auth holds the session and token options
type Auth struct {
	SigningKey      string        `koanf:"signing_key" json:"signing_key"`
	SigningMethod   string        `koanf:"signing_method" json:"signing_method"`
	ContextKey      string        `koanf:"context_key" json:"context_key"`
	TokenExpiration int           `koanf:"token_expiration" json:"token_expiration"`
	TokenLookup     string        `koanf:"token_lookup" json:"token_lookup"`
	AuthScheme      string        `koanf:"auth_scheme" json:"auth_scheme"`
	Issuer          string        `koanf:"issuer" json:"issuer"`
	Audience        []string      `koanf:"audience" json:"audience"`
	TokenTTL        time.Duration `koanf:"token_ttl" json:"token_ttl"`
	UseHashid       bool          `koanf:"use_hashid" json:"use_hashid"`
	PasswordCost    int           `koanf:"password_cost" json:"password_cost"`
	PhoneRegion     string        `koanf:"phone_region" json:"phone_region"`
}

// Mail configures the SMTP notifier. Without a host notifications are
// written to the log.
type Mail struct {
	Host        string `koanf:"host" json:"host"`
	Port        int    `koanf:"port" json:"port"`
	Username    string `koanf:"username" json:"username"`
	Password    string `koanf:"password" json:"password"`
	From        string `koanf:"from" json:"from"`
	FrontendURL string `koanf:"frontend_url" json:"frontend_url"`
}

// Routes configures the HTTP surface
type Routes struct {
	Prefix string `koanf:"prefix" json:"prefix"`
}

var _ accounts.Config = (*Config)(nil)

// RegisterFlags adds every configuration key to fs with its default value
func RegisterFlags(fs *pflag.FlagSet) {
	fs.Bool("debug", false, "dump request payloads and configuration")

	fs.String("server.address", ":8080", "HTTP listen address")
	fs.String("server.metrics_address", ":9100", "metrics listen address (empty disables)")
	fs.Duration("server.shutdown_grace", 10*time.Second, "time allowed to drain requests on shutdown")

	fs.String("database.driver", DriverSQLite, "credential store: sqlite, postgres or mongo")
	fs.String("database.dsn", "file:accounts.db?cache=shared", "database connection string")
	fs.String("database.name", "accounts", "mongo database name")

	fs.String("auth.signing_key", "", "HS256 session signing key")
	fs.String("auth.signing_method", "HS256", "session signing method")
	fs.String("auth.context_key", "user", "router locals key for session claims")
	fs.Int("auth.token_expiration", 24, "session lifetime in hours, 0 never expires")
	fs.String("auth.token_lookup", "header:Authorization", "where session tokens are read from")
	fs.String("auth.auth_scheme", "Bearer", "authorization header scheme")
	fs.String("auth.issuer", "go-accounts", "session token issuer")
	fs.StringSlice("auth.audience", nil, "session token audience")
	fs.Duration("auth.token_ttl", 0, "confirmation and reset token lifetime, 0 never expires")
	fs.Bool("auth.use_hashid", false, "derive account ids from the email")
	fs.Int("auth.password_cost", 0, "bcrypt cost override, 0 keeps the default")
	fs.String("auth.phone_region", accounts.DefaultPhoneRegion, "region used to parse phone numbers")

	fs.String("mail.host", "", "SMTP host, empty logs notifications instead")
	fs.Int("mail.port", 587, "SMTP port")
	fs.String("mail.username", "", "SMTP username")
	fs.String("mail.password", "", "SMTP password")
	fs.String("mail.from", "APV - Administrador de Pacientes de Veterinaria <cuentas@apv.com>", "sender address")
	fs.String("mail.frontend_url", "http://localhost:5173", "base URL of the links sent by email")

	fs.String("routes.prefix", accounts.DefaultRoutesPrefix(), "path prefix of the account routes")
}

// Load reads the YAML file at path, when given, and merges it with fs.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to read config file "+path)
		}
	}

	if fs != nil {
		// unchanged flags only fill keys the file did not set
		if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to read flags")
		}
	}

	cfg := &Config{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to decode config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the values the server cannot start without
func (c *Config) Validate() error {
	err := validation.Errors{
		"database": validation.ValidateStruct(&c.Database,
			validation.Field(&c.Database.Driver, validation.Required, validation.In(DriverSQLite, DriverPostgres, DriverMongo)),
			validation.Field(&c.Database.DSN, validation.Required),
		),
		"auth": validation.ValidateStruct(&c.Auth,
			validation.Field(&c.Auth.SigningKey, validation.Required, validation.Length(16, 0)),
			validation.Field(&c.Auth.SigningMethod, validation.In("HS256")),
			validation.Field(&c.Auth.TokenExpiration, validation.Min(0)),
			validation.Field(&c.Auth.PasswordCost, validation.Min(0), validation.Max(31)),
		),
		"mail": validation.ValidateStruct(&c.Mail,
			validation.Field(&c.Mail.FrontendURL, is.URL),
		),
	}.Filter()

	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid configuration: "+err.Error())
	}
	return nil
}

// Redacted returns a copy safe to print
func (c Config) Redacted() Config {
	const mask = "****"
	if c.Database.DSN != "" {
		c.Database.DSN = mask
	}
	if c.Auth.SigningKey != "" {
		c.Auth.SigningKey = mask
	}
	if c.Mail.Password != "" {
		c.Mail.Password = mask
	}
	return c
}

func (c *Config) GetSigningKey() string {
	return c.Auth.SigningKey
}

func (c *Config) GetSigningMethod() string {
	return c.Auth.SigningMethod
}

func (c *Config) GetContextKey() string {
	return c.Auth.ContextKey
}

func (c *Config) GetTokenExpiration() int {
	return c.Auth.TokenExpiration
}

func (c *Config) GetTokenLookup() string {
	return c.Auth.TokenLookup
}

func (c *Config) GetAuthScheme() string {
	return c.Auth.AuthScheme
}

func (c *Config) GetIssuer() string {
	return c.Auth.Issuer
}

func (c *Config) GetAudience() []string {
	return c.Auth.Audience
}

func (c *Config) GetTokenTTL() time.Duration {
	return c.Auth.TokenTTL
}

func (c *Config) GetUseHashid() bool {
	return c.Auth.UseHashid
}
