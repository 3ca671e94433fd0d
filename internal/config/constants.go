package config

import "time"

// Application identity
const (
	AppName    = "Balança Comercial SC"
	AppVersion = "2.0.0"

	// EnvPrefix namespaces every environment variable (BALANCA_SERVER_PORT, ...).
	EnvPrefix = "BALANCA"

	// ConfigFileEnv points at an explicit YAML config file.
	ConfigFileEnv = "BALANCA_CONFIG_FILE"
)

// Data sources
const (
	SourceFile     = "file"
	SourcePostgres = "postgres"
	SourceSQLite   = "sqlite"
)

// File encodings understood by the loader
const (
	EncodingUTF8   = "utf-8"
	EncodingLatin1 = "latin1"
)

// Defaults shared by Default() and the ingest CLI
const (
	DefaultUF              = "SC"
	DefaultDelimiter       = ";"
	DefaultSQLitePath      = "data/balanca.db"
	DefaultTopN            = 10
	DefaultMaxTopN         = 100
	DefaultLoadTimeout     = 5 * time.Minute
	DefaultRefreshInterval = time.Duration(0)
)
