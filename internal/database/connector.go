package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/koba/db-migrate/internal/schema"
)

// Config holds database connection configuration
type Config struct {
	Type     string // "mysql", "postgres" or "sqlite"
	Host     string
	Port     string
	Database string // database name, or file path for sqlite
	User     string
	Password string
}

// Dialect is the per-engine capability surface. Reflection produces schema
// snapshots; the column operations are the in-place alteration primitives
// the applier uses when SupportsInPlaceAlter allows it.
type Dialect interface {
	Connect() error
	Close() error

	// DB exposes the underlying connection for transactional work
	DB() *sql.DB

	// Name returns the dialect identifier ("mysql", "postgres", "sqlite")
	Name() string

	// Reflect reads the live schema into a snapshot
	Reflect(ctx context.Context) (*schema.Snapshot, error)

	// SupportsInPlaceAlter reports whether the engine can drop and alter
	// columns without rebuilding the table
	SupportsInPlaceAlter() bool

	CreateTable(ctx context.Context, table *schema.Table) error
	DropTable(ctx context.Context, name string) error
	CreateColumn(ctx context.Context, table string, col *schema.Column) error
	DropColumn(ctx context.Context, table, column string) error
	AlterColumn(ctx context.Context, table string, from, to *schema.Column) error
}

// NewDialect creates a dialect for the configured database type
func NewDialect(config Config, log *zap.Logger) (Dialect, error) {
	if log == nil {
		log = zap.NewNop()
	}
	switch config.Type {
	case "mysql", "MySQL":
		return NewMySQL(config, log), nil
	case "postgres", "Postgres", "PostgreSQL":
		return NewPostgres(config, log), nil
	case "sqlite", "sqlite3", "SQLite":
		return NewSQLite(config, log), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", config.Type)
	}
}

// LoadConfig loads connection configuration from dbmigrate.yaml when
// present, then lets environment variables override. A .env file in the
// working directory is honored.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("dbmigrate")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	config := Config{
		Type:     v.GetString("database.type"),
		Host:     v.GetString("database.host"),
		Port:     v.GetString("database.port"),
		Database: v.GetString("database.name"),
		User:     v.GetString("database.user"),
		Password: v.GetString("database.password"),
	}

	if t := os.Getenv("DB_TYPE"); t != "" {
		config.Type = t
	}
	if h := os.Getenv("DB_HOST"); h != "" {
		config.Host = h
	}
	if p := os.Getenv("DB_PORT"); p != "" {
		config.Port = p
	}
	if n := os.Getenv("DB_NAME"); n != "" {
		config.Database = n
	}
	if u := os.Getenv("DB_USER"); u != "" {
		config.User = u
	}
	if pw := os.Getenv("DB_PASSWORD"); pw != "" {
		config.Password = pw
	}

	if config.Type == "" {
		return Config{}, fmt.Errorf("database type is required (DB_TYPE or database.type)")
	}
	if config.Database == "" {
		return Config{}, fmt.Errorf("database name is required (DB_NAME or database.name)")
	}
	if config.Host == "" {
		config.Host = "localhost"
	}
	if config.Port == "" {
		switch config.Type {
		case "mysql", "MySQL":
			config.Port = "3306"
		case "postgres", "Postgres", "PostgreSQL":
			config.Port = "5432"
		}
	}

	return config, nil
}
