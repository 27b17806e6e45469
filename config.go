package main

import (
	"ifcserver/config"

	"github.com/spf13/cobra"
)

// setupServeFlags lets the command line override the environment
func setupServeFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&config.BIND_ADDRESS, "bind", config.BIND_ADDRESS, "Address to listen on")
	flags.StringVar(&config.TLS_DOMAINS, "tls-domains", config.TLS_DOMAINS, "Comma separated domains for automatic TLS certificates")
	flags.BoolVar(&config.DEBUG_MODE, "debug", config.DEBUG_MODE, "Debug logging, no response compression")
	flags.StringVar(&config.MYSQL_DSN, "mysql-dsn", config.MYSQL_DSN, "MySQL DSN")
	flags.StringVar(&config.POSTGRES_DSN, "postgres-dsn", config.POSTGRES_DSN, "Postgres DSN, used if no MySQL DSN is set")
	flags.StringVar(&config.SQLITE_FILE, "sqlite", config.SQLITE_FILE, "SQLite database file, used if no other database is set")
	flags.StringVar(&config.PROPERTY_STORE, "property-store", config.PROPERTY_STORE, "Where property records are kept: db or memory")
	flags.StringVar(&config.STORAGE_DIR, "storage-dir", config.STORAGE_DIR, "Directory for uploaded models")
	flags.StringVar(&config.S3_BUCKET, "s3-bucket", config.S3_BUCKET, "Store uploaded models in this S3 bucket")
	flags.Int64Var(&config.MAX_UPLOAD_SIZE, "max-upload-size", config.MAX_UPLOAD_SIZE, "Largest accepted model in bytes")
	flags.IntVar(&config.EXTRACT_WORKERS, "workers", config.EXTRACT_WORKERS, "Number of extraction workers")
	flags.IntVar(&config.EXTRACT_QUEUE_SIZE, "queue-size", config.EXTRACT_QUEUE_SIZE, "Extraction queue capacity")
	flags.DurationVar(&config.VIEW_TTL, "view-ttl", config.VIEW_TTL, "Viewer sessions expire after this inactivity")
}
