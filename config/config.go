package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	PropertyStoreDB     = "db"
	PropertyStoreMemory = "memory"
)

var (
	TLS_DOMAINS  = "" // e.g. "example.com,example2.com"
	BIND_ADDRESS = "0.0.0.0:8080"
	DEBUG_MODE   = true

	MYSQL_DSN    = "" // MySQL will be used if this is set
	POSTGRES_DSN = "" // Postgres will be used if MYSQL_DSN is not set and this is
	SQLITE_FILE  = "ifcserver.db"
	SESSION_KEY  = "" // Random per process if empty, which logs everybody's views out on restart

	// Property records can be kept in the main database (default) or in process memory
	PROPERTY_STORE = PropertyStoreDB

	// Raw model files go to STORAGE_DIR unless S3_BUCKET is configured
	STORAGE_DIR   = "uploads"
	S3_BUCKET     = ""
	S3_REGION     = "us-east-1"
	S3_ENDPOINT   = "" // For S3 compatible services, e.g. "https://s3.eu-central-003.backblazeb2.com"
	S3_PREFIX     = "models"
	S3_ACCESS_KEY = ""
	S3_SECRET_KEY = ""
	TMP_DIR       = "/tmp" // S3 objects are downloaded here for extraction

	MAX_UPLOAD_SIZE int64 = 100 * 1024 * 1024
	MIN_FREE_SPACE  int64 = 512 * 1024 * 1024 // Disk storage refuses uploads below this

	EXTRACT_WORKERS    = 2
	EXTRACT_QUEUE_SIZE = 64

	// Viewer sessions are dropped after this much inactivity
	VIEW_TTL = 2 * time.Hour
)

func init() {
	readEnvString("TLS_DOMAINS", &TLS_DOMAINS)
	readEnvString("BIND_ADDRESS", &BIND_ADDRESS)
	readEnvBool("DEBUG_MODE", &DEBUG_MODE)
	readEnvString("MYSQL_DSN", &MYSQL_DSN)
	readEnvString("POSTGRES_DSN", &POSTGRES_DSN)
	readEnvString("SQLITE_FILE", &SQLITE_FILE)
	readEnvString("SESSION_KEY", &SESSION_KEY)
	readEnvString("PROPERTY_STORE", &PROPERTY_STORE)
	readEnvString("STORAGE_DIR", &STORAGE_DIR)
	readEnvString("S3_BUCKET", &S3_BUCKET)
	readEnvString("S3_REGION", &S3_REGION)
	readEnvString("S3_ENDPOINT", &S3_ENDPOINT)
	readEnvString("S3_PREFIX", &S3_PREFIX)
	readEnvString("S3_ACCESS_KEY", &S3_ACCESS_KEY)
	readEnvString("S3_SECRET_KEY", &S3_SECRET_KEY)
	readEnvString("TMP_DIR", &TMP_DIR)
	readEnvInt64("MAX_UPLOAD_SIZE", &MAX_UPLOAD_SIZE)
	readEnvInt64("MIN_FREE_SPACE", &MIN_FREE_SPACE)
	readEnvInt("EXTRACT_WORKERS", &EXTRACT_WORKERS)
	readEnvInt("EXTRACT_QUEUE_SIZE", &EXTRACT_QUEUE_SIZE)
	readEnvDuration("VIEW_TTL", &VIEW_TTL)
}

func readEnvString(name string, value *string) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	*value = v
}

func readEnvBool(name string, value *bool) {
	v := strings.ToLower(os.Getenv(name))
	if v == "true" || v == "1" || v == "yes" || v == "on" {
		*value = true
	} else if v == "false" || v == "0" || v == "no" || v == "off" {
		*value = false
	}
}

func readEnvInt(name string, value *int) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return
	}
	*value = i
}

func readEnvInt64(name string, value *int64) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return
	}
	*value = i
}

// readEnvDuration accepts Go durations ("90m") or plain seconds ("5400")
func readEnvDuration(name string, value *time.Duration) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*value = d
		return
	}
	if s, err := strconv.Atoi(v); err == nil {
		*value = time.Duration(s) * time.Second
	}
}
