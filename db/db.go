package db

import (
	"fmt"
	"ifcserver/config"
	"log"
	"os"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var Instance *gorm.DB

// Init opens the database picked by config: MySQL, then Postgres, then SQLite
func Init() {
	var dialector gorm.Dialector
	if config.MYSQL_DSN != "" {
		log.Println("Using MySQL database")
		dsn, err := MySQLDSN(config.MYSQL_DSN)
		if err != nil {
			panic(err)
		}
		dialector = mysql.Open(dsn)
	} else if config.POSTGRES_DSN != "" {
		log.Println("Using Postgres database")
		dialector = postgres.Open(config.POSTGRES_DSN)
	} else if config.SQLITE_FILE != "" {
		log.Printf("Using SQLite database: %s", config.SQLITE_FILE)
		dialector = sqlite.Open(config.SQLITE_FILE)
	} else {
		panic("no database configured, set MYSQL_DSN, POSTGRES_DSN or SQLITE_FILE")
	}
	db, err := Open(dialector, config.DEBUG_MODE)
	if err != nil {
		panic(err)
	}
	Instance = db
}

// MySQLDSN validates dsn and turns on parseTime
func MySQLDSN(dsn string) (string, error) {
	cfg, err := gomysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid MySQL DSN: %w", err)
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

func Open(dialector gorm.Dialector, debug bool) (*gorm.DB, error) {
	level := logger.Warn
	if debug {
		level = logger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		Logger: logger.New(log.New(os.Stdout, "\r\n", log.LstdFlags), logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil || db == nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	return db, nil
}

// OpenSQLite is used by tests and the extract command
func OpenSQLite(file string) (*gorm.DB, error) {
	return Open(sqlite.Open(file), false)
}
