package config

import (
	"database/sql"
	"log"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

var DB *sql.DB

func InitDB() {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN is not set")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		log.Fatal("MySQL open failed:", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		log.Fatal("MySQL not reachable:", err)
	}

	DB = db
	log.Println("MySQL connected")
}

func CloseDB() {
	if DB != nil {
		_ = DB.Close()
	}
}
