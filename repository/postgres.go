package repository

import (
    "database/sql"
    "fmt"
    "log"

    _ "github.com/lib/pq"

    "github.com/typerush/typerush/typerush-backend/config"
)

// PostgreSQLDB is the shared connection pool, set by ConnectToPostgreSQL.
var PostgreSQLDB *sql.DB

// ConnectToPostgreSQL opens the relational store for accounts and race
// records. The process cannot serve without it, so failures are fatal.
func ConnectToPostgreSQL(cfg *config.Config) *sql.DB {
    connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
        cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName)

    db, err := sql.Open("postgres", connStr)
    if err != nil {
        log.Fatalln(err)
    }

    if err := db.Ping(); err != nil {
        db.Close()
        log.Fatal(err)
    }
    PostgreSQLDB = db

    log.Println("Successfully connected to PostgreSQL")
    return db
}
