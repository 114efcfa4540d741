package main

import (
    "log"
    "net/http"

    "github.com/joho/godotenv"

    "github.com/typerush/typerush/typerush-backend/config"
    "github.com/typerush/typerush/typerush-backend/handlers"
    "github.com/typerush/typerush/typerush-backend/race"
    "github.com/typerush/typerush/typerush-backend/repository"
    "github.com/typerush/typerush/typerush-backend/utils"
)

func main() {
    if err := godotenv.Load(); err != nil {
        log.Println("No .env file loaded:", err)
    }

    cfg := config.LoadConfig()
    repository.ConnectToPostgreSQL(cfg)
    repository.ConnectMongoDB(cfg)

    hub := handlers.NewHub()
    registry := race.NewRegistry(race.Options{
        Broadcaster:       hub,
        Scores:            handlers.NewScoreStore(hub),
        Sanitize:          utils.SanitizeText,
        CountdownInterval: cfg.CountdownInterval,
        HeartbeatInterval: cfg.HeartbeatInterval,
    })
    gateway := handlers.NewGateway(hub, registry)

    r := handlers.NewRouter(gateway)

    log.Printf("Server running on %s", cfg.ServerAddr)
    if err := http.ListenAndServe(cfg.ServerAddr, r); err != nil {
        log.Fatal(err)
    }
}
