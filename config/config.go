package config

import (
    "log"
    "os"
    "strconv"
    "time"
)

type Config struct {
    ServerAddr string
    DBHost     string
    DBPort     string
    DBUser     string
    DBPassword string
    DBName     string
    MongoURI   string
    JWTSecret  string

    CountdownInterval time.Duration
    HeartbeatInterval time.Duration
}

var signingKey []byte

// SigningKey returns the JWT signing key from the loaded configuration.
func SigningKey() []byte {
    if len(signingKey) == 0 {
        signingKey = []byte(getEnv("JWT_SECRET", "secret"))
    }
    return signingKey
}

func LoadConfig() *Config {
    return &Config{
        ServerAddr: getEnv("SERVER_ADDR", ":8000"),
        DBHost:     getEnv("DB_HOST", "localhost"),
        DBPort:     getEnv("DB_PORT", "5432"),
        DBUser:     getEnv("DB_USER", "user"),
        DBPassword: getEnv("DB_PASSWORD", "password"),
        DBName:     getEnv("DB_NAME", "typerush"),
        MongoURI:   getEnv("MONGO_URI", "mongodb://localhost:27017"),
        JWTSecret:  getEnv("JWT_SECRET", "secret"),

        CountdownInterval: getEnvMillis("COUNTDOWN_INTERVAL_MS", 1000),
        HeartbeatInterval: getEnvMillis("HEARTBEAT_INTERVAL_MS", 5000),
    }
}

// getEnv reads an environment variable and returns its value or a default value
func getEnv(key, defaultValue string) string {
    value, exists := os.LookupEnv(key)
    if !exists {
        value = defaultValue
        log.Printf("Environment variable %s not set, using default value: %s", key, defaultValue)
    }
    return value
}

func getEnvMillis(key string, defaultValue int) time.Duration {
    raw, exists := os.LookupEnv(key)
    if !exists {
        return time.Duration(defaultValue) * time.Millisecond
    }
    ms, err := strconv.Atoi(raw)
    if err != nil || ms <= 0 {
        log.Printf("Environment variable %s invalid (%q), using default value: %dms", key, raw, defaultValue)
        return time.Duration(defaultValue) * time.Millisecond
    }
    return time.Duration(ms) * time.Millisecond
}
