package env

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/joho/godotenv"
)

var Env map[string]string

func GetEnv(key, def string) string {
	// First check our loaded Env map
	if val, ok := Env[key]; ok {
		return val
	}
	// Fallback to OS environment variables (for Docker/tests)
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// GetBool parses a boolean variable ("true", "1", "yes").
func GetBool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(GetEnv(key, "")))
	switch v {
	case "":
		return def
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// GetInt parses an integer variable, falling back to def on parse errors.
func GetInt(key string, def int) int {
	v := strings.TrimSpace(GetEnv(key, ""))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warnf("[Env] %s=%q is not an integer, using %d", key, v, def)
		return def
	}
	return n
}

// GetDuration parses a Go duration string such as "10m".
func GetDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(GetEnv(key, ""))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warnf("[Env] %s=%q is not a duration, using %s", key, v, def)
		return def
	}
	return d
}

// GetList splits a comma separated variable and drops empty entries.
func GetList(key string) []string {
	raw := GetEnv(key, "")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func SetupEnvFile() {
	// Look for .env file in project root
	envFiles := []string{
		".env",          // Current directory
		"../../.env",    // From cmd/cashduezy to project root
		"../../../.env", // Fallback for deeper nesting
	}

	var err error
	for _, envFile := range envFiles {
		Env, err = godotenv.Read(envFile)
		if err == nil {
			return
		}
	}

	// Containers inject everything through the process environment.
	Env = map[string]string{}
	log.Warn("[Env] no .env file found, using process environment only")
}

func IsDev() bool {
	return GetEnv("APP_ENV", "prod") == "dev"
}
