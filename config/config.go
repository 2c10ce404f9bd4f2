package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port            string
	MongoURI        string
	MongoDB         string
	JWTSecret       string
	FrontendURL     string
	RedisAddr       string
	MailAPIKey      string
	MailSender      string
	UploadDir       string
	RateLimitPerMin int
}

func Load() Config {
	return Config{
		Port:            getenv("PORT", "5000"),
		MongoURI:        getenv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDB:         getenv("MONGO_DB", "nexus"),
		JWTSecret:       getenv("JWT_SECRET", "your-secret-key"),
		FrontendURL:     getenv("FRONTEND_URL", "http://localhost:3000"),
		RedisAddr:       getenv("REDIS_ADDR", ""),
		MailAPIKey:      getenv("MAIL_API_KEY", ""),
		MailSender:      getenv("MAIL_SENDER", "no-reply@nexus.local"),
		UploadDir:       getenv("UPLOAD_DIR", "uploads"),
		RateLimitPerMin: atoi(getenv("RATE_LIMIT_PER_MIN", "60")),
	}
}

func atoi(s string) int {
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return 0
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
