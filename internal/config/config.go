package config

import "os"

type Config struct {
	Server   ServerConfig
	Auth     AuthConfig
	Storage  StorageConfig
	Postgres PostgresConfig
}

type ServerConfig struct {
	Port           string
	AllowedOrigins string
}

// AuthConfig carries raw env values; the auth service validates and
// parses them. JWTSecret has no default on purpose — startup fails
// without one.
type AuthConfig struct {
	JWTSecret      string
	JWTAccessTTL   string
	JWTRefreshTTL  string
	AllowSignup    string
	CookieSecure   string
	CookieSameSite string
	CookiePath     string
	CookieDomain   string
	AdminLoginID   string
	AdminPassword  string
}

type StorageConfig struct {
	Bucket       string
	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	UsePathStyle string
}

type PostgresConfig struct {
	DatabaseURL string
	Host        string
	Port        string
	User        string
	Password    string
	Database    string
	SSLMode     string
}

func Load() Config {
	return Config{
		Server: ServerConfig{
			Port:           getenv("PORT", "8080"),
			AllowedOrigins: os.Getenv("ALLOWED_ORIGINS"),
		},
		Auth: AuthConfig{
			JWTSecret:      os.Getenv("JWT_SECRET"),
			JWTAccessTTL:   getenv("JWT_ACCESS_TTL", "1h"),
			JWTRefreshTTL:  getenv("JWT_REFRESH_TTL", "720h"),
			AllowSignup:    getenv("ALLOW_SIGNUP", "true"),
			CookieSecure:   os.Getenv("AUTH_COOKIE_SECURE"),
			CookieSameSite: os.Getenv("AUTH_COOKIE_SAMESITE"),
			CookiePath:     os.Getenv("AUTH_COOKIE_PATH"),
			CookieDomain:   os.Getenv("AUTH_COOKIE_DOMAIN"),
			AdminLoginID:   os.Getenv("ADMIN_USERNAME"),
			AdminPassword:  os.Getenv("ADMIN_PASSWORD"),
		},
		Storage: StorageConfig{
			Bucket:       os.Getenv("S3_BUCKET"),
			Region:       getenv("S3_REGION", "us-east-1"),
			Endpoint:     os.Getenv("S3_ENDPOINT"),
			AccessKey:    os.Getenv("S3_ACCESS_KEY"),
			SecretKey:    os.Getenv("S3_SECRET_KEY"),
			UsePathStyle: getenv("S3_USE_PATH_STYLE", "true"),
		},
		Postgres: PostgresConfig{
			DatabaseURL: os.Getenv("DATABASE_URL"),
			Host:        getenv("PGHOST", "localhost"),
			Port:        getenv("PGPORT", "5432"),
			User:        os.Getenv("PGUSER"),
			Password:    os.Getenv("PGPASSWORD"),
			Database:    os.Getenv("PGDATABASE"),
			SSLMode:     getenv("PGSSLMODE", "disable"),
		},
	}
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
