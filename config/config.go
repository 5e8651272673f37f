package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
	Migrate          bool

	GooglePlacesKey string
	GoogleMapsKey   string
	FoursquareKey   string
	Providers       []string
	OverpassURL     string
	ChromeBin       string
	HTTPTimeout     time.Duration
	SearchRadiusM   float64
	ResultsPerCall  int
	ResultsPerCat   int
	MaxConcurrency  int
	RateLimitMs     int
	MaxRetries      int
	RateLimitWindow time.Duration
	TransitRadiusM  float64
	TransitMaxStops int
	RouteDelay      time.Duration
	LogLevel        string

	RedisAddr     string
	RedisPassword string
	CacheTTL      time.Duration

	KafkaBroker  string
	KafkaTopic   string
	KafkaGroupID string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	HTTPAddr       string
	CatalogPath    string
	TransitDataDir string
	ExportCSVPath  string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	googleKey := getEnv("GOOGLE_PLACES_API_KEY", "")

	return &Config{
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "guide"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "guide123"),
		PostgresDB:       getEnv("POSTGRES_DB", "guide_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		Migrate:          getEnvBool("DB_MIGRATE", false),

		GooglePlacesKey: googleKey,
		GoogleMapsKey:   getEnv("GOOGLE_MAPS_API_KEY", googleKey),
		FoursquareKey:   getEnv("FOURSQUARE_API_KEY", ""),
		Providers:       getEnvList("PROVIDERS", []string{"foursquare", "google", "osm"}),
		OverpassURL:     getEnv("OVERPASS_URL", "https://overpass-api.de/api/interpreter"),
		ChromeBin:       getEnv("CHROME_BIN", ""),
		HTTPTimeout:     time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 15)) * time.Second,
		SearchRadiusM:   getEnvFloat("SEARCH_RADIUS_METERS", 2000),
		ResultsPerCall:  getEnvInt("RESULTS_PER_PROVIDER", 3),
		ResultsPerCat:   getEnvInt("RESULTS_PER_CATEGORY", 3),
		MaxConcurrency:  getEnvInt("MAX_CONCURRENCY", 3),
		RateLimitMs:     getEnvInt("RATE_LIMIT_MS", 250),
		MaxRetries:      getEnvInt("MAX_RETRIES", 3),
		RateLimitWindow: time.Duration(getEnvFloat("RATE_LIMIT_WINDOW_HOURS", 24) * float64(time.Hour)),
		TransitRadiusM:  getEnvFloat("TRANSIT_RADIUS_METERS", 600),
		TransitMaxStops: getEnvInt("TRANSIT_MAX_STOPS", 3),
		RouteDelay:      time.Duration(getEnvInt("ROUTE_DELAY_MS", 300)) * time.Millisecond,
		LogLevel:        getEnv("LOG_LEVEL", "info"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		CacheTTL:      time.Duration(getEnvInt("CACHE_TTL_HOURS", 24)) * time.Hour,

		KafkaBroker:  getEnv("KAFKA_BROKER", "localhost:9092"),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "discovery-jobs"),
		KafkaGroupID: getEnv("KAFKA_GROUP_ID", "place-discovery"),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", ""),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getEnv("MINIO_BUCKET", "discovery-runs"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		CatalogPath:    getEnv("CATALOG_PATH", ""),
		TransitDataDir: getEnv("TRANSIT_DATA_DIR", "./data/transit/bariloche"),
		ExportCSVPath:  getEnv("EXPORT_CSV_PATH", ""),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

// getEnvList splits a comma separated value, dropping blanks.
func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
