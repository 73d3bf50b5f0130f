package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	StoreLocal = "local"
	StoreS3    = "s3"
)

// Config holds the artifact store and run tracking settings loaded from
// environment variables.
type Config struct {
	ArtifactStore string
	ArtifactRoot  string

	S3Bucket   string
	S3Prefix   string
	S3Region   string
	S3Endpoint string

	TrackingDSN string
	StagingFile string
	Verbose     bool

	// EnvFileLoaded reports whether a .env file was found.
	EnvFileLoaded bool
}

// Load reads the .env file, if any, and returns a populated Config.
func Load() *Config {
	envErr := godotenv.Load()

	return &Config{
		ArtifactStore: strings.ToLower(getEnv("ARTIFACT_STORE", StoreLocal)),
		ArtifactRoot:  getEnv("ARTIFACT_ROOT", "./artifacts"),

		S3Bucket:   getEnv("S3_BUCKET", ""),
		S3Prefix:   getEnv("S3_PREFIX", ""),
		S3Region:   getEnv("AWS_REGION", ""),
		S3Endpoint: getEnv("S3_ENDPOINT", ""),

		TrackingDSN: getEnv("TRACKING_DSN", ""),
		StagingFile: getEnv("STAGING_FILE", "clean_sample.csv"),
		Verbose:     getEnvBool("LOG_VERBOSE", false),

		EnvFileLoaded: envErr == nil,
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
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
