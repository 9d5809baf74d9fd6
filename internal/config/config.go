package config

import (
	"os"
	"strconv"
)

type Config struct {
	Env                 string
	Port                int
	DatabaseURL         string
	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	PublicBaseURL       string
	AllowedOrigin       string
	UploadsDir          string
	MaxUploadMB         int
	LogJSON             bool
}

func Default() Config {
	return Config{
		Env:           "dev",
		Port:          5000,
		DatabaseURL:   "",
		PublicBaseURL: "http://localhost:5173",
		AllowedOrigin: "*",
		UploadsDir:    "./uploads",
		MaxUploadMB:   50,
		LogJSON:       true,
	}
}

func EnvDefaults() Config {
	return fromEnv(Default())
}

func fromEnv(c Config) Config {
	if v := os.Getenv("FLIPBOOK_ENV"); v != "" {
		c.Env = v
	}
	if v := os.Getenv("FLIPBOOK_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Port = p
		}
	}
	if v := os.Getenv("FLIPBOOK_DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("CLOUDINARY_CLOUD_NAME"); v != "" {
		c.CloudinaryCloudName = v
	}
	if v := os.Getenv("CLOUDINARY_API_KEY"); v != "" {
		c.CloudinaryAPIKey = v
	}
	if v := os.Getenv("CLOUDINARY_API_SECRET"); v != "" {
		c.CloudinaryAPISecret = v
	}
	if v := os.Getenv("FLIPBOOK_PUBLIC_URL"); v != "" {
		c.PublicBaseURL = v
	}
	if v := os.Getenv("FLIPBOOK_ALLOWED_ORIGIN"); v != "" {
		c.AllowedOrigin = v
	}
	if v := os.Getenv("FLIPBOOK_UPLOADS_DIR"); v != "" {
		c.UploadsDir = v
	}
	if v := os.Getenv("FLIPBOOK_MAX_UPLOAD_MB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.MaxUploadMB = n
		}
	}
	if v := os.Getenv("FLIPBOOK_LOG_JSON"); v != "" {
		switch v {
		case "1", "true", "TRUE":
			c.LogJSON = true
		case "0", "false", "FALSE":
			c.LogJSON = false
		}
	}
	return c
}

func (c Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}
