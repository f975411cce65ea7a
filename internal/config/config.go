package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAPIBaseURL = "/api"
	defaultAPIOrigin  = "http://localhost:8000"

	// RequestTimeout is the fixed timeout for every call to the biometric service.
	RequestTimeout = 60 * time.Second
)

type Config struct {
	API    APIConfig
	Camera CameraConfig
	Log    LogConfig
	Web    WebConfig
}

type APIConfig struct {
	BaseURL string // defaults to /api
	Origin  string // used when BaseURL is relative, defaults to http://localhost:8000
}

// ResolveBaseURL returns the absolute base URL of the biometric service.
// A relative BaseURL (the default "/api") is resolved against Origin.
func (c *APIConfig) ResolveBaseURL() (string, error) {
	base := c.BaseURL
	if base == "" {
		base = defaultAPIBaseURL
	}
	ref, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid FACE_API_URL %q: %w", base, err)
	}
	if ref.IsAbs() {
		return strings.TrimSuffix(ref.String(), "/"), nil
	}

	origin := c.Origin
	if origin == "" {
		origin = defaultAPIOrigin
	}
	originURL, err := url.Parse(origin)
	if err != nil || !originURL.IsAbs() {
		return "", fmt.Errorf("invalid FACE_API_ORIGIN %q", origin)
	}
	return strings.TrimSuffix(originURL.ResolveReference(ref).String(), "/"), nil
}

type CameraConfig struct {
	Device string // V4L2 device path, defaults to /dev/video0
	Format string // ffmpeg input format, defaults to v4l2
	FFmpeg string // ffmpeg binary, defaults to ffmpeg
	Width  int    // preferred capture width (default 1280)
	Height int    // preferred capture height (default 720)
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // console or json
}

type WebConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envString reads an environment variable, falling back to defaultVal when unset or blank.
func envString(key, defaultVal string) string {
	if s := strings.TrimSpace(os.Getenv(key)); s != "" {
		return s
	}
	return defaultVal
}

// envList splits a comma-separated environment variable, dropping empty entries.
func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func Load() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: envString("FACE_API_URL", defaultAPIBaseURL),
			Origin:  envString("FACE_API_ORIGIN", defaultAPIOrigin),
		},
		Camera: CameraConfig{
			Device: envString("CAMERA_DEVICE", "/dev/video0"),
			Format: envString("CAMERA_FORMAT", "v4l2"),
			FFmpeg: envString("CAMERA_FFMPEG", "ffmpeg"),
			Width:  envInt("CAMERA_WIDTH", 1280),
			Height: envInt("CAMERA_HEIGHT", 720),
		},
		Log: LogConfig{
			Level:  envString("LOG_LEVEL", "info"),
			Format: envString("LOG_FORMAT", "console"),
		},
		Web: WebConfig{
			Host:           envString("WEB_HOST", "0.0.0.0"),
			Port:           envInt("WEB_PORT", 8080),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
	}
}
