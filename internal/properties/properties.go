package properties

import (
	"os"
	"runtime"
	"strconv"
	"strings"
)

const (
	defaultPalette        = "RdYlGn"
	defaultMetersPerPixel = 10.0
	defaultFigureWidth    = 2000
	defaultProcessURL     = "https://sh.dataspace.copernicus.eu/api/v1/process"
)

func RootPath() string {
	if root := os.Getenv("ROOT_PATH"); root != "" {
		return root
	}
	return "."
}

// DataPath is where run outputs and remembered settings live.
func DataPath() string {
	return RootPath() + "/data"
}

func LogLevel() string {
	return envOrDefault("LOG_LEVEL", "info")
}

func LogConsole() bool {
	return envBool("LOG_CONSOLE", true)
}

// Workers bounds the goroutines used for index rows and zonal features.
func Workers() int {
	if n := envInt("WORKERS", 0); n > 0 {
		return n
	}
	return runtime.NumCPU()
}

func DefaultPalette() string {
	return envOrDefault("DEFAULT_PALETTE", defaultPalette)
}

func DefaultMetersPerPixel() float64 {
	v := envFloat("DEFAULT_METERS_PER_PIXEL", defaultMetersPerPixel)
	if v <= 0 {
		return defaultMetersPerPixel
	}
	return v
}

func FigureWidth() int {
	w := envInt("FIGURE_WIDTH", defaultFigureWidth)
	if w < 200 {
		return defaultFigureWidth
	}
	return w
}

func CopernicusClientIDs() []string {
	return splitList(os.Getenv("COPERNICUS_CLIENT_ID"))
}

func CopernicusClientSecrets() []string {
	return splitList(os.Getenv("COPERNICUS_CLIENT_SECRET"))
}

func CopernicusTokenURL() string {
	return os.Getenv("COPERNICUS_TOKEN_URL")
}

func CopernicusProcessURL() string {
	return envOrDefault("COPERNICUS_PROCESS_URL", defaultProcessURL)
}

func DiscordErrorNotificationUrl() string {
	return os.Getenv("DISCORD_ERROR_NOTIFICATION_URL")
}

func DiscordSuccessNotificationUrl() string {
	return os.Getenv("DISCORD_SUCCESS_NOTIFICATION_URL")
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil {
		return v
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(key)), 64); err == nil {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key))); err == nil {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
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
