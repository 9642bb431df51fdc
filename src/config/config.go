package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DefaultAPIKeyPath     = "/run/secrets/api_keys/openrouter"
	APIKeyPathEnvVar      = "OPENROUTER_API_KEY_FILE"
	AltEnvFileEnvVar      = "SNAPNOTE_ENV"
	DefaultHotkey         = "Ctrl+Alt+A"
	DefaultPinHotkey      = "Ctrl+Alt+P"
	DefaultTargetLanguage = "English"
	DefaultOCRDeadlineSec = 20
	DefaultPinMaxFraction = 0.5
	DefaultPinMinSize     = 100
)

// LoadOptions carry command-line overrides, which win over every other
// source.
type LoadOptions struct {
	APIKeyPathOverride string
	// DisplayOverride selects the capture display when non-nil.
	DisplayOverride *int
}

type Config struct {
	APIKey            string
	APIKeyPath        string
	BaseURL           string
	Model             string
	TranslateModel    string
	TargetLanguage    string
	Providers         []string
	EnableFileLogging bool
	Hotkey            string
	PinHotkey         string
	OCRDeadlineSec    int
	CaptureDisplay    int
	// ScaleFactor of 0 means ask the window system.
	ScaleFactor    float64
	PinMaxFraction float64
	PinMinSize     int
	NotesPath      string
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// Sources in priority order:
	// 1) .env in the executable directory
	// 2) otherwise the file named by SNAPNOTE_ENV
	envPath := resolveEnvPath()
	dotenvValues := readDotenvValues(envPath)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	}

	apiKeyPath := resolveAPIKeyPath(opts, dotenvValues)
	model := os.Getenv("MODEL")

	cfg := &Config{
		APIKey:            resolveAPIKey(apiKeyPath),
		APIKeyPath:        apiKeyPath,
		BaseURL:           strings.TrimSpace(os.Getenv("OPENROUTER_BASE_URL")),
		Model:             model,
		TranslateModel:    getEnvWithDefault("TRANSLATE_MODEL", model),
		TargetLanguage:    getEnvWithDefault("TARGET_LANGUAGE", DefaultTargetLanguage),
		Providers:         splitList(os.Getenv("PROVIDERS")),
		EnableFileLogging: strings.ToLower(os.Getenv("ENABLE_FILE_LOGGING")) == "true",
		Hotkey:            getEnvWithDefault("HOTKEY", DefaultHotkey),
		PinHotkey:         getEnvWithDefault("PIN_HOTKEY", DefaultPinHotkey),
		OCRDeadlineSec:    positiveInt("OCR_DEADLINE_SEC", DefaultOCRDeadlineSec),
		CaptureDisplay:    nonNegativeInt("CAPTURE_DISPLAY", 0),
		ScaleFactor:       positiveFloat("SCALE_FACTOR", 0),
		PinMaxFraction:    fraction("PIN_MAX_FRACTION", DefaultPinMaxFraction),
		PinMinSize:        positiveInt("PIN_MIN_SIZE", DefaultPinMinSize),
		NotesPath:         resolveNotesPath(),
	}
	if opts.DisplayOverride != nil && *opts.DisplayOverride >= 0 {
		cfg.CaptureDisplay = *opts.DisplayOverride
	}

	return cfg, nil
}

func resolveEnvPath() string {
	if dir := execDir(); dir != "" {
		exeEnv := filepath.Join(dir, ".env")
		if _, err := os.Stat(exeEnv); err == nil {
			return exeEnv
		}
	}

	if alt := os.Getenv(AltEnvFileEnvVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

func execDir() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	return filepath.Dir(execPath)
}

func readDotenvValues(envPath string) map[string]string {
	if envPath == "" {
		return map[string]string{}
	}

	values, err := godotenv.Read(envPath)
	if err != nil {
		return map[string]string{}
	}

	return values
}

func resolveAPIKeyPath(opts LoadOptions, dotenvValues map[string]string) string {
	keyPath := DefaultAPIKeyPath

	if envPath := strings.TrimSpace(os.Getenv(APIKeyPathEnvVar)); envPath != "" {
		keyPath = envPath
	}

	if dotenvPath := strings.TrimSpace(dotenvValues[APIKeyPathEnvVar]); dotenvPath != "" {
		keyPath = dotenvPath
	}

	if overridePath := strings.TrimSpace(opts.APIKeyPathOverride); overridePath != "" {
		keyPath = overridePath
	}

	return keyPath
}

// resolveAPIKey prefers the key file over the environment.
func resolveAPIKey(keyPath string) string {
	if data, err := os.ReadFile(keyPath); err == nil {
		if fileKey := strings.TrimSpace(string(data)); fileKey != "" {
			return fileKey
		}
	}

	return os.Getenv("OPENROUTER_API_KEY")
}

func resolveNotesPath() string {
	if p := strings.TrimSpace(os.Getenv("NOTES_PATH")); p != "" {
		return p
	}
	if dir := execDir(); dir != "" {
		return filepath.Join(dir, "data", "notes.json")
	}
	return filepath.Join("data", "notes.json")
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func positiveInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func nonNegativeInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func positiveFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && f > 0 {
			return f
		}
	}
	return def
}

func fraction(key string, def float64) float64 {
	f := positiveFloat(key, def)
	if f > 1 {
		return def
	}
	return f
}
