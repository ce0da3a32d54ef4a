package config

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ecojourney/backend/internal/models"
)

var ErrInvalidConfig = errors.New("invalid config")

const defaultCategoryAverages = "교통=4.0,의류=0.8,식품=3.0,쓰레기=0.5,전기=1.2,물=0.5"

type Config struct {
	Env            string        `mapstructure:"ENV"`
	Port           string        `mapstructure:"PORT"`
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	AdminKey       string        `mapstructure:"ADMIN_KEY"`
	CORSAllowed    string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`

	AIProvider     string        `mapstructure:"AI_PROVIDER"`
	GeminiAPIKey   string        `mapstructure:"GEMINI_API_KEY"`
	GeminiModel    string        `mapstructure:"GEMINI_MODEL"`
	OpenAIBaseURL  string        `mapstructure:"OPENAI_BASE_URL"`
	OpenAIAPIKey   string        `mapstructure:"OPENAI_API_KEY"`
	OpenAIModel    string        `mapstructure:"OPENAI_MODEL"`
	LLMTimeout     time.Duration `mapstructure:"LLM_TIMEOUT"`
	LLMTemperature float64       `mapstructure:"LLM_TEMPERATURE"`
	LLMMaxTokens   int           `mapstructure:"LLM_MAX_TOKENS"`

	ReportLanguage    string  `mapstructure:"REPORT_LANGUAGE"`
	CoachingRulesFile string  `mapstructure:"COACHING_RULES_FILE"`
	TotalPolicy       string  `mapstructure:"TOTAL_POLICY"`
	AverageTotalKg    float64 `mapstructure:"AVERAGE_TOTAL_KG"`
	AverageCategoryKg string  `mapstructure:"AVERAGE_CATEGORY_KG"`
	SaverCapKg        float64 `mapstructure:"SAVER_CAP_KG"`
}

// Load reads ./.env (if present) overlaid by the environment.
func Load() (Config, error) {
	return LoadFile(".env")
}

func LoadFile(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("ADMIN_KEY", "")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	v.SetDefault("AI_PROVIDER", "gemini")
	v.SetDefault("GEMINI_API_KEY", "")
	v.SetDefault("GEMINI_MODEL", "gemini-flash-latest")
	v.SetDefault("OPENAI_BASE_URL", "")
	v.SetDefault("OPENAI_API_KEY", "")
	v.SetDefault("OPENAI_MODEL", "")
	v.SetDefault("LLM_TIMEOUT", "20s")
	v.SetDefault("LLM_TEMPERATURE", 0.7)
	v.SetDefault("LLM_MAX_TOKENS", 0)

	v.SetDefault("REPORT_LANGUAGE", "한국어")
	v.SetDefault("COACHING_RULES_FILE", "")
	v.SetDefault("TOTAL_POLICY", "declared")
	v.SetDefault("AVERAGE_TOTAL_KG", 10.0)
	v.SetDefault("AVERAGE_CATEGORY_KG", defaultCategoryAverages)
	v.SetDefault("SAVER_CAP_KG", 5.0)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("%w: PORT %q is not a number", ErrInvalidConfig, c.Port)
	}
	switch strings.ToLower(c.AIProvider) {
	case "", "gemini", "openai":
	default:
		return fmt.Errorf("%w: AI_PROVIDER %q is not gemini or openai", ErrInvalidConfig, c.AIProvider)
	}
	switch strings.ToLower(c.TotalPolicy) {
	case "", "declared", "sum":
	default:
		return fmt.Errorf("%w: TOTAL_POLICY %q is not declared or sum", ErrInvalidConfig, c.TotalPolicy)
	}
	if c.LLMTimeout <= 0 {
		return fmt.Errorf("%w: LLM_TIMEOUT must be positive", ErrInvalidConfig)
	}
	if c.LLMTemperature < 0 || c.LLMTemperature > 2 {
		return fmt.Errorf("%w: LLM_TEMPERATURE must be within [0, 2]", ErrInvalidConfig)
	}
	if c.LLMMaxTokens < 0 || c.LLMMaxTokens > math.MaxInt32 {
		return fmt.Errorf("%w: LLM_MAX_TOKENS must be within [0, %d]", ErrInvalidConfig, math.MaxInt32)
	}
	if c.AverageTotalKg <= 0 {
		return fmt.Errorf("%w: AVERAGE_TOTAL_KG must be positive", ErrInvalidConfig)
	}
	if c.SaverCapKg <= 0 {
		return fmt.Errorf("%w: SAVER_CAP_KG must be positive", ErrInvalidConfig)
	}
	if _, err := ParseCategoryAverages(c.AverageCategoryKg); err != nil {
		return err
	}
	return nil
}

// Averages is the configured population reference.
func (c Config) Averages() models.Averages {
	cats, _ := ParseCategoryAverages(c.AverageCategoryKg)
	return models.Averages{TotalKg: c.AverageTotalKg, Categories: cats}
}

// ParseCategoryAverages reads "교통=4.0,식품=3.0" keeping the listed order.
func ParseCategoryAverages(s string) ([]models.CategoryAmount, error) {
	var out []models.CategoryAmount
	seen := map[string]bool{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: AVERAGE_CATEGORY_KG entry %q is not category=value", ErrInvalidConfig, part)
		}
		kg, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil || kg < 0 {
			return nil, fmt.Errorf("%w: AVERAGE_CATEGORY_KG value for %q must be a non-negative number", ErrInvalidConfig, name)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: AVERAGE_CATEGORY_KG lists %q twice", ErrInvalidConfig, name)
		}
		seen[name] = true
		out = append(out, models.CategoryAmount{Category: name, KgCO2e: kg})
	}
	return out, nil
}
