package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName            string
	AppEnv             string
	AppPort            string
	DatabaseURL        string
	RedisURL           string
	NATSURL            string
	EventSubject       string
	JWTSecret          string
	JWTTTL             time.Duration
	AdminName          string
	AdminPassword      string
	JudgeURL           string
	JudgeLanguageID    int
	JudgeTimeout       time.Duration
	UtilitiesDir       string
	QuestionsDir       string
	SubmissionsDir     string
	MaxSubmissionKB    int
	GradeSummaryTTL    time.Duration
	SubmitRateLimit    int
	SubmitRateInterval time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("SOTEST")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Science Olympiad Testing Environment API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("jwt.ttl", "12h")
	v.SetDefault("admin.name", "admin")
	v.SetDefault("events.subject", "sotest.grades")
	v.SetDefault("judge.url", "http://host.docker.internal:2358")
	v.SetDefault("judge.language_id", 89)
	v.SetDefault("judge.timeout", "30s")
	v.SetDefault("files.utilities_dir", "autograder_utils")
	v.SetDefault("files.questions_dir", "es_files/questions")
	v.SetDefault("files.submissions_dir", "es_files/submissions")
	v.SetDefault("files.max_submission_kb", 256)
	v.SetDefault("grades.cache_ttl", "1m")
	v.SetDefault("submit.rate_limit", 10)
	v.SetDefault("submit.rate_interval", "1m")

	jwtTTL, err := parseDuration(v, "jwt.ttl", 12*time.Hour)
	if err != nil {
		return Config{}, err
	}

	judgeTimeout, err := parseDuration(v, "judge.timeout", 30*time.Second)
	if err != nil {
		return Config{}, err
	}

	gradeTTL, err := parseDuration(v, "grades.cache_ttl", time.Minute)
	if err != nil {
		return Config{}, err
	}

	rateInterval, err := parseDuration(v, "submit.rate_interval", time.Minute)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:            v.GetString("app.name"),
		AppEnv:             v.GetString("app.env"),
		AppPort:            v.GetString("app.port"),
		DatabaseURL:        v.GetString("database.url"),
		RedisURL:           v.GetString("redis.url"),
		NATSURL:            v.GetString("nats.url"),
		EventSubject:       v.GetString("events.subject"),
		JWTSecret:          v.GetString("jwt.secret"),
		JWTTTL:             jwtTTL,
		AdminName:          v.GetString("admin.name"),
		AdminPassword:      v.GetString("admin.password"),
		JudgeURL:           strings.TrimRight(v.GetString("judge.url"), "/"),
		JudgeLanguageID:    v.GetInt("judge.language_id"),
		JudgeTimeout:       judgeTimeout,
		UtilitiesDir:       v.GetString("files.utilities_dir"),
		QuestionsDir:       v.GetString("files.questions_dir"),
		SubmissionsDir:     v.GetString("files.submissions_dir"),
		MaxSubmissionKB:    v.GetInt("files.max_submission_kb"),
		GradeSummaryTTL:    gradeTTL,
		SubmitRateLimit:    v.GetInt("submit.rate_limit"),
		SubmitRateInterval: rateInterval,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.JudgeURL == "" {
		return Config{}, fmt.Errorf("judge url must be provided")
	}

	if cfg.JudgeLanguageID <= 0 {
		cfg.JudgeLanguageID = 89
	}

	if cfg.MaxSubmissionKB <= 0 {
		cfg.MaxSubmissionKB = 256
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return fallback, nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return fallback, nil
	}

	return d, nil
}
