package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Booking      BookingConfig
	Availability AvailabilityConfig
	RateLimit    RateLimitConfig
}

type AppConfig struct {
	Port           string
	Env            string
	Timezone       string
	LogLevel       string
	AllowedOrigins []string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxIdle  int
	MaxOpen  int
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type BookingConfig struct {
	LockTimeout          time.Duration
	AvailabilityCacheTTL time.Duration
	WarmupDays           int
}

// AvailabilityConfig selects whether an inactive doctor or a day without
// working hours is an error (strict) or an empty slot list.
type AvailabilityConfig struct {
	InactiveDoctorStrict bool
	NoHoursStrict        bool
}

type RateLimitConfig struct {
	BookingsPerMinute int
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("APP_TIMEZONE", "UTC")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_IDLE_CONNS", 10)
	viper.SetDefault("DB_MAX_OPEN_CONNS", 100)
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("AVAILABILITY_INACTIVE_DOCTOR_STRICT", true)
	viper.SetDefault("AVAILABILITY_NO_HOURS_STRICT", false)
	viper.SetDefault("RATE_LIMIT_BOOKINGS_PER_MINUTE", 30)
	viper.SetDefault("AVAILABILITY_WARMUP_DAYS", 7)

	// The .env file is optional; plain environment variables are enough.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	lockTimeout, err := time.ParseDuration(viper.GetString("BOOKING_LOCK_TIMEOUT"))
	if err != nil {
		lockTimeout = 5 * time.Second
	}

	cacheTTL, err := time.ParseDuration(viper.GetString("AVAILABILITY_CACHE_TTL"))
	if err != nil {
		cacheTTL = 30 * time.Second
	}

	config := &Config{
		App: AppConfig{
			Port:           viper.GetString("APP_PORT"),
			Env:            viper.GetString("APP_ENV"),
			Timezone:       viper.GetString("APP_TIMEZONE"),
			LogLevel:       viper.GetString("LOG_LEVEL"),
			AllowedOrigins: splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
		},
		DB: DBConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Name:     viper.GetString("DB_NAME"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
			MaxIdle:  viper.GetInt("DB_MAX_IDLE_CONNS"),
			MaxOpen:  viper.GetInt("DB_MAX_OPEN_CONNS"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Booking: BookingConfig{
			LockTimeout:          lockTimeout,
			AvailabilityCacheTTL: cacheTTL,
			WarmupDays:           viper.GetInt("AVAILABILITY_WARMUP_DAYS"),
		},
		Availability: AvailabilityConfig{
			InactiveDoctorStrict: viper.GetBool("AVAILABILITY_INACTIVE_DOCTOR_STRICT"),
			NoHoursStrict:        viper.GetBool("AVAILABILITY_NO_HOURS_STRICT"),
		},
		RateLimit: RateLimitConfig{
			BookingsPerMinute: viper.GetInt("RATE_LIMIT_BOOKINGS_PER_MINUTE"),
		},
	}

	return config, nil
}

// Location resolves the clinic timezone, falling back to UTC.
func (c AppConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
