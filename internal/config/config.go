package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"rentcar-booking-backend/internal/alert"
	"rentcar-booking-backend/internal/lock"
	"rentcar-booking-backend/internal/payment"
	"rentcar-booking-backend/internal/service"
	"rentcar-booking-backend/internal/utils"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	Log       LogConfig       `yaml:"log"`
	Pricing   PricingConfig   `yaml:"pricing"`
	Booking   BookingConfig   `yaml:"booking"`
	Lock      LockConfig      `yaml:"lock"`
	Payment   PaymentConfig   `yaml:"payment"`
	Alert     AlertConfig     `yaml:"alert"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// ServerConfig contains HTTP and gRPC listener settings
type ServerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	GRPCPort int    `yaml:"grpc_port"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // "postgres" or "memory"
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// JWTConfig contains JWT token settings
type JWTConfig struct {
	Secret            string `yaml:"secret"`
	AccessTokenExpiry int    `yaml:"access_token_expiry_minutes"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// PricingConfig contains the fee schedule applied on top of the tiered rental fee
type PricingConfig struct {
	HoldFee            int64  `yaml:"hold_fee"`
	DepositAmount      int64  `yaml:"deposit_amount"`
	DeliveryTripFee    int64  `yaml:"delivery_trip_fee"`
	VATPercent         int64  `yaml:"vat_percent"`
	OperatingStartHour int    `yaml:"operating_start_hour"`
	OperatingEndHour   int    `yaml:"operating_end_hour"`
	Timezone           string `yaml:"timezone"`
}

// BookingConfig contains booking lifecycle settings
type BookingConfig struct {
	MinDurationHours        int  `yaml:"min_duration_hours"`
	TurnaroundBufferMinutes int  `yaml:"turnaround_buffer_minutes"`
	UnpaidHoldWindowMinutes int  `yaml:"unpaid_hold_window_minutes"`
	ListingLookaheadDays    int  `yaml:"listing_lookahead_days"`
	BufferedConflicts       bool `yaml:"buffered_conflicts"`
}

// LockConfig selects the per-vehicle lock backend
type LockConfig struct {
	Backend       string `yaml:"backend"` // "local" or "redis"
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	TTLSeconds    int    `yaml:"ttl_seconds"`
	WaitSeconds   int    `yaml:"wait_seconds"`
}

// PaymentConfig contains payment gateway settings
type PaymentConfig struct {
	Provider          string `yaml:"provider"` // "mock"
	BaseURL           string `yaml:"base_url"` // Server base URL for mock checkout pages
	CallbackSecret    string `yaml:"callback_secret"`
	SessionTTLMinutes int    `yaml:"session_ttl_minutes"`
}

// AlertConfig contains the operator alert channel
type AlertConfig struct {
	Provider     string   `yaml:"provider"` // "log", "sendgrid" or "smtp"
	APIKey       string   `yaml:"api_key"`
	FromEmail    string   `yaml:"from_email"`
	FromName     string   `yaml:"from_name"`
	To           []string `yaml:"to"`
	SMTPHost     string   `yaml:"smtp_host"`
	SMTPPort     int      `yaml:"smtp_port"`
	SMTPUser     string   `yaml:"smtp_user"`
	SMTPPassword string   `yaml:"smtp_password"`
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	AdvanceBookingStatuses string `yaml:"advance_booking_statuses"`
	ExpireUnpaidBookings   string `yaml:"expire_unpaid_bookings"`
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Database
	if val := os.Getenv("DB_DRIVER"); val != "" {
		c.Database.Driver = val
	}
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Database.Database = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		c.Database.SSLMode = val
	}

	// JWT
	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.JWT.Secret = val
	}

	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}
	if val := os.Getenv("SERVER_GRPC_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.GRPCPort)
	}

	// Lock
	if val := os.Getenv("REDIS_ADDR"); val != "" {
		c.Lock.RedisAddr = val
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		c.Lock.RedisPassword = val
	}
	if val := os.Getenv("REDIS_DB"); val != "" {
		fmt.Sscanf(val, "%d", &c.Lock.RedisDB)
	}

	// Payment
	if val := os.Getenv("PAYMENT_CALLBACK_SECRET"); val != "" {
		c.Payment.CallbackSecret = val
	}

	// Alert
	if val := os.Getenv("SENDGRID_API_KEY"); val != "" {
		c.Alert.APIKey = val
	}
	if val := os.Getenv("SMTP_PASSWORD"); val != "" {
		c.Alert.SMTPPassword = val
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid and fills defaults
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.GRPCPort < 0 || c.Server.GRPCPort > 65535 {
		return fmt.Errorf("invalid grpc port: %d", c.Server.GRPCPort)
	}

	// Database validation
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	switch c.Database.Driver {
	case "memory":
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
	default:
		return fmt.Errorf("unknown database driver: %s", c.Database.Driver)
	}

	// JWT validation
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}
	if c.JWT.AccessTokenExpiry == 0 {
		c.JWT.AccessTokenExpiry = 60
	}

	// Pricing defaults
	fees := utils.DefaultFeeSchedule()
	if c.Pricing.HoldFee == 0 {
		c.Pricing.HoldFee = fees.HoldFee
	}
	if c.Pricing.DepositAmount == 0 {
		c.Pricing.DepositAmount = fees.DepositAmount
	}
	if c.Pricing.DeliveryTripFee == 0 {
		c.Pricing.DeliveryTripFee = fees.DeliveryTripFee
	}
	if c.Pricing.VATPercent == 0 {
		c.Pricing.VATPercent = fees.VATPercent
	}
	if c.Pricing.OperatingStartHour == 0 && c.Pricing.OperatingEndHour == 0 {
		c.Pricing.OperatingStartHour = fees.OperatingStartHour
		c.Pricing.OperatingEndHour = fees.OperatingEndHour
	}
	if c.Pricing.OperatingStartHour < 0 || c.Pricing.OperatingEndHour > 24 || c.Pricing.OperatingStartHour >= c.Pricing.OperatingEndHour {
		return fmt.Errorf("invalid operating hours: %d-%d", c.Pricing.OperatingStartHour, c.Pricing.OperatingEndHour)
	}
	if c.Pricing.Timezone == "" {
		c.Pricing.Timezone = "UTC"
	}
	if _, err := time.LoadLocation(c.Pricing.Timezone); err != nil {
		return fmt.Errorf("invalid pricing timezone %q: %w", c.Pricing.Timezone, err)
	}

	// Booking defaults
	if c.Booking.MinDurationHours == 0 {
		c.Booking.MinDurationHours = 4
	}
	if c.Booking.TurnaroundBufferMinutes == 0 {
		c.Booking.TurnaroundBufferMinutes = 60
	}
	if c.Booking.UnpaidHoldWindowMinutes == 0 {
		c.Booking.UnpaidHoldWindowMinutes = 24 * 60
	}
	if c.Booking.ListingLookaheadDays == 0 {
		c.Booking.ListingLookaheadDays = 30
	}
	if c.Booking.MinDurationHours < 0 || c.Booking.TurnaroundBufferMinutes < 0 || c.Booking.UnpaidHoldWindowMinutes < 0 {
		return fmt.Errorf("booking durations must not be negative")
	}

	// Lock defaults
	c.Lock.Backend = strings.ToLower(c.Lock.Backend)
	if c.Lock.Backend == "" {
		c.Lock.Backend = "local"
	}
	if c.Lock.Backend != "local" && c.Lock.Backend != "redis" {
		return fmt.Errorf("unknown lock backend: %s", c.Lock.Backend)
	}
	if c.Lock.Backend == "redis" && c.Lock.RedisAddr == "" {
		return fmt.Errorf("redis address is required for the redis lock backend")
	}
	if c.Lock.TTLSeconds == 0 {
		c.Lock.TTLSeconds = 10
	}
	if c.Lock.WaitSeconds == 0 {
		c.Lock.WaitSeconds = 5
	}

	// Payment defaults
	if c.Payment.Provider == "" {
		c.Payment.Provider = "mock"
	}
	if c.Payment.BaseURL == "" {
		c.Payment.BaseURL = fmt.Sprintf("http://localhost:%d", c.Server.Port)
	}
	c.Payment.BaseURL = strings.TrimRight(c.Payment.BaseURL, "/")
	if c.Payment.SessionTTLMinutes == 0 {
		c.Payment.SessionTTLMinutes = 15
	}

	// Alert validation
	if c.Alert.Provider == "" {
		c.Alert.Provider = "log"
	}
	switch c.Alert.Provider {
	case "log":
	case "sendgrid":
		if c.Alert.APIKey == "" {
			return fmt.Errorf("sendgrid api key is required")
		}
		if len(c.Alert.To) == 0 {
			return fmt.Errorf("alert recipients are required")
		}
	case "smtp":
		if c.Alert.SMTPHost == "" {
			return fmt.Errorf("SMTP host is required")
		}
		if c.Alert.SMTPPort <= 0 || c.Alert.SMTPPort > 65535 {
			return fmt.Errorf("invalid SMTP port: %d", c.Alert.SMTPPort)
		}
		if len(c.Alert.To) == 0 {
			return fmt.Errorf("alert recipients are required")
		}
	default:
		return fmt.Errorf("unknown alert provider: %s", c.Alert.Provider)
	}

	// Scheduler defaults
	if c.Scheduler.AdvanceBookingStatuses == "" {
		c.Scheduler.AdvanceBookingStatuses = "*/30 * * * * *" // every 30 seconds
	}
	if c.Scheduler.ExpireUnpaidBookings == "" {
		c.Scheduler.ExpireUnpaidBookings = "0 */5 * * * *" // every 5 minutes
	}

	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the HTTP server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetGRPCAddress returns the gRPC health server address, or "" when disabled
func (c *Config) GetGRPCAddress() string {
	if c.Server.GRPCPort == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.GRPCPort)
}

// Settings converts the booking and pricing sections into service settings.
func (c *Config) Settings() service.Settings {
	loc, err := time.LoadLocation(c.Pricing.Timezone)
	if err != nil {
		loc = time.UTC
	}
	return service.Settings{
		MinDuration:       time.Duration(c.Booking.MinDurationHours) * time.Hour,
		TurnaroundBuffer:  time.Duration(c.Booking.TurnaroundBufferMinutes) * time.Minute,
		BufferedConflicts: c.Booking.BufferedConflicts,
		UnpaidHoldWindow:  time.Duration(c.Booking.UnpaidHoldWindowMinutes) * time.Minute,
		ListingLookahead:  time.Duration(c.Booking.ListingLookaheadDays) * 24 * time.Hour,
		Fees: utils.FeeSchedule{
			HoldFee:            c.Pricing.HoldFee,
			DepositAmount:      c.Pricing.DepositAmount,
			DeliveryTripFee:    c.Pricing.DeliveryTripFee,
			VATPercent:         c.Pricing.VATPercent,
			OperatingStartHour: c.Pricing.OperatingStartHour,
			OperatingEndHour:   c.Pricing.OperatingEndHour,
			Location:           loc,
		},
	}
}

func (c *Config) LockerConfig() lock.Config {
	return lock.Config{
		Backend:       c.Lock.Backend,
		RedisAddr:     c.Lock.RedisAddr,
		RedisPassword: c.Lock.RedisPassword,
		RedisDB:       c.Lock.RedisDB,
		TTL:           time.Duration(c.Lock.TTLSeconds) * time.Second,
		Wait:          time.Duration(c.Lock.WaitSeconds) * time.Second,
	}
}

func (c *Config) GatewayConfig() payment.Config {
	return payment.Config{
		Provider:       c.Payment.Provider,
		BaseURL:        c.Payment.BaseURL,
		CallbackSecret: c.Payment.CallbackSecret,
		SessionTTL:     time.Duration(c.Payment.SessionTTLMinutes) * time.Minute,
	}
}

func (c *Config) AlerterConfig() alert.Config {
	return alert.Config{
		Provider:     c.Alert.Provider,
		APIKey:       c.Alert.APIKey,
		FromEmail:    c.Alert.FromEmail,
		FromName:     c.Alert.FromName,
		To:           c.Alert.To,
		SMTPHost:     c.Alert.SMTPHost,
		SMTPPort:     c.Alert.SMTPPort,
		SMTPUsername: c.Alert.SMTPUser,
		SMTPPassword: c.Alert.SMTPPassword,
	}
}
