// Package config builds the immutable configuration snapshot injected into
// every component at startup.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// VNPay holds the redirect-gateway merchant settings.
type VNPay struct {
	TmnCode    string
	HashSecret string
	PayURL     string
	ReturnURL  string
	Version    string
	Command    string
}

// Configured reports whether merchant credentials are present.
func (c VNPay) Configured() bool { return c.TmnCode != "" && c.HashSecret != "" }

// MoMo holds the API-gateway merchant settings.
type MoMo struct {
	PartnerCode string
	AccessKey   string
	SecretKey   string
	Endpoint    string
	RedirectURL string
	IPNURL      string
	RequestType string
}

func (c MoMo) Configured() bool {
	return c.PartnerCode != "" && c.AccessKey != "" && c.SecretKey != ""
}

// Pricing controls order money computation.
type Pricing struct {
	ShippingFlatRate float64
	TaxRate          float64
	// ExchangeRate is the integer number of local currency units per major
	// display unit.
	ExchangeRate int64
}

type Kafka struct {
	Brokers []string
	Topic   string
}

type Mail struct {
	PostmarkToken string
	Sender        string
}

// Admin is the bootstrap administrator created by the seed command.
type Admin struct {
	Name     string
	Email    string
	Password string
}

// Config is the full application configuration.
type Config struct {
	Port        string
	MongoURI    string
	Database    string
	JWTSecret   string
	FrontendURL string
	LogLevel    string
	Pricing     Pricing
	VNPay       VNPay
	MoMo        MoMo
	Kafka       Kafka
	Mail        Mail
	Admin       Admin
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8000")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("DATABASE_NAME", "ecommerce")
	v.SetDefault("FRONTEND_URL", "http://localhost:5173")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("EXCHANGE_RATE", 25000)
	v.SetDefault("SHIPPING_FLAT_RATE", 5.0)
	v.SetDefault("TAX_RATE", 0.08)
	v.SetDefault("VNP_PAY_URL", "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html")
	v.SetDefault("VNP_RETURN_URL", "http://localhost:8000/api/payment/vnpay/return")
	v.SetDefault("VNP_VERSION", "2.1.0")
	v.SetDefault("VNP_COMMAND", "pay")
	v.SetDefault("MOMO_ENDPOINT", "https://test-payment.momo.vn/v2/gateway/api/create")
	v.SetDefault("MOMO_REDIRECT_URL", "http://localhost:8000/api/payment/momo/return")
	v.SetDefault("MOMO_IPN_URL", "http://localhost:8000/api/payment/momo/ipn")
	v.SetDefault("MOMO_REQUEST_TYPE", "captureWallet")
	v.SetDefault("KAFKA_PAYMENT_TOPIC", "payments.events")
	v.SetDefault("ADMIN_NAME", "Admin User")
}

// Load reads an optional .env file and the process environment.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found. Proceeding with environment variables.")
	}
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) Config {
	cfg := Config{
		Port:        v.GetString("PORT"),
		MongoURI:    v.GetString("MONGO_URI"),
		Database:    v.GetString("DATABASE_NAME"),
		JWTSecret:   v.GetString("JWT_SECRET"),
		FrontendURL: strings.TrimRight(v.GetString("FRONTEND_URL"), "/"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		Pricing: Pricing{
			ShippingFlatRate: v.GetFloat64("SHIPPING_FLAT_RATE"),
			TaxRate:          v.GetFloat64("TAX_RATE"),
			ExchangeRate:     v.GetInt64("EXCHANGE_RATE"),
		},
		VNPay: VNPay{
			TmnCode:    v.GetString("VNP_TMN_CODE"),
			HashSecret: v.GetString("VNP_HASH_SECRET"),
			PayURL:     v.GetString("VNP_PAY_URL"),
			ReturnURL:  v.GetString("VNP_RETURN_URL"),
			Version:    v.GetString("VNP_VERSION"),
			Command:    v.GetString("VNP_COMMAND"),
		},
		MoMo: MoMo{
			PartnerCode: v.GetString("MOMO_PARTNER_CODE"),
			AccessKey:   v.GetString("MOMO_ACCESS_KEY"),
			SecretKey:   v.GetString("MOMO_SECRET_KEY"),
			Endpoint:    v.GetString("MOMO_ENDPOINT"),
			RedirectURL: v.GetString("MOMO_REDIRECT_URL"),
			IPNURL:      v.GetString("MOMO_IPN_URL"),
			RequestType: v.GetString("MOMO_REQUEST_TYPE"),
		},
		Kafka: Kafka{
			Brokers: splitList(v.GetString("KAFKA_BROKERS")),
			Topic:   v.GetString("KAFKA_PAYMENT_TOPIC"),
		},
		Mail: Mail{
			PostmarkToken: v.GetString("POSTMARK_API_TOKEN"),
			Sender:        v.GetString("EMAIL_SENDER"),
		},
		Admin: Admin{
			Name:     v.GetString("ADMIN_NAME"),
			Email:    v.GetString("ADMIN_EMAIL"),
			Password: v.GetString("ADMIN_PASSWORD"),
		},
	}
	if !cfg.VNPay.Configured() {
		slog.Warn("VNPAY config missing, VNPAY payment will be disabled")
	}
	if !cfg.MoMo.Configured() {
		slog.Warn("MoMo config missing, MoMo payment will be disabled")
	}
	return cfg
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}
	if c.Pricing.ExchangeRate <= 0 {
		return fmt.Errorf("EXCHANGE_RATE must be positive, got %d", c.Pricing.ExchangeRate)
	}
	return nil
}

// NewDefaults returns a viper instance carrying only the defaults.
func NewDefaults() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// SlogLevel parses the configured log level.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
