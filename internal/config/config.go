package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Coupon reservation modes.
const (
	// CouponReserveOnApply takes a usage slot when the shopper applies the code
	// to the cart. Abandoned carts keep their slot until the coupon is removed.
	CouponReserveOnApply = "apply"
	// CouponReserveOnCheckout takes the slot inside the checkout transaction.
	CouponReserveOnCheckout = "checkout"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Mail      MailConfig
	Orders    OrderConfig
	Coupons   CouponConfig
	Shipping  ShippingDefaults
}

type ServerConfig struct {
	Port           string
	Env            string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret        string
	AccessExpiry  int // in minutes
	RefreshExpiry int // in days
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Enabled reports whether an SMTP host is configured.
func (m MailConfig) Enabled() bool {
	return m.Host != ""
}

type OrderConfig struct {
	RefundWindow    time.Duration
	RestockOnCancel bool
	RestockOnRefund bool
}

type CouponConfig struct {
	Reservation string
}

// ShippingDefaults seed the shipping settings row the first time it is read.
type ShippingDefaults struct {
	Enabled       bool
	Fee           decimal.Decimal
	FreeThreshold decimal.Decimal
	Carrier       string
}

func Load() *Config {
	// Make .env visible to anything reading os.Getenv, not only viper.
	_ = godotenv.Load()

	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("JWT_ACCESS_EXPIRY", 15)
	viper.SetDefault("JWT_REFRESH_EXPIRY", 7)
	viper.SetDefault("RATE_LIMIT_REQUESTS", 30)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("SMTP_FROM", "siparis@ipekatolye.com.tr")
	viper.SetDefault("ORDER_REFUND_WINDOW_DAYS", 14)
	viper.SetDefault("ORDER_RESTOCK_ON_CANCEL", false)
	viper.SetDefault("ORDER_RESTOCK_ON_REFUND", false)
	viper.SetDefault("COUPON_RESERVATION", CouponReserveOnApply)
	viper.SetDefault("SHIPPING_ENABLED", true)
	viper.SetDefault("SHIPPING_FEE", "29.90")
	viper.SetDefault("SHIPPING_FREE_THRESHOLD", "500")
	viper.SetDefault("SHIPPING_CARRIER", "Yurtiçi Kargo")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	reservation := strings.ToLower(viper.GetString("COUPON_RESERVATION"))
	if reservation != CouponReserveOnApply && reservation != CouponReserveOnCheckout {
		log.Printf("Warning: unknown COUPON_RESERVATION %q, using %q", reservation, CouponReserveOnApply)
		reservation = CouponReserveOnApply
	}

	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Env:            viper.GetString("SERVER_ENV"),
			AllowedOrigins: splitList(viper.GetString("ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Database: viper.GetString("DB_DATABASE"),
			Schema:   viper.GetString("DB_SCHEMA"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:        viper.GetString("JWT_SECRET"),
			AccessExpiry:  viper.GetInt("JWT_ACCESS_EXPIRY"),
			RefreshExpiry: viper.GetInt("JWT_REFRESH_EXPIRY"),
		},
		RateLimit: RateLimitConfig{
			Requests: viper.GetInt("RATE_LIMIT_REQUESTS"),
			Window:   time.Duration(viper.GetInt("RATE_LIMIT_WINDOW_SECONDS")) * time.Second,
		},
		Mail: MailConfig{
			Host:     viper.GetString("SMTP_HOST"),
			Port:     viper.GetInt("SMTP_PORT"),
			Username: viper.GetString("SMTP_USERNAME"),
			Password: viper.GetString("SMTP_PASSWORD"),
			From:     viper.GetString("SMTP_FROM"),
		},
		Orders: OrderConfig{
			RefundWindow:    time.Duration(viper.GetInt("ORDER_REFUND_WINDOW_DAYS")) * 24 * time.Hour,
			RestockOnCancel: viper.GetBool("ORDER_RESTOCK_ON_CANCEL"),
			RestockOnRefund: viper.GetBool("ORDER_RESTOCK_ON_REFUND"),
		},
		Coupons: CouponConfig{
			Reservation: reservation,
		},
		Shipping: ShippingDefaults{
			Enabled:       viper.GetBool("SHIPPING_ENABLED"),
			Fee:           getDecimal("SHIPPING_FEE"),
			FreeThreshold: getDecimal("SHIPPING_FREE_THRESHOLD"),
			Carrier:       viper.GetString("SHIPPING_CARRIER"),
		},
	}
}

func getDecimal(key string) decimal.Decimal {
	d, err := decimal.NewFromString(viper.GetString(key))
	if err != nil {
		log.Printf("Warning: invalid decimal for %s: %v", key, err)
		return decimal.Zero
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
