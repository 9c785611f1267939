package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds configuration shared by the FIX client and server.
// Engine session settings come from the quickfix settings file instead.
type Config struct {
	// Service name
	ServiceName string

	// Path of the quickfix settings file (first CLI argument)
	SettingsPath string

	// gRPC health server port
	GRPCPort int

	// HTTP health/metrics port
	HTTPPort int

	// Log level: debug, info, warn, error
	LogLevel string

	// Upper bound on how long the process loop sleeps on an empty queue
	WaitInterval time.Duration

	// Directory for the drop-copy outbox
	DataDir string

	// Drop-copy publication to Kafka
	DropCopyEnabled bool
	KafkaBrokers    string

	// Logons from other SenderCompIDs are refused; empty allows all
	AllowedSenderCompIDs []string

	// Fixed order profile used by the client
	Order OrderProfile
}

// OrderProfile is the instrument/quantity/price the client submits.
type OrderProfile struct {
	Symbol           string
	Quantity         decimal.Decimal
	Price            decimal.Decimal
	SecurityID       string
	SecurityIDSource string
}

// LoadConfig loads configuration from environment variables with defaults
func LoadConfig(serviceName string) (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	defaultGRPCPort := 50061
	defaultHTTPPort := 8081
	if serviceName == "fixserver" {
		defaultGRPCPort = 50062
		defaultHTTPPort = 8082
	}

	v.SetDefault("PORT_GRPC", defaultGRPCPort)
	v.SetDefault("PORT_HTTP", defaultHTTPPort)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("WAIT_INTERVAL_MS", 100)
	v.SetDefault("DATA_DIR", "./.data/"+serviceName)
	v.SetDefault("DROPCOPY_ENABLED", false)
	v.SetDefault("KAFKA_BROKERS", "127.0.0.1:9092")
	v.SetDefault("ALLOWED_SENDER_COMP_IDS", "")
	v.SetDefault("ORDER_SYMBOL", "ESZ1")
	v.SetDefault("ORDER_QTY", "33")
	v.SetDefault("ORDER_PRICE", "1912")
	v.SetDefault("ORDER_SECURITY_ID", "123456")
	v.SetDefault("ORDER_SECURITY_ID_SOURCE", "8")

	qty, err := decimal.NewFromString(v.GetString("ORDER_QTY"))
	if err != nil {
		return nil, fmt.Errorf("invalid ORDER_QTY: %w", err)
	}
	price, err := decimal.NewFromString(v.GetString("ORDER_PRICE"))
	if err != nil {
		return nil, fmt.Errorf("invalid ORDER_PRICE: %w", err)
	}

	waitMs := v.GetInt("WAIT_INTERVAL_MS")
	if waitMs <= 0 {
		return nil, fmt.Errorf("WAIT_INTERVAL_MS must be positive, got %d", waitMs)
	}

	cfg := &Config{
		ServiceName:          serviceName,
		GRPCPort:             v.GetInt("PORT_GRPC"),
		HTTPPort:             v.GetInt("PORT_HTTP"),
		LogLevel:             v.GetString("LOG_LEVEL"),
		WaitInterval:         time.Duration(waitMs) * time.Millisecond,
		DataDir:              v.GetString("DATA_DIR"),
		DropCopyEnabled:      v.GetBool("DROPCOPY_ENABLED"),
		KafkaBrokers:         v.GetString("KAFKA_BROKERS"),
		AllowedSenderCompIDs: SplitList(v.GetString("ALLOWED_SENDER_COMP_IDS")),
		Order: OrderProfile{
			Symbol:           v.GetString("ORDER_SYMBOL"),
			Quantity:         qty,
			Price:            price,
			SecurityID:       v.GetString("ORDER_SECURITY_ID"),
			SecurityIDSource: v.GetString("ORDER_SECURITY_ID_SOURCE"),
		},
	}

	return cfg, nil
}

// GRPCAddr returns the gRPC server address
func (c *Config) GRPCAddr() string {
	return fmt.Sprintf(":%d", c.GRPCPort)
}

// HTTPAddr returns the HTTP server address
func (c *Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// Brokers returns KafkaBrokers as a trimmed list.
func (c *Config) Brokers() []string {
	return SplitList(c.KafkaBrokers)
}

// SplitList splits a comma-separated value, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
