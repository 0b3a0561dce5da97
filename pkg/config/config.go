package config

import (
	"log"
	"os"
	"time"

	"github.com/astrovani/backend/pkg/utils"
	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env       string    `yaml:"env" env:"ENV" env-default:"local"`
	HTTP      HTTP      `yaml:"http"`
	Postgres  PG        `yaml:"postgres"`
	Razorpay  Razorpay  `yaml:"razorpay"`
	Analytics Analytics `yaml:"analytics"`
	Calendar  Calendar  `yaml:"calendar"`
	Admin     Admin     `yaml:"admin"`
}

type HTTP struct {
	Port    string        `yaml:"port" env:"HTTP_PORT" env-default:":3000"`
	Timeout time.Duration `yaml:"timeout" env-default:"4s"`
}

type PG struct {
	URL string `yaml:"url" env:"DB_URL"`
}

type Razorpay struct {
	KeyID         string `yaml:"key_id" env:"RAZORPAY_KEY_ID"`
	KeySecret     string `yaml:"key_secret" env:"RAZORPAY_KEY_SECRET"`
	WebhookSecret string `yaml:"webhook_secret" env:"RAZORPAY_WEBHOOK_SECRET"`
}

// Analytics credentials are optional. A collector with missing
// credentials is skipped, not treated as an error. Server-side ids are
// deliberately separate slots from any public client-side ids.
type Analytics struct {
	GA4MeasurementID string `yaml:"ga4_measurement_id" env:"GA4_MEASUREMENT_ID"`
	GA4APISecret     string `yaml:"ga4_api_secret" env:"GA4_API_SECRET"`
	MetaPixelID      string `yaml:"meta_pixel_id" env:"FB_PIXEL_ID"`
	MetaCAPIToken    string `yaml:"meta_capi_token" env:"FB_CONVERSION_API_TOKEN"`
}

type Calendar struct {
	ServiceAccountEmail string `yaml:"service_account_email" env:"GOOGLE_SERVICE_ACCOUNT_EMAIL"`
	ServiceAccountKey   string `yaml:"service_account_key" env:"GOOGLE_SERVICE_ACCOUNT_PRIVATE_KEY"`
	CalendarID          string `yaml:"calendar_id" env:"GOOGLE_CALENDAR_ID"`
	Timezone            string `yaml:"timezone" env:"ORG_TIMEZONE" env-default:"Asia/Kolkata"`
}

type Admin struct {
	Token string `yaml:"token" env:"ADMIN_API_TOKEN"`
}

func MustLoad() *Config {
	configPath := utils.ParseWithFallback("CONFIG_PATH", "./config/local.yaml")

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("config file does not exists: %v\n", err)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("error reading config: %v", err)
	}

	return &cfg
}
