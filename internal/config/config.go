package config

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"5000"`
	Environment string `envconfig:"ENV" default:"production"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Document store
	MongoURI            string        `envconfig:"MONGODB_URI" required:"true"`
	MongoDatabase       string        `envconfig:"MONGODB_DATABASE" default:"erpnext_saas"`
	MongoConnectTimeout time.Duration `envconfig:"MONGODB_CONNECT_TIMEOUT" default:"10s"`
	MongoRetryAttempts  int           `envconfig:"MONGODB_RETRY_ATTEMPTS" default:"3"`
	MongoRetryInterval  time.Duration `envconfig:"MONGODB_RETRY_INTERVAL" default:"5s"`

	// ERP fallback credentials, used when no admin secret row exists
	ERPAPIURL   string        `envconfig:"ERP_API_URL"`
	ERPAPIToken string        `envconfig:"ERP_API_TOKEN"`
	ERPTimeout  time.Duration `envconfig:"ERP_TIMEOUT" default:"30s"`

	// Billing provider
	StripeSecretKey     string `envconfig:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `envconfig:"STRIPE_WEBHOOK_SECRET"`
	PublicBaseURL       string `envconfig:"PUBLIC_BASE_URL" default:"http://localhost:5000"`

	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:8080,https://localhost:5173"`
	AdminJWTSecret     string `envconfig:"ADMIN_JWT_SECRET" required:"true"`

	// Mail relay
	MailDriver           string `envconfig:"MAIL_DRIVER" default:"log"`
	SMTPHost             string `envconfig:"SMTP_HOST"`
	SMTPPort             int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUser             string `envconfig:"SMTP_USER"`
	SMTPPassword         string `envconfig:"SMTP_APP_PASS"`
	PostmarkServerToken  string `envconfig:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `envconfig:"POSTMARK_ACCOUNT_TOKEN"`
	EmailFrom            string `envconfig:"EMAIL_FROM" default:"no-reply@localhost"`
	SupportEmail         string `envconfig:"SUPPORT_EMAIL" default:"support@localhost"`
	LoginURL             string `envconfig:"LOGIN_URL" default:"http://localhost:8080/login"`

	// Google Cloud
	GCPProjectID       string `envconfig:"GCP_PROJECT_ID"`
	GCPCredentialsFile string `envconfig:"GOOGLE_APPLICATION_CREDENTIALS"`
	PubSubEventsTopic  string `envconfig:"PUBSUB_TOPIC_EVENTS" default:"tenant-events"`
	PubSubEmulatorHost string `envconfig:"PUBSUB_EMULATOR_HOST"`
	AdminSecretBackend string `envconfig:"ADMIN_SECRET_BACKEND" default:"mongo"`
	AdminSecretName    string `envconfig:"ADMIN_SECRET_NAME" default:"erp-saas-admin-secret"`

	// Onboarding
	OTPTTL                time.Duration `envconfig:"OTP_TTL" default:"15m"`
	EmployeeDefaultGender string        `envconfig:"EMPLOYEE_DEFAULT_GENDER" default:"Male"`
	EmployeeDefaultDOB    string        `envconfig:"EMPLOYEE_DEFAULT_DOB" default:"1990-05-10"`

	// Provisioning orchestrator settings
	ProvisioningPollInterval time.Duration `envconfig:"PROVISIONING_POLL_INTERVAL" default:"1m"`
	ProvisioningMaxAttempts  int           `envconfig:"PROVISIONING_MAX_ATTEMPTS" default:"5"`
	ProvisioningBatchSize    int           `envconfig:"PROVISIONING_BATCH_SIZE" default:"20"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS on commas.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
