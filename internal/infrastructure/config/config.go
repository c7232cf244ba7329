package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendIMAP  = "imap"
	BackendGmail = "gmail"

	AnalyzerOpenAI  = "openai"
	AnalyzerLexicon = "lexicon"
)

type Config struct {
	// Mailbox
	MailboxBackend string
	IMAPServer     string
	IMAPPort       string
	SMTPServer     string
	SMTPPort       string
	EmailUser      string
	EmailPass      string
	MailTLS        bool

	// Gmail
	GmailCredentials   string
	GmailToken         string
	GoogleCloudProject string
	SubscriptionID     string
	TopicName          string

	// Analysis
	Analyzer       string
	OpenAIAPIKey   string
	ModelName      string
	AnalysisStrict bool

	// Replies
	ReplyOnNoMatch bool
	TemplatesPath  string

	// Database
	DatabasePath string

	// App settings
	PollInterval time.Duration
	MetricsAddr  string
	LogLevel     string
	LogFormat    string
}

// SecretLookup resolves a secret by key when it is not set in the
// environment.
type SecretLookup func(key string) (string, error)

// PasswordKey is the keyring key holding the mail password of user.
func PasswordKey(user string) string {
	return "email-" + user
}

// LoadDotEnv reads .env into the environment when present. Variables already
// set win.
func LoadDotEnv() {
	_ = godotenv.Load()
}

// Load reads .env (if present) and the environment. lookup may be nil.
func Load(lookup SecretLookup) (*Config, error) {
	LoadDotEnv()

	cfg := &Config{
		MailboxBackend:     strings.ToLower(getEnv("MAILBOX_BACKEND", BackendIMAP)),
		IMAPServer:         getEnv("IMAP_SERVER", ""),
		IMAPPort:           getEnv("IMAP_PORT", "993"),
		SMTPServer:         getEnv("SMTP_SERVER", ""),
		SMTPPort:           getEnv("SMTP_PORT", "465"),
		EmailUser:          getEnv("EMAIL_USER", ""),
		EmailPass:          getEnv("EMAIL_PASS", ""),
		GmailCredentials:   getEnv("GMAIL_CREDENTIALS", "credentials.json"),
		GmailToken:         getEnv("GMAIL_TOKEN", "token.json"),
		GoogleCloudProject: getEnv("GOOGLE_CLOUD_PROJECT", ""),
		SubscriptionID:     getEnv("SUBSCRIPTION_ID", ""),
		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		ModelName:          getEnv("MODEL_NAME", "gpt-4o-mini"),
		TemplatesPath:      getEnv("TEMPLATES_PATH", ""),
		DatabasePath:       getEnv("DATABASE_PATH", "mailtriage.db"),
		MetricsAddr:        getEnv("METRICS_ADDR", ""),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "json"),
	}

	var err error
	if cfg.MailTLS, err = getBool("MAIL_TLS", true); err != nil {
		return nil, err
	}
	if cfg.AnalysisStrict, err = getBool("ANALYSIS_STRICT", false); err != nil {
		return nil, err
	}
	if cfg.ReplyOnNoMatch, err = getBool("REPLY_ON_NO_MATCH", false); err != nil {
		return nil, err
	}
	if cfg.PollInterval, err = getDuration("POLL_INTERVAL", 0); err != nil {
		return nil, err
	}

	defaultAnalyzer := AnalyzerLexicon
	if cfg.OpenAIAPIKey != "" {
		defaultAnalyzer = AnalyzerOpenAI
	}
	cfg.Analyzer = strings.ToLower(getEnv("ANALYZER", defaultAnalyzer))

	if cfg.MailboxBackend == BackendIMAP && cfg.EmailPass == "" && lookup != nil && cfg.EmailUser != "" {
		if pass, err := lookup(PasswordKey(cfg.EmailUser)); err == nil {
			cfg.EmailPass = pass
		}
	}

	if cfg.GoogleCloudProject != "" {
		cfg.TopicName = fmt.Sprintf("projects/%s/topics/gmail-topic", cfg.GoogleCloudProject)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.MailboxBackend {
	case BackendIMAP:
		if c.IMAPServer == "" {
			return fmt.Errorf("IMAP_SERVER is required")
		}
		if c.SMTPServer == "" {
			return fmt.Errorf("SMTP_SERVER is required")
		}
		if c.EmailUser == "" {
			return fmt.Errorf("EMAIL_USER is required")
		}
		if c.EmailPass == "" {
			return fmt.Errorf("EMAIL_PASS is required (environment or keyring)")
		}
	case BackendGmail:
		if c.SubscriptionID != "" && c.GoogleCloudProject == "" {
			return fmt.Errorf("GOOGLE_CLOUD_PROJECT is required with SUBSCRIPTION_ID")
		}
	default:
		return fmt.Errorf("unknown MAILBOX_BACKEND %q", c.MailboxBackend)
	}

	switch c.Analyzer {
	case AnalyzerOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required")
		}
	case AnalyzerLexicon:
	default:
		return fmt.Errorf("unknown ANALYZER %q", c.Analyzer)
	}

	if c.PollInterval < 0 {
		return fmt.Errorf("POLL_INTERVAL must not be negative")
	}

	return nil
}

// PushEnabled reports whether Gmail push notifications should be consumed.
func (c *Config) PushEnabled() bool {
	return c.MailboxBackend == BackendGmail && c.SubscriptionID != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
