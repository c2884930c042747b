package config

import (
	"os"
	"strings"
	"time"
)

type R2 struct {
	AccountID     string
	AccessKey     string
	SecretKey     string
	BucketName    string
	PublicBaseURL string
}

type Gmail struct {
	Username     string
	AppPassword  string
	SMTPAddr     string
	ClientID     string
	ClientSecret string
	RefreshToken string
}

type WordPress struct {
	Site        string
	User        string
	AppPassword string
}

type Instagram struct {
	AccountID   string
	AccessToken string
	GraphURL    string
}

type LinkedIn struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AccessToken  string
	Visibility   string
	APIURL       string
}

type OpenAI struct {
	APIKey string
	Model  string
}

type Config struct {
	PostgresURI      string
	RedisURI         string
	HTTPAddr         string
	MetricsAddr      string
	SecretKey        string
	CookieName       string
	OperatorPassword string

	LogFile  string
	LogLevel string
	MediaDir string

	SchedulerInterval    time.Duration
	DispatchTimeout      time.Duration
	DispatchLease        time.Duration
	CacheTTL             time.Duration
	MediaCleanupSchedule string

	R2        R2
	Gmail     Gmail
	WordPress WordPress
	Instagram Instagram
	LinkedIn  LinkedIn
	OpenAI    OpenAI
}

func LoadConfig() *Config {
	dispatchTimeout := getDuration("DISPATCH_TIMEOUT", 5*time.Minute)

	return &Config{
		PostgresURI:      getEnv("POSTGRES_URI", ""),
		RedisURI:         getEnv("REDIS_URI", ""),
		HTTPAddr:         getEnv("HTTP_ADDR", ":3000"),
		MetricsAddr:      getEnv("METRICS_ADDR", ""),
		SecretKey:        getEnv("SECRET_KEY", ""),
		CookieName:       getEnv("COOKIE_NAME", "contentflow_session"),
		OperatorPassword: getEnv("OPERATOR_PASSWORD", ""),

		LogFile:  getEnv("LOG_FILE", "programmed_posts.log"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		MediaDir: getEnv("MEDIA_DIR", "media"),

		SchedulerInterval:    getDuration("SCHEDULER_INTERVAL", 60*time.Second),
		DispatchTimeout:      dispatchTimeout,
		DispatchLease:        getDuration("DISPATCH_LEASE", 2*dispatchTimeout),
		CacheTTL:             getDuration("CACHE_TTL", 60*time.Second),
		MediaCleanupSchedule: getEnv("MEDIA_CLEANUP_SCHEDULE", "@every 24h"),

		R2: R2{
			AccountID:     getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:     getEnv("R2_ACCESS_KEY", ""),
			SecretKey:     getEnv("R2_SECRET_KEY", ""),
			BucketName:    getEnv("R2_BUCKET_NAME", ""),
			PublicBaseURL: strings.TrimRight(getEnv("R2_PUBLIC_BASE_URL", ""), "/"),
		},
		Gmail: Gmail{
			Username:     getEnv("GMAIL_USERNAME", ""),
			AppPassword:  getEnv("GMAIL_APP_PASSWORD", ""),
			SMTPAddr:     getEnv("GMAIL_SMTP_ADDR", "smtp.gmail.com:465"),
			ClientID:     getEnv("GMAIL_OAUTH_CLIENT_ID", ""),
			ClientSecret: getEnv("GMAIL_OAUTH_CLIENT_SECRET", ""),
			RefreshToken: getEnv("GMAIL_OAUTH_REFRESH_TOKEN", ""),
		},
		WordPress: WordPress{
			Site:        strings.TrimRight(getEnv("WP_SITE", ""), "/"),
			User:        getEnv("WP_USER", ""),
			AppPassword: strings.ReplaceAll(getEnv("WP_APP_PASS", ""), " ", ""),
		},
		Instagram: Instagram{
			AccountID:   getEnv("INSTAGRAM_ACCOUNT_ID", ""),
			AccessToken: getEnv("INSTAGRAM_ACCESS_TOKEN", ""),
			GraphURL:    getEnv("INSTAGRAM_GRAPH_URL", "https://graph.instagram.com/v21.0"),
		},
		LinkedIn: LinkedIn{
			ClientID:     getEnv("LINKEDIN_CLIENT_ID", ""),
			ClientSecret: getEnv("LINKEDIN_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("LINKEDIN_REDIRECT_URI", "http://localhost:3000/auth/linkedin/callback"),
			AccessToken:  getEnv("LINKEDIN_ACCESS_TOKEN", ""),
			Visibility:   getEnv("POST_VISIBILITY", "PUBLIC"),
			APIURL:       getEnv("LINKEDIN_API_URL", "https://api.linkedin.com"),
		},
		OpenAI: OpenAI{
			APIKey: getEnv("OPENAI_API_KEY", ""),
			Model:  getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDuration accepts Go duration strings ("90s", "5m") or a plain number of seconds.
func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if d, err := time.ParseDuration(value + "s"); err == nil && d > 0 {
		return d
	}
	return defaultValue
}
