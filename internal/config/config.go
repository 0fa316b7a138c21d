package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	ProjectDir   string `json:"project_dir"`
	DataDir      string `json:"data_dir"`
	DataCacheDir string `json:"data_cache_dir"`
	DatabasePath string `json:"database_path"`
	SymbolsFile  string `json:"symbols_file"`

	// Web server
	HTTPAddr      string `json:"http_addr"`
	AdminUser     string `json:"admin_user"`
	AdminPassword string `json:"admin_password"`

	// Market data
	MarketProvider     string `json:"market_provider"` // alphavantage, yahoo, longport
	AlphaVantageAPIKey string `json:"alpha_vantage_api_key"`
	IntradayInterval   string `json:"intraday_interval"`

	// News
	SerperAPIKey string `json:"serper_api_key"`
	MaxArticles  int    `json:"max_articles"`

	// LLM crew
	LLMProvider    string `json:"llm_provider"` // openai, deepseek
	LLMModel       string `json:"llm_model"`
	BackendURL     string `json:"backend_url"`
	OpenAIAPIKey   string `json:"openai_api_key"`
	DeepSeekAPIKey string `json:"deepseek_api_key"`
	AgentsEnabled  bool   `json:"agents_enabled"`

	// Longport API configuration
	LongportAppKey      string `json:"longport_app_key"`
	LongportAppSecret   string `json:"longport_app_secret"`
	LongportAccessToken string `json:"longport_access_token"`

	CacheEnabled    bool `json:"cache_enabled"`
	CacheTTLMinutes int  `json:"cache_ttl_minutes"`
	Debug           bool `json:"debug"`

	// Eino debug configuration
	EinoDebugEnabled bool `json:"eino_debug_enabled"`
	EinoDebugPort    int  `json:"eino_debug_port"`
}

func DefaultConfig() *Config {
	currentDir, _ := os.Getwd()

	cfg := &Config{
		ProjectDir:   currentDir,
		DataDir:      filepath.Join(currentDir, "data"),
		DataCacheDir: filepath.Join(currentDir, "data", "cache"),
		DatabasePath: filepath.Join(currentDir, "data", "tradelens.db"),
		SymbolsFile:  filepath.Join(currentDir, "static", "stock_symbols.csv"),

		HTTPAddr:      ":8080",
		AdminUser:     "admin",
		AdminPassword: "",

		MarketProvider:   "alphavantage",
		IntradayInterval: "5min",

		MaxArticles: 10,

		LLMProvider:   "deepseek",
		LLMModel:      "deepseek-chat",
		BackendURL:    "https://api.deepseek.com/v1",
		AgentsEnabled: true,

		CacheEnabled:    true,
		CacheTTLMinutes: 5,
		Debug:           false,

		EinoDebugEnabled: false,
		EinoDebugPort:    52538,
	}

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg.loadFromEnv()

	return cfg
}

func (c *Config) loadFromEnv() {
	stringVars := map[string]*string{
		"PROJECT_DIR":           &c.ProjectDir,
		"DATA_DIR":              &c.DataDir,
		"DATA_CACHE_DIR":        &c.DataCacheDir,
		"DATABASE_PATH":         &c.DatabasePath,
		"SYMBOLS_FILE":          &c.SymbolsFile,
		"HTTP_ADDR":             &c.HTTPAddr,
		"ADMIN_USER":            &c.AdminUser,
		"ADMIN_PASSWORD":        &c.AdminPassword,
		"MARKET_PROVIDER":       &c.MarketProvider,
		"ALPHA_VANTAGE_API_KEY": &c.AlphaVantageAPIKey,
		"INTRADAY_INTERVAL":     &c.IntradayInterval,
		"SERPER_API_KEY":        &c.SerperAPIKey,
		"LLM_PROVIDER":          &c.LLMProvider,
		"LLM_MODEL":             &c.LLMModel,
		"BACKEND_URL":           &c.BackendURL,
		"OPENAI_API_KEY":        &c.OpenAIAPIKey,
		"DEEPSEEK_API_KEY":      &c.DeepSeekAPIKey,
		"LONGPORT_APP_KEY":      &c.LongportAppKey,
		"LONGPORT_APP_SECRET":   &c.LongportAppSecret,
		"LONGPORT_ACCESS_TOKEN": &c.LongportAccessToken,
	}
	for key, dst := range stringVars {
		if val := os.Getenv(key); val != "" {
			*dst = val
		}
	}

	intVars := map[string]*int{
		"MAX_ARTICLES":      &c.MaxArticles,
		"CACHE_TTL_MINUTES": &c.CacheTTLMinutes,
		"EINO_DEBUG_PORT":   &c.EinoDebugPort,
	}
	for key, dst := range intVars {
		if val := os.Getenv(key); val != "" {
			if v, err := strconv.Atoi(val); err == nil {
				*dst = v
			}
		}
	}

	boolVars := map[string]*bool{
		"AGENTS_ENABLED":     &c.AgentsEnabled,
		"CACHE_ENABLED":      &c.CacheEnabled,
		"TRADELENS_DEBUG":    &c.Debug,
		"EINO_DEBUG_ENABLED": &c.EinoDebugEnabled,
	}
	for key, dst := range boolVars {
		if val := os.Getenv(key); val != "" {
			if v, err := strconv.ParseBool(val); err == nil {
				*dst = v
			}
		}
	}
}

// ApplyEnvOverrides reapplies environment variables on top of a config
// loaded from a file, so explicitly exported variables always win.
func (c *Config) ApplyEnvOverrides() {
	c.loadFromEnv()
}

// LLMAPIKey returns the API key for the configured LLM provider.
func (c *Config) LLMAPIKey() string {
	if c.LLMProvider == "openai" {
		return c.OpenAIAPIKey
	}
	return c.DeepSeekAPIKey
}

func (c *Config) Validate() error {
	switch c.MarketProvider {
	case "alphavantage", "yahoo", "longport":
	default:
		return fmt.Errorf("unknown market provider %q", c.MarketProvider)
	}
	switch c.LLMProvider {
	case "openai", "deepseek":
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLMProvider)
	}
	if c.MaxArticles <= 0 {
		return fmt.Errorf("max_articles must be positive, got %d", c.MaxArticles)
	}
	if c.CacheTTLMinutes <= 0 {
		return fmt.Errorf("cache_ttl_minutes must be positive, got %d", c.CacheTTLMinutes)
	}
	if c.HTTPAddr == "" {
		return fmt.Errorf("http_addr is required")
	}
	return nil
}

// DefaultConfigWithRoot builds a config rooted at dir rather than the
// working directory. The manager uses it when seeding a fresh config file.
func DefaultConfigWithRoot(dir string) *Config {
	cfg := DefaultConfig()
	cfg.ProjectDir = dir
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.DataCacheDir = filepath.Join(dir, "data", "cache")
	cfg.DatabasePath = filepath.Join(dir, "data", "tradelens.db")
	cfg.SymbolsFile = filepath.Join(dir, "static", "stock_symbols.csv")
	return cfg
}

func (c *Config) EnsureDirectories() error {
	dirs := []string{c.DataDir, c.DataCacheDir, filepath.Dir(c.DatabasePath)}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

// Redacted returns a copy with secrets masked, for `config show`.
func (c *Config) Redacted() *Config {
	out := *c
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "****"
	}
	out.AdminPassword = mask(c.AdminPassword)
	out.AlphaVantageAPIKey = mask(c.AlphaVantageAPIKey)
	out.SerperAPIKey = mask(c.SerperAPIKey)
	out.OpenAIAPIKey = mask(c.OpenAIAPIKey)
	out.DeepSeekAPIKey = mask(c.DeepSeekAPIKey)
	out.LongportAppSecret = mask(c.LongportAppSecret)
	out.LongportAccessToken = mask(c.LongportAccessToken)
	return &out
}
