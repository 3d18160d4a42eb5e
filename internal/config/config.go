package config

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"os"
	"path/filepath"
	"regexp"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Бэкенды key-value хранилища.
const (
	BackendSQLite = "sqlite"
	BackendGorm   = "gorm"
	BackendFS     = "fs"
	BackendMemory = "memory"
)

// Режимы аутентификации для заблокированных заметок.
const (
	AuthPasscode = "passcode"
	AuthNone     = "none"
)

const (
	defaultAPIAddr = "127.0.0.1:8787"
	defaultCipher  = "aesgcm"
	appDirName     = "NotesAI"
	gormFileName   = "notes-gorm.sqlite"
)

type Config struct {
	// Storage
	Backend string `env:"NOTES_BACKEND"`
	DBPath  string `env:"NOTES_DB_PATH"`
	DSN     string `env:"NOTES_DSN"`

	// Locking
	Cipher string `env:"NOTES_CIPHER"`
	Auth   string `env:"NOTES_AUTH"`

	// Local API (notesd)
	APIAddr   string `env:"NOTES_API_ADDR"`
	APISecret string `env:"NOTES_API_SECRET"`

	LogJSON bool     `env:"NOTES_LOG_JSON"`
	Version bool     `env:"-"` // show version and exit (flag only)
	Args    []string `env:"-"` // positional arguments left after flags
}

func NewConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{}
	_ = env.Parse(cfg)

	// флаги поверх env: значение env становится значением флага по умолчанию
	flag.StringVar(&cfg.Backend, "backend", cfg.Backend, "storage backend: sqlite|gorm|fs|memory")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "data directory")
	flag.StringVar(&cfg.DSN, "dsn", cfg.DSN, "gorm DSN (postgres://... or sqlite file)")
	flag.StringVar(&cfg.Cipher, "cipher", cfg.Cipher, "cipher for locked notes: aesgcm|xor")
	flag.StringVar(&cfg.Auth, "auth", cfg.Auth, "auth for locked notes: passcode|none")
	flag.StringVar(&cfg.APIAddr, "addr", cfg.APIAddr, "local API address host:port")
	flag.StringVar(&cfg.APISecret, "api-secret", cfg.APISecret, "secret for signing API session tokens")
	flag.BoolVar(&cfg.LogJSON, "log-json", cfg.LogJSON, "JSON logs")
	flag.BoolVar(&cfg.Version, "version", cfg.Version, "Show version and exit")

	flag.Parse()
	cfg.Args = flag.Args()

	// Defaults
	switch cfg.Backend {
	case BackendSQLite, BackendGorm, BackendFS, BackendMemory:
	default:
		cfg.Backend = BackendSQLite
	}
	switch cfg.Cipher {
	case "aesgcm", "xor":
	default:
		cfg.Cipher = defaultCipher
	}
	switch cfg.Auth {
	case AuthPasscode, AuthNone:
	default:
		cfg.Auth = AuthPasscode
	}
	// API слушает только host:port, без схемы и пути. Иначе — адрес по умолчанию.
	hostPortRe := regexp.MustCompile(`^[A-Za-z0-9\.\-]+:\d{1,5}$`)
	if !hostPortRe.MatchString(cfg.APIAddr) {
		cfg.APIAddr = defaultAPIAddr
	}
	if cfg.APISecret == "" {
		cfg.APISecret = randomSecret()
	}

	if cfg.DBPath == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			base, _ = os.UserHomeDir()
		}
		cfg.DBPath = filepath.Join(base, appDirName)
	}
	if cfg.DSN == "" {
		cfg.DSN = filepath.Join(cfg.DBPath, gormFileName)
	}

	return cfg
}

// randomSecret — секрет подписи на время жизни процесса.
func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "dev-secret-key"
	}
	return hex.EncodeToString(b)
}
