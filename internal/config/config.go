package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	HTTPPort    string `envconfig:"APP_PORT" default:"8080"`
	DB          DBConfig
	JWT         JWTConfig
	Kafka       KafkaConfig
	Categorizer CategorizerConfig
	Fraud       FraudConfig
	Ledger      LedgerConfig
}

type DBConfig struct {
	Host     string `envconfig:"POSTGRES_HOST"     required:"true"`
	Port     string `envconfig:"POSTGRES_PORT"     required:"true"`
	User     string `envconfig:"POSTGRES_USER"     required:"true"`
	Password string `envconfig:"POSTGRES_PASSWORD" required:"true"`
	DBName   string `envconfig:"POSTGRES_DB"       required:"true"`
	SSLMode  string `envconfig:"POSTGRES_SSLMODE"  default:"disable"`
}
type JWTConfig struct {
	Secret     string        `envconfig:"JWT_SECRET" required:"true"`
	Expiration time.Duration `envconfig:"JWT_EXPIRATION" default:"24h"`
}

type KafkaConfig struct {
	Brokers []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	Topic   string   `envconfig:"KAFKA_TOPIC" default:"fraud-alerts"`
	Enabled bool     `envconfig:"KAFKA_ENABLED" default:"true"`
}

// CategorizerConfig подключение к внешнему сервису категоризации.
// При Enabled=false используется заглушка и записи остаются в категории other.
type CategorizerConfig struct {
	BaseURL             string        `envconfig:"CATEGORIZER_BASE_URL" default:"https://api.openai.com"`
	APIKey              string        `envconfig:"CATEGORIZER_API_KEY"`
	Model               string        `envconfig:"CATEGORIZER_MODEL" default:"gpt-4o-mini"`
	Timeout             time.Duration `envconfig:"CATEGORIZER_TIMEOUT" default:"5s"`
	Enabled             bool          `envconfig:"CATEGORIZER_ENABLED" default:"false"`
	ConfidenceThreshold float64       `envconfig:"CATEGORIZER_CONFIDENCE_THRESHOLD" default:"0.7"`
}

// FraudConfig пороги правил фрод-мониторинга
type FraudConfig struct {
	HighAmountShare    float64       `envconfig:"FRAUD_HIGH_AMOUNT_SHARE" default:"0.10"`
	HighSeverityFactor float64       `envconfig:"FRAUD_HIGH_SEVERITY_FACTOR" default:"2.0"`
	CategoryWarnPct    float64       `envconfig:"FRAUD_CATEGORY_WARN_PCT" default:"80"`
	CategoryBreachPct  float64       `envconfig:"FRAUD_CATEGORY_BREACH_PCT" default:"100"`
	CategoryHighPct    float64       `envconfig:"FRAUD_CATEGORY_HIGH_PCT" default:"150"`
	FrequencyWindow    time.Duration `envconfig:"FRAUD_FREQUENCY_WINDOW" default:"1h"`
	FrequencyMedium    int64         `envconfig:"FRAUD_FREQUENCY_MEDIUM" default:"5"`
	FrequencyHigh      int64         `envconfig:"FRAUD_FREQUENCY_HIGH" default:"10"`
	NightEndHour       int           `envconfig:"FRAUD_NIGHT_END_HOUR" default:"6"`
	NightLateHour      int           `envconfig:"FRAUD_NIGHT_LATE_HOUR" default:"23"`
	NightLookback      time.Duration `envconfig:"FRAUD_NIGHT_LOOKBACK" default:"720h"`
	NightMaxEntries    int64         `envconfig:"FRAUD_NIGHT_MAX_ENTRIES" default:"2"`
}

// LedgerConfig ограничения денежных операций
type LedgerConfig struct {
	DepositCeiling float64 `envconfig:"LEDGER_DEPOSIT_CEILING" default:"10000"`
}

func NewConfig() (*Config, error) {
	envFile := "config.env"

	if err := godotenv.Load(envFile); err != nil {
		log.Printf("warning: не удалось загрузить файл %s, используются только системные переменные окружения: %v", envFile, err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("ошибка парсинга конфигурации: %w", err)
	}

	return &cfg, nil
}

func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}
func (d *DBConfig) MigrationURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}
