package configs

import (
	"github.com/fundmesh/transfer-service/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type Config struct {
	Port          string `mapstructure:"PORT" validate:"required"`
	PrimaryDbAddr string `mapstructure:"PRIMARY_DB_ADDR" validate:"required"`
	ReplicaDbAddr string `mapstructure:"REPLICA_DB_ADDR"`
	MaxDbCons     int32  `mapstructure:"MAX_DB_CONNECTIONS" validate:"min=1"`
	MinDbCons     int32  `mapstructure:"MIN_DB_CONNECTIONS" validate:"min=1"`
	LockTimeoutMs int    `mapstructure:"LOCK_TIMEOUT_MS" validate:"min=1"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	// Kafka is optional; when KAFKA_BROKERS is empty the service runs with a
	// noop event publisher.
	KafkaBrokers   string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic     string `mapstructure:"KAFKA_TOPIC" validate:"required"`
	KafkaPartition uint32 `mapstructure:"KAFKA_PARTITION" validate:"min=1"`

	// TransferRate of 0 disables rate limiting on POST /transfers.
	TransferRate  int `mapstructure:"TRANSFER_RATE" validate:"min=0"`
	TransferBurst int `mapstructure:"TRANSFER_BURST" validate:"min=1"`

	// RatesJSON optionally replaces the built-in USD/EUR rate table, e.g.
	// {"USD":{"USD":1,"EUR":0.9},"EUR":{"USD":1.1111,"EUR":1}}.
	RatesJSON string `mapstructure:"RATES_JSON"`
}

func Load(logger *zap.Logger) (*Config, error) {
	viper.SetEnvPrefix("app") // Prefix for env vars
	viper.AutomaticEnv()

	// Default values
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("MAX_DB_CONNECTIONS", "10")
	viper.SetDefault("MIN_DB_CONNECTIONS", "2")
	viper.SetDefault("LOCK_TIMEOUT_MS", "3000")
	viper.SetDefault("KAFKA_TOPIC", "transfer.completed")
	viper.SetDefault("KAFKA_PARTITION", "4")
	viper.SetDefault("TRANSFER_RATE", "0")
	viper.SetDefault("TRANSFER_BURST", "100")

	// Optional: Read from config.yaml if exists
	if gin.ReleaseMode == gin.Mode() {
		viper.SetConfigName("config.prod")
	} else if gin.TestMode == gin.Mode() {
		logger.Warn("running in test mode")
		viper.SetConfigName("config.test")
	} else {
		logger.Warn("running in development mode")
		viper.SetConfigName("config.dev")
	}
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	_ = viper.ReadInConfig() // Ignore if no file

	var cfg Config
	if err := utils.ParseStructEnv(&cfg); err != nil {
		return nil, err
	}
	// Validate after unmarshal
	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, utils.FormatConfigErrors(logger, err, cfg)
	}
	return &cfg, nil
}
