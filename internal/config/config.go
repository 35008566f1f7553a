package config

import (
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string `yaml:"env" env:"ENV" env-default:"local"`
	HTTPServer `yaml:"http_server"`
	WSServer   `yaml:"ws_server"`
	Database   `yaml:"database"`
	Solana     `yaml:"solana"`
	Auth       `yaml:"auth"`
	Mail       `yaml:"mail"`
	Events     `yaml:"events"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:8000"`
	Timeout     time.Duration `yaml:"timeout" env-default:"5s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

type WSServer struct {
	Address     string        `yaml:"address" env:"WS_ADDRESS" env-default:"localhost:8081"`
	Timeout     time.Duration `yaml:"timeout" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

type Database struct {
	DSN string `yaml:"dsn" env:"DATABASE_DSN" env-required:"true"`
}

type Solana struct {
	RPCURL           string        `yaml:"rpc_url" env:"SOLANA_RPC_URL" env-default:"https://api.mainnet-beta.solana.com"`
	LotteryProgramID string        `yaml:"lottery_program_id" env:"LOTTERY_PROGRAM_ID" env-required:"true"`
	AdminPublicKey   string        `yaml:"admin_public_key" env:"ADMIN_PUBLIC_KEY" env-required:"true"`
	RequestTimeout   time.Duration `yaml:"request_timeout" env-default:"15s"`
}

type Auth struct {
	JWTSecret string        `yaml:"jwt_secret" env:"JWT_SECRET" env-default:"winisol"`
	TokenTTL  time.Duration `yaml:"token_ttl" env-default:"1h"`
	NonceTTL  time.Duration `yaml:"nonce_ttl" env-default:"5m"`
}

type Mail struct {
	Host          string `yaml:"host" env:"MAIL_HOST"`
	Port          int    `yaml:"port" env:"MAIL_PORT" env-default:"465"`
	User          string `yaml:"user" env:"MAIL_USER"`
	Password      string `yaml:"password" env:"MAIL_PASS"`
	From          string `yaml:"from" env:"MAIL_FROM"`
	ReceiverEmail string `yaml:"receiver_email" env:"RECEIVER_EMAIL"`
}

// Events selects the fan-out transport: a websocket hub address, Pusher
// credentials, or neither (events disabled).
type Events struct {
	HubURL        string `yaml:"hub_url" env:"EVENT_HUB_URL"`
	PusherAppID   string `yaml:"pusher_app_id" env:"PUSHER_APP_ID"`
	PusherKey     string `yaml:"pusher_key" env:"PUSHER_KEY"`
	PusherSecret  string `yaml:"pusher_secret" env:"PUSHER_SECRET"`
	PusherCluster string `yaml:"pusher_cluster" env:"PUSHER_CLUSTER"`
}

func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/local.yaml"
	}

	var cfg Config

	if _, err := os.Stat(configPath); err == nil {
		if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
			panic("failed to read config: " + err.Error())
		}

		return &cfg
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		panic("failed to read config from environment: " + err.Error())
	}

	return &cfg
}
