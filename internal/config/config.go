package config

import (
	"fmt"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config 服务端运行参数，全部来自环境变量（可选 .env 文件）
type Config struct {
	TCPAddr          string        `env:"CHAT_TCP_ADDR,default=127.0.0.1:55555" validate:"required,hostname_port"`
	WSAddr           string        `env:"CHAT_WS_ADDR" validate:"omitempty,hostname_port"`
	HTTPAddr         string        `env:"CHAT_HTTP_ADDR" validate:"omitempty,hostname_port"`
	Framing          string        `env:"CHAT_FRAMING,default=raw" validate:"oneof=raw line length"`
	ReadBuffer       int           `env:"CHAT_READ_BUFFER,default=1024" validate:"gt=0"`
	MaxFrameSize     int           `env:"CHAT_MAX_FRAME,default=1048576" validate:"gt=0"`
	OutBuffer        int           `env:"CHAT_OUTBUF,default=256" validate:"gt=0"`
	HandshakeTimeout time.Duration `env:"CHAT_HANDSHAKE_TIMEOUT,default=10s" validate:"gte=0"`
	WriteTimeout     time.Duration `env:"CHAT_WRITE_TIMEOUT,default=0s" validate:"gte=0"`
	LogLevel         string        `env:"CHAT_LOG_LEVEL,default=info"`
	LogEncoding      string        `env:"CHAT_LOG_ENCODING,default=json" validate:"oneof=json console"`

	RedisAddr     string `env:"CHAT_REDIS_ADDR" validate:"omitempty,hostname_port"`
	RedisDB       int    `env:"CHAT_REDIS_DB,default=0" validate:"gte=0"`
	RedisStream   string `env:"CHAT_REDIS_STREAM,default=chat-relay" validate:"required"`
	RedisEncoding string `env:"CHAT_REDIS_ENCODING,default=json" validate:"oneof=json protobuf"`
}

// Load 先尝试加载 .env，再从环境变量解析并校验
func Load(files ...string) (*Config, error) {
	// .env 不存在时忽略
	_ = godotenv.Load(files...)
	return FromEnviron()
}

func FromEnviron() (*Config, error) {
	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
