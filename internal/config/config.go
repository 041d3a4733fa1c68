package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	DB        DBConfig
	Server    ServerConfig
	Redis     RedisConfig
	LLM       LLMConfig
	Embedding EmbeddingConfig
	Pinecone  PineconeConfig
	Auth      AuthConfig
	Quiz      QuizConfig
	CacheTTLs CacheTTLConfig
	Logger    LoggerConfig
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LLMConfig selects the text-generation backend. Source is "openai" or "ollama".
type LLMConfig struct {
	Source string
	OpenAI OpenAIConfig
	Ollama OllamaConfig
}

type EmbeddingConfig struct {
	Source string
	OpenAI OpenAIConfig
	Ollama OllamaConfig
}

type OpenAIConfig struct {
	APIKey string
	Model  string
}

type OllamaConfig struct {
	ServerURL string
	Model     string
}

type PineconeConfig struct {
	APIKey    string
	IndexName string
	Namespace string
}

// AuthConfig holds the shared secret used to verify bearer tokens issued by
// the external auth service. This service never mints tokens itself.
type AuthConfig struct {
	JWTSecret string
}

type QuizConfig struct {
	SimilarityThreshold float64
	MMRLambda           float64
}

type CacheTTLConfig struct {
	TopicExpansion string `yaml:"topic_expansion"`
	TopicDiscovery string `yaml:"topic_discovery"`
	Embedding      string `yaml:"embedding"`
}

type LoggerConfig struct {
	Level string
	Env   string
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	if os.Getenv("ENV") == "test" {
		viper.AddConfigPath("../../config")
		viper.AddConfigPath("../../")
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}

	viper.AutomaticEnv()

	viper.SetDefault("llm.source", "openai")
	viper.SetDefault("llm.openai.model", "gpt-4o")
	viper.SetDefault("embedding.source", "openai")
	viper.SetDefault("embedding.openai.model", "text-embedding-ada-002")
	viper.SetDefault("quiz.similarity_threshold", 0.85)
	viper.SetDefault("quiz.mmr_lambda", 0.5)
	viper.SetDefault("pinecone.namespace", "knowval-docs")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{
		DB: DBConfig{
			Host:     viper.GetString("db.host"),
			Port:     viper.GetInt("db.port"),
			User:     viper.GetString("db.user"),
			Password: viper.GetString("db.password"),
			DBName:   viper.GetString("db.name"),
		},
		Server: ServerConfig{
			Port:         viper.GetInt("server.port"),
			ReadTimeout:  viper.GetDuration("server.read_timeout") * time.Second,
			WriteTimeout: viper.GetDuration("server.write_timeout") * time.Second,
		},
		Redis: RedisConfig{
			Address:  viper.GetString("redis.address"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		LLM: LLMConfig{
			Source: viper.GetString("llm.source"),
			OpenAI: OpenAIConfig{
				APIKey: viper.GetString("llm.openai.api_key"),
				Model:  viper.GetString("llm.openai.model"),
			},
			Ollama: OllamaConfig{
				ServerURL: viper.GetString("llm.ollama.server_url"),
				Model:     viper.GetString("llm.ollama.model"),
			},
		},
		Embedding: EmbeddingConfig{
			Source: viper.GetString("embedding.source"),
			OpenAI: OpenAIConfig{
				APIKey: viper.GetString("embedding.openai.api_key"),
				Model:  viper.GetString("embedding.openai.model"),
			},
			Ollama: OllamaConfig{
				ServerURL: viper.GetString("embedding.ollama.server_url"),
				Model:     viper.GetString("embedding.ollama.model"),
			},
		},
		Pinecone: PineconeConfig{
			APIKey:    viper.GetString("pinecone.api_key"),
			IndexName: viper.GetString("pinecone.index_name"),
			Namespace: viper.GetString("pinecone.namespace"),
		},
		Auth: AuthConfig{
			JWTSecret: viper.GetString("auth.jwt_secret"),
		},
		Quiz: QuizConfig{
			SimilarityThreshold: viper.GetFloat64("quiz.similarity_threshold"),
			MMRLambda:           viper.GetFloat64("quiz.mmr_lambda"),
		},
		CacheTTLs: CacheTTLConfig{
			TopicExpansion: viper.GetString("cache_ttls.topic_expansion"),
			TopicDiscovery: viper.GetString("cache_ttls.topic_discovery"),
			Embedding:      viper.GetString("cache_ttls.embedding"),
		},
		Logger: LoggerConfig{
			Level: viper.GetString("logger.level"),
			Env:   viper.GetString("logger.env"),
		},
	}

	// Override with environment variables if set
	if host := os.Getenv("DB_HOST"); host != "" {
		config.DB.Host = host
	}
	if user := os.Getenv("DB_USER"); user != "" {
		config.DB.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		config.DB.Password = password
	}
	if dbname := os.Getenv("DB_NAME"); dbname != "" {
		config.DB.DBName = dbname
	}
	if redisAddress := os.Getenv("REDIS_ADDRESS"); redisAddress != "" {
		config.Redis.Address = redisAddress
	}
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		config.Redis.Password = redisPassword
	}
	if openAIKey := os.Getenv("OPENAI_API_KEY"); openAIKey != "" {
		config.LLM.OpenAI.APIKey = openAIKey
		config.Embedding.OpenAI.APIKey = openAIKey
	}
	if pineconeKey := os.Getenv("PINECONE_API_KEY"); pineconeKey != "" {
		config.Pinecone.APIKey = pineconeKey
	}
	if jwtSecret := os.Getenv("JWT_SECRET"); jwtSecret != "" {
		config.Auth.JWTSecret = jwtSecret
	}

	return config, nil
}

// ParseTTLStringOrDefault parses a duration string like "24h" and falls back
// to the given default when the string is empty or malformed.
func (c *Config) ParseTTLStringOrDefault(ttl string, def time.Duration) time.Duration {
	if ttl == "" {
		return def
	}
	d, err := time.ParseDuration(ttl)
	if err != nil {
		return def
	}
	return d
}

func (c *Config) GetDSN() string {
	// Oracle DSN format: user/password@host:port/service
	return fmt.Sprintf("oracle://%s:%s@%s:%d/%s",
		c.DB.User,
		c.DB.Password,
		c.DB.Host,
		c.DB.Port,
		c.DB.DBName,
	)
}
