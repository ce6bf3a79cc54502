package config

// Credential store drivers
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

type StoreConfig interface {
	GetStoreDriver() string
	GetStorePath() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetRedisKeyPrefix() string
}

type Store struct {
	Driver         string `yaml:"driver" env:"STORE_DRIVER" env-default:"file" env-description:"memory, file, sqlite or redis"`
	Path           string `yaml:"path" env:"STORE_PATH" env-description:"File or database path for the file and sqlite drivers"`
	RedisAddr      string `yaml:"redis_addr" env:"REDIS_ADDR" env-description:"host:port of the redis server"`
	RedisPassword  string `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB        int    `yaml:"redis_db" env:"REDIS_DB" env-default:"0"`
	RedisKeyPrefix string `yaml:"redis_key_prefix" env:"REDIS_KEY_PREFIX" env-default:"session:"`
}

var _ StoreConfig = Store{}

func (s Store) GetStoreDriver() string    { return s.Driver }
func (s Store) GetStorePath() string      { return s.Path }
func (s Store) GetRedisAddr() string      { return s.RedisAddr }
func (s Store) GetRedisPassword() string  { return s.RedisPassword }
func (s Store) GetRedisDB() int           { return s.RedisDB }
func (s Store) GetRedisKeyPrefix() string { return s.RedisKeyPrefix }

type EventsConfig interface {
	GetMQTTBroker() string
	GetMQTTClientID() string
	GetMQTTTopicPrefix() string
}

type Events struct {
	MQTTBroker      string `yaml:"mqtt_broker" env:"MQTT_BROKER" env-description:"e.g. tcp://localhost:1883; empty disables MQTT events"`
	MQTTClientID    string `yaml:"mqtt_client_id" env:"MQTT_CLIENT_ID" env-default:"sessionctl"`
	MQTTTopicPrefix string `yaml:"mqtt_topic_prefix" env:"MQTT_TOPIC_PREFIX" env-default:"sessions"`
}

var _ EventsConfig = Events{}

func (e Events) GetMQTTBroker() string      { return e.MQTTBroker }
func (e Events) GetMQTTClientID() string    { return e.MQTTClientID }
func (e Events) GetMQTTTopicPrefix() string { return e.MQTTTopicPrefix }
