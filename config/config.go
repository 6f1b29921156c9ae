package config

import (
	"os"
	"strconv"
	"time"

	"RTHub/logger"
	"RTHub/tools/ids"
)

const (
	BusDriverNats  = "nats"
	BusDriverKafka = "kafka"
)

// AppConfig holds one node's configuration. Defaults come from Global
// and individual fields are overridable via RTHUB_* environment
// variables (Load).
type AppConfig struct {
	NodeID     string
	NodeNum    int64 // feeds the snowflake generator, 0~1023
	Port       int   // HTTP/WebSocket listen port
	JwtSecret  string
	CtrlSecret string // control API pre-shared secret, distinct from JwtSecret

	BusDriver   string   // nats | kafka
	NatsServers []string // nats urls
	KafkaBlocks []string // kafka broker list
	KafkaGroup  string   // consumer group id

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	HeartbeatEvery time.Duration // probe period
	SendQueueSize  int           // per-session outbound buffer
	FanoutWorkers  int
	FanoutQueue    int
	MaxPerUser     int  // max sessions per user, <=0 unlimited
	EvictOldest    bool // on overflow drop the oldest session

	// Bus channels the bridge subscribes to.
	ArticleChannel      string
	NotificationChannel string
	SystemChannel       string
}

var Global = AppConfig{
	NodeID:     "rthub_01",
	NodeNum:    1,
	Port:       8080,
	JwtSecret:  "mN9b1f8zPq+W2xjX/45sKcVd0TfyoG+3Hp5Z8q9Rj1o=",
	CtrlSecret: "rthub-internal-0001",

	BusDriver:   BusDriverNats,
	NatsServers: []string{"nats://127.0.0.1:4222"},
	KafkaBlocks: []string{"127.0.0.1:9092"},
	KafkaGroup:  "rthub-consumer-1",

	RedisAddr: "127.0.0.1:6379",
	RedisDB:   0,

	HeartbeatEvery: 30 * time.Second,
	SendQueueSize:  256,
	FanoutWorkers:  4,
	FanoutQueue:    1024,
	MaxPerUser:     0,
	EvictOldest:    true,

	ArticleChannel:      "articles.new",
	NotificationChannel: "notifications.user",
	SystemChannel:       "system.broadcast",
}

// Load applies environment overrides onto Global and returns it.
func Load() AppConfig {
	c := Global

	strVar(&c.NodeID, "RTHUB_NODE_ID")
	intVar(&c.Port, "RTHUB_PORT")
	strVar(&c.JwtSecret, "RTHUB_JWT_SECRET")
	strVar(&c.CtrlSecret, "RTHUB_CTRL_SECRET")
	strVar(&c.BusDriver, "RTHUB_BUS_DRIVER")
	strVar(&c.KafkaGroup, "RTHUB_KAFKA_GROUP")
	strVar(&c.RedisAddr, "RTHUB_REDIS_ADDR")
	strVar(&c.RedisPassword, "RTHUB_REDIS_PASSWORD")
	intVar(&c.RedisDB, "RTHUB_REDIS_DB")
	intVar(&c.MaxPerUser, "RTHUB_MAX_PER_USER")

	if v := os.Getenv("RTHUB_NATS_URL"); v != "" {
		c.NatsServers = []string{v}
	}
	if v := os.Getenv("RTHUB_KAFKA_BROKERS"); v != "" {
		c.KafkaBlocks = []string{v}
	}
	if v := os.Getenv("RTHUB_NODE_NUM"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.NodeNum = n
		}
	}
	if v := os.Getenv("RTHUB_HEARTBEAT_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.HeartbeatEvery = time.Duration(n) * time.Second
		}
	}
	return c
}

// ConfigIds wires the node number into the id generator.
func ConfigIds(c AppConfig) {
	logger.Infof("[config] id generator node=%d", c.NodeNum)
	ids.SetNodeID(c.NodeNum)
}

func (c AppConfig) GetJwtSecret() []byte { return []byte(c.JwtSecret) }

func strVar(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func intVar(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
