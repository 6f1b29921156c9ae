package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"RTHub/config"
	"RTHub/logger"
	"RTHub/service/bus"
	"RTHub/service/hub"
	"RTHub/service/storage"
)

func main() {
	conf := config.Load()
	config.ConfigIds(conf)

	prefs, presenceTTL := setupStorage(conf)

	h := hub.New(hub.Options{
		NodeID:         conf.NodeID,
		Verifier:       hub.NewJWTVerifier(conf.GetJwtSecret()),
		Prefs:          prefs,
		SendQueueSize:  conf.SendQueueSize,
		FanoutWorkers:  conf.FanoutWorkers,
		FanoutQueue:    conf.FanoutQueue,
		MaxPerUser:     conf.MaxPerUser,
		EvictOldest:    conf.EvictOldest,
		HeartbeatEvery: conf.HeartbeatEvery,
		PresenceTTL:    presenceTTL,
	})
	h.Start()

	bridge, err := setupBridge(conf, h)
	if err != nil {
		logger.Errorf("[main] bus bridge init failed: %v", err)
		os.Exit(1)
	}

	r := newRouter(conf, h)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", conf.Port),
		Handler: r,
	}

	go func() {
		logger.Infof("[main] node=%s listening on :%d bus=%s", conf.NodeID, conf.Port, conf.BusDriver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("[main] http server: %v", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Infof("[main] shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if bridge != nil {
		_ = bridge.Close()
	}
	h.Shutdown(ctx)
	_ = srv.Shutdown(ctx)
	_ = storage.CloseRedis()
}

// setupStorage connects redis when configured; without it the node
// runs with no preference defaults and no presence mirror.
func setupStorage(conf config.AppConfig) (storage.PrefStore, time.Duration) {
	if conf.RedisAddr == "" {
		return storage.NopPrefStore{}, 0
	}
	err := storage.InitRedis(storage.Config{
		Addr:     conf.RedisAddr,
		Password: conf.RedisPassword,
		DB:       conf.RedisDB,
	})
	if err != nil {
		logger.Warnf("[main] redis unavailable, continuing without prefs/presence: %v", err)
		return storage.NopPrefStore{}, 0
	}
	return storage.NewPrefStore(storage.GetRedis()), 2 * conf.HeartbeatEvery
}

func setupBridge(conf config.AppConfig, h *hub.Hub) (*bus.Bridge, error) {
	var (
		sub bus.Subscriber
		err error
	)
	switch conf.BusDriver {
	case config.BusDriverKafka:
		sub, err = bus.NewKafkaSubscriber(bus.KafkaConfig{
			Brokers: conf.KafkaBlocks,
			GroupID: conf.KafkaGroup,
		})
	default:
		sub, err = bus.NewNatsSubscriber(bus.NatsConfig{
			Servers: conf.NatsServers,
			Name:    conf.NodeID,
		})
	}
	if err != nil {
		return nil, err
	}

	bridge := bus.NewBridge(sub, h, bus.DefaultRoutes(bus.Channels{
		Articles:      conf.ArticleChannel,
		Notifications: conf.NotificationChannel,
		System:        conf.SystemChannel,
	}))
	if err := bridge.Start(); err != nil {
		return nil, err
	}
	return bridge, nil
}
