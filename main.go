package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/NitheshChakaravarthySeelan/community-platform/checkout/config"
	"github.com/NitheshChakaravarthySeelan/community-platform/checkout/consul"
	"github.com/NitheshChakaravarthySeelan/community-platform/checkout/saga"
	"github.com/NitheshChakaravarthySeelan/community-platform/checkout/saga/breaker"
	"github.com/NitheshChakaravarthySeelan/community-platform/checkout/saga/queues/kafka"
	"github.com/NitheshChakaravarthySeelan/community-platform/checkout/saga/storages"
	mongostore "github.com/NitheshChakaravarthySeelan/community-platform/checkout/saga/storages/mongo"
	redisstore "github.com/NitheshChakaravarthySeelan/community-platform/checkout/saga/storages/redis"
	"github.com/NitheshChakaravarthySeelan/community-platform/checkout/server"
	"github.com/NitheshChakaravarthySeelan/community-platform/checkout/server/endpoints"
	"github.com/NitheshChakaravarthySeelan/community-platform/checkout/vars"
	"github.com/NitheshChakaravarthySeelan/community-platform/checkout/zabbix"
)

func establishDbConn(ctx context.Context, dsn string) (*mongo.Client, error) {
	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, err := mongo.Connect(dbCtx, options.Client().ApplyURI(dsn))
	if err != nil {
		return nil, err
	}

	pingCtx, pingCtxCancel := context.WithTimeout(ctx, time.Second)
	defer pingCtxCancel()
	for i := 0; i < 10; i++ {
		if err = conn.Ping(pingCtx, readpref.Primary()); err == nil {
			break
		}
		time.Sleep(1 * time.Second)
	}
	if err != nil {
		return nil, err
	}

	return conn, nil
}

func connectStorage(ctx context.Context, cfg *config.Config) (storages.Storage, error) {
	if cfg.StorageDriver == "redis" {
		storage := redisstore.New()
		if err := storage.Connect(ctx, cfg.RedisDsn, cfg.RedisPass); err != nil {
			return nil, err
		}
		return storage, nil
	}

	conn, err := establishDbConn(ctx, cfg.MongoDSN)
	if err != nil {
		return nil, err
	}
	return mongostore.NewSagaStorageMongo(conn, conn.Database(cfg.DbName)), nil
}

func main() {
	log.Info("==================================================================")
	log.Info("=               Running Checkout Orchestrator Service            =")
	log.Info("==================================================================")
	log.Infof("Version: %v ", vars.VERSION)

	// Init logger
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	if vars.TOKEN == "" {
		log.Fatal("auth token for the checkout entrypoint is empty")
	}

	cfg, err := config.PopulateConfig()
	if err != nil {
		log.WithError(err).Fatal("failed to populate configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())

	if cfg.DebugMode {
		log.SetLevel(log.DebugLevel)
	}
	if cfg.ZabbixHost != "" && cfg.ZabbixPort != 0 {
		log.Info("running metrics observer")
		go zabbix.ObserveMetrics(ctx, cfg)
	}

	log.Info("connecting to saga store...")
	storage, err := connectStorage(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to saga store")
	}
	defer func() {
		log.Info("disconnecting from the saga store...")
		if err = storage.Close(context.Background()); err != nil {
			log.WithError(err).Error("failed to close saga store connection")
		} else {
			log.Info("saga store connection has been closed")
		}
	}()
	log.Info("successfully connected to saga store")

	producer := breaker.NewProducer(
		kafka.NewProducer(cfg.QueueDsn),
		breaker.New(breaker.DefaultMaxFailures, breaker.DefaultCooldown),
	)
	consumer := kafka.NewConsumer(
		cfg.QueueDsn,
		[]string{cfg.InitiatedTopic, cfg.EventsTopic},
		cfg.ConsumerGroup,
	)
	defer func() {
		if err = producer.Close(); err != nil {
			log.WithError(err).Error("cannot close kafka producer")
		}
		if err = consumer.Close(); err != nil {
			log.WithError(err).Error("cannot close kafka consumer")
		}
	}()

	orchestrator := saga.NewOrchestrator(storage, producer, consumer, saga.Topics{
		Initiated: cfg.InitiatedTopic,
		Events:    cfg.EventsTopic,
		Inventory: cfg.InventoryTopic,
		Payment:   cfg.PaymentTopic,
		Order:     cfg.OrderTopic,
		Cart:      cfg.CartTopic,
	}, cfg.SagaTTL, cfg.SweepInterval)
	orchestrator.Start(ctx)

	agent, err := consul.NewAgent(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to create consul agent")
	}
	if err = agent.Register(); err != nil {
		log.WithError(err).Fatal("failed to register service in consul")
	}
	defer func() {
		if err = agent.Unregister(); err != nil {
			log.WithError(err).Error("failed to unregister service in consul")
		}
	}()

	log.Info("creating http server and endpoints...")
	s := server.NewServer(ctx, cfg.ServicePort)
	s.MountRoutes("/checkout", endpoints.GetCheckoutRoutes(orchestrator, storage))

	// Create the interruption channel end lock until it gets interruption signal from OS
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	// Run routine for gracefully shut down
	go func() {
		sig := <-c
		log.Infof("received the %+v call, shutting down", sig)
		signal.Stop(c)
		cancel()
	}()

	log.Info("running http server...")
	s.Serve()

	log.Info("Shutdown completed!")
}
