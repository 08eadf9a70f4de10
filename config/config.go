package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

const (
	defDbName      = "checkout"
	defServiceName = "checkout"
	defServiceId   = "checkout"
	defServiceHost = "http://checkout"
	defServicePort = "8088"
	defConsulDsn   = "consul"

	defStorageDriver = "mongo"
	defConsumerGroup = "checkout-orchestrator"

	defInitiatedTopic = "checkout.checkout-initiated"
	defEventsTopic    = "checkout.checkout-events"
	defInventoryTopic = "checkout.inventory-command"
	defPaymentTopic   = "checkout.payment-command"
	defOrderTopic     = "checkout.order-command"
	defCartTopic      = "checkout.cart-command"

	defSagaTTL       = 300
	defSweepInterval = 30
)

// Config struct holds application's parameters
type Config struct {
	StorageDriver string
	MongoDSN      string
	DbName        string
	RedisDsn      string
	RedisPass     string

	QueueDsn      string
	ConsumerGroup string

	InitiatedTopic string
	EventsTopic    string
	InventoryTopic string
	PaymentTopic   string
	OrderTopic     string
	CartTopic      string

	SagaTTL       time.Duration
	SweepInterval time.Duration

	ServiceName string
	ServiceId   string
	ServiceHost string
	ServicePort string

	ConsulDsn string

	ZabbixName string
	ZabbixHost string
	ZabbixPort int

	DebugMode bool
}

func PopulateConfig() (*Config, error) {
	var (
		cfg   Config
		exist bool
	)

	if cfg.StorageDriver, exist = os.LookupEnv("STORAGE_DRIVER"); !exist {
		cfg.StorageDriver = defStorageDriver
	}
	switch cfg.StorageDriver {
	case "mongo":
		if cfg.MongoDSN, exist = os.LookupEnv("MONGO_DSN"); !exist {
			return nil, errors.New("ENV `MONGO_DSN` should be specified")
		}
		if cfg.DbName, exist = os.LookupEnv("DB_NAME"); !exist {
			cfg.DbName = defDbName
		}
	case "redis":
		if cfg.RedisDsn, exist = os.LookupEnv("REDIS_DSN"); !exist {
			return nil, errors.New("ENV `REDIS_DSN` should be specified")
		}
		cfg.RedisPass = os.Getenv("REDIS_PASS")
	default:
		return nil, errors.New("ENV `STORAGE_DRIVER` should be `mongo` or `redis`")
	}

	if cfg.QueueDsn, exist = os.LookupEnv("QUEUE_DSN"); !exist {
		return nil, errors.New("ENV `QUEUE_DSN` should be specified")
	}
	if cfg.ConsumerGroup, exist = os.LookupEnv("CONSUMER_GROUP"); !exist {
		cfg.ConsumerGroup = defConsumerGroup
	}

	if cfg.InitiatedTopic, exist = os.LookupEnv("INITIATED_TOPIC"); !exist {
		cfg.InitiatedTopic = defInitiatedTopic
	}
	if cfg.EventsTopic, exist = os.LookupEnv("EVENTS_TOPIC"); !exist {
		cfg.EventsTopic = defEventsTopic
	}
	if cfg.InventoryTopic, exist = os.LookupEnv("INVENTORY_TOPIC"); !exist {
		cfg.InventoryTopic = defInventoryTopic
	}
	if cfg.PaymentTopic, exist = os.LookupEnv("PAYMENT_TOPIC"); !exist {
		cfg.PaymentTopic = defPaymentTopic
	}
	if cfg.OrderTopic, exist = os.LookupEnv("ORDER_TOPIC"); !exist {
		cfg.OrderTopic = defOrderTopic
	}
	if cfg.CartTopic, exist = os.LookupEnv("CART_TOPIC"); !exist {
		cfg.CartTopic = defCartTopic
	}

	ttl := defSagaTTL
	if tmp := os.Getenv("SAGA_TTL"); tmp != "" {
		var err error
		if ttl, err = strconv.Atoi(tmp); err != nil || ttl <= 0 {
			return nil, errors.New("ENV `SAGA_TTL` should be a positive number of seconds")
		}
	}
	cfg.SagaTTL = time.Duration(ttl) * time.Second

	sweep := defSweepInterval
	if tmp := os.Getenv("SWEEP_INTERVAL"); tmp != "" {
		var err error
		if sweep, err = strconv.Atoi(tmp); err != nil || sweep <= 0 {
			return nil, errors.New("ENV `SWEEP_INTERVAL` should be a positive number of seconds")
		}
	}
	cfg.SweepInterval = time.Duration(sweep) * time.Second

	if cfg.ServiceName, exist = os.LookupEnv("SERVICE_NAME"); !exist {
		cfg.ServiceName = defServiceName
	}
	if cfg.ServiceId, exist = os.LookupEnv("SERVICE_ID"); !exist {
		cfg.ServiceId = defServiceId
	}
	if cfg.ServiceHost, exist = os.LookupEnv("SERVICE_HOST"); !exist {
		cfg.ServiceHost = defServiceHost
	}
	if cfg.ServicePort, exist = os.LookupEnv("SERVICE_PORT"); !exist {
		cfg.ServicePort = defServicePort
	}

	if cfg.ConsulDsn, exist = os.LookupEnv("CONSUL_DSN"); !exist {
		cfg.ConsulDsn = defConsulDsn
	}

	cfg.ZabbixName = os.Getenv("ZBX_NAME")
	cfg.ZabbixHost = os.Getenv("ZBX_HOST")
	if zbxPort := os.Getenv("ZBX_PORT"); zbxPort != "" {
		cfg.ZabbixPort, _ = strconv.Atoi(zbxPort)
	}

	tmp, exist := os.LookupEnv("DEBUG")
	cfg.DebugMode = exist && tmp == "true"

	return &cfg, nil
}
