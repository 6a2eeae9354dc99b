package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/chainbound/bolt-relay/common"
	"github.com/chainbound/bolt-relay/database"
	"github.com/chainbound/bolt-relay/datastore"
	"github.com/chainbound/bolt-relay/services/api"
	"github.com/sirupsen/logrus"
)

var (
	defaultListenAddr     = common.GetEnv("LISTEN_ADDR", "localhost:9062")
	defaultNetwork        = common.GetEnv("NETWORK", common.EthNetworkMainnet)
	defaultNetworkConfig  = common.GetEnv("NETWORK_CONFIG", "")
	defaultRedisURI       = common.GetEnv("REDIS_URI", "localhost:6379")
	defaultPostgresDSN    = common.GetEnv("POSTGRES_DSN", "")
	defaultMemorySlots    = common.GetEnvInt("MEMORY_STORE_SLOTS", 64)
	defaultMaxConstraints = common.GetEnvInt("MAX_CONSTRAINTS_PER_SLOT", common.MaxConstraintsPerSlot)
	defaultLogLevel       = common.GetEnv("LOG_LEVEL", "info")
	defaultLogJSON        = os.Getenv("LOG_JSON") != ""
	defaultMemoryStore    = os.Getenv("MEMORY_STORE") != ""

	connectTimeout = 30 * time.Second
)

func main() {
	listenAddr := flag.String("listen-addr", defaultListenAddr, "listen address for the constraints API")
	network := flag.String("network", defaultNetwork, "network: mainnet, holesky, sepolia, helder or custom")
	networkConfig := flag.String("network-config", defaultNetworkConfig, "path to the YAML definition of a custom network")
	redisURI := flag.String("redis-uri", defaultRedisURI, "redis uri")
	postgresDSN := flag.String("db", defaultPostgresDSN, "postgres dsn")
	memoryStore := flag.Bool("memory-store", defaultMemoryStore, "keep constraints and delegations in memory instead of redis and postgres")
	memorySlots := flag.Int("memory-store-slots", defaultMemorySlots, "number of slots kept by the in-memory store")
	maxConstraints := flag.Int("max-constraints-per-slot", defaultMaxConstraints, "max transactions in a single constraints message")
	logLevel := flag.String("loglevel", defaultLogLevel, "log-level: trace, debug, info, warn/warning, error, fatal, panic")
	logJSON := flag.Bool("json", defaultLogJSON, "log in JSON format instead of text")
	flag.Parse()

	log := common.LogSetup(*logJSON, *logLevel).WithField("service", "relay/constraints")

	var networkDetails *common.EthNetworkDetails
	var err error
	if *network == common.EthNetworkCustom {
		networkDetails, err = common.LoadEthNetworkDetails(*networkConfig)
	} else {
		networkDetails, err = common.NewEthNetworkDetails(*network)
	}
	if err != nil {
		log.WithError(err).Fatalf("error getting network details")
	}
	log.Infof("Using network: %s", networkDetails.String())

	var auctioneer datastore.Auctioneer
	var db database.IDatabaseService
	if *memoryStore {
		log.Warn("using in-memory stores, nothing is persisted")
		auctioneer = datastore.NewMemoryAuctioneer(*memorySlots)
		db = &database.MockDB{}
	} else {
		redis, err := connectWithRetry(log, "redis", func() (*datastore.RedisCache, error) {
			return datastore.NewRedisCache(networkDetails.Name, *redisURI)
		})
		if err != nil {
			log.WithError(err).Fatalf("failed to connect to redis at %s", *redisURI)
		}
		defer redis.Close()
		auctioneer = redis

		db, err = connectWithRetry(log, "postgres", func() (*database.DatabaseService, error) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return database.NewDatabaseService(ctx, *postgresDSN)
		})
		if err != nil {
			log.WithError(err).Fatalf("failed to connect to postgres")
		}
		defer db.Close()
	}

	constraintsAPI, err := api.NewConstraintsAPI(api.ConstraintsAPIOpts{
		Log:                   log,
		Auctioneer:            auctioneer,
		DB:                    db,
		EthNetDetails:         *networkDetails,
		MaxConstraintsPerSlot: *maxConstraints,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to create constraints API")
	}

	srv, err := api.NewService(api.ServiceOpts{
		Log:        log,
		ListenAddr: *listenAddr,
		API:        constraintsAPI,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to create service")
	}

	go func() {
		if err := srv.StartServer(); err != nil {
			log.WithError(err).Fatal("server error")
		}
	}()

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, syscall.SIGINT, syscall.SIGTERM)
	<-exit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("failed to shut down cleanly")
	}
	log.Info("bye")
}

// connectWithRetry retries connect with exponential backoff for up to connectTimeout.
func connectWithRetry[T any](log *logrus.Entry, name string, connect func() (T, error)) (T, error) {
	back := backoff.NewExponentialBackOff()
	back.MaxInterval = 5 * time.Second
	back.MaxElapsedTime = connectTimeout

	return backoff.RetryNotifyWithData(connect, back, func(err error, next time.Duration) {
		log.WithError(err).WithField("retryIn", next).Warnf("could not connect to %s", name)
	})
}
