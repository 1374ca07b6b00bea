package server

import (
	"context"
	"fmt"
	"log"
	"time"

	"energyadmin/backend"
	"energyadmin/internal"
	"energyadmin/internal/config"
	"energyadmin/metrics"
	"energyadmin/pages"
	"energyadmin/telegram"

	"golang.org/x/sync/errgroup"
)

// System wires the store, the page controllers and the outer services
type System struct {
	conf   *config.Config
	store  *backend.Backend
	logger *internal.Logger
	server *Server
	hub    *Hub
	bot    *telegram.TgBot
}

// NewPolicy builds the latency/failure policy from the simulation settings
func NewPolicy(conf *config.Config) backend.Policy {
	sim := conf.Simulation
	if sim.Instant {
		return backend.Instant()
	}
	return backend.NewRandomPolicy(sim.MinDelay, sim.MaxDelay, sim.FailureRate, sim.Seed)
}

// NewStore creates the store with the configured policy and seed rows
func NewStore(conf *config.Config, policy backend.Policy) (*backend.Backend, error) {
	seed := backend.DefaultSeed()
	if conf.SeedFile != "" {
		var err error
		seed, err = backend.LoadSeed(conf.SeedFile)
		if err != nil {
			return nil, fmt.Errorf("seed setup failed: %w", err)
		}
	}
	return backend.NewWithSeed(policy, seed), nil
}

func AssignPolicy(conf *config.Config) pages.AssignPolicy {
	if conf.Admin.AssignPolicy == config.AssignOptimistic {
		return pages.AssignOptimistic
	}
	return pages.AssignPessimistic
}

// NewPages creates one controller per page over the store
func NewPages(store pages.Store, policy pages.AssignPolicy) Pages {
	return Pages{
		Dashboard: pages.NewDashboard(store),
		Plans:     pages.NewPlans(store),
		Billing:   pages.NewBilling(store),
		Admin:     pages.NewAdmin(store, policy),
	}
}

func NewSystem(conf *config.Config) (*System, error) {
	sys := &System{conf: conf}

	log.Println("set time zone to " + conf.TimeZone)
	location, err := time.LoadLocation(conf.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("time zone initialization failed: %w", err)
	}

	var database internal.Database
	if conf.Mongo.Enabled {
		mongo, err := internal.NewMongoClient(conf)
		if err != nil {
			return nil, fmt.Errorf("mongodb setup failed: %w", err)
		}
		database = mongo
		log.Println("mongodb is configured and enabled")
	} else {
		log.Println("database is disabled")
	}

	// websocket feed doubles as the log message service
	hub := NewHub()
	sys.hub = hub

	rotation := internal.NewRotation(conf.Log.File, conf.Log.MaxSize, conf.Log.MaxAge)
	logService := internal.NewLogger(internal.NewZapLogger(conf.IsDebug, rotation), location)
	logService.SetDebugMode(conf.IsDebug)
	if database != nil {
		logService.SetDatabase(database)
	}
	logService.SetMessageService(hub)
	hub.SetLogger(logService)
	sys.logger = logService

	policy := NewPolicy(conf)
	store, err := NewStore(conf, policy)
	if err != nil {
		logService.Close()
		return nil, err
	}
	store.SetLogger(logService)
	store.AddEventListener(hub)
	sys.store = store
	if random, ok := policy.(*backend.RandomPolicy); ok {
		logService.Debug(fmt.Sprintf("simulated latency %v..%v, failure rate %.2f", random.MinDelay(), random.MaxDelay(), random.FailureRate()))
	} else {
		logService.Debug("simulated latency disabled")
	}

	if conf.Telegram.Enabled {
		telegramBot, err := telegram.NewBot(conf.Telegram.ApiKey)
		if err != nil {
			logService.Close()
			return nil, fmt.Errorf("telegram bot setup failed: %w", err)
		}
		telegramBot.SetDatabase(database)
		telegramBot.SetStore(store)
		store.AddEventListener(telegramBot)
		sys.bot = telegramBot
		log.Println("telegram bot is configured and enabled")
	}

	sys.server = NewServer(conf, NewPages(store, AssignPolicy(conf)), hub)
	sys.server.SetLogger(logService)
	if database != nil {
		sys.server.SetDatabase(database)
	}

	return sys, nil
}

func (sys *System) Store() *backend.Backend {
	return sys.store
}

// Start runs the api and the metrics listener until ctx is done or one of them fails
func (sys *System) Start(ctx context.Context) error {
	if sys.bot != nil {
		sys.bot.Start()
	}
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := sys.server.Start(groupCtx); err != nil {
			return fmt.Errorf("api server failed: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		if err := metrics.Listen(groupCtx, sys.conf, sys.logger); err != nil {
			return fmt.Errorf("metrics server failed: %w", err)
		}
		return nil
	})
	err := group.Wait()
	if err != nil {
		sys.logger.Error("system stopped", err)
	}
	return err
}

// Close flushes the log
func (sys *System) Close() {
	sys.hub.Close()
	sys.logger.Close()
}
