package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nuthan1805/loyalty-managemen/internal/config"
	"github.com/nuthan1805/loyalty-managemen/internal/handlers"
	"github.com/nuthan1805/loyalty-managemen/internal/repository"
	"github.com/nuthan1805/loyalty-managemen/internal/services"
	"github.com/nuthan1805/loyalty-managemen/internal/session"
	xhttp "github.com/nuthan1805/loyalty-managemen/pkg/http"
	"github.com/nuthan1805/loyalty-managemen/pkg/logger"
	"github.com/nuthan1805/loyalty-managemen/pkg/pg"
	"github.com/nuthan1805/loyalty-managemen/pkg/prom"
	"github.com/nuthan1805/loyalty-managemen/pkg/redis"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {

	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}

	// transport (tcp for now)
	s := xhttp.NewServer(xhttp.DefaultServerOption)
	s.Server.ReadBufferSize = 1024 * 16
	s.Server.WriteBufferSize = 1024 * 16
	s.Use(xhttp.CompressMiddleware(6))
	s.Use(xhttp.TimeoutMiddleware(time.Second * 5))
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.RecoverMiddleware)
	s.Router = xhttp.CreateDefaultRouter()

	readConf := pg.Config{
		User:     config.Get().PostgresReadUser,
		Host:     config.Get().PostgresReadHost,
		Port:     config.Get().PostgresReadPort,
		Password: config.Get().PostgresReadPassword,
		Database: config.Get().PostgresReadDatabase,
	}
	writeConf := pg.Config{
		User:     config.Get().PostgresWriteUser,
		Host:     config.Get().PostgresWriteHost,
		Port:     config.Get().PostgresWritePort,
		Password: config.Get().PostgresWritePassword,
		Database: config.Get().PostgresWriteDatabase,
	}

	pgDebug := false
	if config.Get().AppEnv == "dev" {
		pgDebug = true
	}
	db, err := pg.CreateReadWrite(readConf, writeConf, pgDebug)
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	redisAdap, err := redis.NewAdapter("default", config.Get().RedisUniversalKeyPrefix, &redis.Options{
		Addrs:      []string{config.Get().RedisAddr},
		ClientName: "default",
		DB:         config.Get().RedisDatabase,
		Username:   config.Get().RedisUsername,
		Password:   config.Get().RedisPassword,
	})
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	var hostname string
	hostname, err = os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	err = prom.Create(hostname, config.Get().AppEnv, config.Get().PromNamespace)
	if err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
		return
	}
	if config.Get().AppDebugMetricsAddr != "" {
		go func() {
			prom.ListenAndServer(config.Get().AppDebugMetricsAddr, config.Get().AppDebugMetricsURI)
		}()
	}

	sessions := session.NewManager(session.Config{
		Secret:     config.Get().SessionSecret,
		TTL:        config.Get().SessionTTL,
		Inactivity: config.Get().SessionInactivity,
	}, redisAdap, func(sessionID, actor string) {
		logger.Info("session expired from inactivity", "session_id", sessionID, "actor", actor)
	})

	memberRepo := repository.NewMemberRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)

	// services
	idempotency := services.NewIdempotencyService(redisAdap, services.DefaultIdempotencyConfig())
	memberService := services.NewMemberService(memberRepo, transactionRepo)
	ledgerService := services.NewLedgerService(memberRepo, transactionRepo, idempotency, config.Get().HistoryPageSize)
	reconcilerService := services.NewReconcilerService(memberRepo, transactionRepo)
	dashboardService := services.NewDashboardService(memberRepo, transactionRepo, config.Get().TopMembersLimit)
	healthService := services.NewHealthService(db)

	// v1 handlers
	memberHandler := handlers.NewMemberHandler(memberService, sessions)
	transactionHandler := handlers.NewTransactionHandler(ledgerService, sessions)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService, sessions)
	reconcileHandler := handlers.NewReconcileHandler(reconcilerService, sessions)
	healthHandler := handlers.NewHealthHandler(healthService)

	g := s.Router.Group("/api/v1")
	handlers.RegisterMemberRoutes(g, memberHandler)
	handlers.RegisterTransactionRoutes(g, transactionHandler)
	handlers.RegisterDashboardRoutes(g, dashboardHandler)
	handlers.RegisterReconcileRoutes(g, reconcileHandler)
	handlers.RegisterHealthRoutes(g, healthHandler)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		var err = s.ListenAndServe(config.Get().HttpListenAddr)
		if err != nil {
			logger.Error("error in running http-server", "error", err)
		}
	}()

	select {
	case <-c:
		s.Shutdown()
	}
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--env=") {
			s := strings.Split(v, "=")
			if _, err := os.Open(s[1]); err != nil {
				logger.Error("failed to open the passed env file, got error" + err.Error())
				return ""
			}
			return s[1]
		}
	}
	return ""
}
