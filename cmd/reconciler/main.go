package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nuthan1805/loyalty-managemen/internal/config"
	"github.com/nuthan1805/loyalty-managemen/internal/repository"
	"github.com/nuthan1805/loyalty-managemen/internal/services"
	"github.com/nuthan1805/loyalty-managemen/pkg/logger"
	"github.com/nuthan1805/loyalty-managemen/pkg/pg"
	"github.com/nuthan1805/loyalty-managemen/pkg/prom"
	"github.com/nuthan1805/loyalty-managemen/pkg/worker"
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

	go func() {
		prom.ListenAndServer(":9100", "/metrics")
	}()

	memberRepo := repository.NewMemberRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	reconciler := services.NewReconcilerService(memberRepo, transactionRepo)

	workers := config.Get().ReconcileWorkers
	if workers <= 0 {
		workers = 1
	}
	pool := worker.NewWorkerManager(config.Get().ReconcileBatch, workers, make(chan interface{}, config.Get().ReconcileBatch))
	pool.SetWorker(func(workerIndex int, job interface{}) {
		memberID, ok := job.(string)
		if !ok {
			return
		}
		result, err := reconciler.RecomputeBalance(context.Background(), memberID)
		if err != nil {
			logger.Error("reconcile sweep failed for member", "member_id", memberID, "error", err)
			return
		}
		if result.Corrected {
			logger.Info("sweep corrected member balance",
				"member_id", memberID,
				"reported", result.Reported,
				"computed", result.Computed)
		}
	})
	go func() {
		// Start blocks until every worker is told to exit.
		if err := pool.Start(); err != nil {
			logger.Info("reconcile workers stopped", "reason", err)
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(config.Get().ReconcileInterval)
	defer ticker.Stop()

	sweep(reconciler, pool)
	for {
		select {
		case <-ticker.C:
			sweep(reconciler, pool)
		case <-c:
			pool.Exit()
			return
		}
	}
}

// sweep pages through the registry and hands every member id to the pool.
func sweep(reconciler *services.ReconcilerService, pool *worker.WorkerManager) {
	ctx := context.Background()
	batch := config.Get().ReconcileBatch
	if batch <= 0 {
		batch = 200
	}

	start := time.Now()
	var total int
	for offset := 0; ; offset += batch {
		ids, err := reconciler.MemberIDs(ctx, batch, offset)
		if err != nil {
			logger.Error("reconcile sweep: listing members failed", "error", err)
			return
		}
		if len(ids) == 0 {
			break
		}
		for _, id := range ids {
			pool.Enqueue(id)
		}
		total += len(ids)
	}

	logger.Info("reconcile sweep enqueued", "members", total, "took", time.Since(start))
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
