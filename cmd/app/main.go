package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"billing-ledger/internal/config"
	"billing-ledger/internal/domain/model"
	"billing-ledger/internal/domain/ports/adapter"
	pg "billing-ledger/internal/infra/db/postgres"
	"billing-ledger/internal/infra/dispatch"
	"billing-ledger/internal/infra/gateway"
	"billing-ledger/internal/infra/logging"
	"billing-ledger/internal/infra/metrics"
	red "billing-ledger/internal/infra/redis"
	"billing-ledger/internal/infra/sched"
	"billing-ledger/internal/infra/web"
	"billing-ledger/internal/usecase"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, noop gateway allowed)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)

	// ---- Payment gateway ----
	var gw adapter.PaymentGateway
	switch cfg.Gateway.Provider {
	case "rest":
		gw, err = gateway.NewRESTGateway(cfg.Gateway)
		if err != nil {
			logger.Fatal().Err(err).Msg("gateway")
		}
	case "noop":
		gw = gateway.NewNoopGateway()
	default:
		logger.Fatal().Str("provider", cfg.Gateway.Provider).Msg("unknown gateway provider")
	}

	// ---- Repositories ----
	accountRepo := pg.NewPostgresAccountRepo(pool)
	methodRepo := pg.NewPostgresPaymentMethodRepo(pool)
	txRepo := pg.NewPostgresTransactionRepo(pool)
	paymentRepo := pg.NewPostgresPaymentRepo(pool)
	entryRepo := pg.NewPostgresEntryRepo(pool)
	invoiceRepo := pg.NewPostgresInvoiceRepo(pool)
	subRepo := pg.NewPostgresSubscriptionRepo(pool)
	couponRepo := pg.NewPostgresCouponRepo(pool)
	productRepo := pg.NewPostgresProductRepo(pool)
	txManager := pg.NewTxManager(pool)

	// ---- Background task plumbing ----
	pool2 := dispatch.NewPool(cfg.Worker.PoolSize, logger)
	dispatcher := dispatch.NewDispatcher(pool2, logger)

	// ---- Use cases ----
	ledgerUC := usecase.NewLedgerUseCase(txRepo, accountRepo, txManager, dispatcher, logger)
	paymentUC := usecase.NewPaymentUseCase(paymentRepo, gw, ledgerUC, logger)
	accountUC := usecase.NewAccountUseCase(accountRepo, methodRepo, txRepo, txManager, gw, paymentUC, dispatcher, cfg.Billing.Grace(), logger)
	invoiceUC := usecase.NewInvoiceUseCase(invoiceRepo, entryRepo, txRepo, ledgerUC, dispatcher, logger)
	couponUC := usecase.NewCouponUseCase(couponRepo, entryRepo, txRepo, ledgerUC, logger)
	subUC := usecase.NewSubscriptionUseCase(subRepo, entryRepo, invoiceRepo, productRepo, couponRepo, invoiceUC, ledgerUC, couponUC, logger)

	// ---- Task handlers ----
	dispatcher.Register(usecase.OpUpdateBalance, func(ctx context.Context, task model.Task) error {
		_, err := accountUC.UpdateBalance(ctx, task.TargetID)
		return err
	})
	dispatcher.Register(usecase.OpEnterPayment, func(ctx context.Context, task model.Task) error {
		_, err := accountUC.EnterPayment(ctx, task.TargetID, 0)
		return err
	})
	dispatcher.Register(usecase.OpRefreshEntryCounts, func(ctx context.Context, task model.Task) error {
		return invoiceUC.RefreshEntryCounts(ctx, task.TargetID)
	})
	dispatcher.Register(usecase.OpNotifyEvent, func(ctx context.Context, task model.Task) error {
		logger.Info().Str("target_id", task.TargetID).Fields(map[string]interface{}{"args": task.Args}).Msg("billing event")
		return nil
	})
	pool2.Start(ctx)

	// ---- Periodic workers ----
	balanceWorker := sched.NewBalanceWorker(cfg.Worker.BalanceInterval, cfg.Worker.BatchLimit, accountUC, locker, logger)
	renewalWorker := sched.NewRenewalWorker(cfg.Worker.RenewalInterval, cfg.Worker.BatchLimit, subUC, locker, logger)
	collectionWorker := sched.NewCollectionWorker(cfg.Worker.CollectInterval, cfg.Billing.RetryCooldown, cfg.Worker.BatchLimit, accountUC, locker, logger)
	reconciler := sched.NewPaymentReconciler(cfg.Worker.ReconcileInterval, cfg.Billing.PaymentStaleAfter, cfg.Worker.BatchLimit, paymentUC, locker, logger)

	go func() { _ = balanceWorker.Run(ctx) }()
	go func() { _ = renewalWorker.Run(ctx) }()
	go func() { _ = collectionWorker.Run(ctx) }()
	go func() { _ = reconciler.Run(ctx) }()

	// ---- HTTP (health + metrics) ----
	metrics.MustRegister()
	srv := web.NewServer(&cfg.Web, func(ctx context.Context) error { return pool.Ping(ctx) }, logger)
	go func() {
		if err := srv.Run(); err != nil {
			logger.Error().Err(err).Msg("web server")
			stop()
		}
	}()

	logger.Info().Msg("billing ledger up")
	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	pool2.Stop()
}
