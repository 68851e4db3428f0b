package main

import (
	"coursepay/config"
	adminControllers "coursepay/controllers/admin"
	authControllers "coursepay/controllers/auth"
	courseControllers "coursepay/controllers/course"
	orderControllers "coursepay/controllers/order"
	settlementControllers "coursepay/controllers/settlement"
	userControllers "coursepay/controllers/user"
	"coursepay/database"
	"coursepay/logger"
	"coursepay/routers"
	"coursepay/services/events"
	"coursepay/services/gateway"
	"coursepay/services/notify"
	"coursepay/services/pricing"
	"coursepay/services/settlement"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

func main() {
	if err := config.LoadConfig(); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg := config.AppConfig

	logger.Initialize(cfg.Env)
	defer logger.Log.Sync()
	for _, w := range cfg.Warnings() {
		logger.Log.Warn(w)
	}

	database.ConnectDb(cfg)
	db := database.Database.Db

	mailer := newMailer(cfg)
	publisher := newPublisher(cfg)
	dispatcher := notify.NewDispatcher(logger.Named("dispatcher"))
	razorpay := gateway.NewRazorpayClient(cfg.GatewayURL, cfg.GatewayKeyID, cfg.GatewayKeySecret, cfg.GatewayTimeout)

	store := settlement.NewStore(db)
	catalog := settlement.NewGormCatalog(db)
	resolver := pricing.NewResolver(pricing.NewGormTokenStore(db), logger.Named("pricing"))
	initiator := settlement.NewInitiator(store, catalog, resolver, razorpay, settlement.InitiatorConfig{
		Currency:          cfg.Currency,
		TaxPercent:        cfg.TaxPercent,
		GatewayTimeout:    cfg.GatewayTimeout,
		IdempotencyWindow: cfg.IdempotencyWindow,
	}, logger.Named("initiator"))
	reconciler := settlement.NewReconciler(store, catalog, settlement.NewGormIdentity(db), mailer, publisher, dispatcher,
		cfg.GatewayKeySecret, logger.Named("reconciler"))
	claimer := settlement.NewClaimer(store, publisher, dispatcher, logger.Named("claimer"))

	sweeper, err := settlement.StartSweeper(cfg.SweepSchedule,
		settlement.NewSweeper(store, cfg.StaleSettlementAfter, logger.Named("sweeper")), logger.Log)
	if err != nil {
		logger.Log.Fatal("Invalid settlement sweep schedule", zap.String("schedule", cfg.SweepSchedule), zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE",
		AllowHeaders: "Content-Type,Authorization,Idempotency-Key",
	}))

	// Enable the built-in logger middleware to log all requests
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${ip} ${method} ${path} ${status} ${latency}\n",
	}))

	routers.Setup(app, routers.Handlers{
		Auth:       authControllers.NewHandler(db, claimer, cfg.SaltRound, logger.Named("auth")),
		Course:     courseControllers.NewHandler(db, resolver),
		Order:      orderControllers.NewHandler(initiator, razorpay.KeyID()),
		Settlement: settlementControllers.NewHandler(reconciler, store),
		User:       userControllers.NewHandler(db, store, claimer),
		Admin:      adminControllers.NewHandler(db, logger.Named("admin")),
	})

	go func() {
		logger.Log.Info("Server is running", zap.String("port", cfg.Port))
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Log.Fatal("Server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}
	<-sweeper.Stop().Done()
	// let pending confirmation emails and events go out
	dispatcher.Wait()
	if err := publisher.Close(); err != nil {
		logger.Log.Warn("Closing event publisher failed", zap.Error(err))
	}
	logger.Log.Info("Server exited")
}

func newMailer(cfg *config.Config) notify.Mailer {
	switch {
	case cfg.SendgridAPIKey != "":
		return notify.NewSendgridMailer(cfg.SendgridAPIKey, cfg.EmailSender, cfg.EmailFromName)
	case cfg.Password != "":
		return notify.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.Password, cfg.EmailSender, cfg.EmailFromName)
	}
	return notify.NewLogMailer(logger.Named("mailer"))
}

func newPublisher(cfg *config.Config) events.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		return events.NopPublisher{}
	}
	return events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
}

