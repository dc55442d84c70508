package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/sefazor/keepevents-backend/internal/config"
	"github.com/sefazor/keepevents-backend/internal/handler"
	"github.com/sefazor/keepevents-backend/internal/middleware"
	"github.com/sefazor/keepevents-backend/internal/repository"
	"github.com/sefazor/keepevents-backend/internal/service"
	"github.com/sefazor/keepevents-backend/pkg/captcha"
	"github.com/sefazor/keepevents-backend/pkg/database"
	"github.com/sefazor/keepevents-backend/pkg/email"
	jwtPkg "github.com/sefazor/keepevents-backend/pkg/jwt"
	"github.com/sefazor/keepevents-backend/pkg/logger"
	"github.com/sefazor/keepevents-backend/pkg/oauth"
	"github.com/sefazor/keepevents-backend/pkg/qrcode"
	"github.com/sefazor/keepevents-backend/pkg/storage"
	"github.com/sefazor/keepevents-backend/pkg/tagging"
	"github.com/sefazor/keepevents-backend/pkg/utils"
)

func main() {
	// .env is optional; real deployments set the environment directly
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("could not read .env: %v", err)
	}

	cfg, err := config.LoadConfig(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}

	zlog, err := logger.New(cfg.Log.Level, cfg.Log.JSON)
	if err != nil {
		log.Fatal("Failed to build logger: ", err)
	}
	defer func() { _ = zlog.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	db, err := database.Open(cfg.Database.URL, zlog)
	if err != nil {
		zlog.Fatal("failed to open database", zap.Error(err))
	}
	if err := database.RunMigrations(db); err != nil {
		zlog.Fatal("failed to migrate database", zap.Error(err))
	}

	// Repositories
	tx := repository.NewTransactor(db)
	userRepo := repository.NewUserRepository(db)
	otpRepo := repository.NewOTPRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	eventRepo := repository.NewEventRepository(db)
	grantRepo := repository.NewGrantRepository(db)
	inviteRepo := repository.NewInviteRepository(db)
	photoRepo := repository.NewPhotoRepository(db)
	engagementRepo := repository.NewEngagementRepository(db)

	// Outbound integrations
	var store storage.FileStore
	var memStore *storage.MemoryStore
	if cfg.R2.Bucket != "" {
		r2, err := storage.NewCloudflareStorage(ctx, storage.R2Config{
			AccountID:       cfg.R2.AccountID,
			AccessKeyID:     cfg.R2.AccessKeyID,
			SecretAccessKey: cfg.R2.SecretAccessKey,
			Bucket:          cfg.R2.Bucket,
			PublicURL:       cfg.R2.PublicURL,
		}, zlog)
		if err != nil {
			zlog.Fatal("failed to initialize R2 storage", zap.Error(err))
		}
		store = r2
	} else {
		zlog.Warn("R2 bucket not configured, files are kept in memory")
		memStore = storage.NewMemoryStore("http://localhost:" + cfg.Server.Port + "/media")
		store = memStore
	}

	var images storage.ImageVariants
	if cfg.Images.Enabled() {
		images = storage.NewCloudflareImages(storage.ImagesConfig{
			AccountID:   cfg.Images.AccountID,
			Token:       cfg.Images.Token,
			AccountHash: cfg.Images.Hash,
		}, zlog)
	}

	var tagger tagging.Tagger
	if cfg.Tagger.URL != "" {
		tagger = tagging.NewClient(cfg.Tagger.URL, cfg.Tagger.Timeout)
	}

	var provider oauth.Provider
	if cfg.Omniport.Enabled() {
		provider = oauth.NewOmniport(oauth.Config{
			BaseURL:      cfg.Omniport.BaseURL,
			ClientID:     cfg.Omniport.ClientID,
			ClientSecret: cfg.Omniport.ClientSecret,
			RedirectURI:  cfg.Omniport.RedirectURI,
		})
	}

	var verifier captcha.Verifier = captcha.Noop{}
	if cfg.Captcha.TurnstileSecret != "" {
		verifier = captcha.NewTurnstile(cfg.Captcha.TurnstileSecret)
	}

	mailer := email.NewEmailService(email.Config{
		APIKey:   cfg.Email.APIKey,
		From:     cfg.Email.From,
		FromName: cfg.Email.FromName,
	}, zlog)

	tokens := jwtPkg.NewManager(jwtPkg.Config{
		Secret:     cfg.JWT.Secret,
		Issuer:     cfg.JWT.Issuer,
		AccessTTL:  cfg.JWT.AccessTTL,
		RefreshTTL: cfg.JWT.RefreshTTL,
	})

	// Services
	accessService := service.NewAccessService(grantRepo, eventRepo)
	authService := service.NewAuthService(tx, userRepo, otpRepo, sessionRepo, tokens, mailer, provider, zlog)
	userService := service.NewUserService(userRepo, sessionRepo, zlog)
	eventService := service.NewEventService(tx, eventRepo, grantRepo, userRepo, accessService, store, images, zlog)
	inviteService := service.NewInviteService(tx, inviteRepo, grantRepo, accessService, qrcode.NewQRService(cfg.FrontendURL), mailer, zlog)
	photoService := service.NewPhotoService(photoRepo, accessService, store, images, tagger, zlog)
	engagementService := service.NewEngagementService(engagementRepo, photoRepo, accessService, zlog)

	validator := utils.NewValidator()

	// Handlers
	handlers := handler.Handlers{
		Auth: handler.NewAuthHandler(authService, verifier, validator, handler.CookieConfig{
			Secure: strings.HasPrefix(cfg.FrontendURL, "https://"),
		}, cfg.FrontendURL, zlog),
		User:       handler.NewUserHandler(userService, validator, zlog),
		Event:      handler.NewEventHandler(eventService, inviteService, validator, zlog),
		Photo:      handler.NewPhotoHandler(photoService, validator, zlog),
		Engagement: handler.NewEngagementHandler(engagementService, validator, zlog),
	}

	// Router
	app := fiber.New(fiber.Config{
		BodyLimit: 10 * service.MaxPhotoSize,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Origins(),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, DELETE",
		AllowCredentials: true,
	}))
	app.Use(fiberlogger.New())
	app.Use(limiter.New(limiter.Config{
		Max:        cfg.Server.RateLimit,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
	}))

	if memStore != nil {
		app.Get("/media/*", func(c *fiber.Ctx) error {
			data, ok := memStore.Get(c.Params("*"))
			if !ok {
				return c.SendStatus(fiber.StatusNotFound)
			}
			c.Set(fiber.HeaderContentType, utils.DetectContentType(data))
			return c.Send(data)
		})
	}

	handler.SetupRoutes(app, handlers, middleware.AuthMiddleware(authService, zlog))

	go func() {
		<-ctx.Done()
		zlog.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			zlog.Error("shutdown failed", zap.Error(err))
		}
	}()

	zlog.Info("listening", zap.String("port", cfg.Server.Port))
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		zlog.Fatal("server stopped", zap.Error(err))
	}
}
