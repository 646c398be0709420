package main

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	httpadp "ciddt-registration-backend/internal/adapter/http"
	mw "ciddt-registration-backend/internal/adapter/middleware"
	"ciddt-registration-backend/internal/adapter/repository/mysql"
	"ciddt-registration-backend/internal/config"
	regDomain "ciddt-registration-backend/internal/domain/registration"
	userDomain "ciddt-registration-backend/internal/domain/user"
	"ciddt-registration-backend/internal/identity"
	"ciddt-registration-backend/internal/infrastructure/cache"
	"ciddt-registration-backend/internal/infrastructure/db"
	"ciddt-registration-backend/internal/mailer"
	"ciddt-registration-backend/internal/token"
	ucRegistration "ciddt-registration-backend/internal/usecase/registration"
	ucSignup "ciddt-registration-backend/internal/usecase/signup"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	gdb, err := db.OpenGorm(cfg.MySQLDSN())
	if err != nil {
		log.Fatalf("mysql: %v", err)
	}
	if err := gdb.AutoMigrate(&regDomain.RegistrationToken{}, &userDomain.User{}); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	rdb, err := cache.OpenRedis(cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}

	codec := token.NewCodec(cfg.JWTSecret, cfg.TokenTTL)
	sender := mailer.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom)
	idp := identity.NewRESTProvider(cfg.IdentityBaseURL, cfg.IdentityAPIKey)
	guow := mysql.NewGormUoW(gdb)

	approvals := ucRegistration.NewUsecase(guow, codec, sender, ucRegistration.Options{
		BaseURL:    cfg.PublicBaseURL,
		AdminEmail: cfg.AdminEmail,
	})
	signup := ucSignup.NewUsecase(approvals, idp, guow)

	h := httpadp.NewHandler()
	regH := httpadp.NewRegistrationHandler(approvals, signup)

	e := echo.New()
	e.HideBanner = true
	e.Validator = httpadp.NewValidator()
	e.Use(middleware.Logger(), middleware.Recover())

	// Retried approval requests must not fan out duplicate admin mails,
	// so only /verify-user carries the idempotency guard. Redemption is
	// already single-shot at the ledger level.
	idemp := mw.IdempotencyMiddleware(rdb, time.Duration(cfg.IdempTTLSecs)*time.Second)

	// routes
	e.GET("/health", h.Health)
	e.POST("/verify-user", regH.VerifyUser, idemp)
	e.GET("/registro", regH.Redeem)
	e.POST("/registro", regH.CompleteSignup)

	addr := ":" + cfg.AppPort
	log.Printf("listening on %s", addr)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
