package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"peercart/internal/config"
	"peercart/internal/handler"
	"peercart/internal/infra/cache"
	"peercart/internal/infra/db"
	"peercart/internal/infra/logger"
	infraRepo "peercart/internal/infra/repository"
	"peercart/internal/infra/session"
	"peercart/internal/middleware"
	"peercart/internal/server"
	"peercart/internal/usecase"
	auth "peercart/internal/usecase/auth_usecase"
	"peercart/internal/view"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type uuidGenerator struct{}

func (g *uuidGenerator) NewID() string {
	return uuid.NewString()
}

func main() {
	//.envは無くてもよい（本番は環境変数）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		log.Fatal("connect postgres", zap.Error(err))
	}
	if err := db.Migrate(gormDB); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}

	rdb, err := db.ConnectRedis(ctx, cfg, log)
	if err != nil {
		log.Fatal("connect redis", zap.Error(err))
	}
	defer func() { _ = rdb.Close() }()

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	prefsRepo := infraRepo.NewPreferencesGormRepository(gormDB)
	addressRepo := infraRepo.NewAddressGormRepository(gormDB)
	listingRepo := infraRepo.NewListingGormRepository(gormDB)
	cartRepo := infraRepo.NewCartGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	orderItemRepo := infraRepo.NewOrderItemGormRepository(gormDB)
	convRepo := infraRepo.NewConversationGormRepository(gormDB)
	messageRepo := infraRepo.NewMessageGormRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)
	txm := infraRepo.NewTxManagerGorm(gormDB)

	//Redis（セッション・ゲストカート・登録途中データ・出品キャッシュ）
	sessions := session.NewRedisStore(rdb, cfg.SessionTTL)
	drafts := session.NewDraftStore(rdb, cfg.RegistrationDraftTTL)
	listingCache := cache.NewListingCache(rdb, log)

	//usecaseに渡す部品
	clock := usecase.SystemClock{}
	hasher := auth.NewBcryptPasswordHasher(12)
	verifier := auth.NewBcryptPasswordVerifier()
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.AuthTTL, cfg.RegistrationDraftTTL)

	//Usecase生成
	registerUC := auth.NewRegistrationUsecase(userRepo, drafts, txm, hasher, tokens, &uuidGenerator{}, clock, log)
	loginUC := auth.NewLoginUsecase(userRepo, verifier, tokens, clock, log)
	cartUC := usecase.NewCartUsecase(cartRepo, sessions, listingRepo, log, cfg.Debug)
	checkoutUC := usecase.NewCheckoutUsecase(txm, cartUC, userRepo, addressRepo, orderRepo, orderItemRepo,
		listingCache, usecase.RandomOrderNumberGenerator{}, clock, log, cfg.Debug)
	listingUC := usecase.NewListingUsecase(listingRepo, txm, listingCache, log, cfg.Debug)
	orderUC := usecase.NewOrderUsecase(txm, orderRepo, orderItemRepo, auditRepo, listingCache, log, cfg.Debug)
	messageUC := usecase.NewMessageUsecase(convRepo, messageRepo, listingRepo, log, cfg.Debug)
	addressUC := usecase.NewAddressUsecase(addressRepo, clock, log, cfg.Debug)
	settingsUC := usecase.NewSettingsUsecase(txm, userRepo, prefsRepo, hasher, verifier, log, cfg.Debug)
	supportUC := usecase.NewSupportUsecase(log)

	//Handler生成
	csrf := middleware.NewCSRF(cfg.JWTSecret, 0)
	base := handler.NewBase(cfg, sessions, csrf, cartUC, messageUC, clock, log)
	handlers := server.Handlers{
		Auth:      handler.NewAuthHandler(base, registerUC, loginUC),
		Listing:   handler.NewListingHandler(base, listingUC),
		Cart:      handler.NewCartHandler(base),
		Checkout:  handler.NewCheckoutHandler(base, checkoutUC),
		Dashboard: handler.NewDashboardHandler(base, orderUC, listingUC),
		Message:   handler.NewMessageHandler(base, messageUC),
		Settings:  handler.NewSettingsHandler(base, settingsUC, addressUC, tokens),
		Support:   handler.NewSupportHandler(base, supportUC),
	}

	renderer, err := view.New()
	if err != nil {
		log.Fatal("parse templates", zap.Error(err))
	}

	e := server.New(cfg, userRepo, renderer, handlers, log)

	//Server起動
	addr := cfg.Port
	if addr == "" || addr[0] != ':' {
		addr = ":" + addr
	}
	if err := server.Start(ctx, e, addr, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
