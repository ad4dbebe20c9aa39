// Package main 是应用程序入口
package main

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"

	_ "github.com/dumeirei/market-merchant-backend/docs"
	"github.com/dumeirei/market-merchant-backend/internal/common/cache"
	"github.com/dumeirei/market-merchant-backend/internal/common/config"
	"github.com/dumeirei/market-merchant-backend/internal/common/jwt"
	"github.com/dumeirei/market-merchant-backend/internal/common/metrics"
	commonMiddleware "github.com/dumeirei/market-merchant-backend/internal/common/middleware"
	"github.com/dumeirei/market-merchant-backend/internal/common/qrcode"
	adminHandler "github.com/dumeirei/market-merchant-backend/internal/handler/admin"
	"github.com/dumeirei/market-merchant-backend/internal/middleware"
	"github.com/dumeirei/market-merchant-backend/internal/models"
	"github.com/dumeirei/market-merchant-backend/internal/repository"
	authService "github.com/dumeirei/market-merchant-backend/internal/service/auth"
	catalogService "github.com/dumeirei/market-merchant-backend/internal/service/catalog"
	"github.com/dumeirei/market-merchant-backend/internal/service/importer"
	"github.com/dumeirei/market-merchant-backend/internal/service/market"
	merchantService "github.com/dumeirei/market-merchant-backend/internal/service/merchant"
	paymentService "github.com/dumeirei/market-merchant-backend/internal/service/payment"
	uploadService "github.com/dumeirei/market-merchant-backend/internal/service/upload"
	"github.com/dumeirei/market-merchant-backend/pkg/oss"
)

// services 装配后的服务集合
type services struct {
	jwtManager *jwt.Manager
	blacklist  *cache.TokenBlacklist
	auth       *authService.AuthService
	merchant   *merchantService.MerchantService
	contract   *merchantService.ContractService
	payment    *paymentService.PaymentService
	location   *catalogService.LocationService
	reference  *catalogService.ReferenceService
	photo      *uploadService.PhotoService
	importer   *importer.Importer
}

// buildServices 初始化仓储与服务
func buildServices(cfg *config.Config, log *zap.Logger, db *gorm.DB, redisClient *redis.Client) *services {
	jwtManager := jwt.NewManager(&jwt.Config{
		Secret:            cfg.JWT.Secret,
		AccessExpireTime:  cfg.JWT.AccessTokenDuration(),
		RefreshExpireTime: cfg.JWT.RefreshTokenDuration(),
		Issuer:            cfg.JWT.Issuer,
	})
	blacklist := cache.NewTokenBlacklist(redisClient)

	adminRepo := repository.NewAdminRepository(db)
	merchantRepo := repository.NewMerchantRepository(db)
	locationRepo := repository.NewLocationRepository(db)
	referenceRepo := repository.NewReferenceRepository(db)
	contractRepo := repository.NewContractRepository(db)

	calc := market.NewCalculator(cfg.Business.Locale)
	assembler := market.NewAssembler(calc)

	// 未配置对象存储时照片上传返回 503
	var storage oss.Storage
	if cfg.OSS.Enabled() {
		aliyun, err := oss.NewAliyunStorage(&oss.AliyunConfig{
			Endpoint:        cfg.OSS.Endpoint,
			AccessKeyID:     cfg.OSS.AccessKeyID,
			AccessKeySecret: cfg.OSS.AccessKeySecret,
			BucketName:      cfg.OSS.Bucket,
			Domain:          cfg.OSS.CustomDomain,
			BasePath:        cfg.OSS.UploadDir,
		})
		if err != nil {
			log.Warn("对象存储初始化失败，照片上传不可用", zap.Error(err))
		} else {
			storage = aliyun
		}
	}

	return &services{
		jwtManager: jwtManager,
		blacklist:  blacklist,
		auth:       authService.NewAuthService(adminRepo, jwtManager, blacklist),
		merchant:   merchantService.NewMerchantService(db, assembler, qrcode.NewGenerator()),
		contract:   merchantService.NewContractService(db, assembler),
		payment:    paymentService.NewPaymentService(db, calc, cfg.Business.Currency),
		location:   catalogService.NewLocationService(locationRepo, assembler),
		reference:  catalogService.NewReferenceService(referenceRepo, contractRepo),
		photo:      uploadService.NewPhotoService(storage, merchantRepo, cfg.Business.MaxUploadSize),
		importer: importer.NewImporter(db, redisClient, importer.Config{
			MaxRows: cfg.Business.ImportMaxRows,
			Sheet:   cfg.Business.ImportSheet,
		}),
	}
}

// setupRouter 设置路由
func setupRouter(
	r *gin.Engine,
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	redisClient *redis.Client,
	svc *services,
) {
	// 初始化处理器
	authH := adminHandler.NewAuthHandler(svc.auth)
	merchantH := adminHandler.NewMerchantHandler(svc.merchant, svc.contract, svc.photo)
	paymentH := adminHandler.NewPaymentHandler(svc.payment)
	importH := adminHandler.NewImportHandler(svc.importer)
	locationH := adminHandler.NewLocationHandler(svc.location)
	referenceH := adminHandler.NewReferenceHandler(svc.reference)

	operationLogger := commonMiddleware.NewOperationLogger(repository.NewOperationLogRepository(db))

	// 全局中间件
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.SecureHeaders())
	r.Use(middleware.CORS(middleware.CORSConfigFrom(&cfg.CORS)))
	r.Use(middleware.AccessLog(logger))
	if cfg.Tracing.Enabled {
		r.Use(commonMiddleware.Tracing(&commonMiddleware.TracingConfig{
			ServiceName:  cfg.Tracing.ServiceName,
			SkipPaths:    []string{"/health", "/ping", "/ready", cfg.Metrics.Path},
			SkipPrefixes: []string{"/swagger/"},
		}))
	}
	if cfg.Metrics.Enabled {
		m := metrics.GetMetrics()
		r.Use(m.Middleware())
		r.GET(cfg.Metrics.Path, m.Handler())
	}

	// 健康检查（不需要认证）
	r.GET("/health", healthHandler)
	r.GET("/ping", pingHandler)
	r.GET("/ready", readyHandler(db, redisClient))

	// Swagger 文档
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 管理后台 API
	admin := r.Group("/api/admin")
	{
		// 登录与刷新（公开，按 IP 限流）
		public := admin.Group("")
		public.Use(middleware.LoginRateLimit(redisClient, 10, time.Minute))
		authH.RegisterPublicRoutes(public)

		// 需要管理员认证
		protected := admin.Group("")
		protected.Use(middleware.AdminAuth(svc.jwtManager, svc.blacklist), middleware.NoCache())
		if cfg.RateLimit.Enabled {
			protected.Use(middleware.AdminRateLimit(redisClient, cfg.RateLimit.Limit, time.Duration(cfg.RateLimit.Window)*time.Second))
		}
		protected.Use(operationLogger.Log())
		{
			authH.RegisterRoutes(protected)
			merchantH.RegisterRoutes(protected)
			paymentH.RegisterRoutes(protected)
			importH.RegisterRoutes(protected)
			locationH.RegisterRoutes(protected)
			referenceH.RegisterRoutes(protected)

			// 收费标准仅超级管理员维护
			tariffs := protected.Group("")
			tariffs.Use(middleware.RequireRole(models.RoleSuperAdmin))
			referenceH.RegisterManageRoutes(tariffs)
		}
	}
}
