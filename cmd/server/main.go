// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"save-vault-go/internal/config"
	"save-vault-go/internal/handler"
	"save-vault-go/internal/middleware"
	"save-vault-go/internal/model"
	"save-vault-go/internal/pipeline"
	"save-vault-go/internal/repository"
	"save-vault-go/internal/service"
	"save-vault-go/pkg/database"
	"save-vault-go/pkg/es"
	"save-vault-go/pkg/kafka"
	"save-vault-go/pkg/log"
	"save-vault-go/pkg/storage"
	"save-vault-go/pkg/token"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库、Redis、对象存储、搜索索引和消息队列
	database.InitMySQL(cfg.Database.MySQL.DSN)
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	storage.InitMinIO(cfg.MinIO)
	if err := es.InitES(cfg.Elasticsearch); err != nil {
		log.Errorf("es 初始化失败 %s", err)
		return
	}
	kafka.InitProducer(cfg.Kafka)

	// 同步表结构
	if err := database.DB.AutoMigrate(&model.User{}, &model.SaveLocation{}, &model.RenameIntent{}); err != nil {
		log.Fatalf("数据库表结构同步失败: %v", err)
	}

	// 4. 初始化 Repository
	userRepo := repository.NewUserRepository(database.DB)
	vaultRepo := repository.NewVaultRepository(database.RDB, cfg.MinIO)
	locationRepo := repository.NewLocationRepository(database.DB)
	renameRepo := repository.NewRenameIntentRepository(database.DB)

	// 5. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours, cfg.JWT.RefreshTokenExpireDays)
	vaultService := service.NewVaultService(vaultRepo, renameRepo, kafka.ProduceSaveEvent)
	userService := service.NewUserService(userRepo, vaultRepo, locationRepo, jwtManager, kafka.ProduceSaveEvent)
	locationService := service.NewLocationService(locationRepo)
	searchService := service.NewSearchService(es.ESClient, cfg.Elasticsearch)

	// 6. 收敛上次进程退出时残留的重命名意向
	if err := vaultService.RecoverPendingRenames(context.Background()); err != nil {
		log.Errorf("恢复残留的重命名意向失败: %v", err)
	}

	// 7. 启动后台 Kafka 消费者，维护存档搜索索引
	processor := pipeline.NewProcessor(cfg.Elasticsearch)
	go kafka.StartConsumer(cfg.Kafka, processor)

	// 8. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 9. 注册路由
	userHandler := handler.NewUserHandler(userService)
	vaultHandler := handler.NewVaultHandler(vaultService)
	locationHandler := handler.NewLocationHandler(locationService)
	searchHandler := handler.NewSearchHandler(searchService)
	progressHandler := handler.NewProgressHandler(vaultService, jwtManager)

	apiV1 := r.Group("/api/v1")
	{
		// Auth 路由组
		auth := apiV1.Group("/auth")
		{
			auth.POST("/refreshToken", handler.NewAuthHandler(userService).RefreshToken)
		}

		users := apiV1.Group("/users")
		{
			// 无需认证的路由 (公开访问)
			users.POST("/register", userHandler.Register)
			users.POST("/login", userHandler.Login)

			// 需要认证的路由 (仅限登录用户访问)
			authed := users.Group("/")
			authed.Use(middleware.AuthMiddleware(jwtManager, userService))
			{
				authed.GET("/me", userHandler.GetProfile)
				authed.PUT("/me", userHandler.UpdateProfile)
				authed.POST("/me/avatar", userHandler.UploadAvatar)
				authed.POST("/logout", userHandler.Logout)
				authed.POST("/delete-account", userHandler.DeleteAccount)
			}
		}

		// 存档路由组，需要认证
		saves := apiV1.Group("/saves")
		saves.Use(middleware.AuthMiddleware(jwtManager, userService))
		{
			saves.GET("", vaultHandler.ListSaves)
			saves.POST("", vaultHandler.Upload)
			saves.PUT("/rename", vaultHandler.Rename)
			saves.GET("/progress", vaultHandler.GetProgress)
			saves.DELETE("/:fileName", vaultHandler.Delete)
			saves.GET("/:fileName/download", vaultHandler.Download)
		}

		// 存档路径路由组，需要认证
		locations := apiV1.Group("/locations")
		locations.Use(middleware.AuthMiddleware(jwtManager, userService))
		{
			locations.POST("/query", locationHandler.Query)
			locations.PUT("", locationHandler.Set)
			locations.POST("/add", locationHandler.Add)
			locations.POST("/remove", locationHandler.Remove)
		}

		// 搜索路由组，需要认证
		search := apiV1.Group("/search")
		search.Use(middleware.AuthMiddleware(jwtManager, userService))
		{
			search.GET("/saves", searchHandler.Search)
		}
	}

	// 进度推送 (WebSocket)，token 放在路径参数中
	r.GET("/ws/progress/:token", progressHandler.Handle)

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}
	log.Info("服务已优雅关闭")
}
