package main

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/formdesk/backend/internal/client"
	"github.com/formdesk/backend/internal/config"
	"github.com/formdesk/backend/internal/db"
	"github.com/formdesk/backend/internal/handler"
	"github.com/formdesk/backend/internal/model"
	"github.com/formdesk/backend/internal/service"
	"github.com/formdesk/backend/internal/token"
)

func main() {
	// .env는 로컬 개발용, 없으면 무시
	_ = godotenv.Load()

	cfg := config.Load()
	ctx := context.Background()

	pool, err := db.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	store := db.NewPostgres(pool)
	if err := store.EnsureAuthSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure auth schema: %v", err)
	}
	if err := store.EnsureFormSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure form schema: %v", err)
	}

	accessTTL, err := time.ParseDuration(cfg.Auth.JWTAccessTTL)
	if err != nil {
		log.Fatalf("Invalid JWT_ACCESS_TTL: %v", err)
	}
	authority, err := token.NewAuthority([]byte(cfg.Auth.JWTSecret), accessTTL)
	if err != nil {
		log.Fatalf("Failed to init token authority: %v", err)
	}

	authSvc, err := service.NewAuthService(store, authority, cfg.Auth)
	if err != nil {
		log.Fatalf("Failed to init auth service: %v", err)
	}

	if cfg.Auth.AdminLoginID != "" {
		if err := authSvc.EnsureAdmin(ctx, cfg.Auth.AdminLoginID, cfg.Auth.AdminPassword); err != nil {
			log.Fatalf("Failed to ensure admin account: %v", err)
		}
	}

	objects, err := client.NewObjectStore(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to init object store: %v", err)
	}

	formSvc := service.NewFormService(store, objects)
	tallySvc := service.NewTallyService(store)

	authHandler := handler.NewAuthHandler(authSvc)
	formHandler := handler.NewFormHandler(formSvc)
	tallyHandler := handler.NewTallyHandler(tallySvc)

	router := gin.Default()

	origins := strings.Split(cfg.Server.AllowedOrigins, ",")
	router.Use(handler.CORSMiddleware(origins, true))

	router.GET("/ping", handler.Ping)
	router.GET("/", handler.Root)

	v1 := router.Group("/api/v1")

	auth := v1.Group("/auth")
	auth.POST("/register", handler.OptionalAuthMiddleware(authSvc), authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", authHandler.Logout)
	auth.GET("/config", authHandler.Config)

	authed := auth.Group("", handler.AuthMiddleware(authSvc))
	authed.POST("/change-password", authHandler.ChangePassword)
	authed.GET("/me", authHandler.Me)
	authed.DELETE("/users/:login_id", authHandler.DeleteUser)

	forms := v1.Group("/forms", handler.AuthMiddleware(authSvc))
	forms.POST("", formHandler.Create)
	forms.GET("", formHandler.List)
	forms.GET("/:id", formHandler.Get)

	v1.GET("/tally", handler.AuthMiddleware(authSvc), handler.RequireRole(model.RoleAdmin), tallyHandler.Tally)

	addr := ":" + cfg.Server.Port
	log.Printf("Listening on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
