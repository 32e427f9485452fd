package main

import (
	"log"
	"time"

	"github.com/gin-contrib/sessions"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"

	"github.com/stridehq/product-lifecycle-api/internal/cache"
	"github.com/stridehq/product-lifecycle-api/internal/config"
	"github.com/stridehq/product-lifecycle-api/internal/database"
	"github.com/stridehq/product-lifecycle-api/internal/handlers"
	"github.com/stridehq/product-lifecycle-api/internal/logger"
	"github.com/stridehq/product-lifecycle-api/internal/middleware"
	"github.com/stridehq/product-lifecycle-api/internal/repository"
	"github.com/stridehq/product-lifecycle-api/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	zlog, err := logger.New(cfg.GinMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		zlog.Fatal("Failed to connect to database", "error", err)
	}

	// Run migrations
	if err := database.Migrate(); err != nil {
		zlog.Fatal("Failed to run migrations", "error", err)
	}
	if err := database.AddIndexes(database.GetDB()); err != nil {
		zlog.Fatal("Failed to add indexes", "error", err)
	}

	// Initialize Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(zlog))

	// Setup session middleware with Redis
	store, err := redisStore.NewStore(
		10,                        // Redis pool size
		"tcp",                     // network type
		cfg.RedisAddr(),           // Redis address from config
		"",                        // username (empty for default user)
		"",                        // password (empty = no password)
		[]byte(cfg.SessionSecret), // authentication key
	)
	if err != nil {
		zlog.Fatal("Failed to create Redis store", "error", err)
	}
	// Configure session options based on environment
	isProduction := cfg.GinMode == "release"
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   isProduction, // true in production (HTTPS), false in development
		SameSite: 2,            // SameSite=Lax (1=Strict, 2=Lax, 3=None)
	})
	r.Use(sessions.Sessions("lifecycle_session", store))

	// Repositories
	db := database.GetDB()
	userRepo := repository.NewUserRepository(db)
	teamRepo := repository.NewTeamRepository(db)
	workspaceRepo := repository.NewWorkspaceRepository(db)
	workItemRepo := repository.NewWorkItemRepository(db)
	strategyRepo := repository.NewStrategyRepository(db)
	mindMapRepo := repository.NewMindMapRepository(db)

	// Strategy-tree cache; disabled when TTL is 0
	treeCache := cache.NewTreeCache(cfg.RedisAddr(), time.Duration(cfg.TreeCacheTTL)*time.Second, zlog)

	// Initialize AI service
	var aiService *services.AIService
	if cfg.OpenAIAPIKey != "" {
		aiService = services.NewAIService(cfg.OpenAIAPIKey)
	}

	// Services
	authService := services.NewAuthService(userRepo)
	teamService := services.NewTeamService(teamRepo)
	workspaceService := services.NewWorkspaceService(workspaceRepo, teamRepo)
	strategyService := services.NewStrategyService(strategyRepo, workItemRepo, teamRepo, treeCache, zlog)
	workItemService := services.NewWorkItemService(workItemRepo, workspaceRepo, strategyRepo, teamRepo, strategyService)
	mindMapService := services.NewMindMapService(mindMapRepo, workspaceRepo, teamRepo, aiService)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	teamHandler := handlers.NewTeamHandler(teamService)
	workspaceHandler := handlers.NewWorkspaceHandler(workspaceService)
	workItemHandler := handlers.NewWorkItemHandler(workItemService)
	strategyHandler := handlers.NewStrategyHandler(strategyService)
	mindMapHandler := handlers.NewMindMapHandler(mindMapService)

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Product Lifecycle API is running",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", middleware.RequireAuth(), authHandler.GetCurrentUser)
		}

		// Team routes (protected)
		teams := api.Group("/teams")
		teams.Use(middleware.RequireAuth())
		{
			teams.POST("", teamHandler.CreateTeam)
			teams.GET("", teamHandler.ListTeams)
			teams.POST("/join", teamHandler.JoinTeam)
			teams.GET("/:id", middleware.RequireTeamAccess(), teamHandler.GetTeam)
			teams.PATCH("/:id", middleware.RequireTeamAccess(), middleware.RequireTeamManager(), teamHandler.UpdateTeam)
			teams.DELETE("/:id", middleware.RequireTeamAccess(), middleware.RequireTeamOwner(), teamHandler.DeleteTeam)
			teams.POST("/:id/regenerate-code", middleware.RequireTeamAccess(), middleware.RequireTeamManager(), teamHandler.RegenerateInviteCode)
			teams.DELETE("/:id/members/:user_id", middleware.RequireTeamAccess(), middleware.RequireTeamManager(), teamHandler.RemoveMember)
		}

		// Workspace routes (protected)
		workspaces := api.Group("/workspaces")
		workspaces.Use(middleware.RequireAuth())
		{
			workspaces.POST("", workspaceHandler.CreateWorkspace)
			workspaces.GET("", workspaceHandler.ListWorkspaces)
			workspaces.GET("/:id", middleware.RequireWorkspaceAccess(), workspaceHandler.GetWorkspace)
			workspaces.PATCH("/:id", middleware.RequireWorkspaceAccess(), workspaceHandler.UpdateWorkspace)
			workspaces.DELETE("/:id", middleware.RequireWorkspaceAccess(), middleware.RequireTeamManager(), workspaceHandler.DeleteWorkspace)
		}

		// Work item routes (protected)
		workItems := api.Group("/work-items")
		workItems.Use(middleware.RequireAuth())
		{
			workItems.POST("", workItemHandler.CreateWorkItem)
			workItems.GET("", workItemHandler.ListWorkItems)
			workItems.GET("/:id", middleware.RequireWorkItemAccess(), workItemHandler.GetWorkItem)
			workItems.PATCH("/:id", middleware.RequireWorkItemAccess(), workItemHandler.UpdateWorkItem)
			workItems.DELETE("/:id", middleware.RequireWorkItemAccess(), workItemHandler.DeleteWorkItem)
		}

		// Strategy routes (protected)
		strategies := api.Group("/strategies")
		strategies.Use(middleware.RequireAuth())
		{
			strategies.POST("", strategyHandler.CreateStrategy)
			strategies.GET("", strategyHandler.ListStrategies)
			strategies.GET("/tree", strategyHandler.GetTree)
			strategies.GET("/:id", middleware.RequireStrategyAccess(), strategyHandler.GetStrategy)
			strategies.PATCH("/:id", middleware.RequireStrategyAccess(), strategyHandler.UpdateStrategy)
			strategies.DELETE("/:id", middleware.RequireStrategyAccess(), middleware.RequireTeamManager(), strategyHandler.DeleteStrategy)
			strategies.POST("/:id/align", middleware.RequireStrategyAccess(), strategyHandler.AlignWorkItem)
			strategies.DELETE("/:id/align/:work_item_id", middleware.RequireStrategyAccess(), strategyHandler.UnalignWorkItem)
			strategies.GET("/:id/work-items", middleware.RequireStrategyAccess(), strategyHandler.ListAlignedWorkItems)
		}

		// Mind map routes (protected)
		mindMaps := api.Group("/mindmaps")
		mindMaps.Use(middleware.RequireAuth())
		{
			mindMaps.POST("", mindMapHandler.CreateMindMap)
			mindMaps.GET("", mindMapHandler.ListMindMaps)
			mindMaps.GET("/:id", middleware.RequireMindMapAccess(), mindMapHandler.GetMindMap)
			mindMaps.PUT("/:id/content", middleware.RequireMindMapAccess(), mindMapHandler.UpdateContent)
			mindMaps.DELETE("/:id", middleware.RequireMindMapAccess(), mindMapHandler.DeleteMindMap)
			mindMaps.GET("/:id/tree", middleware.RequireMindMapAccess(), mindMapHandler.GetTree)
			mindMaps.PUT("/:id/tree", middleware.RequireMindMapAccess(), mindMapHandler.ReplaceFromTree)
			mindMaps.POST("/:id/classify", middleware.RequireMindMapAccess(), mindMapHandler.ClassifyNodes)
		}
	}

	// Start server
	zlog.Info("Server starting", "addr", cfg.ListenAddr)
	if err := r.Run(cfg.ListenAddr); err != nil {
		zlog.Fatal("Failed to start server", "error", err)
	}
}
