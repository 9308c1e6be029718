package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Zmugha1/sandi-bot/internal/coach"
	"github.com/Zmugha1/sandi-bot/internal/generate"
	"github.com/Zmugha1/sandi-bot/internal/graph"
	"github.com/Zmugha1/sandi-bot/internal/recommend"
	"github.com/Zmugha1/sandi-bot/internal/similarity"
	"github.com/Zmugha1/sandi-bot/internal/store"
	"github.com/Zmugha1/sandi-bot/pkg/config"
	"github.com/Zmugha1/sandi-bot/pkg/errors"
	"github.com/Zmugha1/sandi-bot/pkg/logger"
)

func main() {
	// Initialize logger
	if err := logger.Init(os.Getenv("ENV")); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting coaching API server...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Open the fact store
	st, err := store.Open(cfg.DataDir)
	if err != nil {
		log.Fatal("Failed to open fact store", zap.Error(err))
	}
	defer st.Close()

	// Static configuration: rules and seed population, loaded once
	rules, err := recommend.LoadRules(cfg.RulesPath)
	if err != nil {
		log.Fatal("Failed to load rules", zap.Error(err))
	}
	seeds, err := similarity.LoadSeeds(cfg.SeedPath)
	if err != nil {
		log.Fatal("Failed to load seed population", zap.Error(err))
	}
	log.Info("Static configuration loaded",
		zap.Int("rules", len(rules)),
		zap.Int("seed_clients", len(seeds)),
	)

	// Optional Neo4j graph mirror
	var mirror *graph.Mirror
	if cfg.MirrorEnabled() {
		mirror, err = graph.NewMirror(cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword)
		if err != nil {
			log.Fatal("Failed to create graph mirror", zap.Error(err))
		}
		defer mirror.Close(context.Background())
		if err := mirror.Verify(context.Background()); err != nil {
			log.Fatal("Failed to verify graph mirror connectivity", zap.Error(err))
		}
	}

	completer := generate.NewModelAdapter(cfg.ModelURL, cfg.ModelAPIKey, cfg.ModelID, cfg.ModelSeed)
	svc := coach.New(st, cfg.DataDir, rules, seeds, completer, mirror)

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(ginLogger(log))
	router.Use(gin.Recovery())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API routes
	api := router.Group("/api")
	{
		// Upload a personality report
		api.POST("/ingest", func(c *gin.Context) {
			clientID := c.PostForm("client_id")
			if clientID == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "client_id is required"})
				return
			}
			businessType := c.PostForm("business_type")

			fh, err := c.FormFile("document")
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "document file is required"})
				return
			}
			f, err := fh.Open()
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "failed to open upload"})
				return
			}
			defer f.Close()
			raw, err := io.ReadAll(f)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read upload"})
				return
			}

			result, err := svc.Ingest(c.Request.Context(), raw, clientID, businessType)
			if err != nil {
				if errors.IsErrorType(err, errors.ErrorTypeExtract) {
					c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
					return
				}
				log.Error("Ingestion failed", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to ingest document"})
				return
			}
			c.JSON(http.StatusOK, result)
		})

		// Stored facts for a client
		api.GET("/clients/:id/facts", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"facts": svc.FactsFor(c.Param("id"))})
		})

		// Similar known clients
		api.GET("/clients/:id/similar", func(c *gin.Context) {
			topN := 0
			if _, err := fmt.Sscanf(c.DefaultQuery("top_n", "0"), "%d", &topN); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "top_n must be an integer"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"similar": svc.Similar(c.Param("id"), topN)})
		})

		// Rule-based recommendations; empty list means insufficient evidence
		api.GET("/clients/:id/recommendations", func(c *gin.Context) {
			recs := svc.Recommend(c.Param("id"))
			c.JSON(http.StatusOK, gin.H{
				"recommendations":       recs,
				"insufficient_evidence": len(recs) == 0,
			})
		})

		// Grounded generation constrained to the client's facts
		api.POST("/clients/:id/generate", func(c *gin.Context) {
			var req struct {
				Task    string   `json:"task" binding:"required"`
				FactIDs []string `json:"fact_ids"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			result, err := svc.Generate(c.Request.Context(), generate.Task(req.Task), c.Param("id"), req.FactIDs)
			if err != nil {
				if errors.IsUngrounded(err) {
					// the text must never reach the user
					c.JSON(http.StatusBadGateway, gin.H{"error": "generated text failed grounding verification"})
					return
				}
				log.Error("Generation failed", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate text"})
				return
			}
			c.JSON(http.StatusOK, result)
		})

		// Current graph projection
		api.GET("/graph", func(c *gin.Context) {
			c.JSON(http.StatusOK, svc.Graph().Snapshot())
		})
	}

	// Start server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started", zap.String("port", cfg.Port))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}

func ginLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		log.Info("HTTP Request",
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		)
	}
}
