package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andrewpaige1/tarjetas-api/ai"
	"github.com/andrewpaige1/tarjetas-api/auth"
	"github.com/andrewpaige1/tarjetas-api/cards"
	"github.com/andrewpaige1/tarjetas-api/config"
	"github.com/andrewpaige1/tarjetas-api/deckcache"
	"github.com/andrewpaige1/tarjetas-api/export"
	"github.com/andrewpaige1/tarjetas-api/handlers"
	"github.com/andrewpaige1/tarjetas-api/imagestore"
	"github.com/andrewpaige1/tarjetas-api/logger"
	"github.com/andrewpaige1/tarjetas-api/middleware"
	"github.com/rs/cors"
)

func main() {
	env, err := config.Load()
	if err != nil {
		// logger depends on config mode
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(env.Mode)
	if err != nil {
		_, _ = os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := config.Connect(env)
	if err != nil {
		log.Fatal("Failed to connect to database", "driver", env.DBDriver, "error", err)
	}

	// Auth
	var tokens auth.TokenValidator
	var userinfo *auth.UserInfoClient
	if env.AuthIssuer != "" {
		v, err := auth.NewAuth0Validator(env.AuthIssuer, env.AuthAudience)
		if err != nil {
			log.Fatal("Failed to set up the JWT validator", "issuer", env.AuthIssuer, "error", err)
		}
		tokens = v
		userinfo = auth.NewUserInfoClient(env.AuthIssuer, nil)
		log.Info("Using Auth0 tokens", "issuer", env.AuthIssuer)
	} else {
		tokens = auth.LocalValidator{Secret: env.JWTSecretKey}
		log.Warn("Using locally signed HS256 tokens")
	}
	authCache := auth.NewCache(
		auth.NewUserSource(db, userinfo, log),
		auth.WithTTL(env.AuthCacheTTL),
		auth.WithLogger(log),
	)

	service := cards.NewService(db, authCache, log)

	// SIGHUP drops every cached identity
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-hup:
				authCache.ClearAll()
				log.Info("Auth cache cleared")
			case <-ctx.Done():
				return
			}
		}
	}()

	// Deck cache, optionally shared across instances through Redis
	deckOpts := []deckcache.Option{deckcache.WithDedupe(env.DeckCacheDedupe), deckcache.WithLogger(log)}
	var notifier *deckcache.RedisNotifier
	if env.RedisAddr != "" {
		notifier, err = deckcache.NewRedisNotifier(env.RedisAddr, env.RedisChannel, log)
		if err != nil {
			log.Fatal("Failed to connect to Redis", "addr", env.RedisAddr, "error", err)
		}
		defer notifier.Close()
		deckOpts = append(deckOpts, deckcache.WithNotifier(notifier))
	}
	decks := deckcache.New(service, deckOpts...)
	if notifier != nil {
		go func() {
			if err := notifier.Subscribe(ctx, decks.Invalidate); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("Deck cache subscription stopped", "error", err)
			}
		}()
	}

	run(ctx, env, log, service, authCache, decks, tokens)
}

func run(ctx context.Context, env config.Environment, log *logger.Logger, service *cards.Service, authCache *auth.Cache, decks *deckcache.Cache, tokens auth.TokenValidator) {
	analyzer, translator, closeAI := buildAI(ctx, env, log)
	defer closeAI()

	images, err := imagestore.New(ctx, imagestore.Options{
		Driver:        env.StorageDriver,
		Bucket:        env.StorageBucket,
		PublicBaseURL: env.StoragePublic,
		S3Region:      env.S3Region,
		S3Endpoint:    env.S3Endpoint,
		S3AccessKey:   env.S3AccessKey,
		S3SecretKey:   env.S3SecretKey,
	})
	if err != nil {
		log.Fatal("Failed to set up image storage", "driver", env.StorageDriver, "error", err)
	}

	renderer, err := export.NewRenderer(log,
		export.WithWatermark(env.ExportWatermark),
		export.WithImageBase(env.ImageBaseURL),
	)
	if err != nil {
		log.Fatal("Failed to set up the export renderer", "error", err)
	}

	h := &handlers.Handler{
		Cards:      service,
		Auth:       authCache,
		Decks:      decks,
		Translator: translator,
		Images:     images,
		Export:     renderer,
		MaxUpload:  env.MaxUploadBytes,
		Log:        log.With("service", "HTTP"),
	}
	if analyzer != nil {
		h.Analyzer = analyzer
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h.Register(mux)

	authMiddleware := middleware.EnsureValidToken(tokens, log)
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   env.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Requested-With", "Accept", "Origin", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader, "X-Page-Count", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           86400,
	}).Handler(middleware.RequestID(log)(authMiddleware(mux)))

	srv := &http.Server{
		Addr:              "0.0.0.0:" + env.Port,
		Handler:           corsHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("Shutdown", "error", err)
		}
	}()

	log.Info("Listening", "addr", srv.Addr, "mode", env.Mode)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("Server stopped", "error", err)
	}
	decks.Wait()
}

// buildAI picks the labeler and assembles the translation chain. The
// analyzer is nil when no provider is configured. The returned func releases
// the labeler's client.
func buildAI(ctx context.Context, env config.Environment, log *logger.Logger) (*ai.Analyzer, ai.Translator, func()) {
	chain := ai.NewChain(log)

	var chat *ai.ChatClient
	if env.OpenAIAPIKey != "" {
		c, err := ai.NewChatClient(env.OpenAIBaseURL, env.OpenAIAPIKey, env.OpenAIModel, nil)
		if err != nil {
			log.Fatal("Failed to set up the chat client", "error", err)
		}
		chat = c
		chain.Add("chat", chat)
	}
	chain.Add("mymemory", ai.MyMemory{Endpoint: env.MyMemoryURL})
	chain.Add("lingva", ai.Lingva{BaseURL: env.LingvaURL})

	var labeler ai.Labeler
	closer := func() {}
	switch env.VisionProvider {
	case "gcp":
		g, err := ai.NewGCPLabeler(ctx, ai.ClientOptionsFromEnv()...)
		if err != nil {
			log.Fatal("Failed to set up Cloud Vision", "error", err)
		}
		labeler = g
		closer = func() {
			if err := g.Close(); err != nil {
				log.Warn("Closing Cloud Vision client", "error", err)
			}
		}
	case "openai", "":
		if chat != nil {
			labeler = chat
		}
	default:
		log.Fatal("Unknown VISION_PROVIDER", "provider", env.VisionProvider)
	}
	if labeler == nil {
		log.Warn("Image analysis disabled: no vision provider configured")
		return nil, chain, closer
	}
	log.Info("Image analysis enabled", "provider", env.VisionProvider, "translators", chain.Len())
	return &ai.Analyzer{Labeler: labeler, Translator: chain}, chain, closer
}
