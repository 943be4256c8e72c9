// Package docseek provides the document knowledge base server implementation.
package docseek

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/docseek/internal/docseek/biz"
	"github.com/kart-io/docseek/internal/docseek/handler"
	"github.com/kart-io/docseek/internal/docseek/router"
	"github.com/kart-io/docseek/internal/docseek/store"
	"github.com/kart-io/docseek/internal/pkg/extract"
	"github.com/kart-io/docseek/internal/pkg/textutil"
	"github.com/kart-io/docseek/internal/pkg/vision"
	"github.com/kart-io/docseek/pkg/app"
	"github.com/kart-io/docseek/pkg/component/milvus"
	"github.com/kart-io/docseek/pkg/component/mysql"
	"github.com/kart-io/docseek/pkg/component/redis"
	"github.com/kart-io/docseek/pkg/llm"

	// 导入 LLM 供应商以自动注册
	_ "github.com/kart-io/docseek/pkg/llm/ollama"
	_ "github.com/kart-io/docseek/pkg/llm/openai"

	cacheopts "github.com/kart-io/docseek/pkg/options/cache"
	httpopts "github.com/kart-io/docseek/pkg/options/http"
	llmopts "github.com/kart-io/docseek/pkg/options/llm"
	logopts "github.com/kart-io/docseek/pkg/options/logger"
	milvusopts "github.com/kart-io/docseek/pkg/options/milvus"
	mysqlopts "github.com/kart-io/docseek/pkg/options/mysql"
	ragopts "github.com/kart-io/docseek/pkg/options/rag"
	"github.com/kart-io/docseek/pkg/pool"
)

// Name is the name of the application.
const Name = "docseek"

// Config contains application-related configurations.
type Config struct {
	HTTPOptions      *httpopts.Options
	LogOptions       *logopts.Options
	MySQLOptions     *mysqlopts.Options
	MilvusOptions    *milvusopts.Options
	EmbeddingOptions *llmopts.ProviderOptions
	ChatOptions      *llmopts.ProviderOptions
	RAGOptions       *ragopts.Options
	CacheOptions     *cacheopts.Options
	DevMode          bool
	QueryTimeout     time.Duration
	ShutdownTimeout  time.Duration
}

// Server represents the docseek server.
type Server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
	mysqlClose      func()
	milvusClose     func()
	redisClose      func()
	pools           []*pool.Pool
}

// NewServer initializes and returns a new Server instance.
func (cfg *Config) NewServer(ctx context.Context) (*Server, error) {
	// 1. 初始化日志
	cfg.LogOptions.AddInitialField("service.name", Name)
	cfg.LogOptions.AddInitialField("service.version", app.GetVersion())
	if err := cfg.LogOptions.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info("Starting docseek service...")

	// 2. 初始化 MySQL 与元数据存储
	mysqlClient, err := mysql.NewWithContext(ctx, cfg.MySQLOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mysql: %w", err)
	}
	metaStore, err := store.NewStore(mysqlClient.DB())
	if err != nil {
		mysqlClient.Close()
		return nil, fmt.Errorf("failed to initialize meta store: %w", err)
	}
	logger.Info("Meta store initialized")

	// 3. 初始化 Milvus 与向量存储
	milvusClient, err := milvus.New(cfg.MilvusOptions)
	if err != nil {
		mysqlClient.Close()
		return nil, fmt.Errorf("failed to initialize milvus: %w", err)
	}
	vectorStore := store.NewMilvusStore(milvusClient, cfg.RAGOptions.ChunkCollection, cfg.RAGOptions.ImageCollection)
	if err := vectorStore.EnsureCollections(ctx, cfg.RAGOptions.EmbeddingDim); err != nil {
		mysqlClient.Close()
		_ = milvusClient.Close(context.Background())
		return nil, fmt.Errorf("failed to ensure collections: %w", err)
	}
	logger.Info("Vector store initialized")

	// 4. 初始化 Redis 缓存。连接失败只禁用缓存，不阻塞启动。
	var (
		queryCache *biz.QueryCache
		redisClose func()
	)
	if cfg.CacheOptions.Enabled && cfg.CacheOptions.Redis != nil {
		redisOpts := cfg.CacheOptions.Redis
		redisClient, err := redis.NewWithContext(ctx, redisOpts)
		if err != nil {
			logger.Warnw("failed to connect to redis, cache will be disabled", "error", err.Error())
		} else {
			queryCache = biz.NewQueryCache(redisClient.Client(), &biz.QueryCacheConfig{
				Enabled:   true,
				TTL:       cfg.CacheOptions.TTL,
				KeyPrefix: cfg.CacheOptions.KeyPrefix,
			})
			redisClose = func() { _ = redisClient.Close() }
			logger.Infow("Query cache initialized",
				"host", redisOpts.Host,
				"port", redisOpts.Port,
				"ttl", cfg.CacheOptions.TTL,
			)
		}
	} else {
		logger.Info("Cache is disabled")
	}

	// 5. 初始化 LLM 供应商
	embedProvider, err := llm.NewEmbeddingProvider(cfg.EmbeddingOptions.Provider, cfg.EmbeddingOptions.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}
	logger.Infow("Embedding provider initialized",
		"provider", cfg.EmbeddingOptions.Provider,
		"model", cfg.EmbeddingOptions.Model,
	)

	chatProvider, err := llm.NewChatProvider(cfg.ChatOptions.Provider, cfg.ChatOptions.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat provider: %w", err)
	}
	logger.Infow("Chat provider initialized",
		"provider", cfg.ChatOptions.Provider,
		"model", cfg.ChatOptions.Model,
	)

	// 6. 初始化协程池
	backgroundPool, err := pool.NewPool("background", pool.BackgroundPool, pool.BackgroundPoolConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create background pool: %w", err)
	}
	ingestPool, err := pool.NewPool("ingest", pool.IngestPool, pool.IngestPoolConfig())
	if err != nil {
		backgroundPool.Release()
		return nil, fmt.Errorf("failed to create ingest pool: %w", err)
	}

	// 7. 初始化 Biz 层
	embedder := biz.NewEmbedder(embedProvider, &biz.EmbedderConfig{
		BatchSize: cfg.RAGOptions.EmbedBatchSize,
		Dimension: cfg.RAGOptions.EmbeddingDim,
	})
	enricher := biz.NewEnricher(chatProvider, cfg.RAGOptions.EnrichEnabled)
	retriever := biz.NewRetriever(vectorStore, &biz.RetrieverConfig{
		ChunkLimit: cfg.RAGOptions.ChunkLimit,
		ImageLimit: cfg.RAGOptions.ImageLimit,
		ScoreFloor: cfg.RAGOptions.ScoreFloor,
		Candidates: 200,
	})
	extractor := extract.New(cfg.RAGOptions.ExtractorURL, cfg.EmbeddingOptions.Timeout, 2)
	analyzer := vision.NewChatAnalyzer(chatProvider)

	ingester := biz.NewIngester(
		metaStore.Documents(),
		metaStore.Images(),
		vectorStore,
		embedder,
		enricher,
		extractor,
		analyzer,
		ingestPool,
		&biz.IngesterConfig{
			Chunk: textutil.ChunkConfig{
				TargetSize: cfg.RAGOptions.ChunkSize,
				Overlap:    cfg.RAGOptions.ChunkOverlap,
				MinSize:    cfg.RAGOptions.MinChunkSize,
				MaxSize:    cfg.RAGOptions.MaxChunkSize,
			},
			MaxChunkLen: cfg.RAGOptions.MaxChunkSize + 300,
		},
	)
	orchestrator := biz.NewQueryOrchestrator(embedder, enricher, retriever, queryCache, chatProvider, &biz.QueryConfig{
		ImageShortCircuit: cfg.RAGOptions.ImagePreempt,
	})

	service := biz.NewService(
		metaStore,
		vectorStore,
		ingester,
		orchestrator,
		embedder,
		retriever,
		queryCache,
		backgroundPool,
		&biz.ServiceConfig{
			UploadDir:         cfg.RAGOptions.UploadDir,
			EmbedProviderName: cfg.EmbeddingOptions.Provider,
			ChatProviderName:  cfg.ChatOptions.Provider,
		},
	)
	logger.Info("Service layer initialized")

	// 8. 初始化 Handler 与路由
	if !cfg.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	h := handler.New(service, &handler.Config{
		DevMode:       cfg.DevMode,
		MaxUploadSize: cfg.HTTPOptions.MaxUploadSize,
		QueryTimeout:  cfg.QueryTimeout,
	})
	router.Register(engine, h, func() error {
		return mysqlClient.Health(context.Background())
	})

	httpServer := &http.Server{
		Addr:         cfg.HTTPOptions.Addr,
		Handler:      engine,
		ReadTimeout:  cfg.HTTPOptions.ReadTimeout,
		WriteTimeout: cfg.HTTPOptions.WriteTimeout,
		IdleTimeout:  cfg.HTTPOptions.IdleTimeout,
	}

	logger.Info("docseek service is ready")
	shutdownTimeout := cfg.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 15 * time.Second
	}
	return &Server{
		httpServer:      httpServer,
		shutdownTimeout: shutdownTimeout,
		mysqlClose:      func() { _ = mysqlClient.Close() },
		milvusClose:     func() { _ = milvusClient.Close(context.Background()) },
		redisClose:      redisClose,
		pools:           []*pool.Pool{backgroundPool, ingestPool},
	}, nil
}

// Run starts the server and blocks until a termination signal arrives.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Infow("HTTP server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.cleanup()
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("graceful shutdown failed", "error", err.Error())
	}

	s.cleanup()
	logger.Info("docseek service stopped")
	return nil
}

// cleanup 按依赖顺序释放资源：先停协程池，再断开外部连接。
func (s *Server) cleanup() {
	for _, p := range s.pools {
		if err := p.ReleaseTimeout(10 * time.Second); err != nil {
			logger.Warnw("pool release timed out", "pool", p.Name(), "error", err.Error())
		}
	}
	if s.redisClose != nil {
		s.redisClose()
	}
	if s.milvusClose != nil {
		s.milvusClose()
	}
	if s.mysqlClose != nil {
		s.mysqlClose()
	}
}
