// Command indexctl is the index maintenance CLI: it (re)indexes the catalog
// snapshot, prints index stats, or clears the index. Indexing is single-writer;
// do not run two indexctl reindex processes (or a reindex through the API)
// concurrently.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/cartly-ai/shopsearch/internal/catalog"
	"github.com/cartly-ai/shopsearch/internal/config"
	"github.com/cartly-ai/shopsearch/internal/embedding"
	indexRedis "github.com/cartly-ai/shopsearch/internal/index/redis"
	"github.com/cartly-ai/shopsearch/internal/indexer"
	logpkg "github.com/cartly-ai/shopsearch/internal/logger"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s <reindex|stats|clear>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	command := flag.Arg(0)

	_ = godotenv.Load()

	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		fail("load config: %v", err)
	}
	if cfg.Index.Driver != "redis" {
		fail("indexctl requires the redis index driver; the memory index lives inside the server process")
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		fail("create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	embedder := embedding.NewClient(&embedding.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		User:       cfg.Embedding.User,
		Logger:     logger,
	})

	store, err := indexRedis.NewStore(indexRedis.Config{
		Addrs:     cfg.Index.Addrs,
		Username:  cfg.Index.Username,
		Password:  cfg.Index.Password,
		DB:        cfg.Index.DB,
		KeyPrefix: cfg.Index.KeyPrefix,
		Dim:       embedder.Dimensions(),
		HNSWM:     cfg.Index.HNSWM,
		HNSWEFC:   cfg.Index.HNSWEFConstruct,
	})
	if err != nil {
		fail("create index store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Index.ReadinessTimeout)*time.Second); err != nil {
		fail("index store not ready: %v", err)
	}

	switch command {
	case "reindex":
		runReindex(ctx, cfg, embedder, store, logger)
	case "stats":
		runStats(ctx, store)
	case "clear":
		runClear(ctx, store)
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func runReindex(ctx context.Context, cfg config.Config,
	embedder *embedding.Client, store *indexRedis.Store, logger *zap.Logger) {

	snap, err := catalog.Load(cfg.Catalog.Path, logger)
	if err != nil {
		fail("load catalog: %v", err)
	}
	if snap.Len() == 0 {
		fail("catalog snapshot %s has no products", cfg.Catalog.Path)
	}

	if err := store.EnsureSchema(ctx); err != nil {
		fail("ensure schema: %v", err)
	}

	ixr := indexer.New(embedder, store, indexer.Config{
		EmbedBatchSize:  cfg.Index.EmbedBatchSize,
		UpsertBatchSize: cfg.Index.UpsertBatchSize,
	}, logger)

	start := time.Now()
	n, err := ixr.Index(ctx, snap.All())
	if err != nil {
		fail("indexing aborted after %d views: %v", n, err)
	}

	fmt.Printf("Indexed %d products (%d views) in %s\n", snap.Len(), n, time.Since(start).Round(time.Millisecond))
}

func runStats(ctx context.Context, store *indexRedis.Store) {
	stats, err := store.Describe(ctx)
	if err != nil {
		fail("describe index: %v", err)
	}
	fmt.Printf("Total vectors: %d\n", stats.TotalVectorCount)
}

func runClear(ctx context.Context, store *indexRedis.Store) {
	if err := store.Clear(ctx); err != nil {
		fail("clear index: %v", err)
	}
	fmt.Println("Index cleared")
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "indexctl: "+format+"\n", args...)
	os.Exit(1)
}
