package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"

	"vision-rag/internal/chathistory"
	"vision-rag/internal/config"
	"vision-rag/internal/db"
	"vision-rag/internal/embedding"
	"vision-rag/internal/helper"
	"vision-rag/internal/indexer"
	"vision-rag/internal/llmservice"
	"vision-rag/internal/pageimage"
	"vision-rag/internal/rag"
	"vision-rag/internal/tui"
	"vision-rag/internal/vectorindex"
)

const configFilePath = "./configs/config.yaml"

func main() {
	helper.SetupLogger("debug", os.Stdout)

	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file loaded")
	}

	configPath := flag.String("config", configFilePath, "Path to the config file")
	buildIndex := flag.Bool("build-index", false, "Embed every page image and rebuild the index")
	query := flag.String("query", "", "Question to be answered")
	topK := flag.Int("top-k", 0, "Number of page images to retrieve (defaults to rag.top_k)")
	chat := flag.Bool("chat", false, "Start an interactive chat session")
	session := flag.String("session", "", "Session ID to resume in chat mode")
	listSessions := flag.Bool("list-sessions", false, "List stored chat sessions")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	helper.SetupLogger(cfg.Log.Level, os.Stdout)
	log.Debug().Interface("paths", cfg.Paths).Msg("Loaded config")

	if err := cfg.EnsureDirs(); err != nil {
		log.Fatal().Err(err).Msg("Error creating data directories")
	}
	if *topK <= 0 {
		*topK = cfg.RAG.TopK
	}

	ctx := context.Background()
	switch {
	case *listSessions:
		printSessions(cfg)
	case *buildIndex:
		runBuildIndex(ctx, cfg)
	case *query != "":
		runQuery(ctx, cfg, *query, *topK)
	case *chat:
		runChat(ctx, cfg, *session, *topK)
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func openDB(cfg *config.Config) *bun.DB {
	sqldb, err := db.ConnectDB(cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Error connecting to database")
	}
	return db.NewDB(sqldb, cfg.Database.Debug)
}

func runBuildIndex(ctx context.Context, cfg *config.Config) {
	embedder, err := embedding.New(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	var bunDB *bun.DB
	if cfg.Index.Backend == config.BackendPGVector {
		bunDB = openDB(cfg)
		defer bunDB.Close()
	}

	n, err := indexer.NewBuilder(cfg, embedder, bunDB).Build(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Error building index")
	}
	log.Info().Int("pages", n).Msg("Index built")
}

// newPipeline wires the matcher and answerer. The returned close func
// releases the database connection when the pgvector backend is used.
func newPipeline(cfg *config.Config) (*rag.RAG, func()) {
	embedder, err := embedding.New(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}
	llm, err := llmservice.NewChatModel(&cfg.ChatLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing chat model")
	}

	space := &vectorindex.SpaceCheck{
		ManifestPath: cfg.ManifestPath(),
		Provider:     cfg.EmbedLLM.Provider,
		Model:        cfg.EmbedLLM.Model,
	}
	closeFn := func() {}
	var searcher vectorindex.Searcher
	switch cfg.Index.Backend {
	case config.BackendPGVector:
		bunDB := openDB(cfg)
		closeFn = func() { bunDB.Close() }
		pg := vectorindex.NewPGSearcher(bunDB)
		pg.Space = space
		searcher = pg
	default:
		chromemSearcher := vectorindex.NewChromemSearcher(cfg.IndexPath(), cfg.FilenamesPath(), cfg.Index.Collection, cfg.Index.EncryptionKey)
		chromemSearcher.Space = space
		searcher = chromemSearcher
	}

	resolver := pageimage.NewResolver(cfg.Paths.BaseDir)
	matcher := rag.NewMatcher(embedder, searcher, resolver, cfg.Paths.ImageDir,
		time.Duration(cfg.EmbedLLM.TimeoutSecs)*time.Second)
	answerer := rag.NewAnswerer(llm, resolver, cfg.ChatLLM.Model,
		rag.WithMaxTokens(cfg.RAG.MaxTokens),
		rag.WithTimeout(time.Duration(cfg.ChatLLM.TimeoutSecs)*time.Second),
		rag.WithVerbose(cfg.RAG.Verbose),
	)
	return rag.NewRAG(matcher, answerer), closeFn
}

func runQuery(ctx context.Context, cfg *config.Config, query string, topK int) {
	pipeline, closeFn := newPipeline(cfg)
	defer closeFn()

	response, err := pipeline.Query(ctx, query, topK)
	if err != nil && response == nil {
		log.Fatal().Err(err).Msg("Error querying")
	}
	if err != nil {
		log.Error().Err(err).Msg("Answer failed")
	}

	log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", query)

	log.Info().Msg("Source: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	for _, s := range response.Sources {
		fmt.Printf("%s\n", pageimage.ParseCaption(s).Reference())
	}
	fmt.Println()

	log.Info().Dur("elapsed", response.Elapsed).Msg("Assistant: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", response.Content)
}

func runChat(ctx context.Context, cfg *config.Config, sessionID string, topK int) {
	store := chathistory.NewStore(cfg.Paths.SessionDir)
	if sessionID == "" {
		sessionID = chathistory.GenerateSessionID(time.Now())
	}
	history, err := store.Load(sessionID)
	if err != nil {
		log.Fatal().Err(err).Str("session", sessionID).Msg("Error loading session")
	}

	pipeline, closeFn := newPipeline(cfg)
	defer closeFn()

	// the TUI owns the terminal; keep log lines out of it
	helper.SetupLogger("error", os.Stderr)

	model := tui.New(ctx, pipeline, store, sessionID, history, topK)
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		log.Fatal().Err(err).Msg("Error running chat")
	}
	fmt.Printf("Session saved as %s\n", sessionID)
}

func printSessions(cfg *config.Config) {
	ids, err := chathistory.NewStore(cfg.Paths.SessionDir).List()
	if err != nil {
		log.Fatal().Err(err).Msg("Error listing sessions")
	}
	if len(ids) == 0 {
		fmt.Println("No sessions yet.")
		return
	}
	for _, id := range ids {
		fmt.Println(id)
	}
}
