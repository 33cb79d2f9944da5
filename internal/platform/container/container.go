package container

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jinford/case-rag/internal/core/casegraph"
	"github.com/jinford/case-rag/internal/core/embedding"
	"github.com/jinford/case-rag/internal/core/ingestion"
	"github.com/jinford/case-rag/internal/core/retrieval"
	"github.com/jinford/case-rag/internal/core/structuring"
	"github.com/jinford/case-rag/internal/infra/filesystem"
	neo4jrepo "github.com/jinford/case-rag/internal/infra/neo4j"
	"github.com/jinford/case-rag/internal/infra/openai"
	"github.com/jinford/case-rag/internal/infra/pdf"
	"github.com/jinford/case-rag/internal/infra/postgres"
	"github.com/jinford/case-rag/internal/infra/tokenizer"
	"github.com/jinford/case-rag/internal/platform/config"
	"github.com/jinford/case-rag/internal/platform/database"
	"github.com/jinford/case-rag/internal/platform/neo4jdb"
)

// Embedder は Embedding 生成と検索の両方で使うクライアント
type Embedder interface {
	embedding.Embedder
	retrieval.Embedder
}

// VectorStore は Embedding の保存と読み出しを行うストア
type VectorStore interface {
	embedding.VectorStore
	retrieval.VectorStore
}

// GraphStore はグラフの書き込みと部分一致検索を行うストア
type GraphStore interface {
	casegraph.GraphRepository
	retrieval.GraphMatcher
}

// TokenCounter はプロンプトのトークン計数とEmbedding入力の切り詰めを行う
type TokenCounter interface {
	structuring.TokenCounter
	embedding.TokenLimiter
}

// ServiceContainer は各ステージのサービスと外部接続を保持する
// 外部クライアントはコマンドが必要とした時点で初めて生成する
type ServiceContainer struct {
	cfg    *config.Config
	logger *slog.Logger

	chat       structuring.ChatClient
	embedder   Embedder
	vectors    VectorStore
	graph      GraphStore
	tokens     TokenCounter
	newTokens  func() (TokenCounter, error)
	neo4j      *neo4jdb.Client
	database   *database.Database
	structured *filesystem.StructuredStore
}

type containerOptions struct {
	logger    *slog.Logger
	chat      structuring.ChatClient
	embedder  Embedder
	vectors   VectorStore
	graph     GraphStore
	newTokens func() (TokenCounter, error)
}

// ContainerOption は ServiceContainer 構築時のオプション
type ContainerOption func(*containerOptions)

// WithContainerLogger はロガーを差し替える
func WithContainerLogger(logger *slog.Logger) ContainerOption {
	return func(opts *containerOptions) {
		opts.logger = logger
	}
}

// WithContainerChatClient はチャットクライアントを差し替える
func WithContainerChatClient(client structuring.ChatClient) ContainerOption {
	return func(opts *containerOptions) {
		opts.chat = client
	}
}

// WithContainerEmbedder はカスタム Embedder を注入する
func WithContainerEmbedder(embedder Embedder) ContainerOption {
	return func(opts *containerOptions) {
		opts.embedder = embedder
	}
}

// WithContainerVectorStore はベクトルストアを差し替える
func WithContainerVectorStore(store VectorStore) ContainerOption {
	return func(opts *containerOptions) {
		opts.vectors = store
	}
}

// WithContainerGraphStore はグラフストアを差し替える
func WithContainerGraphStore(store GraphStore) ContainerOption {
	return func(opts *containerOptions) {
		opts.graph = store
	}
}

// WithContainerTokenCounterFactory はトークンカウンタの生成方法を差し替える
func WithContainerTokenCounterFactory(factory func() (TokenCounter, error)) ContainerOption {
	return func(opts *containerOptions) {
		opts.newTokens = factory
	}
}

// NewContainer は設定からコンテナを生成する。接続はまだ行わない
func NewContainer(cfg *config.Config, opts ...ContainerOption) *ServiceContainer {
	options := containerOptions{
		logger:    slog.Default(),
		newTokens: newTiktokenCounter,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	if options.newTokens == nil {
		options.newTokens = newTiktokenCounter
	}

	return &ServiceContainer{
		cfg:        cfg,
		logger:     options.logger,
		chat:       options.chat,
		embedder:   options.embedder,
		vectors:    options.vectors,
		graph:      options.graph,
		newTokens:  options.newTokens,
		structured: filesystem.NewStructuredStore(cfg.Paths.StructuredDir),
	}
}

// Config は設定を返す
func (c *ServiceContainer) Config() *config.Config {
	return c.cfg
}

// Logger はロガーを返す。
func (c *ServiceContainer) Logger() *slog.Logger {
	if c == nil || c.logger == nil {
		return slog.Default()
	}
	return c.logger
}

// IngestService はPDF取り込みサービスを返す
func (c *ServiceContainer) IngestService(keepGoing bool) *ingestion.IngestService {
	return ingestion.NewIngestService(
		filesystem.NewPDFDir(c.cfg.Paths.RawCasesDir),
		pdf.NewExtractor(c.logger),
		filesystem.NewTextStore(c.cfg.Paths.RawTextDir),
		ingestion.WithIngestLogger(c.logger),
		ingestion.WithKeepGoing(keepGoing),
	)
}

// StructureService は構造化サービスを返す
func (c *ServiceContainer) StructureService() (*structuring.StructureService, error) {
	chat, err := c.chatClient()
	if err != nil {
		return nil, err
	}

	opts := []structuring.StructureServiceOption{
		structuring.WithStructureLogger(c.logger),
		structuring.WithRetryPolicy(structuring.RetryPolicy{
			MaxAttempts: c.cfg.LLM.MaxAttempts,
			Pause:       c.cfg.LLM.RetryPause,
		}),
		structuring.WithTextLimit(c.cfg.LLM.TextLimit),
		structuring.WithMaxTokens(c.cfg.LLM.MaxTokens),
		structuring.WithTemperature(c.cfg.LLM.Temperature),
	}
	if counter, err := c.tokenCounter(); err != nil {
		c.logger.Warn("トークンカウンタの初期化に失敗（トークン数は記録されません）", "error", err)
	} else {
		opts = append(opts, structuring.WithTokenCounter(counter))
	}

	textStore := filesystem.NewTextStore(c.cfg.Paths.RawTextDir)
	return structuring.NewStructureService(textStore, c.structured, chat, opts...), nil
}

// EmbedService はEmbedding生成サービスを返す
func (c *ServiceContainer) EmbedService(ctx context.Context) (*embedding.EmbedService, error) {
	embedder, err := c.embedderClient()
	if err != nil {
		return nil, err
	}
	vectors, err := c.vectorStore(ctx)
	if err != nil {
		return nil, err
	}

	opts := []embedding.EmbedServiceOption{
		embedding.WithEmbedLogger(c.logger),
		embedding.WithChunkSize(c.cfg.Embedding.ChunkSize),
	}
	// 切り詰めは補助機能なので、カウンタが使えなくても Embedding 生成は続ける
	if counter, err := c.tokenCounter(); err != nil {
		c.logger.Warn("トークンカウンタの初期化に失敗（入力の切り詰めは行いません）", "error", err)
	} else {
		opts = append(opts, embedding.WithTokenLimiter(counter, c.cfg.Embedding.MaxTokens))
	}

	return embedding.NewEmbedService(c.structured, embedder, vectors, opts...), nil
}

// GraphInsertService はグラフ投入用の GraphService を返す
func (c *ServiceContainer) GraphInsertService(ctx context.Context, keepGoing bool) (*casegraph.GraphService, error) {
	graph, err := c.graphStore(ctx)
	if err != nil {
		return nil, err
	}

	return casegraph.NewGraphService(c.structured,
		casegraph.WithGraphLogger(c.logger),
		casegraph.WithGraphRepository(graph),
		casegraph.WithGraphKeepGoing(keepGoing),
	), nil
}

// GraphExportService はデータセット出力用の GraphService を返す（DB接続不要）
func (c *ServiceContainer) GraphExportService() *casegraph.GraphService {
	return casegraph.NewGraphService(c.structured,
		casegraph.WithGraphLogger(c.logger),
		casegraph.WithDatasetWriter(filesystem.NewDatasetWriter(c.cfg.Paths.GraphDir)),
	)
}

// RetrievalService は検索方式に必要な接続だけを持つ検索サービスを返す
func (c *ServiceContainer) RetrievalService(ctx context.Context, mode retrieval.Mode, opts ...retrieval.ServiceOption) (*retrieval.Service, error) {
	var (
		embedder retrieval.Embedder
		vectors  retrieval.VectorStore
		graph    retrieval.GraphMatcher
	)

	needVector := mode != retrieval.ModeGraph
	needGraph := mode == retrieval.ModeHybrid || mode == retrieval.ModeGraph

	if needVector {
		e, err := c.embedderClient()
		if err != nil {
			return nil, err
		}
		v, err := c.vectorStore(ctx)
		if err != nil {
			return nil, err
		}
		embedder, vectors = e, v
	}
	if needGraph {
		g, err := c.graphStore(ctx)
		if err != nil {
			return nil, err
		}
		graph = g
	}

	base := []retrieval.ServiceOption{
		retrieval.WithRetrievalLogger(c.logger),
		retrieval.WithTopK(c.cfg.Retrieval.TopK),
		retrieval.WithWeights(retrieval.Weights{
			Vector: c.cfg.Retrieval.VectorWeight,
			Graph:  c.cfg.Retrieval.GraphWeight,
		}),
	}
	return retrieval.NewService(c.structured, embedder, vectors, graph, append(base, opts...)...), nil
}

// Close は生成済みの外部接続を解放する
func (c *ServiceContainer) Close(ctx context.Context) error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.neo4j != nil {
		if err := c.neo4j.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("Neo4j のクローズに失敗: %w", err))
		}
		c.neo4j = nil
	}
	if c.database != nil {
		c.database.Close()
		c.database = nil
	}
	return errors.Join(errs...)
}

func (c *ServiceContainer) chatClient() (structuring.ChatClient, error) {
	if c.chat != nil {
		return c.chat, nil
	}
	client, err := openai.NewChatClient(
		c.cfg.LLM.APIKey,
		openai.WithBaseURL(c.cfg.LLM.BaseURL),
		openai.WithChatModel(c.cfg.LLM.Model),
		openai.WithTimeout(c.cfg.LLM.Timeout),
		openai.WithRequestsPerMinute(c.cfg.LLM.RequestsPerMinute),
	)
	if err != nil {
		return nil, fmt.Errorf("LLMクライアント初期化に失敗しました: %w", err)
	}
	c.chat = client
	return client, nil
}

func (c *ServiceContainer) embedderClient() (Embedder, error) {
	if c.embedder != nil {
		return c.embedder, nil
	}
	client, err := openai.NewEmbedder(
		c.cfg.Embedding.APIKey,
		openai.WithEmbeddingBaseURL(c.cfg.Embedding.BaseURL),
		openai.WithEmbeddingModel(c.cfg.Embedding.Model),
		openai.WithEmbeddingDimension(c.cfg.Embedding.Dimension),
		openai.WithEmbeddingRequestsPerMinute(c.cfg.Embedding.RequestsPerMinute),
	)
	if err != nil {
		return nil, fmt.Errorf("Embedderの初期化に失敗しました: %w", err)
	}
	c.embedder = client
	return client, nil
}

func (c *ServiceContainer) tokenCounter() (TokenCounter, error) {
	if c.tokens != nil {
		return c.tokens, nil
	}
	counter, err := c.newTokens()
	if err != nil {
		return nil, err
	}
	c.tokens = counter
	return counter, nil
}

func newTiktokenCounter() (TokenCounter, error) {
	counter, err := tokenizer.NewTokenCounter()
	if err != nil {
		return nil, err
	}
	return counter, nil
}

func (c *ServiceContainer) vectorStore(ctx context.Context) (VectorStore, error) {
	if c.vectors != nil {
		return c.vectors, nil
	}

	switch c.cfg.VectorStore {
	case config.VectorStorePostgres:
		db, err := database.New(ctx, database.ConnectionParams{
			Host:     c.cfg.Database.Host,
			Port:     c.cfg.Database.Port,
			User:     c.cfg.Database.User,
			Password: c.cfg.Database.Password,
			DBName:   c.cfg.Database.DBName,
			SSLMode:  c.cfg.Database.SSLMode,
		})
		if err != nil {
			return nil, fmt.Errorf("データベース初期化に失敗しました: %w", err)
		}
		c.database = db
		c.vectors = postgres.NewVectorRepository(db.Pool, c.cfg.Embedding.Model)
	default:
		c.vectors = filesystem.NewVectorFile(c.cfg.Paths.EmbeddingFile)
	}
	return c.vectors, nil
}

func (c *ServiceContainer) graphStore(ctx context.Context) (GraphStore, error) {
	if c.graph != nil {
		return c.graph, nil
	}
	client, err := neo4jdb.New(ctx, neo4jdb.Config{
		URI:      c.cfg.Neo4j.URI,
		User:     c.cfg.Neo4j.User,
		Password: c.cfg.Neo4j.Password,
		Database: c.cfg.Neo4j.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("Neo4j 初期化に失敗しました: %w", err)
	}
	c.neo4j = client
	c.graph = neo4jrepo.NewCaseGraphRepository(client)
	return c.graph, nil
}
