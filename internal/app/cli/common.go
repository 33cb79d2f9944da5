package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/jinford/case-rag/internal/platform/config"
	"github.com/jinford/case-rag/internal/platform/container"
	"github.com/jinford/case-rag/internal/platform/logger"
)

// AppContext はコマンド実行に必要な共通コンテキストを保持する
type AppContext struct {
	Container *container.ServiceContainer
	Config    *config.Config
}

// NewAppContext は設定ファイルを読み込み、フラグで上書きして AppContext を作成する
// 外部サービスへの接続はサービス取得時まで行わない
func NewAppContext(ctx context.Context, cmd *cli.Command) (*AppContext, error) {
	cfg, err := config.Load(cmd.String("env"))
	if err != nil {
		return nil, fmt.Errorf("設定の読み込みに失敗: %w", err)
	}
	applyFlagOverrides(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	appLogger := logger.New(logger.FromStrings(cfg.Log.Level, cfg.Log.Format))

	return &AppContext{
		Container: container.NewContainer(cfg, container.WithContainerLogger(appLogger)),
		Config:    cfg,
	}, nil
}

// Close はAppContextが保持するリソースをクリーンアップする
// 呼び出し元のコンテキストがキャンセル済みでも接続を閉じられるよう独立したコンテキストを使う
func (ac *AppContext) Close() {
	if ac == nil || ac.Container == nil {
		return
	}
	if err := ac.Container.Close(context.Background()); err != nil {
		ac.Logger().Warn("リソースの解放に失敗", "error", err)
	}
}

// Logger はAppContextのロガーを返す
func (ac *AppContext) Logger() *slog.Logger {
	if ac != nil && ac.Container != nil {
		return ac.Container.Logger()
	}
	return slog.Default()
}

// applyFlagOverrides は明示的に指定されたフラグの値で設定を上書きする
// コマンドに定義されていないフラグは IsSet が false になるため無視される
func applyFlagOverrides(cmd *cli.Command, cfg *config.Config) {
	stringFlags := map[string]*string{
		"raw-dir":         &cfg.Paths.RawCasesDir,
		"text-dir":        &cfg.Paths.RawTextDir,
		"structured-dir":  &cfg.Paths.StructuredDir,
		"embeddings":      &cfg.Paths.EmbeddingFile,
		"graph-dir":       &cfg.Paths.GraphDir,
		"model":           &cfg.LLM.Model,
		"embedding-model": &cfg.Embedding.Model,
		"log-level":       &cfg.Log.Level,
		"log-format":      &cfg.Log.Format,
	}
	for name, dst := range stringFlags {
		if cmd.IsSet(name) {
			*dst = cmd.String(name)
		}
	}

	if cmd.IsSet("store") {
		cfg.VectorStore = config.VectorStoreKind(cmd.String("store"))
	}
	if cmd.IsSet("chunk-size") {
		cfg.Embedding.ChunkSize = int(cmd.Int("chunk-size"))
	}
	if cmd.IsSet("top-k") {
		cfg.Retrieval.TopK = int(cmd.Int("top-k"))
	}
	if cmd.IsSet("vector-weight") {
		cfg.Retrieval.VectorWeight = cmd.Float("vector-weight")
	}
	if cmd.IsSet("graph-weight") {
		cfg.Retrieval.GraphWeight = cmd.Float("graph-weight")
	}
}
