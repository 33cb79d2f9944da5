package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// EmbedAction はEmbedding生成コマンドのアクション
func EmbedAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	return runEmbed(ctx, appCtx)
}

func runEmbed(ctx context.Context, appCtx *AppContext) error {
	log := appCtx.Logger()

	svc, err := appCtx.Container.EmbedService(ctx)
	if err != nil {
		log.Error("Embeddingサービスの初期化に失敗しました", "error", err)
		return err
	}

	log.Info("Embedding生成を開始",
		"structuredDir", appCtx.Config.Paths.StructuredDir,
		"store", appCtx.Config.VectorStore,
		"chunkSize", appCtx.Config.Embedding.ChunkSize,
	)

	result, err := svc.Embed(ctx)
	if err != nil {
		log.Error("Embedding生成に失敗しました", "error", err)
		return err
	}

	fmt.Printf("Vector DB built: %d cases, %d entries (skipped: %d, model: %s)\n",
		result.Cases, result.Entries, result.Skipped, result.Model)
	return nil
}
