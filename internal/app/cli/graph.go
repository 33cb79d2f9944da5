package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// GraphInsertAction は構造化ケースをNeo4jに投入するコマンドのアクション
func GraphInsertAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	return runGraphInsert(ctx, appCtx, cmd.Bool("keep-going"))
}

func runGraphInsert(ctx context.Context, appCtx *AppContext, keepGoing bool) error {
	log := appCtx.Logger()

	svc, err := appCtx.Container.GraphInsertService(ctx, keepGoing)
	if err != nil {
		log.Error("グラフサービスの初期化に失敗しました", "error", err)
		return err
	}

	log.Info("グラフ投入を開始", "structuredDir", appCtx.Config.Paths.StructuredDir)

	result, err := svc.Insert(ctx)
	if err != nil {
		log.Error("グラフ投入に失敗しました", "error", err)
		return err
	}

	fmt.Printf("Graph insertion complete. inserted=%d skipped=%d failed=%d\n",
		result.Inserted, result.Skipped, result.Failed)
	return nil
}

// GraphExportAction はノード・エッジのデータセットを出力するコマンドのアクション
func GraphExportAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	log := appCtx.Logger()
	log.Info("グラフデータセットの出力を開始", "graphDir", appCtx.Config.Paths.GraphDir)

	result, err := appCtx.Container.GraphExportService().Export(ctx)
	if err != nil {
		log.Error("グラフデータセットの出力に失敗しました", "error", err)
		return err
	}

	fmt.Printf("Graph dataset created. cases=%d nodes=%d edges=%d\n",
		result.Cases, result.Nodes, result.Edges)
	return nil
}
