package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// IngestAction はPDF判決文のテキスト抽出コマンドのアクション
func IngestAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	return runIngest(ctx, appCtx, cmd.Bool("keep-going"))
}

func runIngest(ctx context.Context, appCtx *AppContext, keepGoing bool) error {
	log := appCtx.Logger()
	log.Info("テキスト抽出を開始",
		"rawDir", appCtx.Config.Paths.RawCasesDir,
		"outDir", appCtx.Config.Paths.RawTextDir,
	)

	result, err := appCtx.Container.IngestService(keepGoing).Ingest(ctx)
	if err != nil {
		log.Error("テキスト抽出に失敗しました", "error", err)
		return err
	}

	fmt.Printf("Cases saved: %d (failed: %d)\n", result.Processed, result.Failed)
	return nil
}
