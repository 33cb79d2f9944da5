package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// StructureAction はLLMによる構造化コマンドのアクション
func StructureAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	return runStructure(ctx, appCtx)
}

func runStructure(ctx context.Context, appCtx *AppContext) error {
	log := appCtx.Logger()

	svc, err := appCtx.Container.StructureService()
	if err != nil {
		log.Error("構造化サービスの初期化に失敗しました", "error", err)
		return err
	}

	log.Info("構造化を開始",
		"textDir", appCtx.Config.Paths.RawTextDir,
		"structuredDir", appCtx.Config.Paths.StructuredDir,
		"model", appCtx.Config.LLM.Model,
	)

	result, err := svc.Structure(ctx)
	if err != nil {
		log.Error("構造化に失敗しました", "error", err)
		return err
	}

	fmt.Printf("LLM parsing completed. processed=%d skipped=%d failed=%d invalid=%d\n",
		result.Processed, result.Skipped, result.Failed, result.Invalid)
	return nil
}
