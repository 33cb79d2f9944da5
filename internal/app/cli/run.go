package cli

import (
	"context"

	"github.com/urfave/cli/v3"
)

// RunAction は取り込みからグラフ投入までを順に実行するコマンドのアクション
// 各ステージは前ステージの出力ファイルを読み込む
func RunAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	keepGoing := cmd.Bool("keep-going")

	if err := runIngest(ctx, appCtx, keepGoing); err != nil {
		return err
	}
	if err := runStructure(ctx, appCtx); err != nil {
		return err
	}
	if err := runEmbed(ctx, appCtx); err != nil {
		return err
	}
	if cmd.Bool("skip-graph") {
		appCtx.Logger().Info("グラフ投入をスキップ")
		return nil
	}
	return runGraphInsert(ctx, appCtx, keepGoing)
}
