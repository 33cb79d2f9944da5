package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/jinford/case-rag/internal/core/retrieval"
)

var modeTitles = map[retrieval.Mode]string{
	retrieval.ModeHybrid: "Hybrid Retrieved Cases:",
	retrieval.ModeGraph:  "Top Graph Retrieved Cases:",
	retrieval.ModeVector: "Top Vector Retrieved Cases:",
	retrieval.ModeQuery:  "Top similar cases:",
}

// RetrieveHybridAction はハイブリッド検索コマンドのアクション
func RetrieveHybridAction(ctx context.Context, cmd *cli.Command) error {
	return retrieveAction(ctx, cmd, retrieval.ModeHybrid)
}

// RetrieveGraphAction はグラフ検索コマンドのアクション
func RetrieveGraphAction(ctx context.Context, cmd *cli.Command) error {
	return retrieveAction(ctx, cmd, retrieval.ModeGraph)
}

// RetrieveVectorAction はベクトル検索コマンドのアクション
func RetrieveVectorAction(ctx context.Context, cmd *cli.Command) error {
	return retrieveAction(ctx, cmd, retrieval.ModeVector)
}

// RetrieveQueryAction は自由文検索コマンドのアクション
func RetrieveQueryAction(ctx context.Context, cmd *cli.Command) error {
	return retrieveAction(ctx, cmd, retrieval.ModeQuery)
}

func retrieveAction(ctx context.Context, cmd *cli.Command, mode retrieval.Mode) error {
	// クエリの取得
	var query string
	if mode == retrieval.ModeQuery {
		query = strings.Join(cmd.Args().Slice(), " ")
		if strings.TrimSpace(query) == "" {
			return fmt.Errorf("検索文を指定してください")
		}
	} else {
		query = cmd.String("case")
		if query == "" {
			query = cmd.Args().First()
		}
		if query == "" {
			return fmt.Errorf("クエリケースを --case で指定してください")
		}
	}

	appCtx, err := NewAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	log := appCtx.Logger()
	log.Info("関連ケース検索を開始",
		"mode", mode,
		"query", query,
		"topK", appCtx.Config.Retrieval.TopK,
	)

	svc, err := appCtx.Container.RetrievalService(ctx, mode)
	if err != nil {
		log.Error("検索サービスの初期化に失敗しました", "error", err)
		return err
	}

	results, err := search(ctx, svc, mode, query)
	if err != nil {
		log.Error("関連ケース検索に失敗しました", "mode", mode, "error", err)
		return err
	}

	if cmd.Bool("json") {
		return writeResultsJSON(os.Stdout, results)
	}
	writeResults(os.Stdout, mode, results)
	return nil
}

func search(ctx context.Context, svc *retrieval.Service, mode retrieval.Mode, query string) ([]*retrieval.Result, error) {
	switch mode {
	case retrieval.ModeHybrid:
		return svc.Hybrid(ctx, query)
	case retrieval.ModeGraph:
		return svc.GraphOnly(ctx, query)
	case retrieval.ModeVector:
		return svc.VectorOnly(ctx, query)
	case retrieval.ModeQuery:
		return svc.Query(ctx, query)
	default:
		return nil, fmt.Errorf("未対応の検索方式: %s", mode)
	}
}

// writeResults は検索結果を人が読める形式で出力する
func writeResults(w io.Writer, mode retrieval.Mode, results []*retrieval.Result) {
	fmt.Fprintf(w, "\n%s\n\n", modeTitles[mode])
	if len(results) == 0 {
		fmt.Fprintln(w, "(no related cases)")
		return
	}
	for _, r := range results {
		switch mode {
		case retrieval.ModeHybrid:
			fmt.Fprintf(w, "%s score: %.3f (vector: %.3f, graph: %.3f, matches: %d)\n",
				r.CaseID, r.Score, r.VectorScore, r.GraphScore, r.GraphMatches)
		case retrieval.ModeGraph:
			fmt.Fprintf(w, "%s score: %g\n", r.CaseID, r.Score)
		default:
			fmt.Fprintf(w, "%s score: %.3f\n", r.CaseID, r.Score)
		}
	}
}

func writeResultsJSON(w io.Writer, results []*retrieval.Result) error {
	if results == nil {
		results = []*retrieval.Result{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
