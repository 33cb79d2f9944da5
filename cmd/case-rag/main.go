package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	appcli "github.com/jinford/case-rag/internal/app/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "case-rag",
		Usage: "判決文PDFの構造化・ベクトル化・グラフ化と関連判例検索",
		Commands: []*cli.Command{
			{
				Name:   "ingest",
				Usage:  "PDF判決文からテキストを抽出",
				Flags:  withCommonFlags(rawDirFlag(), textDirFlag(), keepGoingFlag()),
				Action: appcli.IngestAction,
			},
			{
				Name:  "structure",
				Usage: "抽出テキストをLLMで構造化（出力済みのケースはスキップ）",
				Flags: withCommonFlags(
					textDirFlag(),
					structuredDirFlag(),
					&cli.StringFlag{
						Name:  "model",
						Usage: "チャットモデル名（LLM_MODEL を上書き）",
					},
				),
				Action: appcli.StructureAction,
			},
			{
				Name:  "embed",
				Usage: "構造化ケースのEmbeddingを生成してベクトルストアに保存",
				Flags: withCommonFlags(
					structuredDirFlag(),
					embeddingsFlag(),
					storeFlag(),
					&cli.IntFlag{
						Name:  "chunk-size",
						Usage: "チャンクあたりの単語数（0 で分割しない）",
					},
					&cli.StringFlag{
						Name:  "embedding-model",
						Usage: "Embeddingモデル名（EMBEDDING_MODEL を上書き）",
					},
				),
				Action: appcli.EmbedAction,
			},
			{
				Name:  "graph",
				Usage: "ケースグラフ管理コマンド",
				Commands: []*cli.Command{
					{
						Name:   "insert",
						Usage:  "構造化ケースをNeo4jにMERGE",
						Flags:  withCommonFlags(structuredDirFlag(), keepGoingFlag()),
						Action: appcli.GraphInsertAction,
					},
					{
						Name:  "export",
						Usage: "ノード・エッジのJSONデータセットを出力",
						Flags: withCommonFlags(
							structuredDirFlag(),
							&cli.StringFlag{
								Name:  "graph-dir",
								Usage: "nodes.json / edges.json の出力ディレクトリ",
							},
						),
						Action: appcli.GraphExportAction,
					},
				},
			},
			{
				Name:  "retrieve",
				Usage: "関連判例検索コマンド",
				Commands: []*cli.Command{
					{
						Name:      "hybrid",
						Usage:     "ベクトル類似度とグラフ一致数の重み付き統合で検索",
						ArgsUsage: "[case]",
						Flags: withRetrieveFlags(
							caseFlag(),
							embeddingsFlag(),
							storeFlag(),
							&cli.FloatFlag{
								Name:  "vector-weight",
								Usage: "ベクトルスコアの重み",
							},
							&cli.FloatFlag{
								Name:  "graph-weight",
								Usage: "グラフスコアの重み",
							},
						),
						Action: appcli.RetrieveHybridAction,
					},
					{
						Name:      "graph",
						Usage:     "事実・争点の一致数のみで検索",
						ArgsUsage: "[case]",
						Flags:     withRetrieveFlags(caseFlag()),
						Action:    appcli.RetrieveGraphAction,
					},
					{
						Name:      "vector",
						Usage:     "ベクトル類似度のみで検索",
						ArgsUsage: "[case]",
						Flags:     withRetrieveFlags(caseFlag(), embeddingsFlag(), storeFlag()),
						Action:    appcli.RetrieveVectorAction,
					},
					{
						Name:      "query",
						Usage:     "自由文に類似するケースを検索",
						ArgsUsage: "<text>",
						Flags:     withRetrieveFlags(embeddingsFlag(), storeFlag()),
						Action:    appcli.RetrieveQueryAction,
					},
				},
			},
			{
				Name:  "run",
				Usage: "ingest → structure → embed → graph insert を順に実行",
				Flags: withCommonFlags(
					rawDirFlag(),
					textDirFlag(),
					structuredDirFlag(),
					embeddingsFlag(),
					storeFlag(),
					keepGoingFlag(),
					&cli.BoolFlag{
						Name:  "skip-graph",
						Usage: "Neo4jへの投入を行わない",
					},
				),
				Action: appcli.RunAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

// withCommonFlags は全コマンド共通のフラグを付与する
func withCommonFlags(flags ...cli.Flag) []cli.Flag {
	common := []cli.Flag{
		&cli.StringFlag{
			Name:  "env",
			Usage: "環境変数ファイルパス",
			Value: ".env",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "ログレベル (debug, info, warn, error)",
		},
		&cli.StringFlag{
			Name:  "log-format",
			Usage: "ログ形式 (json, text)",
		},
	}
	return append(common, flags...)
}

// withRetrieveFlags は検索コマンド共通のフラグを付与する
func withRetrieveFlags(flags ...cli.Flag) []cli.Flag {
	retrieve := []cli.Flag{
		structuredDirFlag(),
		&cli.IntFlag{
			Name:  "top-k",
			Usage: "返却件数",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "結果をJSONで出力",
		},
	}
	return withCommonFlags(append(retrieve, flags...)...)
}

func rawDirFlag() cli.Flag {
	return &cli.StringFlag{Name: "raw-dir", Usage: "PDF判決文のディレクトリ"}
}

func textDirFlag() cli.Flag {
	return &cli.StringFlag{Name: "text-dir", Usage: "抽出テキストのディレクトリ"}
}

func structuredDirFlag() cli.Flag {
	return &cli.StringFlag{Name: "structured-dir", Usage: "構造化出力のディレクトリ"}
}

func embeddingsFlag() cli.Flag {
	return &cli.StringFlag{Name: "embeddings", Usage: "Embeddingファイルのパス（--store file のとき）"}
}

func storeFlag() cli.Flag {
	return &cli.StringFlag{Name: "store", Usage: "ベクトルストア (file, postgres)"}
}

func keepGoingFlag() cli.Flag {
	return &cli.BoolFlag{Name: "keep-going", Usage: "ファイル単位の失敗で処理を中断しない"}
}

func caseFlag() cli.Flag {
	return &cli.StringFlag{Name: "case", Usage: "クエリケースID（ファイル名も可）"}
}
