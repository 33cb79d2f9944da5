package neo4j

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/jinford/case-rag/internal/core/casegraph"
	"github.com/jinford/case-rag/internal/core/legalcase"
	"github.com/jinford/case-rag/internal/core/retrieval"
	"github.com/jinford/case-rag/internal/platform/neo4jdb"
)

var schemaStatements = []string{
	`CREATE CONSTRAINT case_id_unique IF NOT EXISTS FOR (c:Case) REQUIRE c.id IS UNIQUE`,
	`CREATE CONSTRAINT fact_text_unique IF NOT EXISTS FOR (f:Fact) REQUIRE f.text IS UNIQUE`,
	`CREATE CONSTRAINT issue_text_unique IF NOT EXISTS FOR (i:Issue) REQUIRE i.text IS UNIQUE`,
}

const upsertCaseCypher = `
MERGE (c:Case {id: $id})
SET c.title = $title, c.decision = $decision, c.reasoning = $reasoning
`

const upsertFactsCypher = `
MATCH (c:Case {id: $id})
UNWIND $facts AS fact
MERGE (f:Fact {text: fact})
MERGE (c)-[:HAS_FACT]->(f)
`

const upsertIssuesCypher = `
MATCH (c:Case {id: $id})
UNWIND $issues AS issue
MERGE (i:Issue {text: issue})
MERGE (c)-[:HAS_ISSUE]->(i)
`

// 1件の一致につき1行を返す（同一ケースが複数回現れうる）
const matchFactsCypher = `
UNWIND $fragments AS fragment
MATCH (c:Case)-[:HAS_FACT]->(f:Fact)
WHERE toLower(f.text) CONTAINS toLower(fragment)
RETURN c.id AS case_id
`

const matchIssuesCypher = `
UNWIND $fragments AS fragment
MATCH (c:Case)-[:HAS_ISSUE]->(i:Issue)
WHERE toLower(i.text) CONTAINS toLower(fragment)
RETURN c.id AS case_id
`

// CaseGraphRepository はNeo4j上のケースグラフを読み書きする
type CaseGraphRepository struct {
	client *neo4jdb.Client
}

// NewCaseGraphRepository は新しい CaseGraphRepository を作成する
func NewCaseGraphRepository(client *neo4jdb.Client) *CaseGraphRepository {
	return &CaseGraphRepository{client: client}
}

// EnsureSchema は一意制約を作成する
// 失敗した文があってもすべて試行し、エラーをまとめて返す
func (r *CaseGraphRepository) EnsureSchema(ctx context.Context) error {
	session := r.client.Session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	var errs []error
	for _, stmt := range schemaStatements {
		res, err := session.Run(ctx, stmt, nil)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if _, err := res.Consume(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// UpsertCase はケースノードと事実・争点ノード、関係を1トランザクションでMERGEする
func (r *CaseGraphRepository) UpsertCase(ctx context.Context, sc *legalcase.StructuredCase) error {
	params := caseParams(sc)

	_, err := r.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, cypher := range []string{upsertCaseCypher, upsertFactsCypher, upsertIssuesCypher} {
			res, err := tx.Run(ctx, cypher, params)
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("ケースのMERGEに失敗 (%s): %w", sc.CaseID, err)
	}
	return nil
}

// MatchFragments は事実・争点ごとに部分一致（大文字小文字を区別しない）するケースIDを返す
// 空白のみの断片は全ノードに一致するため除外する
func (r *CaseGraphRepository) MatchFragments(ctx context.Context, facts, issues []string) ([]string, error) {
	facts = nonBlank(facts)
	issues = nonBlank(issues)
	if len(facts) == 0 && len(issues) == 0 {
		return nil, nil
	}

	result, err := r.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		var ids []string
		for _, q := range []struct {
			cypher    string
			fragments []string
		}{
			{matchFactsCypher, facts},
			{matchIssuesCypher, issues},
		} {
			if len(q.fragments) == 0 {
				continue
			}
			found, err := collectCaseIDs(ctx, tx, q.cypher, q.fragments)
			if err != nil {
				return nil, err
			}
			ids = append(ids, found...)
		}
		return ids, nil
	})
	if err != nil {
		return nil, fmt.Errorf("グラフの部分一致検索に失敗: %w", err)
	}

	ids, _ := result.([]string)
	return ids, nil
}

func collectCaseIDs(ctx context.Context, tx neo4j.ManagedTransaction, cypher string, fragments []string) ([]string, error) {
	res, err := tx.Run(ctx, cypher, map[string]any{"fragments": toAnySlice(fragments)})
	if err != nil {
		return nil, err
	}

	var ids []string
	for res.Next(ctx) {
		value, ok := res.Record().Get("case_id")
		if !ok {
			continue
		}
		if id, ok := value.(string); ok {
			ids = append(ids, id)
		}
	}
	if err := res.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

func caseParams(sc *legalcase.StructuredCase) map[string]any {
	return map[string]any{
		"id":        sc.CaseID,
		"title":     sc.Title,
		"decision":  sc.Decision,
		"reasoning": sc.Reasoning,
		"facts":     toAnySlice(nonBlank(sc.Facts)),
		"issues":    toAnySlice(nonBlank(sc.Issues)),
	}
}

func nonBlank(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

func toAnySlice(items []string) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}

// インターフェース実装の確認
var (
	_ casegraph.GraphRepository = (*CaseGraphRepository)(nil)
	_ retrieval.GraphMatcher    = (*CaseGraphRepository)(nil)
)
