//go:build integration

package neo4j

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/case-rag/internal/core/legalcase"
	"github.com/jinford/case-rag/internal/platform/neo4jdb"
)

var testClient *neo4jdb.Client

func TestMain(m *testing.M) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not connect to docker: %v\n", err)
		os.Exit(1)
	}
	pool.MaxWait = 3 * time.Minute

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "neo4j",
		Tag:        "5",
		Env:        []string{"NEO4J_AUTH=neo4j/testpassword"},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not start neo4j: %v\n", err)
		os.Exit(1)
	}

	uri := fmt.Sprintf("neo4j://localhost:%s", resource.GetPort("7687/tcp"))
	if err := pool.Retry(func() error {
		client, err := neo4jdb.New(context.Background(), neo4jdb.Config{
			URI:      uri,
			User:     "neo4j",
			Password: "testpassword",
			Timeout:  5 * time.Second,
		})
		if err != nil {
			return err
		}
		testClient = client
		return nil
	}); err != nil {
		_ = pool.Purge(resource)
		fmt.Fprintf(os.Stderr, "neo4j did not become ready: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	_ = testClient.Close(context.Background())
	_ = pool.Purge(resource)
	os.Exit(code)
}

func countRows(t *testing.T, cypher string) int64 {
	t.Helper()
	ctx := context.Background()

	session := testClient.Session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	res, err := session.Run(ctx, cypher, nil)
	require.NoError(t, err)
	record, err := res.Single(ctx)
	require.NoError(t, err)
	value, _ := record.Get("n")
	return value.(int64)
}

func TestCaseGraphRepository_UpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewCaseGraphRepository(testClient)
	require.NoError(t, repo.EnsureSchema(ctx))

	sc := &legalcase.StructuredCase{
		CaseID: "Alpha",
		Title:  "Alpha v. State",
		Facts:  []string{"Land was acquired for a highway"},
		Issues: []string{"Adequacy of compensation"},
	}

	require.NoError(t, repo.UpsertCase(ctx, sc))
	require.NoError(t, repo.UpsertCase(ctx, sc))

	assert.Equal(t, int64(1), countRows(t, `MATCH (c:Case {id: "Alpha"}) RETURN count(c) AS n`))
	assert.Equal(t, int64(1), countRows(t, `MATCH (:Case {id: "Alpha"})-[r:HAS_FACT]->() RETURN count(r) AS n`))
	assert.Equal(t, int64(1), countRows(t, `MATCH (:Case {id: "Alpha"})-[r:HAS_ISSUE]->() RETURN count(r) AS n`))
}

func TestCaseGraphRepository_MatchFragments(t *testing.T) {
	ctx := context.Background()
	repo := NewCaseGraphRepository(testClient)

	require.NoError(t, repo.UpsertCase(ctx, &legalcase.StructuredCase{
		CaseID: "Beta",
		Facts:  []string{"Land was acquired for a highway", "Notice was not served"},
		Issues: []string{"Adequacy of compensation"},
	}))
	require.NoError(t, repo.UpsertCase(ctx, &legalcase.StructuredCase{
		CaseID: "Gamma",
		Facts:  []string{"Contract was breached"},
		Issues: []string{"Damages"},
	}))

	ids, err := repo.MatchFragments(ctx, []string{"LAND WAS ACQUIRED", "  "}, []string{"compensation"})
	require.NoError(t, err)

	counts := map[string]int{}
	for _, id := range ids {
		counts[id]++
	}
	assert.Equal(t, 2, counts["Beta"])
	assert.Zero(t, counts["Gamma"])

	none, err := repo.MatchFragments(ctx, []string{""}, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}
