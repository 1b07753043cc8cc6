package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kitchensync/internal/store"
)

const testCatalog = `
categories:
  - {id: grill, name: Grill}
products:
  - {id: burger, name: Burger, category_id: grill, price: 850}
stations:
  - id: grill-line
    name: Grill Line
    category_ids: [grill]
    input_statuses: [Ordered]
    output_status: Ready
`

func writeCatalog(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestSeed_AppliesAndReapplies(t *testing.T) {
	catalog := writeCatalog(t, testCatalog)
	dbPath := filepath.Join(t.TempDir(), "kitchen.db")

	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	code := Execute([]string{"seed", "--db", dbPath, catalog}, stdout, stderr)
	require.Equal(t, ExitSuccess, code, stderr.String())
	assert.Contains(t, stdout.String(), "3 created, 0 updated")

	stdout.Reset()
	code = Execute([]string{"seed", "--db", dbPath, catalog}, stdout, stderr)
	require.Equal(t, ExitSuccess, code, stderr.String())
	assert.Contains(t, stdout.String(), "0 created, 3 updated")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()
	p, err := st.GetProduct(t.Context(), "burger")
	require.NoError(t, err)
	assert.Equal(t, int64(850), p.Price)
	assert.True(t, p.Active)
}

func TestSeed_DryRunJSON(t *testing.T) {
	catalog := writeCatalog(t, testCatalog)
	dbPath := filepath.Join(t.TempDir(), "kitchen.db")

	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	code := Execute([]string{"--format", "json", "seed", "--dry-run", "--db", dbPath, catalog}, stdout, stderr)
	require.Equal(t, ExitSuccess, code, stderr.String())

	var resp struct {
		Status string     `json:"status"`
		Data   SeedResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.DryRun)
	assert.Equal(t, 1, resp.Data.Products)
	assert.Equal(t, 1, resp.Data.Stations)

	_, err := os.Stat(dbPath)
	assert.True(t, os.IsNotExist(err), "dry run must not create the database")
}

func TestSeed_SchemaErrorIsCommandError(t *testing.T) {
	catalog := writeCatalog(t, "products: [{id: p, name: P, category_id: c, price: -1}]")

	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	code := Execute([]string{"--format", "json", "seed", "--dry-run", catalog}, stdout, stderr)
	assert.Equal(t, ExitCommandError, code)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeCatalog, resp.Error.Code)
}

func TestSeed_EngineRejectionIsFailure(t *testing.T) {
	catalog := writeCatalog(t, "products: [{id: p, name: P, category_id: nowhere, price: 100}]")
	dbPath := filepath.Join(t.TempDir(), "kitchen.db")

	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	code := Execute([]string{"seed", "--db", dbPath, catalog}, stdout, stderr)
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr.String(), "seed rejected")
	assert.Contains(t, stderr.String(), "category_id")
}

func TestSeed_MissingArgument(t *testing.T) {
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	code := Execute([]string{"seed"}, stdout, stderr)
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr.String(), "accepts 1 arg")
}
