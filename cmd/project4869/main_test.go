package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingHTML = `<html><body>
<div class="item ep-row"><div class="title">1190 消失于恋谷桥的恋人</div>
<div class="res">1080P·简日MP4 <input class="reslink" value="magnet:?xt=urn:btih:aaa"></div></div>
<div class="item ep-row"><div class="title">1191 名侦探的新娘</div>
<div class="res">1080P·简日MKV <input class="reslink" value="magnet:?xt=urn:btih:ccc"></div></div>
</body></html>`

func setupEnv(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("LOG_OUTPUT", "stdout")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("DB_DSN", filepath.Join(dir, "magnets.db"))
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := newRootCommand()

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}

	for _, want := range []string{"serve", "scrape", "inspect", "monitor", "check", "reset"} {
		assert.Contains(t, names, want)
	}
}

func TestResetRequiresConfirmation(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "reset")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")
}

func TestScrapeFileThenCheck(t *testing.T) {
	dir := setupEnv(t)

	path := filepath.Join(dir, "listing.html")
	require.NoError(t, os.WriteFile(path, []byte(listingHTML), 0o644))

	out, err := execute(t, "scrape", "--file", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"inserted": 2`)

	out, err = execute(t, "check", "-n", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Stored records: 2")
	assert.Contains(t, out, "magnet:?xt=urn:btih:ccc")

	out, err = execute(t, "reset", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 2 records")
}

func TestInspectFile(t *testing.T) {
	dir := setupEnv(t)

	path := filepath.Join(dir, "listing.html")
	require.NoError(t, os.WriteFile(path, []byte(listingHTML), 0o644))

	out, err := execute(t, "inspect", "--file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Selector: div.item.ep-row")
	assert.Contains(t, out, "Rows: 2, records: 2")
	assert.Contains(t, out, "1190")
}
