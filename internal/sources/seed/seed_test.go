package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/bookshare/internal/domain"
	"github.com/MrSnakeDoc/bookshare/internal/ledger"
	"github.com/MrSnakeDoc/bookshare/internal/logger"
	"github.com/MrSnakeDoc/bookshare/internal/store/memory"
)

const seedYAML = `books:
  - isbn: "111"
    title: Introduction to Algorithms
    author: Cormen
    stock: 2
  - isbn: "222"
    title: Design Patterns
  - isbn: ""
    title: No ISBN
  - isbn: "333"
    title: "  "
  - isbn: "444"
    title: Refactoring
    stock: -3
`

func TestLoaderLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0o600))

	f, err := NewLoader(path).Load()
	require.NoError(t, err)
	require.Len(t, f.Books, 5)
	assert.Equal(t, "111", f.Books[0].ISBN)
	require.NotNil(t, f.Books[0].Stock)
	assert.Equal(t, 2, *f.Books[0].Stock)
	assert.Nil(t, f.Books[1].Stock)
}

func TestLoaderMissingFile(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "nope.yaml")).Load()
	assert.ErrorContains(t, err, "failed to read seed file")
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		books   int
		wantErr bool
	}{
		{name: "empty document", yaml: "", books: 0},
		{name: "empty list", yaml: "books: []", books: 0},
		{name: "unknown key", yaml: "books:\n  - isbn: \"1\"\n    titel: typo\n", wantErr: true},
		{name: "not yaml", yaml: "books: [", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Parse([]byte(tt.yaml))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, f.Books, tt.books)
		})
	}
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	table := memory.NewTable(ledger.Row{ISBN: "222", Title: "Design Patterns", Author: "Gamma", Stock: "0"})

	f, err := Parse([]byte(seedYAML))
	require.NoError(t, err)

	res, err := Import(ctx, table, f, logger.NewNop())
	require.NoError(t, err)
	assert.Equal(t, Result{Added: 2, Present: 1, Invalid: 2}, res)

	rows, err := table.Scan(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, ledger.Row{ISBN: "222", Title: "Design Patterns", Author: "Gamma", Stock: "0"}, rows[0],
		"existing rows must not be touched")
	assert.Equal(t, ledger.Row{ISBN: "111", Title: "Introduction to Algorithms", Author: "Cormen", Stock: "2"}, rows[1])
	assert.Equal(t, ledger.Row{ISBN: "444", Title: "Refactoring", Author: domain.UnknownAuthor, Stock: "0"}, rows[2])

	again, err := Import(ctx, table, f, logger.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 0, again.Added)
	assert.Equal(t, 3, table.Len())
}

func TestImportDeduplicatesWithinFile(t *testing.T) {
	f, err := Parse([]byte("books:\n  - isbn: \"1\"\n    title: A\n  - isbn: \"1\"\n    title: B\n"))
	require.NoError(t, err)

	table := memory.NewTable()
	res, err := Import(context.Background(), table, f, logger.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)
	assert.Equal(t, 1, res.Present)
}
