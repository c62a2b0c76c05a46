package table

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestCacheLoadsOncePerKey(t *testing.T) {
	c := NewCache(zaptest.NewLogger(t))
	path := filepath.Join("testdata", "emissions.csv")

	var wg sync.WaitGroup
	tables := make([]*Table, 16)
	errs := make([]error, 16)
	for i := range tables {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tables[i], errs[i] = c.Load(path, semicolon())
		}(i)
	}
	wg.Wait()

	for i := range tables {
		require.NoError(t, errs[i])
		assert.Equal(t, 9, tables[i].NumRows())
	}
	assert.Equal(t, int64(1), c.Loads())
	assert.Equal(t, 1, c.Len())

	// Each caller owns its copy.
	tables[0].Columns[1].Nums[0] = -1
	assert.InDelta(t, 0.636, tables[1].Columns[1].Nums[0], 1e-12)
	again, err := c.Load(path, semicolon())
	require.NoError(t, err)
	assert.InDelta(t, 0.636, again.Columns[1].Nums[0], 1e-12)
}

func TestCacheKeysIncludeDelimiter(t *testing.T) {
	c := NewCache(nil)
	p := writeFile(t, "plain.csv", "a;b\n1;2\n")

	semi, err := c.Load(p, Options{Delimiter: ';'})
	require.NoError(t, err)
	assert.Len(t, semi.Columns, 2)

	_, err = c.Load(p, Options{Delimiter: ','})
	var ms *MalformedSourceError
	require.ErrorAs(t, err, &ms)

	assert.Equal(t, int64(2), c.Loads())
	assert.Equal(t, 1, c.Len())
}

func TestCacheReloadsChangedFile(t *testing.T) {
	c := NewCache(nil)
	p := writeFile(t, "v.csv", "year,v\n2000,1\n")

	first, err := c.Load(p, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, first.NumRows())

	require.NoError(t, os.WriteFile(p, []byte("year,v\n2000,1\n2001,2\n"), 0o644))
	second, err := c.Load(p, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 2, second.NumRows())
	assert.Equal(t, int64(2), c.Loads())
}

func TestCacheReadByContent(t *testing.T) {
	c := NewCache(nil)
	data := []byte("year,v\n2000,1\n")

	_, err := c.Read("upload-1.csv", data, DefaultOptions())
	require.NoError(t, err)
	_, err = c.Read("upload-2.csv", append([]byte(nil), data...), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.Loads())
}

func TestCacheMissingSource(t *testing.T) {
	c := NewCache(nil)
	_, err := c.Load(filepath.Join(t.TempDir(), "absent.csv"), DefaultOptions())
	var nf *SourceNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, 0, c.Len())
}
