package fileproc

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/javaperf/pkg/parser"
)

func writeJava(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestMapFiles_PreservesOrder(t *testing.T) {
	dir := t.TempDir()
	var files []string
	for i := range 40 {
		files = append(files, writeJava(t, dir, fmt.Sprintf("C%d.java", i), fmt.Sprintf("class C%d {}", i)))
	}

	var progressed atomic.Int32
	results, errs := MapFiles(context.Background(), files, 4, func(p *parser.Parser, path string) (string, error) {
		res, err := p.ParseFile(path)
		if err != nil {
			return "", err
		}
		defer res.Close()
		return res.Root().Type(), nil
	}, func() { progressed.Add(1) })

	assert.Nil(t, errs)
	require.Len(t, results, len(files))
	for _, r := range results {
		assert.Equal(t, "program", r)
	}
	assert.Equal(t, int32(len(files)), progressed.Load())
}

func TestMapFiles_CollectsErrors(t *testing.T) {
	dir := t.TempDir()
	good := writeJava(t, dir, "Good.java", "class Good {}")
	bad := writeJava(t, dir, "Bad.java", "class Bad { String s = \"\xff\"; }")
	missing := filepath.Join(dir, "Missing.java")

	results, errs := MapFiles(context.Background(), []string{good, bad, missing}, 0,
		func(p *parser.Parser, path string) (string, error) {
			res, err := p.ParseFile(path)
			if err != nil {
				return "", err
			}
			res.Close()
			return filepath.Base(path), nil
		}, nil)

	assert.Equal(t, []string{"Good.java"}, results)
	require.True(t, errs.HasErrors())
	assert.Equal(t, []string{bad, missing}, errs.Paths())

	var invalid bool
	for _, e := range errs.Errors {
		if errors.Is(e, parser.ErrInvalidUTF8) {
			invalid = true
		}
	}
	assert.True(t, invalid)
	assert.Contains(t, errs.Error(), "2 files failed")
}

func TestMapFiles_Empty(t *testing.T) {
	results, errs := MapFiles(context.Background(), nil, 0, func(*parser.Parser, string) (int, error) {
		return 0, nil
	}, nil)
	assert.Nil(t, results)
	assert.Nil(t, errs)
	assert.False(t, errs.HasErrors())
}

func TestMapFiles_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var called atomic.Int32
	results, errs := MapFiles(ctx, []string{"A.java", "B.java"}, 2, func(*parser.Parser, string) (int, error) {
		called.Add(1)
		return 1, nil
	}, nil)

	assert.Empty(t, results)
	require.True(t, errs.HasErrors())
	assert.Len(t, errs.Errors, 2)
	assert.ErrorIs(t, errs.Errors[0], context.Canceled)
	assert.Zero(t, called.Load())
}

func TestMap(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	results, errs := Map(context.Background(), items, 2, func(i int) (int, error) {
		if i == 3 {
			return 0, errors.New("three")
		}
		return i * i, nil
	}, func(i int) string { return fmt.Sprint(i) }, nil)

	assert.Equal(t, []int{1, 4, 16, 25}, results)
	require.True(t, errs.HasErrors())
	assert.Equal(t, []string{"3"}, errs.Paths())
}

func TestWorkers(t *testing.T) {
	assert.Equal(t, 3, Workers(3))
	assert.Positive(t, Workers(0))
	assert.Equal(t, Workers(0), Workers(-1))
}
