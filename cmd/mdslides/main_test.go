package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gubarz/mdslides/internal/config"
)

const testDoc = `<!-- @title Demo -->
---
# One
---
<!-- @hide -->
# Two
---
# Three
`

func writeDoc(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deck.md")
	require.NoError(t, os.WriteFile(path, []byte(testDoc), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	config.C = config.Config{}
	configFile = filepath.Join(t.TempDir(), "none.yaml")
	t.Cleanup(func() {
		viper.Reset()
		configFile = ""
		locateCmd.Flags().Set("slide", "0")
		for _, c := range []string{"output", "format"} {
			buildCmd.Flags().Set(c, "")
		}
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(append(args, "--config", configFile))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestLocate(t *testing.T) {
	path := writeDoc(t)

	tests := []struct {
		name     string
		args     []string
		expected string
		wantErr  bool
	}{
		{"first slide", []string{"locate", path, "3"}, "1\n", false},
		{"hidden slide", []string{"locate", path, "6"}, "2\n", false},
		{"separator", []string{"locate", path, "4"}, "", true},
		{"preamble", []string{"locate", path, "1"}, "", true},
		{"bad line", []string{"locate", path, "x"}, "", true},
		{"slide to line", []string{"locate", path, "--slide", "3"}, "8\n", false},
		{"slide out of range", []string{"locate", path, "--slide", "9"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out)
		})
	}
}

func TestBuildJSON(t *testing.T) {
	path := writeDoc(t)
	output := filepath.Join(t.TempDir(), "deck.json")

	_, err := execute(t, "build", path, "-o", output)
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)

	var out struct {
		Meta struct {
			Title string `json:"title"`
		} `json:"meta"`
		Pages  int `json:"pages"`
		Slides []struct {
			HTML   string `json:"html"`
			Hidden bool   `json:"hidden"`
		} `json:"slides"`
	}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "Demo", out.Meta.Title)
	assert.Equal(t, 2, out.Pages)
	require.Len(t, out.Slides, 3)
	assert.Contains(t, out.Slides[0].HTML, "One")
	assert.True(t, out.Slides[1].Hidden)
}

func TestBuildHTML(t *testing.T) {
	path := writeDoc(t)
	output := filepath.Join(t.TempDir(), "deck.html")

	_, err := execute(t, "build", path, "-o", output, "-f", "html")
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<!DOCTYPE html>")
	assert.Contains(t, string(data), "Three")
	assert.NotContains(t, string(data), "Two")
}

func TestBuildUnknownFormat(t *testing.T) {
	_, err := execute(t, "build", writeDoc(t), "-f", "pdf")
	assert.Error(t, err)
}

func TestRootHelpDocumentsGrammar(t *testing.T) {
	assert.Contains(t, rootCmd.Long, "exactly ---")
	assert.Contains(t, rootCmd.Long, "<!-- @begin multicolumn 1:2 -->")
	assert.NotContains(t, rootCmd.Long, "three or more")
}

func TestWatchDeckReportsWatcherFailure(t *testing.T) {
	a, err := newApp(zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	missing := filepath.Join(t.TempDir(), "gone", "deck.md")
	_, errs := watchDeck(ctx, a, missing)

	select {
	case err := <-errs:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher failure not reported")
	}
}
