package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leilao-scraper/models"
)

func TestParseSources(t *testing.T) {
	tests := []struct {
		in      string
		want    []models.Source
		wantErr bool
	}{
		{"all", models.AllSources, false},
		{"", models.AllSources, false},
		{"superbid,sodre", []models.Source{models.SourceSodre, models.SourceSuperbid}, false},
		{" Megaleiloes ", []models.Source{models.SourceMegaleiloes}, false},
		{"ebay", nil, true},
	}
	for _, tt := range tests {
		got, err := parseSources(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseCategories(t *testing.T) {
	got, err := parseCategories("tecnologia,veiculos")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "tecnologia", got[0].Name)

	all, err := parseCategories("all")
	require.NoError(t, err)
	assert.Len(t, all, len(models.AllCategories))

	_, err = parseCategories("imoveis")
	assert.Error(t, err)
}

func TestNormalizeCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"normalize", "LOTE 42 HONDA CIVIC 2020/2020", ""})

	require.NoError(t, cmd.Execute())
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Honda Civic")
	assert.Contains(t, lines[1], "Veículo sem título")
}

func TestRunFailsFastWithoutCredentials(t *testing.T) {
	t.Setenv("STORE_BACKEND", "rest")
	t.Setenv("SUPABASE_URL", "")
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"run", "--category", "veiculos"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing store credentials")
}
