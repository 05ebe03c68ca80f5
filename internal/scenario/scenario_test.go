package scenario_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/warsim/internal/config"
	"github.com/cory-johannsen/warsim/internal/scenario"
)

const sampleYAML = `
name: border skirmish
sides:
  - name: Human Empire
    hero: alparslan
    creature: dragon
    research:
      defense_mastery: 2
    units:
      - unit: infantry
        count: 100
      - unit: archers
        count: 50
  - name: Orc Legion
    units:
      - unit: orc_warriors
        count: 120
`

const sampleJSON = `{
  "name": "night raid",
  "sides": [
    {"name": "Human Empire", "units": [{"unit": "cavalry", "count": 30}]},
    {"name": "Orc Legion", "creature": "shadow_wolves", "units": [{"unit": "warg_riders", "count": 40}]}
  ]
}`

func TestParse_YAML(t *testing.T) {
	sc, err := scenario.Parse([]byte(sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, "border skirmish", sc.Name)
	require.Len(t, sc.Sides, 2)
	assert.Equal(t, "alparslan", sc.Sides[0].Hero)
	assert.Equal(t, 2, sc.Sides[0].Research["defense_mastery"])
	assert.Equal(t, []scenario.UnitCount{{Unit: "infantry", Count: 100}, {Unit: "archers", Count: 50}}, sc.Sides[0].Units)
}

func TestParse_JSON(t *testing.T) {
	sc, err := scenario.Parse([]byte(sampleJSON))
	require.NoError(t, err)
	assert.Equal(t, "shadow_wolves", sc.Sides[1].Creature)
	assert.Equal(t, int64(40), sc.Sides[1].Units[0].Count)
}

func TestParse_Invalid(t *testing.T) {
	cases := map[string]string{
		"one side":       `{"name":"x","sides":[{"name":"a","units":[{"unit":"u","count":1}]}]}`,
		"unnamed side":   `{"sides":[{"units":[{"unit":"u","count":1}]},{"name":"b","units":[{"unit":"u","count":1}]}]}`,
		"no units":       `{"sides":[{"name":"a","units":[]},{"name":"b","units":[{"unit":"u","count":1}]}]}`,
		"empty unit id":  `{"sides":[{"name":"a","units":[{"count":1}]},{"name":"b","units":[{"unit":"u","count":1}]}]}`,
		"negative count": `{"sides":[{"name":"a","units":[{"unit":"u","count":-1}]},{"name":"b","units":[{"unit":"u","count":1}]}]}`,
		"negative level": `{"sides":[{"name":"a","research":{"r":-1},"units":[{"unit":"u","count":1}]},{"name":"b","units":[{"unit":"u","count":1}]}]}`,
		"not a document": `:::`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := scenario.Parse([]byte(doc))
			assert.ErrorIs(t, err, scenario.ErrInvalid)
		})
	}
}

func TestSide_ResearchIDsSorted(t *testing.T) {
	s := scenario.Side{Research: map[string]int{"b": 1, "a": 2, "c": 0}}
	assert.Equal(t, []string{"a", "b", "c"}, s.ResearchIDs())
}

func TestFileSource_ByName(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1.yaml"), []byte(sampleYAML), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2.json"), []byte(sampleJSON), 0644))

	src := scenario.FileSource{Dir: dir}
	sc, err := src.Fetch(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "border skirmish", sc.Name)

	sc, err = src.Fetch(context.Background(), "2")
	require.NoError(t, err)
	assert.Equal(t, "night raid", sc.Name)
}

func TestFileSource_ByPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleJSON), 0644))

	sc, err := scenario.FileSource{Dir: "/unused"}.Fetch(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "night raid", sc.Name)
}

func TestFileSource_NotFound(t *testing.T) {
	_, err := scenario.FileSource{Dir: t.TempDir()}.Fetch(context.Background(), "7")
	assert.ErrorIs(t, err, scenario.ErrNotFound)
}

func TestFileSource_InvalidDocument(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("name: x\nsides: []\n"), 0644))
	_, err := scenario.FileSource{Dir: dir}.Fetch(context.Background(), "bad")
	assert.ErrorIs(t, err, scenario.ErrInvalid)
}

func TestFileSource_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := scenario.FileSource{Dir: t.TempDir()}.Fetch(ctx, "1")
	assert.ErrorIs(t, err, context.Canceled)
}

func newScenarioServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/scenarios/3.json":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(sampleJSON))
		case "/scenarios/huge.json":
			_, _ = w.Write([]byte(strings.Repeat(" ", scenario.MaxBodyBytes+10)))
		case "/scenarios/boom.json":
			http.Error(w, "boom", http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPSource_Fetch(t *testing.T) {
	srv := newScenarioServer(t)
	src := scenario.HTTPSource{BaseURL: srv.URL + "/scenarios", Client: srv.Client()}

	sc, err := src.Fetch(context.Background(), "3")
	require.NoError(t, err)
	assert.Equal(t, "night raid", sc.Name)
}

func TestHTTPSource_Errors(t *testing.T) {
	srv := newScenarioServer(t)
	src := scenario.HTTPSource{BaseURL: srv.URL + "/scenarios/", Client: srv.Client()}

	_, err := src.Fetch(context.Background(), "9")
	assert.ErrorIs(t, err, scenario.ErrNotFound)

	_, err = src.Fetch(context.Background(), "boom")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")

	_, err = src.Fetch(context.Background(), "huge")
	assert.ErrorContains(t, err, "exceeds")

	_, err = src.Fetch(context.Background(), "")
	assert.ErrorIs(t, err, scenario.ErrNotFound)
}

func TestCatalog_Resolve(t *testing.T) {
	c := scenario.Catalog{Count: 10, Default: 1}
	assert.Equal(t, "4", c.Resolve(4))
	assert.Equal(t, "10", c.Resolve(10))
	assert.Equal(t, "1", c.Resolve(0))
	assert.Equal(t, "1", c.Resolve(11))
	assert.Equal(t, "1", c.Resolve(scenario.ParseChoice("banana")))
	assert.Equal(t, "7", c.Resolve(scenario.ParseChoice(" 7\n")))
	assert.Len(t, c.Refs(), 10)
}

func TestProperty_CatalogAlwaysInRange(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		count := rapid.IntRange(1, 50).Draw(rt, "count")
		def := rapid.IntRange(1, count).Draw(rt, "default")
		choice := rapid.Int().Draw(rt, "choice")
		c := scenario.Catalog{Count: count, Default: def}
		assert.Contains(rt, c.Refs(), c.Resolve(choice))
	})
}

func TestNewSource_FromConfig(t *testing.T) {
	src := scenario.NewSource(config.ScenarioConfig{Dir: "scenarios"})
	assert.Equal(t, scenario.FileSource{Dir: "scenarios"}, src)

	src = scenario.NewSource(config.ScenarioConfig{BaseURL: "http://example.test", Timeout: 3 * time.Second})
	hs, ok := src.(scenario.HTTPSource)
	require.True(t, ok)
	assert.Equal(t, "http://example.test", hs.BaseURL)
	assert.Equal(t, 3*time.Second, hs.Client.Timeout)

	cat := scenario.NewCatalog(config.ScenarioConfig{Count: 10, DefaultChoice: 1})
	assert.Equal(t, scenario.Catalog{Count: 10, Default: 1}, cat)
}
