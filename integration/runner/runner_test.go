package runner

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/easton-heights/internal/config"
	"github.com/jwebster45206/easton-heights/internal/handlers"
	"github.com/jwebster45206/easton-heights/internal/session"
	"github.com/jwebster45206/easton-heights/pkg/actor"
	"github.com/jwebster45206/easton-heights/pkg/catalog"
	"github.com/jwebster45206/easton-heights/pkg/engine"
	"github.com/jwebster45206/easton-heights/pkg/storage"
)

func ptr[T any](v T) *T { return &v }

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	cat := catalog.Catalog{
		{ID: "duel", Category: "combat", Participants: 2, Text: "{A} ends {B}.",
			Effects: catalog.Effects{catalog.Kill{Who: catalog.TokenB}}},
	}
	log := slog.New(slog.DiscardHandler)
	store := storage.NewMockStorage()
	store.AddPack("core", cat)
	mgr := session.NewManager(store, cat, engine.New(engine.NewSource(11), engine.Options{}, nil), log)
	cfg := &config.Config{AutoplayDelay: time.Millisecond, RateLimitRPS: 1000, RateLimitBurst: 1000}

	srv := httptest.NewServer(handlers.NewRouter(mgr, store, cfg, log))
	t.Cleanup(srv.Close)
	return srv
}

func trio() []*actor.Character {
	return []*actor.Character{
		actor.New("Ana", nil, nil),
		actor.New("Beto", nil, nil),
		actor.New("Carla", nil, nil),
	}
}

func TestRunSuite(t *testing.T) {
	srv := newServer(t)
	r := NewRunner(srv.URL + "/")
	r.Client = srv.Client()
	r.ErrorHandlingMode = ErrorHandlingExit

	suite := TestSuite{
		Name:       "lethal trio",
		Characters: trio(),
		Location:   "Old School",
		Steps: []TestStep{
			{Name: "first blood", Action: ActionRoll, Expectations: Expectations{
				Outcome: "ok", Turn: ptr(1), Rounds: ptr(1), Alive: ptr(2),
				Location: ptr("Old School"), TextContains: []string{"ends"},
			}},
			{Name: "newcomer", Action: ActionAdd, Character: actor.New("Zed", nil, nil), Expectations: Expectations{
				Status: ptr(http.StatusCreated), RosterContains: []string{"Zed"}, Alive: ptr(3),
			}},
			{Name: "newcomer leaves", Action: ActionRemove, Target: "Zed", Expectations: Expectations{
				Status: ptr(http.StatusOK), RosterExcludes: []string{"Zed"},
			}},
			{Name: "night falls", Action: ActionScene, Scene: &SceneChange{Range: "far", EnvFlags: map[string]bool{"night": true}}, Expectations: Expectations{
				Status: ptr(http.StatusOK), Range: ptr("far"), Location: ptr("Old School"),
			}},
			{Name: "play it out", Action: ActionAutoplay, Expectations: Expectations{
				Finished: ptr(true), Terminated: ptr(true), Alive: ptr(1), Rounds: ptr(2),
			}},
			{Name: "nothing left", Action: ActionRoll, Expectations: Expectations{
				Status: ptr(http.StatusConflict), Outcome: "insufficient_participants",
			}},
		},
	}

	result, err := r.RunSuite(context.Background(), suite)
	require.NoError(t, err)
	require.Len(t, result.Results, 6)
	for _, step := range result.Results {
		assert.True(t, step.Success, step.StepName)
	}
	assert.Equal(t, "nothing left", result.Results[5].StepName)

	// The runner cleans up after itself.
	resp, err := srv.Client().Get(srv.URL + sessionPath(result.Session))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRunSuite_FailedExpectation(t *testing.T) {
	srv := newServer(t)
	r := NewRunner(srv.URL)
	r.Client = srv.Client()

	suite := TestSuite{
		Name:       "wrong turn",
		Characters: trio(),
		Steps: []TestStep{
			{Name: "roll", Action: ActionRoll, Expectations: Expectations{Turn: ptr(5)}},
			{Name: "bogus", Action: "dance"},
			{Name: "still runs", Action: ActionGet, Expectations: Expectations{Turn: ptr(1)}},
		},
	}

	result, err := r.RunSuite(context.Background(), suite)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected turn 5, got 1")
	require.Len(t, result.Results, 3)
	assert.False(t, result.Results[0].Success)
	assert.Contains(t, result.Results[1].Error.Error(), `unknown action "dance"`)
	assert.True(t, result.Results[2].Success, "continue mode runs every step")
}

func TestRunSuite_CreateFails(t *testing.T) {
	srv := newServer(t)
	r := NewRunner(srv.URL)
	r.Client = srv.Client()

	_, err := r.RunSuite(context.Background(), TestSuite{Name: "nowhere", Location: "Atlantis"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create session returned 400")
}

func TestStreamAutoplay_Limit(t *testing.T) {
	srv := newServer(t)
	r := NewRunner(srv.URL)
	r.Client = srv.Client()
	id, err := r.createSession(context.Background(), TestSuite{Characters: append(trio(), actor.New("Diego", nil, nil))})
	require.NoError(t, err)

	msgs, err := StreamAutoplay(context.Background(), srv.URL, id, 1)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, handlers.MessageRound, msgs[0].Type)
}

func TestLoadTestSuiteWithExpansion(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		return path
	}
	write("one.json", `{"name": "one", "steps": [{"action": "roll"}]}`)
	write("two.json", `{"name": "two", "location": "Old Mall", "steps": [{"action": "get", "expect": {"location": "Old Mall"}}]}`)
	inner := write("inner.json", `{"name": "inner", "cases": ["two.json"]}`)
	seq := write("all.json", `{"name": "all", "cases": ["one.json", "inner.json"]}`)

	jobs, err := LoadTestSuiteWithExpansion(seq, dir)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "one", jobs[0].Name)
	assert.Equal(t, "two", jobs[1].Name)
	assert.Equal(t, "Old Mall", *jobs[1].Suite.Steps[0].Expectations.Location)

	jobs, err = LoadTestSuiteWithExpansion(inner, dir)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)

	write("broken.json", `{"name": "broken", "cases": ["missing.json"]}`)
	_, err = LoadTestSuiteWithExpansion(filepath.Join(dir, "broken.json"), dir)
	assert.Error(t, err)
}
