package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/easton-heights/internal/config"
	"github.com/jwebster45206/easton-heights/pkg/actor"
	"github.com/jwebster45206/easton-heights/pkg/catalog"
	"github.com/jwebster45206/easton-heights/pkg/engine"
	"github.com/jwebster45206/easton-heights/pkg/state"
	"github.com/jwebster45206/easton-heights/pkg/storage"
)

func testCatalog() catalog.Catalog {
	return catalog.Catalog{
		{ID: "meet", Participants: 2, Text: "{A} meets {B}."},
		{ID: "talk", Participants: 2, Text: "{A} talks to {B}.",
			Effects: catalog.Effects{catalog.SetRelationship{A: catalog.TokenA, B: catalog.TokenB, Type: "allies"}}},
	}
}

func newSession(t *testing.T, names ...string) *Session {
	t.Helper()
	ws := state.NewWorldState("Old Mall")
	for _, n := range names {
		ws.Players = append(ws.Players, actor.New(n, nil, nil))
	}
	s, err := New(ws, testCatalog(), engine.New(engine.NewSource(1), engine.Options{}, nil), nil)
	require.NoError(t, err)
	return s
}

func TestNew_RejectsSmallRoster(t *testing.T) {
	ws := state.NewWorldState("Old Mall")
	ws.Players = actor.Roster{actor.New("Ana", nil, nil)}

	_, err := New(ws, testCatalog(), nil, nil)
	assert.ErrorIs(t, err, ErrRosterTooSmall)
}

func TestSession_RollAndHistory(t *testing.T) {
	s := newSession(t, "Ana", "Beto", "Carla")

	assert.Nil(t, s.Current())
	assert.Nil(t, s.Back())
	pos, total := s.Position()
	assert.Equal(t, 0, pos)
	assert.Equal(t, 0, total)

	for i := 1; i <= 3; i++ {
		round, outcome := s.Roll()
		require.Equal(t, engine.OutcomeOK, outcome)
		assert.Equal(t, i, round.Turn)
		assert.Same(t, round, s.Current())
	}

	assert.Equal(t, 2, s.Back().Turn)
	assert.Equal(t, 1, s.Back().Turn)
	assert.Equal(t, 1, s.Back().Turn, "back stops at the first round")
	pos, total = s.Position()
	assert.Equal(t, 1, pos)
	assert.Equal(t, 3, total)

	assert.Equal(t, 2, s.Forward().Turn)
	assert.Equal(t, 3, s.Forward().Turn)
	assert.Equal(t, 3, s.Forward().Turn, "forward stops at the latest round")

	// Browsing is read-only.
	var turn int
	s.View(func(ws *state.WorldState) { turn = ws.Turn })
	assert.Equal(t, 3, turn)

	s.Back()
	round, _ := s.Roll()
	assert.Same(t, round, s.Current(), "a new round jumps the cursor to the end")
	assert.Len(t, s.Feed(), 4)
}

func TestSession_Terminated(t *testing.T) {
	s := newSession(t, "Ana", "Beto")
	s.View(func(ws *state.WorldState) { ws.Players[0].Kill() })

	assert.True(t, s.Terminated())
	round, outcome := s.Roll()
	assert.Nil(t, round)
	assert.Equal(t, engine.OutcomeInsufficient, outcome)
	assert.Empty(t, s.Feed())
}

func TestSession_RosterEdits(t *testing.T) {
	s := newSession(t, "Ana", "Beto")

	err := s.RemoveCharacter("Ana")
	assert.ErrorIs(t, err, ErrRosterTooSmall)

	require.NoError(t, s.AddCharacter(actor.New("Carla", []string{"Genius"}, nil)))
	assert.ErrorIs(t, s.AddCharacter(actor.New("Carla", nil, nil)), ErrDuplicateCharacter)
	assert.Error(t, s.AddCharacter(actor.New(" ", nil, nil)))

	require.NoError(t, s.RemoveCharacter("Ana"))
	assert.ErrorIs(t, s.RemoveCharacter("Ana"), ErrCharacterNotFound)

	var names []string
	s.View(func(ws *state.WorldState) {
		for _, c := range ws.Players {
			names = append(names, c.Name)
		}
	})
	assert.Equal(t, []string{"Beto", "Carla"}, names)
}

func TestRestore_CursorOnLatest(t *testing.T) {
	ws := state.NewDefault()
	feed := []*engine.Round{{Turn: 1}, {Turn: 2}}

	s, err := Restore(ws, feed, testCatalog(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Current().Turn)
	assert.Equal(t, 1, s.Back().Turn)
}

func TestManager(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMockStorage()
	m := NewManager(store, testCatalog(), engine.New(engine.NewSource(3), engine.Options{}, nil), nil)

	s, err := m.Create(ctx, nil, SceneEdit{Location: "Old School", Range: "far", EnvFlags: map[string]bool{"rain": true}})
	require.NoError(t, err)
	var scene state.Scene
	var rain bool
	s.View(func(ws *state.WorldState) {
		scene = ws.Scene
		rain = ws.HasEnvFlag("rain")
	})
	assert.Equal(t, state.Scene{Location: "Old School", Zone: "hallway", Range: "far"}, scene)
	assert.True(t, rain)

	_, round, outcome, err := m.Roll(ctx, s.ID())
	require.NoError(t, err)
	require.Equal(t, engine.OutcomeOK, outcome)
	assert.Equal(t, 1, round.Turn)

	feed, err := store.LoadFeed(ctx, s.ID())
	require.NoError(t, err)
	assert.Len(t, feed, 1)

	loaded, err := m.Load(ctx, s.ID())
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Current().Turn)

	_, err = m.Update(ctx, s.ID(), func(s *Session) error {
		return s.AddCharacter(actor.New("Gabi", nil, nil))
	})
	require.NoError(t, err)
	ws, err := store.LoadWorldState(ctx, s.ID())
	require.NoError(t, err)
	assert.NotNil(t, ws.Players.Find("Gabi"))

	_, err = m.Update(ctx, s.ID(), func(s *Session) error {
		return s.EditScene(SceneEdit{Zone: "gym", EnvFlags: map[string]bool{"rain": false, "night": true}})
	})
	require.NoError(t, err)
	ws, err = store.LoadWorldState(ctx, s.ID())
	require.NoError(t, err)
	assert.Equal(t, "gym", ws.Scene.Zone)
	assert.Equal(t, []string{"night"}, ws.EnvFlags.Sorted())

	require.NoError(t, m.Delete(ctx, s.ID()))
	_, err = m.Load(ctx, s.ID())
	assert.True(t, errors.Is(err, storage.ErrSessionNotFound))
}

func TestNewEngine(t *testing.T) {
	eng := NewEngine(&config.Config{Seed: 42, MaxAttempts: 7, SinglePhase: true}, nil)
	assert.Equal(t, engine.Options{MaxAttempts: 7, SinglePhase: true}, eng.Options())

	eng = NewEngine(&config.Config{MaxAttempts: 3, UniformDraw: true, RecountEachAttempt: true}, nil)
	assert.Equal(t, engine.Options{MaxAttempts: 3, UniformDraw: true, RecountEachAttempt: true}, eng.Options())
}

func TestManager_CreateValidation(t *testing.T) {
	m := NewManager(storage.NewMockStorage(), testCatalog(), engine.New(nil, engine.Options{}, nil), nil)
	ctx := context.Background()

	_, err := m.Create(ctx, nil, SceneEdit{Location: "Atlantis"})
	assert.ErrorIs(t, err, ErrUnknownLocation)

	_, err = m.Create(ctx, nil, SceneEdit{Location: "Deep Lake", Zone: "gym"})
	assert.ErrorIs(t, err, ErrInvalidScene)

	_, err = m.Create(ctx, actor.Roster{actor.New("Solo", nil, nil)}, SceneEdit{})
	assert.ErrorIs(t, err, ErrRosterTooSmall)
}

func TestSession_EditScene(t *testing.T) {
	tests := []struct {
		name    string
		edit    SceneEdit
		want    state.Scene
		wantErr error
	}{
		{
			name: "move lands in the first zone",
			edit: SceneEdit{Location: "Deep Lake"},
			want: state.Scene{Location: "Deep Lake", Zone: "pier", Range: "close"},
		},
		{
			name: "move with zone",
			edit: SceneEdit{Location: "Deep Lake", Zone: "shallows", Range: "far"},
			want: state.Scene{Location: "Deep Lake", Zone: "shallows", Range: "far"},
		},
		{
			name: "zone in the current location",
			edit: SceneEdit{Zone: "cinema hall"},
			want: state.Scene{Location: "Old Mall", Zone: "cinema hall", Range: "close"},
		},
		{
			name:    "zone from another location",
			edit:    SceneEdit{Zone: "pier"},
			wantErr: ErrInvalidScene,
		},
		{
			name:    "wildcard range",
			edit:    SceneEdit{Range: state.RangeAny},
			wantErr: ErrInvalidScene,
		},
		{
			name:    "unknown env flag",
			edit:    SceneEdit{Range: "far", EnvFlags: map[string]bool{"alarm": true}},
			wantErr: ErrInvalidScene,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSession(t, "Ana", "Beto")
			err := s.EditScene(tt.edit)

			var scene state.Scene
			s.View(func(ws *state.WorldState) { scene = ws.Scene })
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, state.Scene{Location: "Old Mall", Zone: "food court", Range: "close"}, scene, "a rejected edit changes nothing")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, scene)
		})
	}
}

func TestSession_FarTemplateNeedsFarRange(t *testing.T) {
	far := &catalog.Template{ID: "sniper", Participants: 2, Text: "{A} spots {B} across the lot."}
	far.Conditions.Range = "far"

	ws := state.NewWorldState("Old Mall")
	ws.Players = actor.Roster{actor.New("Ana", nil, nil), actor.New("Beto", nil, nil)}
	s, err := New(ws, catalog.Catalog{far}, engine.New(engine.NewSource(5), engine.Options{}, nil), nil)
	require.NoError(t, err)

	_, outcome := s.Roll()
	assert.Equal(t, engine.OutcomeNoEligible, outcome)

	require.NoError(t, s.EditScene(SceneEdit{Range: "far"}))
	round, outcome := s.Roll()
	require.Equal(t, engine.OutcomeOK, outcome)
	assert.Equal(t, "sniper", round.TemplateID)
}
