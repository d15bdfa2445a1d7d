package engine

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/easton-heights/pkg/actor"
	"github.com/jwebster45206/easton-heights/pkg/catalog"
	"github.com/jwebster45206/easton-heights/pkg/conditionals"
	"github.com/jwebster45206/easton-heights/pkg/state"
)

// scriptedSource replays fixed values. Shuffle leaves order untouched.
type scriptedSource struct {
	floats []float64
	ints   []int
}

func (s *scriptedSource) Float64() float64 {
	if len(s.floats) == 0 {
		return 0
	}
	v := s.floats[0]
	s.floats = s.floats[1:]
	return v
}

func (s *scriptedSource) Intn(n int) int {
	if len(s.ints) == 0 {
		return 0
	}
	v := s.ints[0]
	s.ints = s.ints[1:]
	return v % n
}

func (s *scriptedSource) Shuffle(int, func(i, j int)) {}

func newWorld(names ...string) *state.WorldState {
	ws := state.NewWorldState("Old Mall")
	for _, n := range names {
		ws.Players = append(ws.Players, actor.New(n, nil, nil))
	}
	return ws
}

func weight(w float64) *float64 { return &w }

func tmpl(id string, participants int, effects ...catalog.Effect) *catalog.Template {
	return &catalog.Template{
		ID:           id,
		Category:     "test",
		Participants: participants,
		Effects:      effects,
		Text:         "{A} meets {B}",
	}
}

func TestAdvanceRound_TwoAliveSingleTemplate(t *testing.T) {
	ws := newWorld("A", "B")
	only := tmpl("meet", 2)
	eng := New(NewSource(7), Options{}, nil)

	round, outcome := eng.AdvanceRound(ws, catalog.Catalog{only})
	require.Equal(t, OutcomeOK, outcome)
	require.NotNil(t, round)

	assert.Equal(t, "meet", round.TemplateID)
	assert.ElementsMatch(t, []string{"A", "B"}, round.Participants)
	assert.Equal(t, 1, round.Turn)
	assert.Equal(t, 1, ws.Turn)
}

func TestAdvanceRound_InsufficientParticipants(t *testing.T) {
	ws := newWorld("A", "B", "C")
	ws.Players[1].Kill()
	ws.Players[2].Kill()
	cat := catalog.Catalog{tmpl("solo", 1), tmpl("duo", 2)}

	round, outcome := New(NewSource(1), Options{}, nil).AdvanceRound(ws, cat)
	assert.Nil(t, round)
	assert.Equal(t, OutcomeInsufficient, outcome)
	assert.Equal(t, 0, ws.Turn)
}

func TestAdvanceRound_EmptyCatalog(t *testing.T) {
	ws := newWorld("A", "B")
	round, outcome := New(NewSource(1), Options{}, nil).AdvanceRound(ws, nil)
	assert.Nil(t, round)
	assert.Equal(t, OutcomeNoEligible, outcome)
}

func TestCooldownGate_ExcludedUntilTicked(t *testing.T) {
	ws := newWorld("A", "B")
	ambush := tmpl("ambush", 2)
	ambush.Conditions.CooldownTag = "ambush"
	ws.Cooldowns["ambush"] = 2
	cat := catalog.Catalog{ambush}
	eng := New(NewSource(1), Options{}, nil)

	assert.Empty(t, eng.BuildPool(ws, cat, 2))

	ws.TickCooldowns()
	assert.Empty(t, eng.BuildPool(ws, cat, 2))

	ws.TickCooldowns()
	assert.Equal(t, 0, ws.Cooldowns["ambush"])
	assert.Len(t, eng.BuildPool(ws, cat, 2), 1)

	ws.TickCooldowns()
	assert.Equal(t, 0, ws.Cooldowns["ambush"], "ticking must not go below zero")
}

func TestAdvanceRound_TicksCooldownsFirst(t *testing.T) {
	ws := newWorld("A", "B")
	ambush := tmpl("ambush", 2, catalog.StartCooldown{Tag: "ambush", Turns: 2})
	ambush.Conditions.CooldownTag = "ambush"
	eng := New(NewSource(3), Options{MaxAttempts: 3}, nil)
	cat := catalog.Catalog{ambush}

	_, outcome := eng.AdvanceRound(ws, cat)
	require.Equal(t, OutcomeOK, outcome)
	assert.Equal(t, 2, ws.Cooldowns["ambush"])

	// 2 -> 1 on the next round, still blocked.
	_, outcome = eng.AdvanceRound(ws, cat)
	assert.Equal(t, OutcomeNoEligible, outcome)

	// 1 -> 0, eligible again.
	_, outcome = eng.AdvanceRound(ws, cat)
	assert.Equal(t, OutcomeOK, outcome)
}

func TestRollCombat_ScriptedCoins(t *testing.T) {
	ws := newWorld("A", "B")
	rng := &scriptedSource{floats: []float64{0.0, 0.0}}
	eng := New(rng, Options{}, nil)
	fight := tmpl("fight", 2, catalog.RollCombat{A: catalog.TokenA, B: catalog.TokenB})

	trace := eng.ApplyEffects(ws, fight, ws.Players)

	assert.True(t, ws.Players[0].Alive)
	assert.False(t, ws.Players[1].Alive)
	require.Len(t, trace, 1)
	assert.Equal(t, "combat:A kills B", trace[0])
}

func TestRollCombat_NonLethal(t *testing.T) {
	ws := newWorld("A", "B")
	rng := &scriptedSource{floats: []float64{0.9, 0.9}}
	eng := New(rng, Options{}, nil)
	fight := tmpl("fight", 2, catalog.RollCombat{A: catalog.TokenA, B: catalog.TokenB})

	trace := eng.ApplyEffects(ws, fight, ws.Players)

	assert.True(t, ws.Players[0].Alive)
	assert.True(t, ws.Players[1].Alive)
	assert.True(t, ws.Players[0].Flags.Has(actor.FlagInjured))
	assert.Equal(t, []string{"combat:B injures A"}, trace)
}

func TestRelationshipGate_RejectedInPhaseTwo(t *testing.T) {
	ws := newWorld("A", "B")
	allies := tmpl("allies_only", 2)
	allies.Conditions.Relationship = "allies"
	cat := catalog.Catalog{allies}
	eng := New(NewSource(5), Options{MaxAttempts: 5}, nil)

	// Phase 1 keeps it.
	assert.Len(t, eng.BuildPool(ws, cat, 2), 1)

	// Phase 2 rejects it for strangers.
	sel, outcome := eng.Select(ws, cat)
	assert.Equal(t, OutcomeNoEligible, outcome)
	assert.Nil(t, sel.Template)
	assert.False(t, IsEligible(ws, allies, ws.Players))

	ws.SetRelationship("B", "A", "allies")
	sel, outcome = eng.Select(ws, cat)
	require.Equal(t, OutcomeOK, outcome)
	assert.Equal(t, "allies_only", sel.Template.ID)
}

func TestSelect_SinglePhaseBurnsAttempt(t *testing.T) {
	ws := newWorld("A", "B")
	allies := tmpl("allies_only", 2)
	allies.Conditions.Relationship = "allies"
	open := tmpl("open", 2)
	open.Weight = weight(1)
	allies.Weight = weight(1)
	cat := catalog.Catalog{allies, open}

	// First draw lands on allies_only (r=0.1 of total 2), second on open (r=1.8).
	rng := &scriptedSource{floats: []float64{0.05, 0.9}}
	eng := New(rng, Options{SinglePhase: true, MaxAttempts: 2}, nil)

	sel, outcome := eng.Select(ws, cat)
	require.Equal(t, OutcomeOK, outcome)
	assert.Equal(t, "open", sel.Template.ID)
}

func TestSelect_PrefersDuoCount(t *testing.T) {
	ws := newWorld("A", "B", "C", "D")
	cat := catalog.Catalog{tmpl("solo", 1), tmpl("duo", 2), tmpl("trio", 3)}
	eng := New(NewSource(11), Options{}, nil)

	for range 20 {
		sel, outcome := eng.Select(ws, cat)
		require.Equal(t, OutcomeOK, outcome)
		assert.Equal(t, "duo", sel.Template.ID)
	}
}

func TestSelect_UniformCountWithoutDuo(t *testing.T) {
	ws := newWorld("A", "B", "C")
	cat := catalog.Catalog{tmpl("solo", 1), tmpl("trio", 3)}
	rng := &scriptedSource{ints: []int{1}}
	eng := New(rng, Options{}, nil)

	sel, outcome := eng.Select(ws, cat)
	require.Equal(t, OutcomeOK, outcome)
	assert.Equal(t, "trio", sel.Template.ID)
	assert.Len(t, sel.Participants, 3)
}

func TestSelect_CountTooLargeForSurvivors(t *testing.T) {
	ws := newWorld("A", "B")
	cat := catalog.Catalog{tmpl("trio", 3)}

	_, outcome := New(NewSource(2), Options{MaxAttempts: 4}, nil).Select(ws, cat)
	assert.Equal(t, OutcomeNoEligible, outcome)
}

// Count match and liveness hold over a long random run.
func TestSelect_CountMatchAndLiveness(t *testing.T) {
	cat := catalog.Catalog{
		tmpl("solo", 1, catalog.Injure{Who: catalog.TokenA, Severity: catalog.SeverityLethalHitCheck}),
		tmpl("duo", 2, catalog.RollCombat{A: catalog.TokenA, B: catalog.TokenB}),
		tmpl("trio", 3, catalog.Heal{Who: catalog.TokenC}),
	}

	for seed := int64(1); seed <= 20; seed++ {
		ws := newWorld("A", "B", "C", "D", "E", "F")
		eng := New(NewSource(seed), Options{RecountEachAttempt: true}, nil)

		for !ws.Terminated() {
			sel, outcome := eng.Select(ws, cat)
			require.Equal(t, OutcomeOK, outcome)
			require.Len(t, sel.Participants, sel.Template.Participants)
			for _, p := range sel.Participants {
				require.True(t, p.Alive, "sampled dead participant %s", p.Name)
			}
			eng.ApplyEffects(ws, sel.Template, sel.Participants)
		}

		_, outcome := eng.AdvanceRound(ws, cat)
		assert.Equal(t, OutcomeInsufficient, outcome)
	}
}

func TestDrawWeighted_FollowsWeights(t *testing.T) {
	heavy, light := tmpl("heavy", 2), tmpl("light", 2)
	heavy.Weight, light.Weight = weight(9), weight(1)
	eng := New(NewSource(42), Options{}, nil)
	pool := []Candidate{{heavy, 9}, {light, 1}}

	counts := map[string]int{}
	for range 5000 {
		counts[eng.drawWeighted(pool).ID]++
	}
	ratio := float64(counts["heavy"]) / float64(counts["light"])
	if ratio < 6 || ratio > 13 {
		t.Fatalf("heavy:light ratio out of bounds: %.2f (%v)", ratio, counts)
	}
}

func TestBuildPool_Weights(t *testing.T) {
	ws := newWorld("A", "B")
	declared, undeclared := tmpl("declared", 2), tmpl("undeclared", 2)
	declared.Weight = weight(2.5)
	cat := catalog.Catalog{declared, undeclared, tmpl("solo", 1)}

	pool := New(NewSource(1), Options{}, nil).BuildPool(ws, cat, 2)
	require.Len(t, pool, 2)
	assert.Equal(t, 2.5, pool[0].Weight)
	assert.Equal(t, catalog.DefaultWeight, pool[1].Weight)

	uniform := New(NewSource(1), Options{UniformDraw: true}, nil).BuildPool(ws, cat, 2)
	for _, c := range uniform {
		assert.Equal(t, 1.0, c.Weight)
	}
}

func TestBuildPool_SceneGates(t *testing.T) {
	ws := newWorld("A", "B")
	ws.Scene.Range = "far"

	atMall := tmpl("mall", 2)
	atMall.Conditions.LocationsAny = []string{"Old Mall"}
	atSchool := tmpl("school", 2)
	atSchool.Conditions.LocationsAny = []string{"Old School"}
	inFoodCourt := tmpl("food_court", 2)
	inFoodCourt.Conditions.ZoneAny = []string{"food court"}
	closeOnly := tmpl("close", 2)
	closeOnly.Conditions.Range = "close"
	anyRange := tmpl("any_range", 2)
	anyRange.Conditions.Range = state.RangeAny
	night := tmpl("night", 2)
	night.Conditions.FlagsAny = []string{"night", "fog"}

	cat := catalog.Catalog{atMall, atSchool, inFoodCourt, closeOnly, anyRange, night}
	eng := New(NewSource(1), Options{}, nil)

	ids := func() []string {
		var out []string
		for _, c := range eng.BuildPool(ws, cat, 2) {
			out = append(out, c.Template.ID)
		}
		return out
	}

	assert.Equal(t, []string{"mall", "food_court", "any_range"}, ids())

	ws.EnvFlags.Add("fog")
	assert.Contains(t, ids(), "night")

	ws.Move("Old School")
	assert.Equal(t, "hallway", ws.Scene.Zone)
	got := ids()
	assert.Contains(t, got, "school")
	assert.NotContains(t, got, "mall")
	assert.NotContains(t, got, "food_court")
}

func TestBuildPool_WhenExpression(t *testing.T) {
	ws := newWorld("A", "B", "C")
	late := tmpl("late", 2)
	late.Conditions.When = `turn >= 2 && alive <= 3 && "night" in env`
	require.NoError(t, late.Conditions.Compile())
	cat := catalog.Catalog{late}
	eng := New(NewSource(1), Options{}, nil)

	assert.Empty(t, eng.BuildPool(ws, cat, 2))

	ws.Turn = 2
	ws.EnvFlags.Add("night")
	assert.Len(t, eng.BuildPool(ws, cat, 2), 1)
}

func TestIsEligible_ParticipantGates(t *testing.T) {
	ws := state.NewWorldState("Old Mall")
	ninja := actor.New("Ana", []string{"Ninja"}, []string{"class:melee:cutting"})
	brute := actor.New("Diego", []string{"Fighter", "Villain"}, nil)
	ws.Players = actor.Roster{ninja, brute}

	tests := []struct {
		name  string
		cond  conditionals.Conditions
		parts []*actor.Character
		want  bool
	}{
		{"no conditions", conditionals.Conditions{}, []*actor.Character{ninja, brute}, true},
		{"requires trait held", conditionals.Conditions{RequiresTraitsAny: []string{"Runner", "Ninja"}}, []*actor.Character{ninja, brute}, true},
		{"requires trait missing", conditionals.Conditions{RequiresTraitsAny: []string{"Runner"}}, []*actor.Character{ninja, brute}, false},
		{"forbids trait held", conditionals.Conditions{ForbidsTraitsAny: []string{"Villain"}}, []*actor.Character{brute, ninja}, false},
		{"forbids trait only on B", conditionals.Conditions{ForbidsTraitsAny: []string{"Villain"}}, []*actor.Character{ninja, brute}, true},
		{"item held", conditionals.Conditions{ItemsAny: []string{"class:melee:cutting"}}, []*actor.Character{ninja, brute}, true},
		{"item missing", conditionals.Conditions{ItemsAny: []string{"class:firearm:smg"}}, []*actor.Character{ninja, brute}, false},
		{"count mismatch", conditionals.Conditions{}, []*actor.Character{ninja}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tm := tmpl("t", 2)
			tm.Conditions = tt.cond
			if got := IsEligible(ws, tm, tt.parts); got != tt.want {
				t.Errorf("IsEligible() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSample_FairShuffleKeepsMembers(t *testing.T) {
	ws := newWorld("A", "B", "C", "D", "E")
	eng := New(NewSource(9), Options{}, nil)
	alive := ws.Players.Alive()

	for range 50 {
		got := eng.sample(alive, 3)
		require.Len(t, got, 3)
		names := []string{got[0].Name, got[1].Name, got[2].Name}
		slices.Sort(names)
		assert.Len(t, slices.Compact(names), 3, "sample must not repeat a character")
	}
	assert.Equal(t, "A", alive[0].Name, "sampling must not reorder the roster")
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "ok", OutcomeOK.String())
	assert.Equal(t, "no_eligible_event", OutcomeNoEligible.String())
	assert.Equal(t, "insufficient_participants", OutcomeInsufficient.String())
}
