package sidebar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hrefs(v View) []string {
	var out []string
	for _, e := range v.Entries() {
		out = append(out, e.Href)
	}
	return out
}

func TestDefaultGroupsOrder(t *testing.T) {
	groups := DefaultGroups()
	require.Len(t, groups, 3)
	assert.Equal(t, SectionAccount, groups[0].Section)
	assert.Equal(t, SectionGames, groups[1].Section)
	assert.Equal(t, SectionProviders, groups[2].Section)

	view := Present(groups, State{})
	assert.Equal(t, []string{
		"/", "/favourites", "/recents", "/mybets",
		"/slots", "/live-casino", "/blackjack", "/roulette", "/game-shows",
		"/providers",
	}, hrefs(view))
}

func TestPresentDisablesSessionEntriesWhenAnonymous(t *testing.T) {
	view := Present(DefaultGroups(), State{Path: "/"})

	for _, href := range []string{"/favourites", "/recents", "/mybets"} {
		e, ok := view.Entry(href)
		require.True(t, ok, href)
		assert.True(t, e.Disabled, href)
		assert.Empty(t, e.Target, href)
		assert.Equal(t, -1, e.TabIndex, href)
		assert.Equal(t, "true", e.AriaDisabled())
		assert.Contains(t, e.Classes, "pointer-events-none")
	}

	home, _ := view.Entry("/")
	assert.False(t, home.Disabled)
	assert.Equal(t, "/", home.Target)
	assert.Equal(t, 0, home.TabIndex)
	assert.Equal(t, "false", home.AriaDisabled())

	authed := Present(DefaultGroups(), State{Path: "/", Authenticated: true})
	for _, e := range authed.Entries() {
		assert.False(t, e.Disabled, e.Href)
		assert.Equal(t, e.Href, e.Target)
	}
}

func TestIsActive(t *testing.T) {
	tests := []struct {
		href, path string
		want       bool
	}{
		{"/", "/", true},
		{"/", "/slots", false},
		{"/slots", "/slots", true},
		{"/slots", "/slots/", true},
		{"/slots", "/slots/book-of-dead", true},
		{"/slots", "/slotsmania", false},
		{"/slots", "/live-casino", false},
		{"/live-casino", "/live-casino?table=3", true},
		{"/mybets", "", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsActive(tt.href, tt.path), "%s vs %s", tt.href, tt.path)
	}
}

func TestPresentActiveEntry(t *testing.T) {
	view := Present(DefaultGroups(), State{Path: "/roulette/european"})

	var active []string
	for _, e := range view.Entries() {
		if e.Active {
			active = append(active, e.Href)
		}
	}
	assert.Equal(t, []string{"/roulette"}, active)
}

func TestPresentExpandedAndCollapsed(t *testing.T) {
	expanded := Present(DefaultGroups(), State{Expanded: true})
	assert.True(t, expanded.ShowBuyCrypto)
	assert.Equal(t, "w-full lg:w-64", expanded.Classes)
	for _, e := range expanded.Entries() {
		assert.True(t, e.ShowLabel)
		assert.NotContains(t, e.Classes, "justify-center")
	}

	collapsed := Present(DefaultGroups(), State{})
	assert.False(t, collapsed.ShowBuyCrypto)
	assert.Equal(t, "hidden lg:block lg:w-16", collapsed.Classes)
	for _, e := range collapsed.Entries() {
		assert.False(t, e.ShowLabel)
		assert.Contains(t, e.Classes, "justify-center")
	}
}

func TestPresentTooltip(t *testing.T) {
	tests := []struct {
		name  string
		state State
		href  string
		want  bool
	}{
		{"collapsed enabled hovered", State{Hovered: "/slots"}, "/slots", true},
		{"collapsed enabled not hovered", State{Hovered: "/slots"}, "/roulette", false},
		{"expanded hovered", State{Expanded: true, Hovered: "/slots"}, "/slots", false},
		{"collapsed disabled hovered", State{Hovered: "/mybets"}, "/mybets", false},
		{"collapsed no hover", State{}, "/slots", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, ok := Present(DefaultGroups(), tt.state).Entry(tt.href)
			require.True(t, ok)
			assert.Equal(t, tt.want, e.ShowTooltip)
		})
	}
}

func TestShouldCollapseOnNavigate(t *testing.T) {
	view := Present(DefaultGroups(), State{})
	slots, _ := view.Entry("/slots")
	bets, _ := view.Entry("/mybets")

	assert.True(t, ShouldCollapseOnNavigate(slots, 800))
	assert.False(t, ShouldCollapseOnNavigate(slots, 1024))
	assert.False(t, ShouldCollapseOnNavigate(slots, 0))
	assert.False(t, ShouldCollapseOnNavigate(bets, 800))
}

func TestFind(t *testing.T) {
	it, ok := Find(DefaultGroups(), "/game-shows/")
	require.True(t, ok)
	assert.Equal(t, "Game Shows", it.Label)

	_, ok = Find(DefaultGroups(), "/sports")
	assert.False(t, ok)
}

func TestPresentHeaderHighlightsSports(t *testing.T) {
	cases := []struct {
		path   string
		sports bool
	}{
		{"/", false},
		{"/slots", false},
		{"/sports", true},
		{"/sports/football/live", true},
		{"/sportsbook", false},
	}

	for _, tc := range cases {
		view := Present(DefaultGroups(), State{Path: tc.path, Expanded: true})
		require.Len(t, view.Header.Tabs, 2, tc.path)

		casino, sports := view.Header.Tabs[0], view.Header.Tabs[1]
		assert.Equal(t, "Casino", casino.Label)
		assert.Equal(t, SportsPrefix, sports.Href)
		assert.Equal(t, !tc.sports, casino.Active, tc.path)
		assert.Equal(t, tc.sports, sports.Active, tc.path)
		assert.Equal(t, tc.sports, IsSportsActive(tc.path), tc.path)
	}
}

func TestPresentHeaderCollapsedHidesLabels(t *testing.T) {
	view := Present(DefaultGroups(), State{Path: "/sports"})

	for _, tab := range view.Header.Tabs {
		assert.False(t, tab.ShowLabel, tab.Label)
	}
	assert.Contains(t, view.Header.Tabs[1].Classes, "bg-primary")
}
