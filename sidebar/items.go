// Package sidebar renders the lobby navigation: a fixed, ordered set of
// route links grouped into sections, highlighted by the current path and
// disabled for anonymous visitors where a session is required.
package sidebar

import "strings"

// Section groups related entries.
type Section string

const (
	SectionAccount   Section = "account"
	SectionGames     Section = "games"
	SectionProviders Section = "providers"
)

// Item is a static navigation descriptor.
type Item struct {
	Href  string
	Icon  string
	Label string
	// RequiresSession disables the entry for anonymous visitors.
	RequiresSession bool
}

// Disabled evaluates the enabled predicate against the session state.
func (i Item) Disabled(authenticated bool) bool {
	return i.RequiresSession && !authenticated
}

// Group is an ordered list of entries in a section.
type Group struct {
	Section Section
	Items   []Item
}

// DefaultGroups returns the lobby navigation.
func DefaultGroups() []Group {
	return []Group{
		{
			Section: SectionAccount,
			Items: []Item{
				{Href: "/", Icon: "home", Label: "Home"},
				{Href: "/favourites", Icon: "star", Label: "Favourites", RequiresSession: true},
				{Href: "/recents", Icon: "time", Label: "Recents", RequiresSession: true},
				{Href: "/mybets", Icon: "dollar", Label: "My Bets", RequiresSession: true},
			},
		},
		{
			Section: SectionGames,
			Items: []Item{
				{Href: "/slots", Icon: "cards", Label: "Slots"},
				{Href: "/live-casino", Icon: "headphones", Label: "Live Casino"},
				{Href: "/blackjack", Icon: "handshake", Label: "Blackjack"},
				{Href: "/roulette", Icon: "roulette", Label: "Roulette"},
				{Href: "/game-shows", Icon: "game-shows", Label: "Game Shows"},
			},
		},
		{
			Section: SectionProviders,
			Items: []Item{
				{Href: "/providers", Icon: "providers", Label: "Providers"},
			},
		},
	}
}

// Find looks an entry up by href.
func Find(groups []Group, href string) (Item, bool) {
	href = normalizePath(href)
	for _, g := range groups {
		for _, it := range g.Items {
			if it.Href == href {
				return it, true
			}
		}
	}
	return Item{}, false
}

func normalizePath(p string) string {
	p = strings.TrimSpace(p)
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			p = "/"
		}
	}
	return p
}
