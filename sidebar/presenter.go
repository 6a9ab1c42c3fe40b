package sidebar

import "strings"

// LargeBreakpoint is the viewport width at which the collapsed sidebar
// stays visible as an icon rail.
const LargeBreakpoint = 1024

// State is the input of Present.
type State struct {
	Expanded      bool
	Path          string
	Authenticated bool
	// Hovered is the href under the pointer, if any.
	Hovered string
}

// EntryView is a rendered navigation entry.
type EntryView struct {
	Href  string
	Icon  string
	Label string
	// Target is empty for disabled entries so they never navigate.
	Target      string
	Active      bool
	Disabled    bool
	TabIndex    int
	ShowLabel   bool
	ShowTooltip bool
	Classes     string
}

// AriaDisabled renders the aria-disabled attribute value.
func (e EntryView) AriaDisabled() string {
	if e.Disabled {
		return "true"
	}
	return "false"
}

// GroupView is a rendered section.
type GroupView struct {
	Section Section
	Entries []EntryView
}

// SportsPrefix is the path root of the sports book.
const SportsPrefix = "/sports"

// TabView is one of the header tabs switching between casino and sports.
type TabView struct {
	Href      string
	Icon      string
	Label     string
	Active    bool
	ShowLabel bool
	Classes   string
}

// HeaderView is the sidebar header.
type HeaderView struct {
	Tabs []TabView
}

// View is the rendered sidebar.
type View struct {
	Expanded      bool
	Classes       string
	Header        HeaderView
	Groups        []GroupView
	ShowBuyCrypto bool
}

// Entries flattens the view in render order.
func (v View) Entries() []EntryView {
	var out []EntryView
	for _, g := range v.Groups {
		out = append(out, g.Entries...)
	}
	return out
}

// Entry finds a rendered entry by href.
func (v View) Entry(href string) (EntryView, bool) {
	for _, e := range v.Entries() {
		if e.Href == href {
			return e, true
		}
	}
	return EntryView{}, false
}

// Present renders groups for st. Order is preserved and disabled entries
// stay visible.
func Present(groups []Group, st State) View {
	view := View{
		Expanded:      st.Expanded,
		ShowBuyCrypto: st.Expanded,
		Groups:        make([]GroupView, 0, len(groups)),
	}

	if st.Expanded {
		view.Classes = "w-full lg:w-64"
	} else {
		view.Classes = "hidden lg:block lg:w-16"
	}

	path := normalizePath(st.Path)
	view.Header = presentHeader(path, st.Expanded)

	hovered := ""
	if st.Hovered != "" {
		hovered = normalizePath(st.Hovered)
	}

	for _, g := range groups {
		gv := GroupView{Section: g.Section, Entries: make([]EntryView, 0, len(g.Items))}
		for _, it := range g.Items {
			gv.Entries = append(gv.Entries, presentEntry(it, st, path, hovered))
		}
		view.Groups = append(view.Groups, gv)
	}

	return view
}

func presentEntry(it Item, st State, path, hovered string) EntryView {
	disabled := it.Disabled(st.Authenticated)
	e := EntryView{
		Href:      it.Href,
		Icon:      it.Icon,
		Label:     it.Label,
		Disabled:  disabled,
		Active:    IsActive(it.Href, path),
		ShowLabel: st.Expanded,
	}

	if disabled {
		e.TabIndex = -1
	} else {
		e.Target = it.Href
	}

	e.ShowTooltip = !st.Expanded && !disabled && hovered != "" && hovered == it.Href

	classes := []string{"flex", "items-center", "gap-x-3"}
	if disabled {
		classes = append(classes, "pointer-events-none", "text-gray-500", "cursor-not-allowed")
	} else {
		classes = append(classes, "text-white", "hover:text-yellow-500")
	}
	if e.Active {
		classes = append(classes, "active")
	}
	if !st.Expanded {
		classes = append(classes, "justify-center")
	}
	e.Classes = strings.Join(classes, " ")

	return e
}

// IsSportsActive reports whether path belongs to the sports book.
func IsSportsActive(path string) bool {
	return IsActive(SportsPrefix, path)
}

func presentHeader(path string, expanded bool) HeaderView {
	sports := IsSportsActive(path)
	tabs := []TabView{
		{Href: "/", Icon: "dice", Label: "Casino", Active: !sports},
		{Href: SportsPrefix, Icon: "sports", Label: "Sports", Active: sports},
	}
	for i := range tabs {
		tabs[i].ShowLabel = expanded
		if tabs[i].Active {
			tabs[i].Classes = "bg-primary text-white"
		} else {
			tabs[i].Classes = "bg-gray-700 text-gray-300 hover:text-white"
		}
	}
	return HeaderView{Tabs: tabs}
}

// IsActive prefix matches path against the entry root. The root entry
// only matches itself.
func IsActive(href, path string) bool {
	href = normalizePath(href)
	path = normalizePath(path)

	if href == "/" {
		return path == "/"
	}
	return path == href || strings.HasPrefix(path, href+"/")
}

// ShouldCollapseOnNavigate reports whether following entry collapses the
// sidebar: only enabled entries on viewports narrower than LargeBreakpoint.
func ShouldCollapseOnNavigate(entry EntryView, viewportWidth int) bool {
	if entry.Disabled {
		return false
	}
	return viewportWidth > 0 && viewportWidth < LargeBreakpoint
}
