package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/SAMS0N1TE/meshtui/pkg/maptiles"
)

// Theme bundles the lipgloss styles for one color scheme. Themes are
// cycled at runtime; the index is persisted in the config.
type Theme struct {
	Name string

	Header    lipgloss.Style
	Status    lipgloss.Style
	StatusBad lipgloss.Style
	Border    lipgloss.Style
	Self      lipgloss.Style
	Peer      lipgloss.Style
	System    lipgloss.Style
	Unread    lipgloss.Style
	Dim       lipgloss.Style

	mapColors map[maptiles.CellClass]lipgloss.Style
}

// MapStyle returns the style for one map cell class.
func (t Theme) MapStyle(c maptiles.CellClass) lipgloss.Style {
	if s, ok := t.mapColors[c]; ok {
		return s
	}
	return lipgloss.NewStyle()
}

func mapColors(water, land, park, road, building, marker, self, cursor string) map[maptiles.CellClass]lipgloss.Style {
	return map[maptiles.CellClass]lipgloss.Style{
		maptiles.ClassWater:    lipgloss.NewStyle().Foreground(lipgloss.Color(water)),
		maptiles.ClassLand:     lipgloss.NewStyle().Foreground(lipgloss.Color(land)),
		maptiles.ClassPark:     lipgloss.NewStyle().Foreground(lipgloss.Color(park)),
		maptiles.ClassRoad:     lipgloss.NewStyle().Foreground(lipgloss.Color(road)),
		maptiles.ClassBuilding: lipgloss.NewStyle().Foreground(lipgloss.Color(building)),
		maptiles.ClassNode:     lipgloss.NewStyle().Foreground(lipgloss.Color(marker)).Bold(true),
		maptiles.ClassSelf:     lipgloss.NewStyle().Foreground(lipgloss.Color(self)).Bold(true),
		maptiles.ClassCursor:   lipgloss.NewStyle().Foreground(lipgloss.Color(cursor)).Bold(true),
		maptiles.ClassError:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
}

var Themes = []Theme{
	{
		Name:      "dark",
		Header:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
		Status:    lipgloss.NewStyle().Foreground(lipgloss.Color("247")),
		StatusBad: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Border:    lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1),
		Self:      lipgloss.NewStyle().Foreground(lipgloss.Color("81")),
		Peer:      lipgloss.NewStyle().Foreground(lipgloss.Color("213")),
		System:    lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true),
		Unread:    lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true),
		Dim:       lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		mapColors: mapColors("27", "114", "40", "250", "137", "213", "81", "220"),
	},
	{
		Name:      "light",
		Header:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("21")),
		Status:    lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
		StatusBad: lipgloss.NewStyle().Foreground(lipgloss.Color("124")),
		Border:    lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("250")).Padding(0, 1),
		Self:      lipgloss.NewStyle().Foreground(lipgloss.Color("25")),
		Peer:      lipgloss.NewStyle().Foreground(lipgloss.Color("90")),
		System:    lipgloss.NewStyle().Foreground(lipgloss.Color("242")).Italic(true),
		Unread:    lipgloss.NewStyle().Foreground(lipgloss.Color("130")).Bold(true),
		Dim:       lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		mapColors: mapColors("25", "64", "28", "240", "94", "90", "25", "130"),
	},
	{
		Name:      "green",
		Header:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("40")),
		Status:    lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
		StatusBad: lipgloss.NewStyle().Foreground(lipgloss.Color("160")),
		Border:    lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("22")).Padding(0, 1),
		Self:      lipgloss.NewStyle().Foreground(lipgloss.Color("46")),
		Peer:      lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		System:    lipgloss.NewStyle().Foreground(lipgloss.Color("28")).Italic(true),
		Unread:    lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true),
		Dim:       lipgloss.NewStyle().Foreground(lipgloss.Color("22")),
		mapColors: mapColors("30", "40", "46", "242", "100", "226", "46", "201"),
	},
}
