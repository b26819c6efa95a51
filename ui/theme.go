package ui

import (
	"image/color"

	"KitchenTimers/timer"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

var (
	tomato     = color.NRGBA{R: 0xE8, G: 0x5D, B: 0x3F, A: 0xFF}
	basil      = color.NRGBA{R: 0x4C, G: 0x9A, B: 0x5B, A: 0xFF}
	butter     = color.NRGBA{R: 0xE9, G: 0xB9, B: 0x4A, A: 0xFF}
	cardColour = color.NRGBA{R: 0x2B, G: 0x2B, B: 0x2B, A: 0xFF}
)

// KitchenTheme is the default fyne theme with the app's accent colours.
type KitchenTheme struct {
	fyne.Theme
}

// NewKitchenTheme creates a new instance of the theme.
func NewKitchenTheme() fyne.Theme {
	return &KitchenTheme{Theme: theme.DefaultTheme()}
}

// Color overrides the accent colours and defers the rest to the default.
func (t *KitchenTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNamePrimary, theme.ColorNameFocus:
		return tomato
	case theme.ColorNameSuccess:
		return basil
	}
	return t.Theme.Color(name, variant)
}

// phaseColour tints a timer card by phase.
func phaseColour(p timer.Phase) color.Color {
	switch p {
	case timer.PhaseRunning:
		return basil
	case timer.PhasePaused:
		return butter
	case timer.PhaseFinished:
		return tomato
	default:
		return cardColour
	}
}
