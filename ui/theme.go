package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// CustomTheme enlarges the default theme's text.
type CustomTheme struct {
	fyne.Theme
	textSize float32
}

// NewCustomTheme creates a new instance of the custom theme.
func NewCustomTheme(textSize float32) fyne.Theme {
	return &CustomTheme{Theme: theme.DefaultTheme(), textSize: textSize}
}

// Size returns the text size for theme.SizeNameText and defers everything
// else to the default theme.
func (t *CustomTheme) Size(name fyne.ThemeSizeName) float32 {
	if name == theme.SizeNameText && t.textSize > 0 {
		return t.textSize
	}
	return t.Theme.Size(name)
}
