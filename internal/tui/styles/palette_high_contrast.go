package styles

// HighContrastTheme favors legibility on low-quality terminals.
var HighContrastTheme = Theme{
	Name:        "high-contrast",
	BorderStyle: "sharp",
	Base: BaseColors{
		Background: "16",
		Foreground: "231",
		Muted:      "250",
		Accent:     "51",
		Border:     "231",
		Error:      "196",
	},
	Status: StatusColors{
		Online:  "46",
		Offline: "244",
	},
	Chrome: ChromeColors{
		Header:       "117",
		Footer:       "159",
		Title:        "195",
		SelectedItem: "51",
		Cursor:       "226",
	},
	Borders: BorderColors{
		ActivePane:   "231",
		InactivePane: "250",
		Divider:      "248",
	},
}
