package styles

// DefaultTheme is the baseline dark palette.
var DefaultTheme = Theme{
	Name:        "default",
	BorderStyle: "rounded",
	Base: BaseColors{
		Background: "234",
		Foreground: "252",
		Muted:      "245",
		Accent:     "75",
		Border:     "240",
		Error:      "203",
	},
	Status: StatusColors{
		Online:  "41",
		Offline: "243",
	},
	Chrome: ChromeColors{
		Header:       "111",
		Footer:       "110",
		Title:        "109",
		SelectedItem: "75",
		Cursor:       "214",
	},
	Borders: BorderColors{
		ActivePane:   "75",
		InactivePane: "240",
		Divider:      "238",
	},
}
