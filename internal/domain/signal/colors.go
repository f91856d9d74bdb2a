package signal

// Palette shared by every resolver.
const (
	ColorRed        = "#CC0000"
	ColorOrange     = "#FF8000"
	ColorYellow     = "#FFFF00"
	ColorLightGreen = "#00CC00"
	ColorDarkGreen  = "#00FF00"
	ColorLightBlue  = "#0000CC"
	ColorDarkBlue   = "#0000FF"
	ColorPurple     = "#330033"
	ColorPink       = "#FF0066"
	ColorError      = "#FFFFFF"
)
