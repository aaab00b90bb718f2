package decode

// NormalizeColor reduces a stored color to #RRGGBB. Seven-character codes
// are returned unchanged; the doubled-channel form #RRRRGGGGBBBB keeps the
// high byte of each channel. Codes too short for either form are returned
// as they are.
func NormalizeColor(c string) string {
	if len(c) == 7 || len(c) < 11 {
		return c
	}
	return "#" + c[1:3] + c[5:7] + c[9:11]
}
