package main

import "github.com/skip2/go-qrcode"

// joinCodeQR renders a match's six-letter join code as a PNG a client can
// display for a second player to scan (spec §6.2 gives the code, not the
// scannable form; the out-of-scope 3D client just needs bytes to show).
func joinCodeQR(code string, size int) ([]byte, error) {
	return qrcode.Encode(code, qrcode.Medium, size)
}
