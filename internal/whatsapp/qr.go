package whatsapp

import (
	"fmt"
	"io"
	"strings"

	"rsc.io/qr"
)

const quietZone = 2

// RenderQR draws the challenge with half-block characters, two module rows
// per text line. Light modules are drawn filled, which suits dark terminals.
func RenderQR(w io.Writer, text string) error {
	code, err := qr.Encode(text, qr.L)
	if err != nil {
		return fmt.Errorf("error encoding QR code: %w", err)
	}

	light := func(x, y int) bool { return !code.Black(x, y) }

	var b strings.Builder
	for y := -quietZone; y < code.Size+quietZone; y += 2 {
		for x := -quietZone; x < code.Size+quietZone; x++ {
			top, bottom := light(x, y), light(x, y+1)
			switch {
			case top && bottom:
				b.WriteRune('█')
			case top:
				b.WriteRune('▀')
			case bottom:
				b.WriteRune('▄')
			default:
				b.WriteRune(' ')
			}
		}
		b.WriteByte('\n')
	}

	_, err = io.WriteString(w, b.String())
	return err
}
