package qr

import (
	"errors"

	"ms-engagement/internal/models"

	"github.com/skip2/go-qrcode"
)

const DefaultSize = 256

// Generator renders ticket and bonus-code QR images. The payload is the bare
// attendee id or bonus code, which is exactly what the scan endpoint accepts.
type Generator struct {
	size  int
	level qrcode.RecoveryLevel
}

func NewGenerator(size int) *Generator {
	if size <= 0 {
		size = DefaultSize
	}
	return &Generator{size: size, level: qrcode.Medium}
}

// TicketPNG renders the attendee's ticket code.
func (g *Generator) TicketPNG(attendee models.Attendee) ([]byte, error) {
	if attendee.ID == "" {
		return nil, errors.New("attendee id is required")
	}
	return qrcode.Encode(attendee.ID, g.level, g.size)
}

// BonusPNG renders a printable bonus code.
func (g *Generator) BonusPNG(bonus models.BonusCode) ([]byte, error) {
	if bonus.Code == "" {
		return nil, errors.New("bonus code is required")
	}
	return qrcode.Encode(bonus.Code, g.level, g.size)
}
