package ticketnumber

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"

	"github.com/skip2/go-qrcode"
)

// DefaultQRSize is the PNG edge length in pixels
const DefaultQRSize = 256

// QRPayload is the content encoded in the scannable code: the ticket number and nothing else
func QRPayload(ticketNumber string) string {
	return Normalize(ticketNumber)
}

// RenderQR returns a PNG of the ticket number
func RenderQR(ticketNumber string, size int) ([]byte, error) {
	payload := QRPayload(ticketNumber)
	if payload == "" {
		return nil, errors.New("ticket number is empty")
	}
	if size <= 0 {
		size = DefaultQRSize
	}

	qr, err := qrcode.New(payload, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr: %w", err)
	}

	buf := new(bytes.Buffer)
	if err := png.Encode(buf, qr.Image(size)); err != nil {
		return nil, fmt.Errorf("failed to write qr png: %w", err)
	}
	return buf.Bytes(), nil
}
