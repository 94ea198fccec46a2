package qr

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
)

// Generator renders table and session links as PNG QR codes.
type Generator interface {
	TablePNG(tableID uuid.UUID) ([]byte, error)
	SessionPNG(token string) ([]byte, error)
}

// PNGGenerator encodes links rooted at the customer-facing base URL.
type PNGGenerator struct {
	baseURL string
	size    int
}

func NewPNGGenerator(baseURL string) *PNGGenerator {
	return &PNGGenerator{baseURL: baseURL, size: 256}
}

// TableURL is the static link printed on a table. Scanning it starts or joins
// the table's QR session.
func (g *PNGGenerator) TableURL(tableID uuid.UUID) string {
	return fmt.Sprintf("%s/t/%s", g.baseURL, tableID)
}

// SessionURL points straight at an existing session.
func (g *PNGGenerator) SessionURL(token string) string {
	return fmt.Sprintf("%s/s/%s", g.baseURL, token)
}

func (g *PNGGenerator) TablePNG(tableID uuid.UUID) ([]byte, error) {
	return g.encode(g.TableURL(tableID))
}

func (g *PNGGenerator) SessionPNG(token string) ([]byte, error) {
	if token == "" {
		return nil, fmt.Errorf("empty session token")
	}
	return g.encode(g.SessionURL(token))
}

func (g *PNGGenerator) encode(url string) ([]byte, error) {
	png, err := qrcode.Encode(url, qrcode.Medium, g.size)
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}
	return png, nil
}
