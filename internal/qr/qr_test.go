package qr

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestTablePNG(t *testing.T) {
	g := NewPNGGenerator("https://menu.example.com")
	id := uuid.New()

	assert.Equal(t, "https://menu.example.com/t/"+id.String(), g.TableURL(id))

	png, err := g.TablePNG(id)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, pngMagic))
}

func TestSessionPNG(t *testing.T) {
	g := NewPNGGenerator("https://menu.example.com")

	png, err := g.SessionPNG("abc123")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, pngMagic))

	_, err = g.SessionPNG("")
	assert.Error(t, err)
}
