// Package qrcode renders the QR codes printed on dining tables. Scanning one
// opens the guest menu bound to that table.
package qrcode

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	goqr "github.com/skip2/go-qrcode"
)

// DefaultSize is the PNG edge length in pixels.
const DefaultSize = 256

var ErrMissingToken = errors.New("table has no qr token")

// MenuURL builds the link encoded in a table's QR code.
func MenuURL(baseURL string, tableNumber int, token string) (string, error) {
	if token == "" {
		return "", ErrMissingToken
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/menu")
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	q := u.Query()
	q.Set("table", strconv.Itoa(tableNumber))
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// PNG encodes content as a medium error-correction QR code.
func PNG(content string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultSize
	}
	png, err := goqr.Encode(content, goqr.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}

// TablePNG is MenuURL followed by PNG.
func TablePNG(baseURL string, tableNumber int, token string, size int) ([]byte, string, error) {
	link, err := MenuURL(baseURL, tableNumber, token)
	if err != nil {
		return nil, "", err
	}
	png, err := PNG(link, size)
	if err != nil {
		return nil, "", err
	}
	return png, link, nil
}
