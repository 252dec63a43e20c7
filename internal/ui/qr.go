package ui

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// PrintQR renders url as a terminal QR code so the download can be
// opened from a phone without typing the address.
func PrintQR(url string) error {
	q, err := qrcode.New(url, qrcode.Medium)
	if err != nil {
		return err
	}
	fmt.Print(q.ToSmallString(false))
	return nil
}
