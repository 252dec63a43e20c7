package client

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/opsdrop/logzip/internal/ui"
)

// Fetch downloads the log archive at url to outputPath. An empty
// outputPath derives the name from the Content-Disposition header
// (falling back to logs.zip). Unless force is set, an existing
// destination is an error. progress may be nil.
func Fetch(url, outputPath string, force bool, progress io.Writer) (string, error) {
	resp, err := http.Get(url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			return "", fmt.Errorf("http status %d", resp.StatusCode)
		}
		return "", fmt.Errorf("http status %d: %s", resp.StatusCode, msg)
	}

	if outputPath == "" {
		outputPath = filenameFromResponse(resp)
		if outputPath == "" {
			outputPath = "logs.zip"
		}
	}
	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return "", errors.New("destination exists; use --force to overwrite")
		}
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var src io.Reader = resp.Body
	if progress != nil {
		src = &ui.ProgressReader{R: resp.Body, Total: resp.ContentLength, Out: progress}
	}
	if _, err := io.Copy(f, src); err != nil {
		os.Remove(outputPath)
		return "", err
	}
	return outputPath, nil
}

// filenameFromResponse pulls the filename out of an
// "attachment; filename=name" Content-Disposition header.
func filenameFromResponse(resp *http.Response) string {
	cd := resp.Header.Get("Content-Disposition")
	for _, part := range strings.Split(cd, ";") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(strings.ToLower(part), "filename=") {
			return strings.Trim(strings.TrimPrefix(part, "filename="), "\"")
		}
	}
	return ""
}
