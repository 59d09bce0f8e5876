// Package urlstate keeps small pieces of state in the fragment of a URL,
// written as "#key=value&key2=value2", and renders share links as QR codes.
package urlstate

import (
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/skip2/go-qrcode"
)

// ProjectIDKey names the project to open.
const ProjectIDKey = "project_id"

// toInternal turns the fragment into a query so net/url can parse it. A
// real query in the input is dropped.
func toInternal(external string) (*url.URL, error) {
	if strings.Contains(external, "?") {
		log.Printf("[!] URL should not contain ?: %s", external)
		external = strings.Replace(external, "?", "", 1)
	}
	u, err := url.Parse(strings.Replace(external, "#", "?", 1))
	if err != nil {
		return nil, fmt.Errorf("parse url %q: %w", external, err)
	}
	return u, nil
}

func toExternal(u *url.URL, q url.Values) string {
	u.RawQuery = ""
	s := u.String()
	// Encode sorts by key.
	if enc := q.Encode(); enc != "" {
		s += "#" + enc
	}
	return s
}

// AddKeyVal sets key to val in the fragment of rawURL. An empty val
// removes the key.
func AddKeyVal(rawURL, key, val string) (string, error) {
	u, err := toInternal(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	if val != "" {
		q.Set(key, val)
	} else {
		q.Del(key)
	}
	return toExternal(u, q), nil
}

// ParamsFromString returns the fragment parameters of rawURL. An empty
// string has none.
func ParamsFromString(rawURL string) (map[string]string, error) {
	params := make(map[string]string)
	if rawURL == "" {
		return params, nil
	}
	u, err := toInternal(rawURL)
	if err != nil {
		return nil, err
	}
	for k, vs := range u.Query() {
		if len(vs) > 0 {
			params[k] = vs[0]
		}
	}
	return params, nil
}

// ProjectURL is the share link that opens projectID.
func ProjectURL(baseURL, projectID string) (string, error) {
	return AddKeyVal(baseURL, ProjectIDKey, projectID)
}

// QRCode encodes link as a PNG of size pixels.
func QRCode(link string, size int) ([]byte, error) {
	png, err := qrcode.Encode(link, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}
	return png, nil
}

// WriteQR writes the QR code of link to path as a PNG.
func WriteQR(path, link string, size int) error {
	if err := qrcode.WriteFile(link, qrcode.Medium, size, path); err != nil {
		return fmt.Errorf("write qr code %s: %w", path, err)
	}
	return nil
}
