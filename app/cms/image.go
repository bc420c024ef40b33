package cms

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"inkwell/app/models"
)

const defaultImageBaseURL = "https://cdn.sanity.io"

// ImageURLBuilder resolves image asset references to CDN URLs.
type ImageURLBuilder struct {
	ProjectID string
	Dataset   string
	BaseURL   string
}

// ImageOption adds a transformation parameter to an image URL.
type ImageOption func(url.Values)

// Width scales the image to w pixels wide.
func Width(w int) ImageOption {
	return func(v url.Values) { v.Set("w", strconv.Itoa(w)) }
}

// Height scales the image to h pixels high.
func Height(h int) ImageOption {
	return func(v url.Values) { v.Set("h", strconv.Itoa(h)) }
}

// Fit sets the resize mode, e.g. "crop" or "max".
func Fit(mode string) ImageOption {
	return func(v url.Values) { v.Set("fit", mode) }
}

// URL returns the CDN address of img, or "" when the reference cannot be
// parsed.
func (b ImageURLBuilder) URL(img models.Image, opts ...ImageOption) string {
	id, dims, ext, ok := parseAssetRef(img.Asset.Ref)
	if !ok || b.ProjectID == "" {
		return ""
	}
	base := b.BaseURL
	if base == "" {
		base = defaultImageBaseURL
	}
	u := fmt.Sprintf("%s/images/%s/%s/%s-%s.%s", strings.TrimRight(base, "/"), b.ProjectID, b.Dataset, id, dims, ext)
	if len(opts) == 0 {
		return u
	}
	v := url.Values{}
	for _, opt := range opts {
		opt(v)
	}
	return u + "?" + v.Encode()
}

// parseAssetRef splits "image-<id>-<w>x<h>-<ext>".
func parseAssetRef(ref string) (id, dims, ext string, ok bool) {
	parts := strings.Split(ref, "-")
	if len(parts) != 4 || parts[0] != "image" || parts[1] == "" || parts[3] == "" {
		return "", "", "", false
	}
	w, h, found := strings.Cut(parts[2], "x")
	if !found {
		return "", "", "", false
	}
	if _, err := strconv.Atoi(w); err != nil {
		return "", "", "", false
	}
	if _, err := strconv.Atoi(h); err != nil {
		return "", "", "", false
	}
	return parts[1], parts[2], parts[3], true
}
