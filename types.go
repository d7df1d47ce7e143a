package fphome

import (
	"path"
	"time"
)

// HeroImage describes an uploaded, resized blog hero image.
type HeroImage struct {
	Filename     string
	OriginalName string
	Width        int
	Height       int
	Size         int
	UploadedAt   time.Time
}

// URL is the public path the image is served from.
func (h HeroImage) URL() string {
	return path.Join("/public", uploadsSubdir, h.Filename)
}
