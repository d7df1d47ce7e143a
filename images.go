package fphome

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
)

const (
	maxHeroWidth  = 1600
	jpegQuality   = 82
	maxUploadSize = 10 << 20 // 10MB
	uploadsSubdir = "uploads"
)

// processImage decodes an image from src, scales it down to maxHeroWidth
// when wider and encodes it as JPEG.
func processImage(src io.Reader, originalName string) (HeroImage, []byte, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return HeroImage{}, nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > maxHeroWidth {
		newH := h * maxHeroWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxHeroWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
		w = maxHeroWidth
		h = newH
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return HeroImage{}, nil, fmt.Errorf("encode jpeg: %w", err)
	}

	return HeroImage{
		Filename:     slugifyFilename(originalName) + ".jpg",
		OriginalName: originalName,
		Width:        w,
		Height:       h,
		Size:         buf.Len(),
		UploadedAt:   time.Now().UTC(),
	}, buf.Bytes(), nil
}

// slugifyFilename converts a filename (without extension) to a URL-safe
// slug. Names without usable characters become "image".
func slugifyFilename(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if s := Slugify(base); s != "" {
		return s
	}
	return "image"
}

// uniqueFilename appends a counter until filename is free in dir.
func uniqueFilename(dir, filename string) string {
	base := strings.TrimSuffix(filename, ".jpg")
	candidate := filename
	for counter := 2; ; counter++ {
		if _, err := os.Stat(filepath.Join(dir, candidate)); os.IsNotExist(err) {
			return candidate
		}
		candidate = fmt.Sprintf("%s-%d.jpg", base, counter)
	}
}

// handleImageUpload stores a resized hero image. When post_id is set the
// post's hero_image is pointed at the upload.
func (a *App) handleImageUpload(c echo.Context) error {
	file, err := c.FormFile("image")
	if err != nil {
		return a.renderAdminDashboard(c, "no image file provided")
	}
	if file.Size > maxUploadSize {
		return a.renderAdminDashboard(c, "file too large (max 10MB)")
	}

	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	img, data, err := processImage(src, file.Filename)
	if err != nil {
		a.Logger.Warn("hero image rejected", zap.String("file", file.Filename), zap.Error(err))
		return a.renderAdminDashboard(c, "invalid image: "+err.Error())
	}

	dir := filepath.Join(a.Config.Server.StaticDir, uploadsSubdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create uploads dir: %w", err)
	}
	img.Filename = uniqueFilename(dir, img.Filename)
	if err := os.WriteFile(filepath.Join(dir, img.Filename), data, 0o644); err != nil {
		return fmt.Errorf("write image: %w", err)
	}

	msg := fmt.Sprintf("uploaded %s (%dx%d)", img.URL(), img.Width, img.Height)
	if postID := strings.TrimSpace(c.FormValue("post_id")); postID != "" {
		if err := a.Admin.SetHeroImage(c.Request().Context(), postID, img.URL()); err != nil {
			return err
		}
		a.Feed.Invalidate()
		msg += " as hero of " + postID
	}

	a.Logger.Info("hero image uploaded",
		zap.String("file", img.Filename),
		zap.Int("width", img.Width),
		zap.Int("height", img.Height),
		zap.Int("bytes", img.Size),
	)
	return a.renderAdminDashboard(c, msg)
}
