package clubsite

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/image/draw"

	"github.com/warpclub/clubsite/mediastore"
)

const (
	maxImageWidth = 800
	jpegQuality   = 80
	maxUploadSize = 10 << 20 // 10MB
	uploadsSubdir = "uploads"
)

// processImage decodes an image from src, resizes it to maxImageWidth if
// wider, and encodes it as JPEG. Returns metadata and the encoded bytes.
func processImage(src io.Reader, originalName string) (Image, []byte, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return Image{}, nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if w > maxImageWidth {
		newH := h * maxImageWidth / w
		if newH < 1 {
			newH = 1
		}
		dst := image.NewRGBA(image.Rect(0, 0, maxImageWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
		w = maxImageWidth
		h = newH
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return Image{}, nil, fmt.Errorf("encode jpeg: %w", err)
	}

	base := slugifyFilename(originalName)
	if base == "" {
		base = "image"
	}

	return Image{
		Filename:     base + ".jpg",
		OriginalName: originalName,
		Width:        w,
		Height:       h,
		Size:         buf.Len(),
		UploadedAt:   time.Now().UTC(),
	}, buf.Bytes(), nil
}

// slugifyFilename converts a filename (without extension) to a URL-safe slug.
func slugifyFilename(name string) string {
	ext := filepath.Ext(name)
	return Slugify(strings.TrimSuffix(name, ext))
}

// uniqueFilename appends a counter until the name is free both in the media
// store and in the image table.
func uniqueFilename(ctx context.Context, media mediastore.Store, known []Image, filename string) (string, error) {
	taken := make(map[string]bool, len(known))
	for _, img := range known {
		taken[img.Filename] = true
	}
	base := strings.TrimSuffix(filename, ".jpg")
	candidate := filename
	for counter := 2; ; counter++ {
		if !taken[candidate] {
			exists, err := media.Exists(ctx, candidate)
			if err != nil {
				return "", err
			}
			if !exists {
				return candidate, nil
			}
		}
		candidate = fmt.Sprintf("%s-%d.jpg", base, counter)
	}
}

func (a *App) handleImageUpload(c echo.Context) error {
	file, err := c.FormFile("image")
	if err != nil {
		addFlash(c, flashError, "No image file provided.")
		return c.Redirect(http.StatusSeeOther, "/admin/images/")
	}
	if file.Size > maxUploadSize {
		addFlash(c, flashError, "File too large (max 10MB).")
		return c.Redirect(http.StatusSeeOther, "/admin/images/")
	}

	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	img, data, err := processImage(io.LimitReader(src, maxUploadSize), file.Filename)
	if err != nil {
		addFlash(c, flashError, "Invalid image: "+err.Error())
		return c.Redirect(http.StatusSeeOther, "/admin/images/")
	}

	ctx := c.Request().Context()
	known, err := a.Backend.ListImages(ctx)
	if err != nil {
		return fmt.Errorf("list images: %w", err)
	}
	if img.Filename, err = uniqueFilename(ctx, a.media, known, img.Filename); err != nil {
		return fmt.Errorf("pick filename: %w", err)
	}
	if img.URL, err = a.media.Put(ctx, img.Filename, data, "image/jpeg"); err != nil {
		return fmt.Errorf("store image: %w", err)
	}
	if err := a.Backend.SaveImage(ctx, img); err != nil {
		if derr := a.media.Delete(ctx, img.Filename); derr != nil {
			a.Log.Error().Err(derr).Str("file", img.Filename).Msg("remove orphaned upload")
		}
		return fmt.Errorf("save image: %w", err)
	}

	a.Log.Info().Str("file", img.Filename).Int("bytes", img.Size).Msg("image uploaded")
	addFlash(c, flashSuccess, "Uploaded "+img.Filename+".")
	return c.Redirect(http.StatusSeeOther, "/admin/images/")
}

func (a *App) handleImageDelete(c echo.Context) error {
	filename := c.Param("filename")
	ctx := c.Request().Context()

	if err := a.media.Delete(ctx, filename); err != nil {
		if errors.Is(err, mediastore.ErrInvalidName) {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid filename")
		}
		return fmt.Errorf("delete image file: %w", err)
	}
	if err := a.Backend.DeleteImage(ctx, filename); err != nil {
		return fmt.Errorf("delete image: %w", err)
	}
	addFlash(c, flashSuccess, "Deleted "+filename+".")
	return c.Redirect(http.StatusSeeOther, "/admin/images/")
}

func (a *App) handleImageList(c echo.Context) error {
	images, err := a.Backend.ListImages(c.Request().Context())
	if err != nil {
		return fmt.Errorf("list images: %w", err)
	}
	return Render(c, a.Views.AdminImages(AdminImagesPage{
		Page:   a.newPage(c, "Images", ""),
		Images: images,
	}))
}
