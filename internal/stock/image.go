package stock

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"dairy-backend/internal/httpx"
	"dairy-backend/internal/metrics"
	"dairy-backend/internal/models"
	"dairy-backend/internal/storage"
	"dairy-backend/internal/vision"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const imageField = "image"

type upload struct {
	filename    string
	contentType string
	data        []byte
}

// readImage pulls the "image" part out of a multipart request. The content
// type is sniffed from the bytes; the client's header is not trusted.
func readImage(c *fiber.Ctx, maxBytes int) (upload, error) {
	fh, err := c.FormFile(imageField)
	if err != nil || fh == nil {
		return upload{}, httpx.BadRequest("image file is required")
	}
	if fh.Size > int64(maxBytes) {
		return upload{}, httpx.BadRequest(fmt.Sprintf("image must be at most %d MB", maxBytes/(1024*1024)))
	}

	f, err := fh.Open()
	if err != nil {
		return upload{}, httpx.BadRequest("could not read image")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, int64(maxBytes)+1))
	if err != nil {
		return upload{}, httpx.BadRequest("could not read image")
	}
	if len(data) == 0 {
		return upload{}, httpx.BadRequest("image file is empty")
	}
	if len(data) > maxBytes {
		return upload{}, httpx.BadRequest(fmt.Sprintf("image must be at most %d MB", maxBytes/(1024*1024)))
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return upload{}, httpx.BadRequest("file must be an image")
	}
	return upload{filename: fh.Filename, contentType: mt.String(), data: data}, nil
}

func save(c *fiber.Ctx, store storage.Store, img upload) (storage.Object, error) {
	obj, err := store.Save(c.UserContext(), img.filename, img.contentType, bytes.NewReader(img.data))
	if err != nil {
		return storage.Object{}, httpx.Internal("could not store image")
	}
	return obj, nil
}

// POST /api/stock/upload
func UploadHandler(store storage.Store, maxBytes int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		img, err := readImage(c, maxBytes)
		if err != nil {
			return err
		}
		obj, err := save(c, store, img)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(obj)
	}
}

type AnalyzeResponse struct {
	Analysis vision.Analysis `json:"analysis"`
	Match    *models.Product `json:"match"`
	Image    *storage.Object `json:"image,omitempty"`
}

// POST /api/stock/analyze (multipart "image", optional upload=true)
// A stored upload is kept even when the analysis afterwards fails.
func AnalyzeHandler(db *gorm.DB, analyzer vision.Analyzer, store storage.Store, maxBytes int, m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		img, err := readImage(c, maxBytes)
		if err != nil {
			return err
		}

		var resp AnalyzeResponse
		if c.QueryBool("upload") || c.FormValue("upload") == "true" {
			obj, err := save(c, store, img)
			if err != nil {
				return err
			}
			resp.Image = &obj
		}

		var products []models.Product
		if err := db.Order("name ASC").Find(&products).Error; err != nil {
			return httpx.DBError(err, "", "could not load products")
		}

		analysis, err := analyzer.Analyze(c.UserContext(), vision.Request{
			Image:       img.data,
			ContentType: img.contentType,
			Candidates:  productNames(products),
		})
		switch {
		case errors.Is(err, vision.ErrUnavailable):
			m.VisionRequests.WithLabelValues("unavailable").Inc()
			return httpx.Unavailable("image analysis is temporarily unavailable")
		case err != nil:
			m.VisionRequests.WithLabelValues("error").Inc()
			return httpx.Internal("image analysis failed")
		}
		m.VisionRequests.WithLabelValues("ok").Inc()

		resp.Analysis = analysis
		resp.Match = MatchProduct(products, analysis.ProductName)
		return c.JSON(resp)
	}
}
