package httpx

import (
	"math"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
	// MaxPage keeps (page-1)*limit well inside int range.
	MaxPage = math.MaxInt32
)

// Page is the parsed page/limit pair of a list request.
type Page struct {
	Page  int
	Limit int
}

func (p Page) Offset() int { return (p.Page - 1) * p.Limit }

// PageResponse is the list envelope shared by every paginated endpoint.
type PageResponse[T any] struct {
	Data       []T   `json:"data"`
	Count      int64 `json:"count"`
	Page       int   `json:"page"`
	TotalPages int   `json:"totalPages"`
}

func NewPageResponse[T any](data []T, count int64, p Page) PageResponse[T] {
	if data == nil {
		data = []T{}
	}
	totalPages := 0
	if p.Limit > 0 {
		totalPages = int((count + int64(p.Limit) - 1) / int64(p.Limit))
	}
	return PageResponse[T]{
		Data:       data,
		Count:      count,
		Page:       p.Page,
		TotalPages: totalPages,
	}
}

// ParsePage reads ?page= and ?limit=, clamping bad values to defaults.
func ParsePage(c *fiber.Ctx) Page {
	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	limit, err := strconv.Atoi(c.Query("limit", strconv.Itoa(DefaultLimit)))
	if err != nil || limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Page{Page: page, Limit: limit}
}

// PageOf slices an in-memory result set. An offset that overflowed is past
// the end and yields an empty page.
func PageOf[T any](items []T, p Page) PageResponse[T] {
	total := int64(len(items))
	start := p.Offset()
	if start < 0 || start > len(items) {
		start = len(items)
	}
	end := start + p.Limit
	if end > len(items) {
		end = len(items)
	}
	return NewPageResponse(items[start:end], total, p)
}

// Paginate counts the rows matched by q and loads one ordered page of them.
// q must already be scoped to the model and filters.
func Paginate[T any](q *gorm.DB, p Page, order string, preloads ...string) (PageResponse[T], error) {
	var count int64
	if err := q.Session(&gorm.Session{}).Count(&count).Error; err != nil {
		return PageResponse[T]{}, err
	}

	fq := q.Session(&gorm.Session{})
	for _, rel := range preloads {
		fq = fq.Preload(rel)
	}
	var items []T
	if err := fq.Order(order).Offset(p.Offset()).Limit(p.Limit).Find(&items).Error; err != nil {
		return PageResponse[T]{}, err
	}
	return NewPageResponse(items, count, p), nil
}
