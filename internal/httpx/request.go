package httpx

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

const DateLayout = "2006-01-02"

var validate = validator.New(validator.WithRequiredStructEnabled())

// ParseBody decodes the JSON body into dst and runs its validate tags.
func ParseBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return BadRequest("invalid request body")
	}
	return Validate(dst)
}

// Validate runs struct validation and converts failures to a ValidationError.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return BadRequest("invalid request body")
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		name := fieldName(fe)
		fields[name] = fieldMessage(name, fe)
	}
	return &ValidationError{Message: "validation failed", Fields: fields}
}

func fieldName(fe validator.FieldError) string {
	var b strings.Builder
	for i, r := range fe.Field() {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}

func fieldMessage(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "min":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be %s or more", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "datetime":
		return fmt.Sprintf("%s must be a date in YYYY-MM-DD format", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// ParamID reads a positive integer route parameter.
func ParamID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, BadRequest(fmt.Sprintf("invalid %s", name))
	}
	return uint(id), nil
}

// QueryID reads an optional positive integer query parameter.
func QueryID(c *fiber.Ctx, name string) (*uint, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return nil, BadRequest(fmt.Sprintf("invalid %s", name))
	}
	v := uint(id)
	return &v, nil
}

// ParseDate parses YYYY-MM-DD, returning def when s is empty.
func ParseDate(s string, def time.Time) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return def, nil
	}
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, BadRequest("date must be in YYYY-MM-DD format")
	}
	return d, nil
}

// ParseOptionalDate parses YYYY-MM-DD into a pointer, nil when s is empty.
func ParseOptionalDate(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	d, err := ParseDate(s, time.Time{})
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// DateRange reads ?from= and ?to= as an inclusive day range. Either may be nil.
func DateRange(c *fiber.Ctx) (from, to *time.Time, err error) {
	if from, err = ParseOptionalDate(c.Query("from")); err != nil {
		return nil, nil, err
	}
	if to, err = ParseOptionalDate(c.Query("to")); err != nil {
		return nil, nil, err
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, nil, BadRequest("to must not be before from")
	}
	return from, to, nil
}

// Today is the current date at midnight UTC.
func Today() time.Time {
	y, m, d := time.Now().UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// YearMonth reads ?year= and ?month=, defaulting to the current month.
func YearMonth(c *fiber.Ctx) (int, time.Month, error) {
	now := Today()
	year, month := now.Year(), now.Month()
	if raw := c.Query("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil || y < 2000 || y > 9999 {
			return 0, 0, BadRequest("invalid year")
		}
		year = y
	}
	if raw := c.Query("month"); raw != "" {
		m, err := strconv.Atoi(raw)
		if err != nil || m < 1 || m > 12 {
			return 0, 0, BadRequest("invalid month")
		}
		month = time.Month(m)
	}
	return year, month, nil
}

// MonthBounds returns the first and last day of the month.
func MonthBounds(year int, month time.Month) (time.Time, time.Time) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return first, first.AddDate(0, 1, -1)
}
