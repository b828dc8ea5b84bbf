package handler

import (
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cloud-wave-best-zizon/stock-tracker/internal/domain"
	"github.com/cloud-wave-best-zizon/stock-tracker/internal/media"
)

const (
	multipartMemory = 8 << 20
	multipartSlack  = 1 << 20
)

type listQuery struct {
	Search      string `form:"search"`
	MinPrice    string `form:"minPrice"`
	MaxPrice    string `form:"maxPrice"`
	MinQuantity string `form:"minQuantity"`
	MaxQuantity string `form:"maxQuantity"`
	SortBy      string `form:"sortBy"`
	SortOrder   string `form:"sortOrder"`
	Page        string `form:"page"`
	Limit       string `form:"limit"`
}

// filter converts the raw query. Unparseable bounds are dropped and
// unparseable paging falls back to the defaults.
func (q listQuery) filter() domain.ProductFilter {
	return domain.ProductFilter{
		Search:      q.Search,
		MinPrice:    parseFloat(q.MinPrice),
		MaxPrice:    parseFloat(q.MaxPrice),
		MinQuantity: parseInt(q.MinQuantity),
		MaxQuantity: parseInt(q.MaxQuantity),
		SortBy:      domain.SortField(q.SortBy),
		SortOrder:   domain.SortOrder(strings.ToLower(q.SortOrder)),
		Page:        intOr(q.Page, domain.DefaultPage),
		Limit:       intOr(q.Limit, domain.DefaultLimit),
	}
}

func parseFloat(s string) *float64 {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func parseInt(s string) *int {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &v
}

func intOr(s string, def int) int {
	if v := parseInt(s); v != nil {
		return *v
	}
	return def
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

// productFields reads a JSON or multipart product body. For multipart
// bodies with an "image" file part, the file is staged and the returned
// cleanup must be called once the request is done.
func productFields(c *gin.Context, stager *media.Stager) (domain.ProductFields, func(), error) {
	noop := func() {}

	if !isMultipart(c) {
		var fields domain.ProductFields
		// An empty body carries no fields.
		if err := c.ShouldBindJSON(&fields); err != nil && !errors.Is(err, io.EOF) {
			return domain.ProductFields{}, noop, domain.NewValidationError(msgInvalidBody)
		}
		return fields, noop, nil
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, stager.MaxBytes()+multipartSlack)
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.ProductFields{}, noop, domain.NewValidationError("Image exceeds the maximum upload size")
		}
		return domain.ProductFields{}, noop, domain.NewValidationError(msgInvalidBody)
	}

	form := c.Request.MultipartForm
	value := func(key string) domain.Optional[string] {
		if vs, ok := form.Value[key]; ok && len(vs) > 0 {
			return domain.Some(vs[0])
		}
		return domain.Optional[string]{}
	}
	numeric := func(key string) domain.Optional[domain.Numeric] {
		v := value(key)
		if !v.Set {
			return domain.Optional[domain.Numeric]{}
		}
		return domain.Some(domain.Numeric(strings.TrimSpace(v.Value)))
	}

	fields := domain.ProductFields{
		Name:        value("name"),
		Description: value("description"),
		Price:       numeric("price"),
		Quantity:    numeric("quantity"),
		Image:       value("image"),
	}

	files := form.File["image"]
	if len(files) == 0 {
		return fields, noop, nil
	}

	file, cleanup, err := stager.Stage(files[0])
	if err != nil {
		return fields, noop, err
	}
	fields.File = file
	return fields, cleanup, nil
}
