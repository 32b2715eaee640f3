// internal/utils/pagination.go
package utils

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CatalogPageSize is the fixed page size of storefront listings.
const CatalogPageSize = 12

type PaginationParams struct {
	Page   int    `json:"page"`
	Limit  int    `json:"limit"`
	Sort   string `json:"sort"`
	Order  string `json:"order"`
	Search string `json:"search"`
}

type PaginationResult struct {
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	Total      int64       `json:"total"`
	TotalPages int         `json:"total_pages"`
	Data       interface{} `json:"data"`
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// queryInt reads a positive integer query value, falling back to def.
func queryInt(c *gin.Context, key string, def int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil || n < 1 {
		return def
	}
	return n
}

// GetPaginationParams reads ?page, ?limit, ?sort, ?order and ?search
// of admin listings.
func GetPaginationParams(c *gin.Context) PaginationParams {
	params := PaginationParams{
		Page:   queryInt(c, "page", 1),
		Limit:  queryInt(c, "limit", defaultPageSize),
		Sort:   c.DefaultQuery("sort", "created_at"),
		Order:  strings.ToLower(c.DefaultQuery("order", "desc")),
		Search: strings.TrimSpace(c.Query("search")),
	}
	if params.Limit > maxPageSize {
		params.Limit = defaultPageSize
	}
	if params.Order != "asc" {
		params.Order = "desc"
	}
	return params
}

// GetCatalogPageParams reads only ?page; the page size is fixed.
func GetCatalogPageParams(c *gin.Context) PaginationParams {
	return PaginationParams{Page: queryInt(c, "page", 1), Limit: CatalogPageSize}
}

// Clamp moves a page past the end back to the last page.
func (p *PaginationParams) Clamp(total int64) {
	last := totalPages(total, p.Limit)
	if last < 1 {
		last = 1
	}
	if p.Page > last {
		p.Page = last
	}
}

func ApplyPagination(db *gorm.DB, params PaginationParams) *gorm.DB {
	return db.Offset((params.Page - 1) * params.Limit).Limit(params.Limit)
}

// ApplySort orders by params.Sort when it is one of allowed, else by
// created_at.
func ApplySort(db *gorm.DB, params PaginationParams, allowed []string) *gorm.DB {
	column := "created_at"
	if slices.Contains(allowed, params.Sort) {
		column = params.Sort
	}
	return db.Order(column + " " + params.Order)
}

func CreatePaginationResult(data interface{}, total int64, params PaginationParams) PaginationResult {
	return PaginationResult{
		Page:       params.Page,
		Limit:      params.Limit,
		Total:      total,
		TotalPages: totalPages(total, params.Limit),
		Data:       data,
	}
}

func totalPages(total int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(limit)))
}

func SetPaginationHeaders(c *gin.Context, result PaginationResult) {
	c.Header("X-Total-Count", strconv.FormatInt(result.Total, 10))
	c.Header("X-Page", strconv.Itoa(result.Page))
	c.Header("X-Per-Page", strconv.Itoa(result.Limit))
	c.Header("X-Total-Pages", strconv.Itoa(result.TotalPages))
}
