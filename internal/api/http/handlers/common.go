package handlers

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/fieldops/workorder-service/internal/api/dto"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type pageParams struct {
	Page     int
	PageSize int
}

func (p pageParams) Offset() int { return (p.Page - 1) * p.PageSize }

func parsePageParams(c *fiber.Ctx) pageParams {
	page := parseInt(c.Query("page"), 1)
	if page < 1 {
		page = 1
	}
	pageSize := parseInt(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return pageParams{Page: page, PageSize: pageSize}
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return parsed
}

// paginate wraps results in the standard list envelope with next/previous
// page links relative to the current request.
func paginate(c *fiber.Ctx, params pageParams, count int64, results any) dto.PaginatedResponse {
	var next, previous *string
	if int64(params.Page*params.PageSize) < count {
		next = pageLink(c, params.Page+1, params.PageSize)
	}
	if params.Page > 1 {
		previous = pageLink(c, params.Page-1, params.PageSize)
	}
	return dto.PaginatedResponse{
		Count:    count,
		Next:     next,
		Previous: previous,
		Results:  results,
	}
}

func pageLink(c *fiber.Ctx, page, pageSize int) *string {
	link := fmt.Sprintf("%s?page=%d&page_size=%d", c.Path(), page, pageSize)
	return &link
}

func clientIP(c *fiber.Ctx) *string {
	ip := c.IP()
	if ip == "" {
		return nil
	}
	return &ip
}
