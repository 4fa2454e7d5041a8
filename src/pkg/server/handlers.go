package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"

	"price-catalog/src/pkg/budget"
	echomw "price-catalog/src/pkg/echo-middleware"
	"price-catalog/src/pkg/ingest"
	"price-catalog/src/pkg/paginate"
)

const saveFailedMessage = "Could not save the catalog, nothing was changed. Try again later."

type addRequest struct {
	Item  string `json:"item"`
	Price string `json:"price"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return reply(c, http.StatusOK, "ok")
}

func (s *Server) handleAdd(c echo.Context) error {
	var request addRequest
	bindErr := c.Bind(&request)
	if bindErr != nil || strings.TrimSpace(request.Item) == "" || strings.TrimSpace(request.Price) == "" {
		return reply(c, http.StatusBadRequest, "Usage: provide both an item and a price.")
	}

	e := s.catalog.Set(c.Request().Context(), request.Item, request.Price)
	if e != nil {
		tl.Log(tl.Error, palette.RedBold, "Add '%s' failed: '%s'", request.Item, e)
		return reply(c, http.StatusInternalServerError, saveFailedMessage)
	}

	return reply(c, http.StatusOK, fmt.Sprintf("Added %s with price %s.", request.Item, request.Price))
}

func (s *Server) handleValue(c echo.Context) error {
	name := c.Param("name")
	entry, found := s.catalog.Get(name)
	if !found {
		return reply(c, http.StatusNotFound, fmt.Sprintf("Sorry, I don't have the price for %s.", strings.TrimSpace(name)))
	}
	return reply(c, http.StatusOK, fmt.Sprintf("The price of %s is %s.", entry.Key, entry.RawPrice))
}

func (s *Server) handleSearch(c echo.Context) error {
	query := c.QueryParam("q")
	matches := s.catalog.Search(query)
	if len(matches) == 0 {
		return reply(c, http.StatusOK, fmt.Sprintf("No items matching '%s'.", strings.TrimSpace(query)))
	}
	return reply(c, http.StatusOK, paginate.Paginate(matches, s.cfg.MaxChunkLength)...)
}

func (s *Server) handleBudget(c echo.Context) error {
	amount := c.QueryParam("amount")
	affordable, e := budget.Filter(s.catalog, amount)
	if e != nil {
		return reply(c, http.StatusBadRequest, fmt.Sprintf("Invalid amount '%s'. Use a number with an optional k, m or b suffix.", amount))
	}
	if len(affordable) == 0 {
		return reply(c, http.StatusOK, fmt.Sprintf("No items found within budget %s.", amount))
	}
	return reply(c, http.StatusOK, paginate.Paginate(affordable, s.cfg.MaxChunkLength)...)
}

func (s *Server) handleUploadPending(c echo.Context) error {
	userID := echomw.UserID(c)
	if userID == "" {
		return reply(c, http.StatusBadRequest, "Missing "+echomw.HeaderUserID+" header.")
	}
	s.uploads.Mark(userID)
	return reply(c, http.StatusOK, "Send your price list as a .txt, .csv or screenshot file next.")
}

/*
handleUpload ingests one attachment. Only users who announced the upload are
accepted, and the announcement is used up as soon as the attachment arrives,
whatever the outcome.
*/
func (s *Server) handleUpload(c echo.Context) error {
	userID := echomw.UserID(c)
	if userID == "" {
		return reply(c, http.StatusBadRequest, "Missing "+echomw.HeaderUserID+" header.")
	}
	if !s.uploads.Take(userID) {
		return reply(c, http.StatusConflict, "Announce the upload first, then send the file.")
	}

	filename := c.Param("filename")
	kind, e := ingest.KindFromFilename(filename)
	if e != nil {
		return reply(c, http.StatusUnsupportedMediaType, fmt.Sprintf("Unsupported file '%s'. Use .txt, .csv, .png or .jpg.", filename))
	}

	raw, e := readUploadBody(c.Request().Body, c.Request().Header.Get(echo.HeaderContentEncoding), s.cfg.MaxUploadBytes)
	if e != nil {
		return reply(c, http.StatusBadRequest, fmt.Sprintf("Could not read '%s'.", filename))
	}
	if int64(len(raw)) > s.cfg.MaxUploadBytes {
		return reply(c, http.StatusRequestEntityTooLarge, fmt.Sprintf("'%s' is larger than %d bytes.", filename, s.cfg.MaxUploadBytes))
	}

	result, e := s.ingestor.Ingest(c.Request().Context(), kind, raw)
	if e != nil {
		tl.Log(tl.Error, palette.RedBold, "Upload '%s' from '%s' failed: '%s'", filename, userID, e)
		if result.Extracted > 0 {
			return reply(c, http.StatusInternalServerError, saveFailedMessage)
		}
		return reply(c, http.StatusUnprocessableEntity, fmt.Sprintf("Could not import '%s', nothing was changed.", filename))
	}

	lines := make([]string, 0, len(result.Failures)+1)
	lines = append(lines, fmt.Sprintf("Imported %d items from '%s' (%d failed).\n", result.Succeeded, filename, len(result.Failures)))
	for _, failure := range result.Failures {
		lines = append(lines, fmt.Sprintf("record %d: %s\n", failure.Record, failure.Reason))
	}
	return reply(c, http.StatusOK, paginate.PackLines(lines, s.cfg.MaxChunkLength)...)
}
