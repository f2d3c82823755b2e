package api

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/linkmark/internal/apperr"
	"github.com/starford/linkmark/internal/index"
	"github.com/starford/linkmark/internal/linkservice"
	"github.com/starford/linkmark/internal/models"
	"github.com/starford/linkmark/internal/serialize"
)

const maxExtractBody = 10 << 20

// ExtractDefaults are used by POST /extract for parameters the request omits.
type ExtractDefaults struct {
	Format      serialize.Format
	Deduplicate bool
}

// Handler holds API route handlers.
type Handler struct {
	svc      *linkservice.Service
	defaults ExtractDefaults
}

// NewHandler creates a new Handler.
func NewHandler(svc *linkservice.Service, defaults ExtractDefaults) *Handler {
	return &Handler{svc: svc, defaults: defaults}
}

// documentPath extracts the document path from the URL (everything after
// /api/documents/). Supports encoded slashes (docs%2Fguide.md).
func documentPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// Extract handles POST /api/extract. The body is raw Markdown.
//
//	@Summary		Extract links from a Markdown body
//	@Tags			extract
//	@Accept			plain
//	@Produce		plain
//	@Param			file		query	string	false	"File identifier stamped on records"
//	@Param			format		query	string	false	"json-lines or delimited"
//	@Param			delimiter	query	string	false	"Single-character delimiter"
//	@Param			quote		query	bool	false	"Quote values containing the delimiter"
//	@Param			fields		query	string	false	"Comma-separated field order"
//	@Param			header		query	bool	false	"Write a header line"
//	@Param			dedupe		query	bool	false	"Collapse records with the same url and file"
//	@Success		200
//	@Failure		400	{object}	errResponse
//	@Failure		422	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/extract [post]
func (h *Handler) Extract(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxExtractBody)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}

	q := r.URL.Query()
	f, dedupe, err := extractParams(q, h.defaults)
	if err != nil {
		writeError(w, "extract", err)
		return
	}

	res, err := h.svc.Extract(r.Context(), linkservice.ExtractRequest{
		File:        q.Get("file"),
		Content:     body,
		Format:      f,
		Deduplicate: dedupe,
	})
	if err != nil {
		writeError(w, "extract", err)
		return
	}

	if f.Kind == serialize.JSONLines {
		w.Header().Set("Content-Type", "application/x-ndjson")
	} else {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	w.Header().Set("X-Link-Count", strconv.Itoa(res.Records))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Output)
}

// extractParams overlays the query parameters on the defaults.
func extractParams(q url.Values, d ExtractDefaults) (serialize.Format, bool, error) {
	f := d.Format
	f.FieldOrder = append([]serialize.Field(nil), d.Format.FieldOrder...)
	dedupe := d.Deduplicate

	if v := q.Get("format"); v != "" {
		kind, err := serialize.ParseKind(v)
		if err != nil {
			return f, false, err
		}
		f.Kind = kind
	}
	if v := q.Get("delimiter"); v != "" {
		delim, err := serialize.ParseDelimiter(v)
		if err != nil {
			return f, false, err
		}
		f.Delimiter = delim
	}
	if v := q.Get("fields"); v != "" {
		fields, err := serialize.ParseFields(v)
		if err != nil {
			return f, false, err
		}
		f.FieldOrder = fields
	}
	for name, dst := range map[string]*bool{"quote": &f.QuoteFields, "header": &f.Header, "dedupe": &dedupe} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, false, fmt.Errorf("%w: %s must be a boolean, got %q", apperr.ErrInvalidConfig, name, v)
		}
		*dst = b
	}
	return f, dedupe, f.Validate()
}

// ListLinks handles GET /api/links.
//
//	@Summary		List indexed links with optional filtering
//	@Tags			links
//	@Produce		json
//	@Param			path		query		string	false	"Only links in this document"
//	@Param			kind		query		string	false	"Link kind"	Enums(inline, reference, autolink, image, footnote-reference)
//	@Param			url			query		string	false	"Exact URL"
//	@Param			unresolved	query		bool	false	"Only unresolved links"
//	@Param			limit		query		int		false	"Page size"
//	@Param			offset		query		int		false	"Page offset"
//	@Success		200			{object}	LinkListResponse
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/links [get]
func (h *Handler) ListLinks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	unresolved, _ := strconv.ParseBool(q.Get("unresolved"))

	links, total, err := h.svc.ListLinks(r.Context(), index.Filter{
		Path:       q.Get("path"),
		Kind:       models.Kind(q.Get("kind")),
		URL:        q.Get("url"),
		Unresolved: unresolved,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		writeError(w, "list links", err)
		return
	}
	writeJSON(w, http.StatusOK, LinkListResponse{Links: links, Total: total})
}

// Search handles GET /api/links/search.
//
//	@Summary		Full-text search across link text, URLs and titles
//	@Tags			links
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/links/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Stats handles GET /api/stats.
//
//	@Summary		Index summary
//	@Tags			links
//	@Produce		json
//	@Success		200	{object}	StatsResponse
//	@Security		BearerAuth
//	@Router			/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Stats(r.Context())
	if err != nil {
		writeError(w, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Backlinks handles GET /api/backlinks.
//
//	@Summary		Documents linking to a URL
//	@Tags			links
//	@Produce		json
//	@Param			url	query		string	true	"Target URL"
//	@Success		200	{object}	BacklinksResponse
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/backlinks [get]
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if target == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'url' is required"))
		return
	}
	docs, err := h.svc.Backlinks(r.Context(), target)
	if err != nil {
		writeError(w, "backlinks", err)
		return
	}
	writeJSON(w, http.StatusOK, BacklinksResponse{URL: target, Documents: docs})
}

// GetDocument handles GET /api/documents/*.
//
//	@Summary		Links of one source document
//	@Tags			documents
//	@Produce		json
//	@Param			path	path		string	true	"Document path"
//	@Success		200		{object}	DocumentDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{path} [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	path := documentPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	doc, err := h.svc.GetDocument(r.Context(), path)
	if err != nil {
		writeError(w, "get document", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}
