package http

import (
	"net/http"
	"strconv"

	"github.com/nonsir1/Roomly/pkg/config"
	apperrors "github.com/nonsir1/Roomly/pkg/errors"
	"github.com/nonsir1/Roomly/pkg/model"
)

func ExtractLimitOffset(r *http.Request) (int, int64, error) {
	query := r.URL.Query()

	limit := 0
	if s := query.Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid limit parameter: " + s)
		}
		limit = v
	}

	var offset int64 = 0
	if s := query.Get("offset"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid offset parameter: " + s)
		}
		offset = int64(v)
	}

	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	return limit, offset, nil
}

// ExtractViewer reads the caller identity headers set by the auth gateway.
// Authentication itself happens upstream; these headers are trusted input.
func ExtractViewer(r *http.Request) model.Viewer {
	return model.Viewer{
		ID:   r.Header.Get("X-User-ID"),
		Role: r.Header.Get("X-User-Role"),
	}
}
