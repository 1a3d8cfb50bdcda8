package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/foodgram/internal/common"
	"github.com/joseph-ayodele/foodgram/internal/export"
)

const dateLayout = "2006-01-02"

// renderShoppingList builds the cart download in the requested format.
// An empty date means today in UTC.
func renderShoppingList(ctx context.Context, exports *export.Service, userID uuid.UUID, format, date string, now time.Time) (*export.Artifact, error) {
	on := now.UTC()
	if date = strings.TrimSpace(date); date != "" {
		d, err := time.Parse(dateLayout, date)
		if err != nil {
			return nil, common.InvalidInput("date must be YYYY-MM-DD")
		}
		on = d
	}

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "txt", "text":
		return exports.ShoppingCartText(ctx, userID, on)
	case "xlsx":
		return exports.ShoppingCartXLSX(ctx, userID, on)
	default:
		return nil, common.InvalidInput(fmt.Sprintf("unsupported format %q", format))
	}
}

func (s *HTTPServer) handleDownloadShoppingCart(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	art, err := renderShoppingList(r.Context(), s.exports, caller(r), q.Get("format"), q.Get("date"), s.now())
	if err != nil {
		s.logger.Warn("export.failed",
			zap.String("request_id", common.RequestIDFromContext(r.Context())),
			zap.Stringer("user_id", caller(r)),
			zap.Error(err))
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", art.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", art.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(art.Body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(art.Body)
}
