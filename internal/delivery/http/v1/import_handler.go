package v1

import (
	"errors"
	"net/http"

	"pawmarket-backend/internal/domain"
	"pawmarket-backend/internal/usecase"
	"pawmarket-backend/pkg/logger"
	"pawmarket-backend/pkg/utils"
)

// SourceFactory builds the source adapter for one request. The sheet source
// needs the per-request supplier override, so sources are not singletons.
type SourceFactory func(name, supplierOverride string) (domain.Source, error)

type ImportHandler struct {
	importUC *usecase.ImportUsecase
	sources  SourceFactory
}

func NewImportHandler(importUC *usecase.ImportUsecase, sources SourceFactory) *ImportHandler {
	return &ImportHandler{importUC: importUC, sources: sources}
}

// RunBatch handles GET /api/v1/import/batch?source=sheet&cursor=...&supplier=...
// Each call processes one page and returns the cursor for the next call.
func (h *ImportHandler) RunBatch(w http.ResponseWriter, r *http.Request) {
	sourceName := r.URL.Query().Get("source")
	if sourceName == "" {
		sourceName = "sheet"
	}
	cursor := r.URL.Query().Get("cursor")
	supplier := r.URL.Query().Get("supplier")

	src, err := h.sources(sourceName, supplier)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.importUC.RunBatch(r.Context(), src, cursor)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCursor) {
			utils.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		logger.Error().Err(err).Str("source", sourceName).Str("cursor", cursor).Msg("import batch failed")
		utils.WriteErrorBody(w, http.StatusInternalServerError, utils.ErrorBody{
			Error:   "import_failed",
			Message: "The batch was not committed. Retry with the same cursor.",
			Detail:  err.Error(),
		})
		return
	}

	utils.WriteJSON(w, http.StatusOK, report)
}
