package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/phonedir/internal/entities"
	"github.com/mrlokans/phonedir/internal/importer"
)

// ImportController exposes single imports, conflict resolution, directory
// search and server-side batch runs.
type ImportController struct {
	backend ImportBackend
	batches BatchQueue
}

// NewImportController creates a new ImportController. batches may be nil
// when the task queue is disabled.
func NewImportController(backend ImportBackend, batches BatchQueue) *ImportController {
	return &ImportController{backend: backend, batches: batches}
}

type importRequest struct {
	DN string `json:"dn"`
}

// ImportContact handles POST /import-contact.
// A UID collision with a manual contact is answered with success=false and
// conflict=true; it is not an error.
func (ic *ImportController) ImportContact(c *gin.Context) {
	var req importRequest
	if !bindJSON(c, &req) {
		return
	}

	outcome, err := ic.backend.Import(c.Request.Context(), req.DN)
	if err != nil {
		respondServiceError(c, err, "import contact")
		return
	}

	if outcome.Kind == entities.OutcomeConflict {
		c.JSON(http.StatusOK, gin.H{
			"success":    false,
			"conflict":   true,
			"uid":        outcome.UID,
			"contact_id": outcome.ExistingContactID,
			"message":    outcome.Message,
		})
		return
	}
	respondOK(c, gin.H{"message": outcome.Message})
}

type resolveRequest struct {
	Action string `json:"action"`
	DN     string `json:"dn"`
}

// ResolveConflict handles POST /resolve-conflict/:id.
func (ic *ImportController) ResolveConflict(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req resolveRequest
	if !bindJSON(c, &req) {
		return
	}

	action := entities.ResolutionAction(strings.TrimSpace(req.Action))
	if err := ic.backend.ResolveConflict(c.Request.Context(), id, action, req.DN); err != nil {
		respondServiceError(c, err, "resolve conflict")
		return
	}
	respondOK(c, nil)
}

// Search handles POST /ldap-search.
func (ic *ImportController) Search(c *gin.Context) {
	var query importer.SearchQuery
	if !bindJSON(c, &query) {
		return
	}

	found, err := ic.backend.Search(c.Request.Context(), query)
	if err != nil {
		respondServiceError(c, err, "directory search")
		return
	}
	respondOK(c, gin.H{"contacts": found})
}

type batchRequest struct {
	Candidates []entities.ImportCandidate `json:"candidates"`
}

// EnqueueBatch handles POST /import-batch. The candidates are imported one
// by one in the background; progress is read from BatchStatus.
func (ic *ImportController) EnqueueBatch(c *gin.Context) {
	if ic.batches == nil {
		respondError(c, http.StatusServiceUnavailable, "batch import is not available")
		return
	}
	var req batchRequest
	if !bindJSON(c, &req) {
		return
	}
	for i, candidate := range req.Candidates {
		if strings.TrimSpace(candidate.DN) == "" {
			respondBadRequest(c, fmt.Sprintf("candidate %d has no dn", i))
			return
		}
	}

	runID, err := ic.batches.Enqueue(c.Request.Context(), req.Candidates)
	if err != nil {
		respondServiceError(c, err, "enqueue batch import")
		return
	}
	respondAccepted(c, gin.H{
		"run_id":  runID,
		"total":   len(req.Candidates),
		"message": "Batch import queued",
	})
}

// BatchStatusResponse is the progress of a batch run.
type BatchStatusResponse struct {
	Success  bool                   `json:"success"`
	RunID    string                 `json:"run_id"`
	Status   entities.SyncStatus    `json:"status"`
	Finished bool                   `json:"finished"`
	Progress entities.BatchProgress `json:"progress"`
	Percent  float64                `json:"percent"`
	Text     string                 `json:"progress_text"`
	Current  string                 `json:"current_item,omitempty"`
	Error    string                 `json:"error,omitempty"`
}

// BatchStatus handles GET /import-batch/:run/status.
func (ic *ImportController) BatchStatus(c *gin.Context) {
	if ic.batches == nil {
		respondError(c, http.StatusServiceUnavailable, "batch import is not available")
		return
	}

	run, err := ic.batches.Status(c.Param("run"))
	if err != nil {
		respondServiceError(c, err, "batch status")
		return
	}

	progress := run.BatchProgress()
	c.JSON(http.StatusOK, BatchStatusResponse{
		Success:  true,
		RunID:    run.RunID,
		Status:   run.Status,
		Finished: run.Finished(),
		Progress: progress,
		Percent:  progress.Percent(),
		Text:     progress.Text(),
		Current:  run.CurrentItem,
		Error:    run.Error,
	})
}
