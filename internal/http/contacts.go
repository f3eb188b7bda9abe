package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mrlokans/phonedir/internal/entities"
	"github.com/mrlokans/phonedir/internal/exporters"
	"github.com/mrlokans/phonedir/internal/services"
)

const exportFilename = "contacts_export.csv"

// CSVFormat provides the delimiter and date layout for CSV import/export.
type CSVFormat interface {
	CSVDelimiter() rune
	ExportDateFormat() string
}

// PhoneImportSession keeps previewed MAC/PIN updates between requests.
type PhoneImportSession interface {
	PutPhoneImport(ctx context.Context, updates []services.PhoneUpdate)
	PopPhoneImport(ctx context.Context) []services.PhoneUpdate
}

// ContactsController handles contact CRUD, history, CSV export and the
// MAC/PIN CSV import.
type ContactsController struct {
	store    ContactStore
	format   CSVFormat
	sessions PhoneImportSession
	debug    bool
}

// NewContactsController creates a new ContactsController. format and
// sessions may be nil; the CSV import then needs sessions to be set.
func NewContactsController(store ContactStore, format CSVFormat, sessions PhoneImportSession, debug bool) *ContactsController {
	return &ContactsController{store: store, format: format, sessions: sessions, debug: debug}
}

func (cc *ContactsController) delimiter() rune {
	if cc.format == nil {
		return ','
	}
	return cc.format.CSVDelimiter()
}

func (cc *ContactsController) exporter() *exporters.ContactsCSVExporter {
	if cc.format == nil {
		return exporters.NewContactsCSVExporter(',', "")
	}
	return exporters.NewContactsCSVExporter(cc.format.CSVDelimiter(), cc.format.ExportDateFormat())
}

func queryBool(c *gin.Context, key string) bool {
	switch strings.ToLower(c.Query(key)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// parseContactQuery reads the listing parameters. Malformed filters are
// ignored rather than rejected.
func parseContactQuery(c *gin.Context) entities.ContactQuery {
	q := entities.ContactQuery{
		Search:      strings.TrimSpace(c.Query("search")),
		ShowDeleted: queryBool(c, "show_deleted"),
		Page:        1,
		PerPage:     10,
	}
	if page, err := strconv.Atoi(c.Query("page")); err == nil {
		q.Page = page
	}
	if perPage, err := strconv.Atoi(c.Query("per_page")); err == nil {
		q.PerPage = perPage
	}
	if raw := c.Query("filters"); raw != "" {
		var filters entities.ContactFilters
		if err := json.Unmarshal([]byte(raw), &filters); err == nil {
			q.Filters = filters
		}
	}
	if queryBool(c, "show_retired") {
		q.Filters.ShowRetired = true
	}
	return q
}

// ListContacts handles GET /api/contacts
// Query: page, per_page (10..100), search, show_deleted, show_retired and
// filters (JSON object of hasPin, hasMac, phoneModel, department,
// showStudent, showRetired).
func (cc *ContactsController) ListContacts(c *gin.Context) {
	q := parseContactQuery(c)
	page, err := cc.store.List(q)
	if err != nil {
		respondInternalError(c, err, "list contacts")
		return
	}
	respondOK(c, gin.H{
		"contacts":        page.Contacts,
		"history_matches": page.HistoryMatches,
		"total":           page.Total,
		"page":            page.Page,
		"per_page":        page.PerPage,
		"total_pages":     page.TotalPages,
		"search":          q.Search,
		"show_deleted":    q.ShowDeleted,
		"filters":         q.Filters,
	})
}

// GetStats handles GET /api/contacts/stats
func (cc *ContactsController) GetStats(c *gin.Context) {
	stats, err := cc.store.Stats()
	if err != nil {
		respondInternalError(c, err, "contact stats")
		return
	}
	respondOK(c, gin.H{"stats": stats})
}

// GetFilterOptions handles GET /api/contacts/filters
func (cc *ContactsController) GetFilterOptions(c *gin.Context) {
	options, err := cc.store.FilterOptions()
	if err != nil {
		respondInternalError(c, err, "filter options")
		return
	}
	respondOK(c, gin.H{"phone_models": options.PhoneModels, "departments": options.Departments})
}

// GetContact handles GET /contact/:id
func (cc *ContactsController) GetContact(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	contact, err := cc.store.Get(id)
	if err != nil {
		respondServiceError(c, err, "get contact")
		return
	}
	respondOK(c, gin.H{"contact": contact})
}

// CreateContact handles POST /contact/create
func (cc *ContactsController) CreateContact(c *gin.Context) {
	var in services.ContactInput
	if !bindJSON(c, &in) {
		return
	}
	contact, err := cc.store.Create(in)
	if err != nil {
		respondServiceError(c, err, "create contact")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "contact": contact})
}

// UpdateContact handles POST /contact/:id/update
// Every editable field is replaced; omitted fields are cleared.
func (cc *ContactsController) UpdateContact(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var in services.ContactInput
	if !bindJSON(c, &in) {
		return
	}
	changed, err := cc.store.Update(id, in)
	if err != nil {
		respondServiceError(c, err, "update contact")
		return
	}
	respondOK(c, gin.H{"changed": changed})
}

// DeleteContact handles POST /contact/:id/delete
func (cc *ContactsController) DeleteContact(c *gin.Context) {
	cc.simple(c, "delete contact", cc.store.Delete)
}

// RestoreContact handles POST /contact/:id/restore
func (cc *ContactsController) RestoreContact(c *gin.Context) {
	cc.simple(c, "restore contact", cc.store.Restore)
}

// PermanentDelete handles POST /contact/:id/permanent-delete
func (cc *ContactsController) PermanentDelete(c *gin.Context) {
	cc.simple(c, "permanently delete contact", cc.store.PermanentDelete)
}

func (cc *ContactsController) simple(c *gin.Context, what string, op func(uint) error) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := op(id); err != nil {
		respondServiceError(c, err, what)
		return
	}
	respondOK(c, nil)
}

// GetHistory handles GET /contact/:id/history
func (cc *ContactsController) GetHistory(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	contact, history, err := cc.store.History(id)
	if err != nil {
		respondServiceError(c, err, "contact history")
		return
	}
	respondOK(c, gin.H{"contact_name": contact.FullName(), "history": history})
}

// ListConflicts handles GET /conflicts
func (cc *ContactsController) ListConflicts(c *gin.Context) {
	conflicts, err := cc.store.Conflicts()
	if err != nil {
		respondInternalError(c, err, "list conflicts")
		return
	}
	respondOK(c, gin.H{"conflicts": conflicts})
}

// ExportCSV handles GET /export-csv
// All active contacts as a UTF-8 CSV with byte order mark.
func (cc *ContactsController) ExportCSV(c *gin.Context) {
	var buf bytes.Buffer
	n, err := cc.store.ExportCSV(&buf, cc.exporter())
	if err != nil {
		respondInternalError(c, err, "export csv")
		return
	}
	requestLogger(c).Info("contacts exported", zap.Int("count", n))

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportFilename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// SendPIN handles POST /contact/:id/send-pin
func (cc *ContactsController) SendPIN(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := cc.store.SendPIN(c.Request.Context(), id); err != nil {
		respondServiceError(c, err, "send pin")
		return
	}
	respondOK(c, gin.H{"message": "PIN email sent"})
}

// FetchAuthCode handles POST /api/contact/:id/fetch-auth-code
func (cc *ContactsController) FetchAuthCode(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	pin, err := cc.store.FetchAuthCode(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "fetch auth code")
		return
	}
	respondOK(c, gin.H{"pin": pin})
}

type previewRequest struct {
	CSVData string `json:"csv_data"`
}

// PreviewImport handles POST /preview-import
// The matched updates are kept in the session until ConfirmImport.
func (cc *ContactsController) PreviewImport(c *gin.Context) {
	if cc.sessions == nil {
		respondError(c, http.StatusServiceUnavailable, "sessions are not available")
		return
	}
	var req previewRequest
	if !bindJSON(c, &req) {
		return
	}

	preview, updates, err := cc.store.PreviewPhoneImport(strings.NewReader(req.CSVData), cc.delimiter())
	if err != nil {
		respondServiceError(c, err, "preview import")
		return
	}
	cc.sessions.PutPhoneImport(c.Request.Context(), updates)
	respondOK(c, gin.H{"preview": preview})
}

// ConfirmImport handles POST /confirm-import
func (cc *ContactsController) ConfirmImport(c *gin.Context) {
	if cc.sessions == nil {
		respondError(c, http.StatusServiceUnavailable, "sessions are not available")
		return
	}

	updates := cc.sessions.PopPhoneImport(c.Request.Context())
	updated, err := cc.store.ConfirmPhoneImport(updates)
	if err != nil {
		respondServiceError(c, err, "confirm import")
		return
	}
	respondOK(c, gin.H{"updated": updated})
}

// DropAll handles POST /debug/drop-all-contacts
// Only available when the server runs with DEBUG=true.
func (cc *ContactsController) DropAll(c *gin.Context) {
	if !cc.debug {
		respondError(c, http.StatusForbidden, "This operation is only allowed in debug mode")
		return
	}
	total, active, err := cc.store.DropAll()
	if err != nil {
		respondInternalError(c, err, "drop all contacts")
		return
	}
	respondOK(c, gin.H{"message": fmt.Sprintf("Deleted %d contacts (%d active)", total, active)})
}
