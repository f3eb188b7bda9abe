package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mrlokans/phonedir/internal/database/contacts"
	syncrepo "github.com/mrlokans/phonedir/internal/database/sync"
	"github.com/mrlokans/phonedir/internal/directory"
	"github.com/mrlokans/phonedir/internal/entities"
)

var ErrSyncRunning = errors.New("LDAP sync already in progress")

// SyncConflict is a directory entry whose UID belongs to another contact.
type SyncConflict struct {
	UID             string `json:"uid"`
	ManualContactID uint   `json:"manual_contact_id"`
	DN              string `json:"ldap_dn"`
}

// SyncResult is the outcome of a full directory sync.
type SyncResult struct {
	RunID     string         `json:"run_id"`
	Total     int            `json:"total"`
	Added     int            `json:"added"`
	Updated   int            `json:"updated"`
	Skipped   int            `json:"skipped"`
	Failed    int            `json:"failed"`
	Conflicts []SyncConflict `json:"conflicts"`
}

func (r SyncResult) String() string {
	msg := fmt.Sprintf("Sync completed: %d contacts added, %d updated", r.Added, r.Updated)
	if len(r.Conflicts) > 0 {
		msg += fmt.Sprintf(", %d conflicts found", len(r.Conflicts))
	}
	if r.Failed > 0 {
		msg += fmt.Sprintf(", %d failed", r.Failed)
	}
	return msg
}

// SyncService mirrors the whole directory into the contact list.
type SyncService struct {
	imports *ImportService
	runs    *syncrepo.Repository
	status  SyncStatusRecorder
	logger  *zap.Logger
}

// NewSyncService creates a new SyncService. status may be nil.
func NewSyncService(imports *ImportService, runs *syncrepo.Repository, status SyncStatusRecorder, logger *zap.Logger) *SyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncService{imports: imports, runs: runs, status: status, logger: logger}
}

// Run performs a full sync unless one is already in progress. Progress is
// persisted under the returned run ID. The context is checked between
// entries.
func (s *SyncService) Run(ctx context.Context) (SyncResult, error) {
	running, err := s.runs.IsRunning(entities.SyncTypeLDAPSync)
	if err != nil {
		return SyncResult{}, err
	}
	if running {
		return SyncResult{}, ErrSyncRunning
	}

	runID := uuid.NewString()
	if err := s.runs.Start(runID, entities.SyncTypeLDAPSync, 0); err != nil {
		return SyncResult{}, err
	}

	result, err := s.sync(ctx, runID)
	result.RunID = runID

	if err != nil {
		s.logger.Error("LDAP sync failed", zap.String("run_id", runID), zap.Error(err))
		s.finish(runID, false, err.Error())
		s.imports.notify("LDAP Sync Failed", "Error during sync: "+err.Error())
		return result, err
	}

	msg := result.String()
	s.logger.Info("LDAP sync completed",
		zap.String("run_id", runID),
		zap.Int("added", result.Added),
		zap.Int("updated", result.Updated),
		zap.Int("conflicts", len(result.Conflicts)))
	s.finish(runID, true, msg)
	s.imports.notify("LDAP Sync Complete", msg)
	return result, nil
}

func (s *SyncService) finish(runID string, ok bool, msg string) {
	errMsg := ""
	status := "success"
	if !ok {
		errMsg = msg
		status = "failed"
	}
	if err := s.runs.Complete(runID, ok, errMsg); err != nil {
		s.logger.Warn("failed to complete sync run", zap.String("run_id", runID), zap.Error(err))
	}
	if s.status != nil {
		if err := s.status.SetLDAPSyncStatus(status, msg); err != nil {
			s.logger.Warn("failed to store sync status", zap.Error(err))
		}
	}
}

func (s *SyncService) sync(ctx context.Context, runID string) (SyncResult, error) {
	result := SyncResult{Conflicts: []SyncConflict{}}

	r, err := s.imports.reader()
	if err != nil {
		return result, err
	}
	people, err := r.People(ctx)
	if err != nil {
		return result, err
	}
	result.Total = len(people)
	s.logger.Info("directory entries found", zap.Int("count", len(people)))
	if err := s.runs.SetTotal(runID, len(people)); err != nil {
		s.logger.Warn("failed to store sync total", zap.Error(err))
	}

	for i := range people {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		person := &people[i]
		s.syncOne(ctx, person, &result)

		processed := i + 1
		if processed%10 == 0 || processed == len(people) {
			succeeded := result.Added + result.Updated
			if err := s.runs.UpdateProgress(runID, processed, succeeded, len(result.Conflicts), result.Failed, person.DN); err != nil {
				s.logger.Warn("failed to store sync progress", zap.Error(err))
			}
		}
	}
	return result, nil
}

func (s *SyncService) syncOne(ctx context.Context, person *directory.Person, result *SyncResult) {
	if person.UID == "" {
		s.logger.Warn("skipping entry without UID", zap.String("dn", person.DN))
		result.Skipped++
		return
	}

	byUID, err := s.imports.contacts.GetByUID(person.UID)
	if err != nil && !errors.Is(err, contacts.ErrNotFound) {
		s.logger.Error("contact lookup failed", zap.String("uid", person.UID), zap.Error(err))
		result.Failed++
		return
	}
	byDN, err := s.imports.contacts.GetByDN(person.DN)
	if err != nil && !errors.Is(err, contacts.ErrNotFound) {
		s.logger.Error("contact lookup failed", zap.String("dn", person.DN), zap.Error(err))
		result.Failed++
		return
	}

	conflicting := byUID != nil && ((byDN != nil && byUID.ID != byDN.ID) ||
		(byDN == nil && byUID.Source == entities.ContactSourceManual))
	if conflicting {
		if _, err := s.imports.flagConflict(byUID, person.DN); err != nil {
			s.logger.Error("failed to flag conflict", zap.String("uid", person.UID), zap.Error(err))
			result.Failed++
			return
		}
		result.Conflicts = append(result.Conflicts, SyncConflict{
			UID:             person.UID,
			ManualContactID: byUID.ID,
			DN:              person.DN,
		})
		return
	}

	contact := byDN
	if contact == nil {
		contact = byUID
	}
	if err := s.imports.upsert(ctx, contact, person, person.DN, entities.ChangedByLDAPSync); err != nil {
		s.logger.Error("failed to store contact", zap.String("dn", person.DN), zap.Error(err))
		result.Failed++
		return
	}
	if contact == nil {
		result.Added++
	} else {
		result.Updated++
	}
}
