package service

import (
	"context"
	"fmt"
	"sort"

	"witar/internal/modules/tracker/domain"
)

// ReconcileResult reports which corrective branch a cycle took.
type ReconcileResult struct {
	Restored  bool // orphaned local session re-created remotely
	Corrected bool // remote clock-in time overwrote the local one
	Adopted   bool // remote active entry adopted into a local OUT state
}

// Reconcile converges local session state with the entry store:
//
//  1. Query all active entries for the user and company.
//  2. No remote active but local active: the local session is orphaned
//     (clocked out elsewhere, or the original insert never landed).
//     Re-create a remote entry from the local start time rather than
//     discard in-progress work.
//  3. Remote active exists: if its clock-in time diverges from the local
//     start beyond the drift tolerance, the remote value wins and elapsed
//     time is recomputed from it.
//  4. Duplicate actives (two devices racing the orphan restore) are
//     deduplicated by keeping the earliest clock-in and completing the rest.
//
// The store query runs without the session lock; the result is discarded
// if a user transition bumped the revision in the meantime.
func (s *TrackerService) Reconcile(ctx context.Context) (ReconcileResult, error) {
	s.mu.Lock()
	rev := s.session.Revision
	localActive := s.session.IsActive()
	startedAt := s.session.StartedAt
	loc := s.session.Location
	companyID := s.session.CompanyID
	s.mu.Unlock()

	if companyID == "" {
		companyID = s.companyID
	}
	if companyID == "" {
		return ReconcileResult{}, nil
	}

	cctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	actives, err := s.entries.ActiveEntries(cctx, s.userID, companyID)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("query active entries: %w", err)
	}
	sort.Slice(actives, func(i, j int) bool {
		return actives[i].ClockInTime.Before(actives[j].ClockInTime)
	})

	result := ReconcileResult{}
	var remote domain.TimeEntry
	switch {
	case len(actives) == 0 && localActive:
		entry, createErr := s.entries.CreateActiveEntry(cctx, s.userID, companyID, startedAt, loc)
		if createErr != nil {
			return ReconcileResult{}, fmt.Errorf("restore orphaned session: %w", createErr)
		}
		remote = entry
		result.Restored = true
		s.log.WithField("entry_id", entry.ID).Info("restored orphaned session")
	case len(actives) > 0:
		remote = actives[0]
		for _, dup := range actives[1:] {
			if _, dupErr := s.entries.CompleteEntry(cctx, dup.ID, s.clock.Now(), 0); dupErr != nil {
				s.log.WithError(dupErr).WithField("entry_id", dup.ID).Warn("complete duplicate active entry")
			} else {
				s.log.WithField("entry_id", dup.ID).Info("completed duplicate active entry")
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session.Revision != rev {
		// A transition won the race; this cycle's view is stale. A restore
		// already created a remote entry, so undo it, or the next cycle
		// would adopt it and clock the user straight back in.
		if result.Restored {
			if _, err := s.entries.CompleteEntry(cctx, remote.ID, s.clock.Now(), 0); err != nil {
				s.log.WithError(err).WithField("entry_id", remote.ID).Warn("complete stale restored entry")
			}
		}
		return ReconcileResult{}, nil
	}

	now := s.clock.Now()
	switch {
	case remote.ID == "":
		// Nothing active on either side.
	case !s.session.IsActive():
		// Clocked in from another device: mirror it locally.
		if err := s.session.Start(remote.ClockInTime, companyID, remote.ID, remote.Location); err == nil {
			s.session.Tick(now)
			result.Adopted = true
			s.log.WithField("entry_id", remote.ID).Info("adopted remote active session")
		}
	case result.Restored:
		s.session.EntryID = remote.ID
	case domain.DriftExceeds(s.session.StartedAt, remote.ClockInTime, s.driftTolerance):
		s.session.AdoptRemoteStart(now, remote.ClockInTime, remote.ID)
		result.Corrected = true
		s.log.WithField("clock_in", remote.ClockInTime).Info("corrected local start time from store")
	default:
		s.session.EntryID = remote.ID
	}

	s.session.LastSyncAt = now
	if s.session.IsActive() {
		s.persistLocked(ctx, now)
	}
	return result, nil
}
