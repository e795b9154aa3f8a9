package services

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pramod/validator-backend/internal/logger"
	"github.com/pramod/validator-backend/internal/repos"
	"github.com/pramod/validator-backend/internal/types"
)

func testLogger(t interface{ Fatalf(string, ...interface{}) }) *logger.Logger {
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger init: %v", err)
	}
	return log
}

type fakeDraftRepo struct {
	mu      sync.Mutex
	rows    map[uuid.UUID]types.DraftAssessment
	failAll error
}

func newFakeDraftRepo() *fakeDraftRepo {
	return &fakeDraftRepo{rows: map[uuid.UUID]types.DraftAssessment{}}
}

func (f *fakeDraftRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.DraftAssessment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	row, ok := f.rows[id]
	if !ok {
		return nil, nil
	}
	copied := row
	return &copied, nil
}

func (f *fakeDraftRepo) FindByNaturalKey(ctx context.Context, tx *gorm.DB, userID uuid.UUID, assessmentName, subDomainID string, isCustom bool, facilityID string) (*types.DraftAssessment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	var found *types.DraftAssessment
	for _, row := range f.rows {
		if row.UserID != userID || row.AssessmentName != assessmentName || row.SubDomainID != subDomainID || row.IsCustom != isCustom {
			continue
		}
		if !isCustom && row.FacilityID != facilityID {
			continue
		}
		if found == nil || row.UpdatedAt.After(found.UpdatedAt) {
			copied := row
			found = &copied
		}
	}
	return found, nil
}

func (f *fakeDraftRepo) Upsert(ctx context.Context, tx *gorm.DB, row *types.DraftAssessment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	f.rows[row.ID] = *row
	return nil
}

func (f *fakeDraftRepo) DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeDraftRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.DraftAssessment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	var out []*types.DraftAssessment
	for _, row := range f.rows {
		if row.UserID == userID {
			copied := row
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

type fakeReportRepo struct {
	mu         sync.Mutex
	rows       map[uuid.UUID]types.Report
	failUpsert error
	failReads  error
	listCalls  int
}

func newFakeReportRepo() *fakeReportRepo {
	return &fakeReportRepo{rows: map[uuid.UUID]types.Report{}}
}

func (f *fakeReportRepo) put(row types.Report) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[row.ID] = row
}

func (f *fakeReportRepo) get(id uuid.UUID) (types.Report, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	return row, ok
}

func (f *fakeReportRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failReads != nil {
		return nil, f.failReads
	}
	row, ok := f.rows[id]
	if !ok {
		return nil, nil
	}
	copied := row
	return &copied, nil
}

func (f *fakeReportRepo) FindByNaturalKey(ctx context.Context, tx *gorm.DB, userID uuid.UUID, assessmentName, subDomainID, facilityID, domainID string) (*types.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failReads != nil {
		return nil, f.failReads
	}
	checkFacility := domainID != types.DomainIDCustom && domainID != ""
	var found *types.Report
	for _, row := range f.rows {
		if row.UserID != userID || row.AssessmentName != assessmentName || row.SubDomainID != subDomainID || row.DomainID != domainID {
			continue
		}
		if checkFacility && row.FacilityID != facilityID {
			continue
		}
		if found == nil || row.CompletedAt.After(found.CompletedAt) {
			copied := row
			found = &copied
		}
	}
	return found, nil
}

func (f *fakeReportRepo) Upsert(ctx context.Context, tx *gorm.DB, row *types.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpsert != nil {
		return f.failUpsert
	}
	f.rows[row.ID] = *row
	return nil
}

func (f *fakeReportRepo) UpdateSummaryIfUnresolved(ctx context.Context, tx *gorm.DB, id uuid.UUID, summary string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return false, nil
	}
	if row.AISummaryStatus != types.SummaryPending && row.AISummaryStatus != types.SummaryFailed {
		return false, nil
	}
	row.AISummary = summary
	row.AISummaryStatus = types.SummaryCompleted
	f.rows[id] = row
	return true, nil
}

func (f *fakeReportRepo) sortedRows(filter func(types.Report) bool) []*types.Report {
	var out []*types.Report
	for _, row := range f.rows {
		if filter != nil && !filter(row) {
			continue
		}
		copied := row
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CompletedAt.Equal(out[j].CompletedAt) {
			return out[i].CompletedAt.After(out[j].CompletedAt)
		}
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) > 0
	})
	return out
}

func (f *fakeReportRepo) pageRows(filter func(types.Report) bool, cursorTime *types.Report, limit int) []*types.Report {
	rows := f.sortedRows(filter)
	if cursorTime != nil {
		var after []*types.Report
		for _, row := range rows {
			if row.CompletedAt.Before(cursorTime.CompletedAt) ||
				(row.CompletedAt.Equal(cursorTime.CompletedAt) && bytes.Compare(row.ID[:], cursorTime.ID[:]) < 0) {
				after = append(after, row)
			}
		}
		rows = after
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

func (f *fakeReportRepo) page(filter func(types.Report) bool, cursor *repos.PageCursor, limit int) []*types.Report {
	var marker *types.Report
	if cursor != nil {
		marker = &types.Report{CompletedAt: cursor.CompletedAt, ID: cursor.ID}
	}
	return f.pageRows(filter, marker, limit)
}

func (f *fakeReportRepo) PageByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, cursor *repos.PageCursor, limit int) ([]*types.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failReads != nil {
		return nil, f.failReads
	}
	return f.page(func(r types.Report) bool { return r.UserID == userID }, cursor, limit), nil
}

func (f *fakeReportRepo) PageByEnterprise(ctx context.Context, tx *gorm.DB, enterpriseID string, cursor *repos.PageCursor, limit int) ([]*types.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failReads != nil {
		return nil, f.failReads
	}
	return f.page(func(r types.Report) bool { return r.EnterpriseID == enterpriseID }, cursor, limit), nil
}

func (f *fakeReportRepo) PageAll(ctx context.Context, tx *gorm.DB, cursor *repos.PageCursor, limit int) ([]*types.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failReads != nil {
		return nil, f.failReads
	}
	return f.page(nil, cursor, limit), nil
}

func (f *fakeReportRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.failReads != nil {
		return nil, f.failReads
	}
	return f.sortedRows(func(r types.Report) bool { return r.UserID == userID }), nil
}

func (f *fakeReportRepo) ListByEnterprise(ctx context.Context, tx *gorm.DB, enterpriseID string) ([]*types.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.failReads != nil {
		return nil, f.failReads
	}
	return f.sortedRows(func(r types.Report) bool { return r.EnterpriseID == enterpriseID }), nil
}

func (f *fakeReportRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.failReads != nil {
		return nil, f.failReads
	}
	return f.sortedRows(nil), nil
}

func (f *fakeReportRepo) ListUnresolvedByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failReads != nil {
		return nil, f.failReads
	}
	return f.sortedRows(func(r types.Report) bool {
		return r.UserID == userID && (r.AISummaryStatus == types.SummaryPending || r.AISummaryStatus == types.SummaryFailed)
	}), nil
}

type fakeUserRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]types.User
	fail error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{rows: map[uuid.UUID]types.User{}}
}

func (f *fakeUserRepo) Create(ctx context.Context, tx *gorm.DB, users []*types.User) ([]*types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range users {
		f.rows[u.ID] = *u
	}
	return users, nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	row, ok := f.rows[userID]
	if !ok {
		return nil, nil
	}
	copied := row
	return &copied, nil
}

func (f *fakeUserRepo) GetByIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.User, error) {
	var out []*types.User
	for _, id := range userIDs {
		if u, _ := f.GetByID(ctx, tx, id); u != nil {
			out = append(out, u)
		}
	}
	return out, nil
}

type fakePermissionRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]types.UserPermission
	fail error
}

func newFakePermissionRepo() *fakePermissionRepo {
	return &fakePermissionRepo{rows: map[uuid.UUID]types.UserPermission{}}
}

func (f *fakePermissionRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.UserPermission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	row, ok := f.rows[userID]
	if !ok {
		return nil, nil
	}
	copied := row
	return &copied, nil
}

func (f *fakePermissionRepo) Upsert(ctx context.Context, tx *gorm.DB, row *types.UserPermission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[row.UserID] = *row
	return nil
}

type fakeQuestionRepo struct {
	rows map[string][]*types.Question
	fail error
}

func newFakeQuestionRepo() *fakeQuestionRepo {
	return &fakeQuestionRepo{rows: map[string][]*types.Question{}}
}

func (f *fakeQuestionRepo) GetBySubDomainID(ctx context.Context, tx *gorm.DB, subDomainID string) ([]*types.Question, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	return f.rows[subDomainID], nil
}

type fakeCallLogRepo struct {
	mu   sync.Mutex
	rows []*types.AICallLog
}

func (f *fakeCallLogRepo) Create(ctx context.Context, tx *gorm.DB, logs []*types.AICallLog) ([]*types.AICallLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, logs...)
	return logs, nil
}

type fakeNarrative struct {
	mu      sync.Mutex
	summary string
	err     error
	calls   int
	model   string
}

func (f *fakeNarrative) GenerateSummary(ctx context.Context, domainName, subDomainName, assessmentName string, qa map[string]QA) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if f.summary != "" {
		return f.summary, nil
	}
	return fmt.Sprintf("summary for %s", assessmentName), nil
}

func (f *fakeNarrative) Model() string {
	if f.model != "" {
		return f.model
	}
	return "gpt-4o-mini"
}

func (f *fakeNarrative) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
