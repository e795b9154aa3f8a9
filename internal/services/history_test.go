package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pramod/validator-backend/internal/apierr"
	"github.com/pramod/validator-backend/internal/types"
)

type historyFixture struct {
	svc     HistoryService
	reports *fakeReportRepo
	users   *fakeUserRepo
	perms   *fakePermissionRepo
}

func newHistoryFixture(t *testing.T) *historyFixture {
	t.Helper()
	f := &historyFixture{
		reports: newFakeReportRepo(),
		users:   newFakeUserRepo(),
		perms:   newFakePermissionRepo(),
	}
	f.svc = NewHistoryService(nil, testLogger(t), f.reports, f.users, f.perms)
	return f
}

func (f *historyFixture) addUser(role, enterpriseID, department string) uuid.UUID {
	id := uuid.New()
	f.users.rows[id] = types.User{
		ID:           id,
		Role:         role,
		EnterpriseID: enterpriseID,
		Department:   department,
	}
	return id
}

func (f *historyFixture) addReport(userID uuid.UUID, enterpriseID, department string, completedAt time.Time) types.Report {
	r := types.Report{
		ID:             uuid.New(),
		UserID:         userID,
		EnterpriseID:   enterpriseID,
		UserDepartment: department,
		AssessmentName: "A",
		CompletedAt:    completedAt,
	}
	f.reports.put(r)
	return r
}

func TestResolveViewerScopePrecedence(t *testing.T) {
	tests := []struct {
		name       string
		role       string
		enterprise string
		department string
		perm       *types.UserPermission
		want       ViewScope
	}{
		{name: "super admin is global", role: types.RoleSuperAdmin, enterprise: "ent-1", want: ScopeGlobal},
		{name: "standalone super admin still global", role: types.RoleSuperAdmin, enterprise: "", want: ScopeGlobal},
		{name: "standalone user is own only", role: types.RoleUser, enterprise: "", want: ScopeOwn},
		{
			name: "standalone ignores stored permissions", role: types.RoleUser, enterprise: "",
			perm: &types.UserPermission{CanViewAllAssessments: true}, want: ScopeOwn,
		},
		{name: "enterprise admin sees enterprise", role: types.RoleEnterpriseAdmin, enterprise: "ent-1", want: ScopeEnterprise},
		{
			name: "view-all permission widens to enterprise", role: types.RoleUser, enterprise: "ent-1",
			perm: &types.UserPermission{CanViewAllAssessments: true}, want: ScopeEnterprise,
		},
		{
			name: "view-all beats department flag", role: types.RoleUser, enterprise: "ent-1",
			perm: &types.UserPermission{CanViewAllAssessments: true, CanViewDepartmentAssessments: true}, want: ScopeEnterprise,
		},
		{
			name: "department permission", role: types.RoleUser, enterprise: "ent-1",
			perm: &types.UserPermission{CanViewDepartmentAssessments: true, Department: "QA"}, want: ScopeDepartment,
		},
		{name: "no permission row falls back to own", role: types.RoleUser, enterprise: "ent-1", want: ScopeOwn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newHistoryFixture(t)
			userID := f.addUser(tt.role, tt.enterprise, tt.department)
			if tt.perm != nil {
				perm := *tt.perm
				perm.UserID = userID
				f.perms.rows[userID] = perm
			}
			viewer, err := f.svc.ResolveViewer(context.Background(), userID)
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if viewer.Scope != tt.want {
				t.Fatalf("scope = %q, want %q", viewer.Scope, tt.want)
			}
		})
	}
}

func TestResolveViewerPermissionDepartmentOverridesProfile(t *testing.T) {
	f := newHistoryFixture(t)
	userID := f.addUser(types.RoleUser, "ent-1", "Profile Dept")
	f.perms.rows[userID] = types.UserPermission{
		UserID:                       userID,
		Department:                   "Perm Dept",
		CanViewDepartmentAssessments: true,
	}
	viewer, err := f.svc.ResolveViewer(context.Background(), userID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if viewer.Department != "Perm Dept" {
		t.Fatalf("permission department must win, got %q", viewer.Department)
	}
}

func TestResolveViewerPermissionLookupFailureFallsBackToOwn(t *testing.T) {
	f := newHistoryFixture(t)
	userID := f.addUser(types.RoleUser, "ent-1", "QA")
	f.perms.fail = errors.New("gateway down")
	viewer, err := f.svc.ResolveViewer(context.Background(), userID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if viewer.Scope != ScopeOwn {
		t.Fatalf("lookup failure must degrade to own scope, got %q", viewer.Scope)
	}
}

func TestResolveViewerUnknownUser(t *testing.T) {
	f := newHistoryFixture(t)
	_, err := f.svc.ResolveViewer(context.Background(), uuid.New())
	if !apierr.HasCode(err, apierr.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPageKeysetWalksEntireStream(t *testing.T) {
	f := newHistoryFixture(t)
	userID := uuid.New()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	// Two rows share a completed_at to force the id tie-break
	for i := 0; i < 5; i++ {
		ts := base.Add(time.Duration(i/2) * time.Hour)
		f.addReport(userID, "", "", ts)
	}
	viewer := ViewerContext{UserID: userID, Scope: ScopeOwn}

	seen := map[uuid.UUID]struct{}{}
	cursor := ""
	pages := 0
	for {
		page, err := f.svc.Page(context.Background(), viewer, cursor, 2)
		if err != nil {
			t.Fatalf("page %d: %v", pages, err)
		}
		if len(page.Reports) > 2 {
			t.Fatalf("page overflow: %d rows", len(page.Reports))
		}
		var prev *types.Report
		for _, r := range page.Reports {
			if _, dup := seen[r.ID]; dup {
				t.Fatalf("report %s returned twice", r.ID)
			}
			seen[r.ID] = struct{}{}
			if prev != nil && r.CompletedAt.After(prev.CompletedAt) {
				t.Fatalf("page out of order")
			}
			prev = r
		}
		pages++
		if !page.HasMore {
			if page.NextCursor != "" {
				t.Fatalf("final page must not carry a cursor")
			}
			break
		}
		if page.NextCursor == "" {
			t.Fatalf("has_more without a cursor")
		}
		cursor = page.NextCursor
	}
	if len(seen) != 5 {
		t.Fatalf("walk returned %d of 5 reports", len(seen))
	}
	if pages != 3 {
		t.Fatalf("expected 3 pages, got %d", pages)
	}
}

func TestPageScopesSeeOnlyTheirRows(t *testing.T) {
	f := newHistoryFixture(t)
	now := time.Now().UTC()
	me := uuid.New()
	colleague := uuid.New()
	outsider := uuid.New()
	f.addReport(me, "ent-1", "QA", now)
	f.addReport(colleague, "ent-1", "Production", now.Add(-time.Hour))
	f.addReport(outsider, "ent-2", "QA", now.Add(-2*time.Hour))

	own, err := f.svc.Page(context.Background(), ViewerContext{UserID: me, Scope: ScopeOwn}, "", 10)
	if err != nil {
		t.Fatalf("own page: %v", err)
	}
	if len(own.Reports) != 1 || own.Reports[0].UserID != me {
		t.Fatalf("own scope leaked rows: %+v", own.Reports)
	}

	ent, err := f.svc.Page(context.Background(), ViewerContext{UserID: me, Scope: ScopeEnterprise, EnterpriseID: "ent-1"}, "", 10)
	if err != nil {
		t.Fatalf("enterprise page: %v", err)
	}
	if len(ent.Reports) != 2 {
		t.Fatalf("enterprise scope expected 2 rows, got %d", len(ent.Reports))
	}

	global, err := f.svc.Page(context.Background(), ViewerContext{UserID: me, Scope: ScopeGlobal}, "", 10)
	if err != nil {
		t.Fatalf("global page: %v", err)
	}
	if len(global.Reports) != 3 {
		t.Fatalf("global scope expected 3 rows, got %d", len(global.Reports))
	}
}

func TestPageDepartmentScopeFiltersInMemory(t *testing.T) {
	f := newHistoryFixture(t)
	now := time.Now().UTC()
	me := uuid.New()
	f.addReport(me, "ent-1", "Quality Assurance", now)
	f.addReport(uuid.New(), "ent-1", "quality assurance", now.Add(-time.Hour))
	f.addReport(uuid.New(), "ent-1", "Production", now.Add(-2*time.Hour))

	viewer := ViewerContext{UserID: me, Scope: ScopeDepartment, EnterpriseID: "ent-1", Department: "Quality Assurance"}
	page, err := f.svc.Page(context.Background(), viewer, "", 1)
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	// Department scope answers in one shot; the page size is advisory
	if len(page.Reports) != 2 {
		t.Fatalf("case-insensitive department match expected 2 rows, got %d", len(page.Reports))
	}
	if page.HasMore || page.NextCursor != "" {
		t.Fatalf("department scope never paginates")
	}
}

func TestPageEmptyDepartmentMatchesNothing(t *testing.T) {
	f := newHistoryFixture(t)
	me := uuid.New()
	f.addReport(me, "ent-1", "", time.Now().UTC())
	viewer := ViewerContext{UserID: me, Scope: ScopeDepartment, EnterpriseID: "ent-1", Department: ""}
	page, err := f.svc.Page(context.Background(), viewer, "", 10)
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if len(page.Reports) != 0 {
		t.Fatalf("empty department must match nothing, got %d rows", len(page.Reports))
	}
}

func TestPageInvalidCursor(t *testing.T) {
	f := newHistoryFixture(t)
	_, err := f.svc.Page(context.Background(), ViewerContext{UserID: uuid.New(), Scope: ScopeOwn}, "not-base64!!!", 10)
	if !errors.Is(err, ErrInvalidCursor) {
		t.Fatalf("expected ErrInvalidCursor, got %v", err)
	}
}

func TestLoadAllAppliesScope(t *testing.T) {
	f := newHistoryFixture(t)
	now := time.Now().UTC()
	me := uuid.New()
	f.addReport(me, "ent-1", "QA", now)
	f.addReport(uuid.New(), "ent-1", "QA", now.Add(-time.Hour))
	f.addReport(uuid.New(), "ent-2", "QA", now.Add(-2*time.Hour))

	rows, err := f.svc.LoadAll(context.Background(), ViewerContext{UserID: me, Scope: ScopeDepartment, EnterpriseID: "ent-1", Department: "qa"})
	if err != nil {
		t.Fatalf("load all: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("department load-all expected 2 rows, got %d", len(rows))
	}
}

func histReport(name, domainID, domainName string, completedAt time.Time) *types.Report {
	return &types.Report{
		ID:             uuid.New(),
		AssessmentName: name,
		DomainID:       domainID,
		DomainName:     domainName,
		CompletedAt:    completedAt,
	}
}

func TestFiltersDomainStage(t *testing.T) {
	now := time.Now().UTC()
	reports := []*types.Report{
		histReport("a", "qu_1", "Quality Unit", now),
		histReport("b", "pl_2", "Packaging & Labeling", now),
		histReport("c", "", "Advanced Manufacturing", now),
		histReport("d", "custom", "Custom Assessment", now),
		histReport("e", "lab_1", "Laboratory Systems", now),
	}

	tests := []struct {
		domain string
		want   []string
	}{
		{"Quality Unit", []string{"a"}},
		{"Packaging & Labeling", []string{"b"}},
		{"Production", []string{"c"}}, // display name mentions manufacturing
		{"Custom", []string{"d"}},
		{"Laboratory Systems", []string{"e"}},
		{"Facilities & Equipment", nil},
	}
	for _, tt := range tests {
		got := HistoryFilters{Domains: []string{tt.domain}}.Apply(reports, now)
		if len(got) != len(tt.want) {
			t.Fatalf("domain %q: got %d rows, want %d", tt.domain, len(got), len(tt.want))
		}
		for i, r := range got {
			if r.AssessmentName != tt.want[i] {
				t.Fatalf("domain %q: got %q at %d, want %q", tt.domain, r.AssessmentName, i, tt.want[i])
			}
		}
	}
}

func TestFiltersStatusStage(t *testing.T) {
	now := time.Now().UTC()
	reports := []*types.Report{histReport("a", "qu_1", "Quality Unit", now)}

	if got := (HistoryFilters{Statuses: []string{"In Progress"}}).Apply(reports, now); len(got) != 0 {
		t.Fatalf("in-progress alone must match no completed reports, got %d", len(got))
	}
	if got := (HistoryFilters{Statuses: []string{"Completed"}}).Apply(reports, now); len(got) != 1 {
		t.Fatalf("completed must pass everything through, got %d", len(got))
	}
	if got := (HistoryFilters{Statuses: []string{"In Progress", "Completed"}}).Apply(reports, now); len(got) != 1 {
		t.Fatalf("both statuses must pass everything through, got %d", len(got))
	}
}

func TestFiltersDateRangeStage(t *testing.T) {
	// A Wednesday afternoon; the week started Monday the 12th
	now := time.Date(2026, 1, 14, 15, 30, 0, 0, time.UTC)
	today := histReport("today", "qu_1", "Quality Unit", time.Date(2026, 1, 14, 0, 0, 0, 0, time.UTC))
	yesterday := histReport("yesterday", "qu_1", "Quality Unit", time.Date(2026, 1, 13, 23, 59, 0, 0, time.UTC))
	monday := histReport("monday", "qu_1", "Quality Unit", time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC))
	lastWeek := histReport("last-week", "qu_1", "Quality Unit", time.Date(2026, 1, 11, 23, 59, 0, 0, time.UTC))
	lastMonth := histReport("last-month", "qu_1", "Quality Unit", time.Date(2025, 12, 31, 12, 0, 0, 0, time.UTC))
	reports := []*types.Report{today, yesterday, monday, lastWeek, lastMonth}

	tests := []struct {
		rangeName string
		want      int
	}{
		{RangeToday, 1},
		{RangeThisWeek, 3},
		{RangeThisMonth, 4},
		{RangeAllTime, 5},
		{"", 5},
	}
	for _, tt := range tests {
		got := HistoryFilters{DateRange: tt.rangeName}.Apply(reports, now)
		if len(got) != tt.want {
			t.Fatalf("range %q: got %d rows, want %d", tt.rangeName, len(got), tt.want)
		}
	}
}

func TestFiltersQueryStage(t *testing.T) {
	now := time.Now().UTC()
	a := histReport("Sterility Check", "qu_1", "Quality Unit", now)
	a.FacilityName = "Plant North"
	b := histReport("Other", "pr_1", "Production", now)
	b.UserName = "Dana Smith"
	c := histReport("Third", "mt_1", "Materials", now)
	c.SubDomainName = "Warehouse Receiving"
	reports := []*types.Report{a, b, c}

	tests := []struct {
		query string
		want  int
	}{
		{"sterility", 1},
		{"plant north", 1},
		{"dana", 1},
		{"warehouse", 1},
		{"  PRODUCTION  ", 1},
		{"nothing-here", 0},
	}
	for _, tt := range tests {
		got := HistoryFilters{Query: tt.query}.Apply(reports, now)
		if len(got) != tt.want {
			t.Fatalf("query %q: got %d rows, want %d", tt.query, len(got), tt.want)
		}
	}
}

func TestFiltersSortStage(t *testing.T) {
	now := time.Now().UTC()
	a := histReport("alpha", "qu_1", "Quality Unit", now.Add(-2*time.Hour))
	b := histReport("Bravo", "pr_1", "Production", now.Add(-time.Hour))
	c := histReport("charlie", "mt_1", "Materials", now)
	reports := []*types.Report{a, b, c}

	tests := []struct {
		sortBy string
		want   []string
	}{
		{SortDateNewest, []string{"charlie", "Bravo", "alpha"}},
		{SortDateOldest, []string{"alpha", "Bravo", "charlie"}},
		{SortNameAsc, []string{"alpha", "Bravo", "charlie"}},
		{SortNameDesc, []string{"charlie", "Bravo", "alpha"}},
		{SortDomainAsc, []string{"charlie", "Bravo", "alpha"}},
		{SortDomainDesc, []string{"alpha", "Bravo", "charlie"}},
		{"", []string{"charlie", "Bravo", "alpha"}},
	}
	for _, tt := range tests {
		got := HistoryFilters{SortBy: tt.sortBy}.Apply(reports, now)
		for i, r := range got {
			if r.AssessmentName != tt.want[i] {
				t.Fatalf("sort %q: position %d is %q, want %q", tt.sortBy, i, r.AssessmentName, tt.want[i])
			}
		}
	}
}

func TestFiltersDedupeStage(t *testing.T) {
	now := time.Now().UTC()
	r := histReport("dup", "qu_1", "Quality Unit", now)
	got := HistoryFilters{}.Apply([]*types.Report{r, r, r}, now)
	if len(got) != 1 {
		t.Fatalf("duplicates by id must collapse, got %d rows", len(got))
	}
}

func TestFiltersDoNotMutateInput(t *testing.T) {
	now := time.Now().UTC()
	a := histReport("a", "qu_1", "Quality Unit", now.Add(-time.Hour))
	b := histReport("b", "pr_1", "Production", now)
	input := []*types.Report{a, b}

	_ = HistoryFilters{SortBy: SortNameDesc}.Apply(input, now)
	if input[0] != a || input[1] != b {
		t.Fatalf("apply must not reorder the input slice")
	}
}
