package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m88-digital/idea-intake-api/internal/models"
	appErrors "github.com/m88-digital/idea-intake-api/pkg/errors"
)

type mockIdeaRepo struct {
	ideas       map[string]models.Idea
	insertErr   error
	updateErr   error
	updateDeny  bool
	lastUpdated *models.Idea
	lastPrior   models.IdeaStatus
}

func (m *mockIdeaRepo) Insert(ctx context.Context, idea *models.Idea) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	if m.ideas == nil {
		m.ideas = make(map[string]models.Idea)
	}
	m.ideas[idea.ID] = *idea
	return nil
}

func (m *mockIdeaRepo) FindByID(ctx context.Context, id string) (*models.Idea, error) {
	if idea, ok := m.ideas[id]; ok {
		return &idea, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockIdeaRepo) UpdateStatus(ctx context.Context, idea *models.Idea, expected models.IdeaStatus) (bool, error) {
	if m.updateErr != nil {
		return false, m.updateErr
	}
	if m.updateDeny {
		return false, nil
	}
	current, ok := m.ideas[idea.ID]
	if !ok || current.Status != expected {
		return false, nil
	}
	m.ideas[idea.ID] = *idea
	m.lastUpdated = idea
	m.lastPrior = expected
	return true, nil
}

func (m *mockIdeaRepo) List(ctx context.Context, filter models.IdeaFilter) ([]models.Idea, int, error) {
	out := make([]models.Idea, 0, len(m.ideas))
	for _, idea := range m.ideas {
		out = append(out, idea)
	}
	return out, len(out), nil
}

func (m *mockIdeaRepo) ListAll(ctx context.Context, filter models.IdeaFilter, maxRows int) ([]models.Idea, error) {
	out := make([]models.Idea, 0, len(m.ideas))
	for _, idea := range m.ideas {
		out = append(out, idea)
	}
	return out, nil
}

type recordedAudit struct {
	IdeaID      string
	Action      string
	PerformedBy string
	Details     string
}

type mockAudit struct {
	entries []recordedAudit
	err     error
}

func (m *mockAudit) Record(ctx context.Context, ideaID, action, performedBy, details string) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, recordedAudit{IdeaID: ideaID, Action: action, PerformedBy: performedBy, Details: details})
	return nil
}

type mockNotifier struct {
	notices []models.SubmissionNotification
}

func (m *mockNotifier) NotifySubmission(n models.SubmissionNotification) {
	m.notices = append(m.notices, n)
}

type mockInvalidator struct {
	patterns []string
}

func (m *mockInvalidator) Invalidate(ctx context.Context, pattern string) error {
	m.patterns = append(m.patterns, pattern)
	return nil
}

func validCreateRequest() CreateIdeaRequest {
	return CreateIdeaRequest{
		Title:              "Automate PO matching",
		Description:        "Match purchase orders to invoices automatically",
		Department:         "Purchasing",
		Country:            "Philippines",
		ExpectedBenefit:    "Automation",
		Frequency:          "Daily",
		SubmitterFirstName: "Maria",
		SubmitterLastName:  "Santos",
		SubmitterEmail:     "Maria.Santos@example.com",
	}
}

func seededIdea(id string, status models.IdeaStatus) models.Idea {
	return models.Idea{
		ID:                 id,
		Title:              "Automate PO matching",
		Description:        "Match purchase orders to invoices automatically",
		Department:         "Purchasing",
		Country:            "Philippines",
		ExpectedBenefit:    "Automation",
		Frequency:          "Daily",
		SubmitterFirstName: "Maria",
		SubmitterLastName:  "Santos",
		SubmitterEmail:     "maria.santos@example.com",
		Status:             status,
	}
}

func newIdeaService(repo *mockIdeaRepo, audit *mockAudit, notifier *mockNotifier, cache *mockInvalidator) *IdeaService {
	// A nil *mockNotifier wrapped in the interface would no longer
	// compare equal to nil inside the service, so only assign when set.
	var n submissionNotifier
	if notifier != nil {
		n = notifier
	}
	var inv statsInvalidator
	if cache != nil {
		inv = cache
	}
	return NewIdeaService(repo, audit, n, inv, nil, nil, nil)
}

func TestCreateIdea(t *testing.T) {
	repo := &mockIdeaRepo{}
	audit := &mockAudit{}
	notifier := &mockNotifier{}
	cache := &mockInvalidator{}
	svc := newIdeaService(repo, audit, notifier, cache)

	idea, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	assert.Equal(t, models.StatusSubmitted, idea.Status)
	assert.Equal(t, models.PriorityNotSelected, idea.Priority)
	assert.Equal(t, "maria.santos@example.com", idea.SubmitterEmail)

	require.True(t, strings.HasPrefix(idea.ID, "AIT-"))
	assert.Len(t, idea.ID, len("AIT-")+5)
	for _, r := range idea.ID[len("AIT-"):] {
		assert.Contains(t, "ABCDEFGHJKLMNPQRSTUVWXYZ23456789", string(r))
	}

	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionCreated, audit.entries[0].Action)
	assert.Equal(t, idea.ID, audit.entries[0].IdeaID)
	assert.Equal(t, "Maria Santos", audit.entries[0].PerformedBy)

	require.Len(t, notifier.notices, 1)
	assert.Equal(t, idea.ID, notifier.notices[0].ReferenceID)

	require.Len(t, cache.patterns, 1)
	assert.Equal(t, "analytics:ideas:*", cache.patterns[0])
}

func TestCreateIdeaRejectsUnknownEnums(t *testing.T) {
	svc := newIdeaService(&mockIdeaRepo{}, &mockAudit{}, nil, nil)

	cases := []struct {
		name   string
		mutate func(*CreateIdeaRequest)
	}{
		{"department", func(r *CreateIdeaRequest) { r.Department = "Finance" }},
		{"country", func(r *CreateIdeaRequest) { r.Country = "Japan" }},
		{"benefit", func(r *CreateIdeaRequest) { r.ExpectedBenefit = "Cost Cutting" }},
		{"involved department", func(r *CreateIdeaRequest) { r.InvolvedDepartments = []string{"IT", "Finance"} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validCreateRequest()
			tc.mutate(&req)
			_, err := svc.Create(context.Background(), req)
			require.Error(t, err)
			assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
		})
	}
}

func TestCreateIdeaMissingFields(t *testing.T) {
	svc := newIdeaService(&mockIdeaRepo{}, &mockAudit{}, nil, nil)

	req := validCreateRequest()
	req.Title = "   "
	req.SubmitterEmail = "not-an-email"

	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestCreateIdeaInsertFailureSkipsAuditAndNotification(t *testing.T) {
	repo := &mockIdeaRepo{insertErr: fmt.Errorf("connection reset")}
	audit := &mockAudit{}
	notifier := &mockNotifier{}
	svc := newIdeaService(repo, audit, notifier, nil)

	_, err := svc.Create(context.Background(), validCreateRequest())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrPersistence))
	assert.Empty(t, audit.entries)
	assert.Empty(t, notifier.notices)
}

func TestCreateIdeaSurvivesAuditFailure(t *testing.T) {
	repo := &mockIdeaRepo{}
	audit := &mockAudit{err: fmt.Errorf("audit store down")}
	svc := newIdeaService(repo, audit, nil, nil)

	idea, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)
	assert.Contains(t, repo.ideas, idea.ID)
}

func TestTransitionSubmittedToUnderReview(t *testing.T) {
	repo := &mockIdeaRepo{ideas: map[string]models.Idea{
		"AIT-AAAAA": seededIdea("AIT-AAAAA", models.StatusSubmitted),
	}}
	audit := &mockAudit{}
	cache := &mockInvalidator{}
	svc := newIdeaService(repo, audit, nil, cache)

	idea, err := svc.Transition(context.Background(), "AIT-AAAAA", models.StatusUnderReview, models.ReviewData{}, "Admin User")
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnderReview, idea.Status)
	assert.Equal(t, models.StatusSubmitted, repo.lastPrior)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionStatusChanged, audit.entries[0].Action)
	assert.Equal(t, "status changed to Under Review", audit.entries[0].Details)
	assert.Equal(t, []string{"analytics:ideas:*"}, cache.patterns)
}

func TestTransitionSubmittedToApprovedIsIllegal(t *testing.T) {
	repo := &mockIdeaRepo{ideas: map[string]models.Idea{
		"AIT-AAAAA": seededIdea("AIT-AAAAA", models.StatusSubmitted),
	}}
	audit := &mockAudit{}
	svc := newIdeaService(repo, audit, nil, nil)

	_, err := svc.Transition(context.Background(), "AIT-AAAAA", models.StatusApproved,
		models.ReviewData{Classification: "Automation", Priority: models.PriorityHigh, ReviewedBy: "Admin User"}, "Admin User")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrIllegalTransition))
	assert.Empty(t, audit.entries)
	assert.Equal(t, models.StatusSubmitted, repo.ideas["AIT-AAAAA"].Status)
}

func TestTransitionFromTerminalIsIllegal(t *testing.T) {
	for _, status := range []models.IdeaStatus{models.StatusApproved, models.StatusRejected} {
		repo := &mockIdeaRepo{ideas: map[string]models.Idea{
			"AIT-AAAAA": seededIdea("AIT-AAAAA", status),
		}}
		svc := newIdeaService(repo, &mockAudit{}, nil, nil)

		_, err := svc.Transition(context.Background(), "AIT-AAAAA", models.StatusUnderReview, models.ReviewData{}, "Admin User")
		require.Error(t, err)
		assert.True(t, appErrors.Is(err, appErrors.ErrIllegalTransition))
	}
}

func TestTransitionApprove(t *testing.T) {
	repo := &mockIdeaRepo{ideas: map[string]models.Idea{
		"AIT-AAAAA": seededIdea("AIT-AAAAA", models.StatusUnderReview),
	}}
	audit := &mockAudit{}
	svc := newIdeaService(repo, audit, nil, nil)

	review := models.ReviewData{
		Classification: "Process Improvement",
		Priority:       models.PriorityCritical,
		Remarks:        "High impact on month-end close",
		ReviewedBy:     "Admin User",
	}
	idea, err := svc.Transition(context.Background(), "AIT-AAAAA", models.StatusApproved, review, "Admin User")
	require.NoError(t, err)

	assert.Equal(t, models.StatusApproved, idea.Status)
	require.NotNil(t, idea.Classification)
	assert.Equal(t, "Process Improvement", *idea.Classification)
	assert.Equal(t, models.PriorityCritical, idea.Priority)
	require.NotNil(t, idea.ReviewedBy)
	assert.Equal(t, "Admin User", *idea.ReviewedBy)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionApproved, audit.entries[0].Action)
	assert.Equal(t, "approved with classification Process Improvement and priority Critical", audit.entries[0].Details)
}

func TestTransitionApproveRequiresReviewFields(t *testing.T) {
	cases := []struct {
		name   string
		review models.ReviewData
	}{
		{"missing reviewer", models.ReviewData{Classification: "Automation", Priority: models.PriorityHigh}},
		{"missing classification", models.ReviewData{Priority: models.PriorityHigh, ReviewedBy: "Admin User"}},
		{"unknown classification", models.ReviewData{Classification: "Cost Cutting", Priority: models.PriorityHigh, ReviewedBy: "Admin User"}},
		{"priority not selected", models.ReviewData{Classification: "Automation", Priority: models.PriorityNotSelected, ReviewedBy: "Admin User"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &mockIdeaRepo{ideas: map[string]models.Idea{
				"AIT-AAAAA": seededIdea("AIT-AAAAA", models.StatusUnderReview),
			}}
			audit := &mockAudit{}
			svc := newIdeaService(repo, audit, nil, nil)

			_, err := svc.Transition(context.Background(), "AIT-AAAAA", models.StatusApproved, tc.review, "Admin User")
			require.Error(t, err)
			assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
			assert.Empty(t, audit.entries)
			assert.Equal(t, models.StatusUnderReview, repo.ideas["AIT-AAAAA"].Status)
		})
	}
}

func TestTransitionReject(t *testing.T) {
	repo := &mockIdeaRepo{ideas: map[string]models.Idea{
		"AIT-AAAAA": seededIdea("AIT-AAAAA", models.StatusUnderReview),
	}}
	audit := &mockAudit{}
	svc := newIdeaService(repo, audit, nil, nil)

	review := models.ReviewData{Remarks: "Duplicate of an existing initiative", ReviewedBy: "Admin User"}
	idea, err := svc.Transition(context.Background(), "AIT-AAAAA", models.StatusRejected, review, "Admin User")
	require.NoError(t, err)

	assert.Equal(t, models.StatusRejected, idea.Status)
	assert.Equal(t, models.PriorityNotSelected, idea.Priority)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionRejected, audit.entries[0].Action)
	assert.Equal(t, "rejected: Duplicate of an existing initiative", audit.entries[0].Details)
}

func TestTransitionRejectRequiresReviewer(t *testing.T) {
	repo := &mockIdeaRepo{ideas: map[string]models.Idea{
		"AIT-AAAAA": seededIdea("AIT-AAAAA", models.StatusUnderReview),
	}}
	svc := newIdeaService(repo, &mockAudit{}, nil, nil)

	_, err := svc.Transition(context.Background(), "AIT-AAAAA", models.StatusRejected, models.ReviewData{}, "Admin User")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestTransitionNoOpWhenTargetEqualsCurrent(t *testing.T) {
	repo := &mockIdeaRepo{ideas: map[string]models.Idea{
		"AIT-AAAAA": seededIdea("AIT-AAAAA", models.StatusUnderReview),
	}}
	audit := &mockAudit{}
	cache := &mockInvalidator{}
	svc := newIdeaService(repo, audit, nil, cache)

	idea, err := svc.Transition(context.Background(), "AIT-AAAAA", models.StatusUnderReview, models.ReviewData{}, "Admin User")
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnderReview, idea.Status)
	assert.Empty(t, audit.entries)
	assert.Empty(t, cache.patterns)
}

func TestTransitionConcurrentLoser(t *testing.T) {
	repo := &mockIdeaRepo{
		ideas: map[string]models.Idea{
			"AIT-AAAAA": seededIdea("AIT-AAAAA", models.StatusUnderReview),
		},
		updateDeny: true,
	}
	audit := &mockAudit{}
	svc := newIdeaService(repo, audit, nil, nil)

	_, err := svc.Transition(context.Background(), "AIT-AAAAA", models.StatusRejected,
		models.ReviewData{ReviewedBy: "Admin User"}, "Admin User")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrIllegalTransition))
	assert.Empty(t, audit.entries)
}

func TestTransitionUnknownIdea(t *testing.T) {
	svc := newIdeaService(&mockIdeaRepo{}, &mockAudit{}, nil, nil)

	_, err := svc.Transition(context.Background(), "AIT-ZZZZZ", models.StatusUnderReview, models.ReviewData{}, "Admin User")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestTransitionUnknownTarget(t *testing.T) {
	svc := newIdeaService(&mockIdeaRepo{}, &mockAudit{}, nil, nil)

	_, err := svc.Transition(context.Background(), "AIT-AAAAA", models.IdeaStatus("Archived"), models.ReviewData{}, "Admin User")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestUpdateReview(t *testing.T) {
	repo := &mockIdeaRepo{ideas: map[string]models.Idea{
		"AIT-AAAAA": seededIdea("AIT-AAAAA", models.StatusUnderReview),
	}}
	audit := &mockAudit{}
	svc := newIdeaService(repo, audit, nil, nil)

	review := models.ReviewData{Classification: "Automation", Priority: models.PriorityMedium, ReviewedBy: "Admin User"}
	idea, err := svc.UpdateReview(context.Background(), "AIT-AAAAA", review, "Admin User")
	require.NoError(t, err)

	assert.Equal(t, models.StatusUnderReview, idea.Status)
	require.NotNil(t, idea.Classification)
	assert.Equal(t, "Automation", *idea.Classification)
	assert.Equal(t, models.PriorityMedium, idea.Priority)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionUpdated, audit.entries[0].Action)
}

func TestUpdateReviewRejectedOutsideUnderReview(t *testing.T) {
	for _, status := range []models.IdeaStatus{models.StatusSubmitted, models.StatusApproved, models.StatusRejected} {
		repo := &mockIdeaRepo{ideas: map[string]models.Idea{
			"AIT-AAAAA": seededIdea("AIT-AAAAA", status),
		}}
		svc := newIdeaService(repo, &mockAudit{}, nil, nil)

		_, err := svc.UpdateReview(context.Background(), "AIT-AAAAA",
			models.ReviewData{Classification: "Automation"}, "Admin User")
		require.Error(t, err)
		assert.True(t, appErrors.Is(err, appErrors.ErrIllegalTransition))
	}
}

func TestGetIdeaNotFound(t *testing.T) {
	svc := newIdeaService(&mockIdeaRepo{}, &mockAudit{}, nil, nil)

	_, err := svc.Get(context.Background(), "AIT-ZZZZZ")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestListDefaultsPagination(t *testing.T) {
	repo := &mockIdeaRepo{ideas: map[string]models.Idea{
		"AIT-AAAAA": seededIdea("AIT-AAAAA", models.StatusSubmitted),
	}}
	svc := newIdeaService(repo, &mockAudit{}, nil, nil)

	_, pagination, err := svc.List(context.Background(), models.IdeaFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 1, pagination.TotalCount)
}

func TestGenerateReferenceIDFormat(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := generateReferenceID()
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(id, "AIT-"))
		require.Len(t, id, 9)
		for _, r := range id[4:] {
			assert.Contains(t, "ABCDEFGHJKLMNPQRSTUVWXYZ23456789", string(r))
		}
		seen[id] = true
	}
	// 32^5 possible ids; 100 draws colliding would indicate broken randomness.
	assert.Greater(t, len(seen), 90)
}
