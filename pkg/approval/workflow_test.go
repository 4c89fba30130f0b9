package approval

import (
	"context"
	"sync"
	"testing"

	"github.com/example/foodcourt/pkg/fault"
	"github.com/example/foodcourt/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memApplications implements Applications with the repository's atomic
// approve contract: the pending delete and outlet insert land together,
// and a consumed application cannot be approved again.
type memApplications struct {
	m         sync.Mutex
	pending   map[string]*models.OutletApplication
	outlets   map[string]*models.Outlet
	mirror    map[string]models.ApplicationStatus
	mirrorErr error
}

func newMemApplications() *memApplications {
	return &memApplications{
		pending: make(map[string]*models.OutletApplication),
		outlets: make(map[string]*models.Outlet),
		mirror:  make(map[string]models.ApplicationStatus),
	}
}

func (s *memApplications) CreatePending(_ context.Context, app *models.OutletApplication) error {
	s.m.Lock()
	defer s.m.Unlock()
	if _, ok := s.pending[app.ApplicationID]; ok {
		return fault.Conflict("application %s already exists", app.ApplicationID)
	}
	copied := *app
	s.pending[app.ApplicationID] = &copied
	return nil
}

func (s *memApplications) GetPending(_ context.Context, applicationID string) (*models.OutletApplication, error) {
	s.m.Lock()
	defer s.m.Unlock()
	app, ok := s.pending[applicationID]
	if !ok {
		return nil, fault.NotFound("application", applicationID)
	}
	copied := *app
	return &copied, nil
}

func (s *memApplications) ListPending(context.Context) ([]models.OutletApplication, error) {
	s.m.Lock()
	defer s.m.Unlock()
	var apps []models.OutletApplication
	for _, app := range s.pending {
		apps = append(apps, *app)
	}
	return apps, nil
}

func (s *memApplications) Approve(_ context.Context, applicationID string, outlet *models.Outlet) error {
	s.m.Lock()
	defer s.m.Unlock()
	if _, ok := s.pending[applicationID]; !ok {
		return fault.NotFound("application", applicationID)
	}
	delete(s.pending, applicationID)
	copied := *outlet
	s.outlets[outlet.OutletID] = &copied
	return nil
}

func (s *memApplications) DeletePending(_ context.Context, applicationID string) error {
	s.m.Lock()
	defer s.m.Unlock()
	if _, ok := s.pending[applicationID]; !ok {
		return fault.NotFound("application", applicationID)
	}
	delete(s.pending, applicationID)
	return nil
}

func (s *memApplications) SetMirrorStatus(_ context.Context, userID string, status models.ApplicationStatus, _ string) error {
	s.m.Lock()
	defer s.m.Unlock()
	if s.mirrorErr != nil {
		return s.mirrorErr
	}
	s.mirror[userID] = status
	return nil
}

func submitTestApplication(t *testing.T, w *Workflow) *models.OutletApplication {
	t.Helper()
	app, err := w.SubmitApplication(context.Background(), models.OutletApplication{
		UserID:     "seller-1",
		OwnerEmail: "owner@foo.example",
		Name:       "Foo",
		Cuisine:    "italian",
		Address:    "12 Main St",
		Phone:      "555-0101",
		Category:   "restaurant",
		Password:   "staged-secret",
	})
	require.NoError(t, err)
	return app
}

func TestSubmitApplicationStagesPending(t *testing.T) {
	store := newMemApplications()
	w := NewWorkflow(store, zap.NewNop())

	app := submitTestApplication(t, w)

	assert.NotEmpty(t, app.ApplicationID)
	assert.Equal(t, models.ApplicationPending, app.Status)

	pending, err := w.ListPending(context.Background())
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestApproveCreatesOutletAndConsumesApplication(t *testing.T) {
	store := newMemApplications()
	w := NewWorkflow(store, zap.NewNop())
	app := submitTestApplication(t, w)

	outlet, err := w.Approve(context.Background(), app.ApplicationID)
	require.NoError(t, err)

	assert.NotEmpty(t, outlet.OutletID)
	assert.Equal(t, "Foo", outlet.Name)
	assert.Equal(t, "approved", outlet.Status)
	assert.True(t, outlet.IsOpen)
	assert.Len(t, outlet.Hours, 7, "default weekly hours template")
	assert.Zero(t, outlet.MenuCount)
	assert.Zero(t, outlet.RatingCount)
	assert.Zero(t, outlet.OrderCount)

	// Pending record is gone; a lookup now reports not found.
	_, err = w.GetApplication(context.Background(), app.ApplicationID)
	require.ErrorIs(t, err, fault.ErrNotFound)

	assert.Equal(t, models.ApplicationApproved, store.mirror["seller-1"])
}

func TestApproveTwiceDoesNotDuplicateOutlet(t *testing.T) {
	store := newMemApplications()
	w := NewWorkflow(store, zap.NewNop())
	app := submitTestApplication(t, w)

	_, err := w.Approve(context.Background(), app.ApplicationID)
	require.NoError(t, err)

	// A retry after the first approve completed must not mint a second
	// outlet for the same applicant.
	_, err = w.Approve(context.Background(), app.ApplicationID)
	require.ErrorIs(t, err, fault.ErrNotFound)
	assert.Len(t, store.outlets, 1)
}

func TestApproveTolerateMirrorFailure(t *testing.T) {
	store := newMemApplications()
	store.mirrorErr = fault.Unavailable("mirror application status", assert.AnError)
	w := NewWorkflow(store, zap.NewNop())
	app := submitTestApplication(t, w)

	outlet, err := w.Approve(context.Background(), app.ApplicationID)
	require.NoError(t, err, "mirror record is best-effort")
	assert.Len(t, store.outlets, 1)
	assert.NotNil(t, outlet)
}

func TestRejectDeletesPendingWithoutOutlet(t *testing.T) {
	store := newMemApplications()
	w := NewWorkflow(store, zap.NewNop())
	app := submitTestApplication(t, w)

	require.NoError(t, w.Reject(context.Background(), app.ApplicationID))

	assert.Empty(t, store.outlets, "reject must not create an outlet")
	assert.Equal(t, models.ApplicationRejected, store.mirror["seller-1"])

	_, err := w.GetApplication(context.Background(), app.ApplicationID)
	require.ErrorIs(t, err, fault.ErrNotFound)

	// Terminal: no un-reject path, a second decision fails.
	require.ErrorIs(t, w.Reject(context.Background(), app.ApplicationID), fault.ErrNotFound)
	_, err = w.Approve(context.Background(), app.ApplicationID)
	require.ErrorIs(t, err, fault.ErrNotFound)
}

func TestApproveMissingApplication(t *testing.T) {
	w := NewWorkflow(newMemApplications(), zap.NewNop())

	_, err := w.Approve(context.Background(), "APP_MISSING")
	require.ErrorIs(t, err, fault.ErrNotFound)
}
