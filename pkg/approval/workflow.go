// Package approval promotes pending outlet applications into active
// outlets, or rejects them. Both decisions are terminal; there is no path
// back from either.
package approval

import (
	"context"
	"time"

	"github.com/example/foodcourt/pkg/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Applications is the slice of the application repository the workflow
// uses.
type Applications interface {
	CreatePending(ctx context.Context, app *models.OutletApplication) error
	GetPending(ctx context.Context, applicationID string) (*models.OutletApplication, error)
	ListPending(ctx context.Context) ([]models.OutletApplication, error)
	Approve(ctx context.Context, applicationID string, outlet *models.Outlet) error
	DeletePending(ctx context.Context, applicationID string) error
	SetMirrorStatus(ctx context.Context, userID string, status models.ApplicationStatus, outletID string) error
}

type Workflow struct {
	apps   Applications
	logger *zap.Logger
	now    func() time.Time
}

func NewWorkflow(apps Applications, logger *zap.Logger) *Workflow {
	return &Workflow{
		apps:   apps,
		logger: logger,
		now:    time.Now,
	}
}

// SubmitApplication stages a seller's request as a pending application.
func (w *Workflow) SubmitApplication(ctx context.Context, app models.OutletApplication) (*models.OutletApplication, error) {
	app.ApplicationID = uuid.NewString()
	app.Status = models.ApplicationPending
	app.CreatedAt = w.now()

	if err := w.apps.CreatePending(ctx, &app); err != nil {
		return nil, err
	}

	w.logger.Info("outlet application submitted",
		zap.String("application_id", app.ApplicationID),
		zap.String("name", app.Name))
	return &app, nil
}

func (w *Workflow) ListPending(ctx context.Context) ([]models.OutletApplication, error) {
	return w.apps.ListPending(ctx)
}

func (w *Workflow) GetApplication(ctx context.Context, applicationID string) (*models.OutletApplication, error) {
	return w.apps.GetPending(ctx, applicationID)
}

// Approve builds the outlet record and consumes the pending application
// in one atomic step: the pending record's deletion and the outlet's
// creation either both land or neither does, so a retried approve cannot
// mint a second outlet for the same applicant. The status mirror is
// best-effort and tolerated absent.
func (w *Workflow) Approve(ctx context.Context, applicationID string) (*models.Outlet, error) {
	app, err := w.apps.GetPending(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	outlet := &models.Outlet{
		OutletID:   uuid.NewString(),
		Name:       app.Name,
		OwnerEmail: app.OwnerEmail,
		Status:     "approved",
		IsOpen:     true,
		Cuisine:    app.Cuisine,
		Address:    app.Address,
		Phone:      app.Phone,
		Category:   app.Category,
		Hours:      models.DefaultBusinessHours(),
		CreatedAt:  w.now(),
	}

	if err := w.apps.Approve(ctx, applicationID, outlet); err != nil {
		return nil, err
	}

	if err := w.apps.SetMirrorStatus(ctx, app.UserID, models.ApplicationApproved, outlet.OutletID); err != nil {
		w.logger.Warn("application status mirror update failed",
			zap.String("application_id", applicationID),
			zap.Error(err))
	}

	w.logger.Info("outlet application approved",
		zap.String("application_id", applicationID),
		zap.String("outlet_id", outlet.OutletID))
	return outlet, nil
}

// Reject marks the mirror rejected (best-effort) and deletes the pending
// record. No outlet is created and no un-reject path exists.
func (w *Workflow) Reject(ctx context.Context, applicationID string) error {
	app, err := w.apps.GetPending(ctx, applicationID)
	if err != nil {
		return err
	}

	if err := w.apps.SetMirrorStatus(ctx, app.UserID, models.ApplicationRejected, ""); err != nil {
		w.logger.Warn("application status mirror update failed",
			zap.String("application_id", applicationID),
			zap.Error(err))
	}

	if err := w.apps.DeletePending(ctx, applicationID); err != nil {
		return err
	}

	w.logger.Info("outlet application rejected",
		zap.String("application_id", applicationID))
	return nil
}
