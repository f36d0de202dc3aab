// Package api implements the catalog's action dispatcher: a request names an
// action and carries its params, the reply is the {success, message, data}
// envelope (or a bare array for the public listings).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dmitrijs2005/webcatalog/internal/common"
	"github.com/dmitrijs2005/webcatalog/internal/logging"
	"github.com/dmitrijs2005/webcatalog/internal/server/models"
	"github.com/dmitrijs2005/webcatalog/internal/server/services"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type CategoryManager interface {
	Create(ctx context.Context, name string) (int64, error)
	Rename(ctx context.Context, oldName, newName string) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]models.Category, error)
}

type EntryManager interface {
	Create(ctx context.Context, in services.EntryInput) (int64, error)
	Update(ctx context.Context, id int64, in services.EntryInput) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]models.EntryListing, error)
}

type ImageManager interface {
	Upload(ctx context.Context, dataURL string) (*models.Image, error)
	ListImages(ctx context.Context) ([]models.Image, error)
	CheckDuplicateFilename(ctx context.Context, filename string) (bool, error)
	DeleteUnattached(ctx context.Context) (*models.SweepReport, error)
	MoveUnattachedToTemp(ctx context.Context) (*models.SweepReport, error)
	CleanTempImages(ctx context.Context) (*models.SweepReport, error)
	Stats(ctx context.Context) (*models.ImageStats, error)
}

type SystemManager interface {
	Scan(ctx context.Context) (*models.ScanReport, error)
	FixOrphaned(ctx context.Context) (*models.FixReport, error)
	Dashboard(ctx context.Context) (*models.DashboardStats, error)
}

type Authenticator interface {
	Login(ctx context.Context, username, password string) (string, error)
	Verify(ctx context.Context, token string) (*services.Session, error)
}

// Recorder receives per-action and reconciliation measurements.
type Recorder interface {
	ObserveAction(action, outcome string, elapsed time.Duration)
	ImagesSwept(n int)
	OrphansFixed(category, image int64)
}

// Services bundles the dispatcher's collaborators.
type Services struct {
	Categories CategoryManager
	Entries    EntryManager
	Images     ImageManager
	System     SystemManager
	Auth       Authenticator
}

// Request is one decoded API call.
type Request struct {
	Action string          `json:"action"`
	Params json.RawMessage `json:"params"`
}

// Response is the envelope every action except the public listings replies with.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// Result is what the transport writes back. Token is set after a successful
// login, ClearSession after logout.
type Result struct {
	Body         any
	Token        string
	ClearSession bool
}

func ok(message string, data any) *Result {
	return &Result{Body: Response{Success: true, Message: message, Data: data}}
}

func fail(message string) *Result {
	return &Result{Body: Response{Success: false, Message: message}}
}

type call struct {
	token  string
	params json.RawMessage
}

type action struct {
	// admin-only actions need a valid session token
	admin bool
	// failure is shown when the error carries no public message
	failure string
	run     func(ctx context.Context, c call) (*Result, error)
}

type Dispatcher struct {
	svc      Services
	logger   logging.Logger
	metrics  Recorder
	validate *validator.Validate
	actions  map[string]action
}

func NewDispatcher(l logging.Logger, m Recorder, svc Services) *Dispatcher {
	d := &Dispatcher{
		svc:      svc,
		logger:   l.With("module", "api"),
		metrics:  m,
		validate: newValidator(),
	}
	d.actions = d.routes()
	return d
}

// Dispatch runs one action. It never returns nil and never panics on bad
// params; failures are reported inside the envelope.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request, token string) *Result {
	start := time.Now()
	log := d.logger.With("request_id", uuid.NewString(), "action", req.Action)

	a, found := d.actions[req.Action]
	if !found {
		d.observe("unknown", "unknown", start)
		return fail("Unknown action: " + req.Action)
	}

	if a.admin {
		if _, err := d.svc.Auth.Verify(ctx, token); err != nil {
			log.Warn(ctx, "unauthorized action")
			d.observe(req.Action, "unauthorized", start)
			return fail("Unauthorized access")
		}
	}

	res, err := a.run(ctx, call{token: token, params: req.Params})
	if err != nil {
		if msg, public := common.PublicMessage(err); public {
			log.Info(ctx, "action rejected", "reason", msg)
			d.observe(req.Action, outcome(err), start)
			return fail(msg)
		}
		log.Error(ctx, "action failed", "error", err)
		d.observe(req.Action, "error", start)
		return fail(a.failure)
	}

	d.observe(req.Action, "ok", start)
	return res
}

func (d *Dispatcher) observe(name, outcome string, start time.Time) {
	if d.metrics != nil {
		d.metrics.ObserveAction(name, outcome, time.Since(start))
	}
}

func outcome(err error) string {
	switch {
	case errors.Is(err, common.ErrValidation):
		return "validation"
	case errors.Is(err, common.ErrNotFound):
		return "not_found"
	case errors.Is(err, common.ErrConflict):
		return "conflict"
	case errors.Is(err, common.ErrForbidden):
		return "forbidden"
	case errors.Is(err, common.ErrUnauthorized):
		return "unauthorized"
	default:
		return "rejected"
	}
}
