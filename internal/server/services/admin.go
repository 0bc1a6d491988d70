package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/liberandum/internal/common"
	"github.com/dmitrijs2005/liberandum/internal/logging"
	"github.com/dmitrijs2005/liberandum/internal/server/backup"
	"github.com/dmitrijs2005/liberandum/internal/server/models"
	"github.com/dmitrijs2005/liberandum/internal/server/repositories/records"
	"github.com/dmitrijs2005/liberandum/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/liberandum/internal/server/users"
)

// Admin-managed market resources.
const (
	ResourceTokens        = "tokens"
	ResourceTokenStats    = "token-stats"
	ResourceExchanges     = "exchanges"
	ResourceExchangeStats = "exchange-stats"
)

// OTPSweeper removes expired codes on demand.
type OTPSweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// Exporter writes a table snapshot to external storage.
type Exporter interface {
	Export(ctx context.Context, table string, recs []models.Record) (*backup.Result, error)
}

type AdminService struct {
	users    *users.Store
	repos    repomanager.RepositoryManager
	otp      OTPSweeper
	exporter Exporter
	logger   logging.Logger
	now      func() time.Time
}

func NewAdminService(store *users.Store, repos repomanager.RepositoryManager, sweeper OTPSweeper, exporter Exporter, logger logging.Logger) *AdminService {
	return &AdminService{
		users:    store,
		repos:    repos,
		otp:      sweeper,
		exporter: exporter,
		logger:   logger.With("module", "admin"),
		now:      time.Now,
	}
}

// ListUsers returns up to limit users, optionally only those with role.
func (s *AdminService) ListUsers(ctx context.Context, role string, limit int) ([]*models.User, error) {
	var r models.Role
	if role != "" {
		var err error
		if r, err = models.ParseRole(role); err != nil {
			return nil, err
		}
	}
	return s.users.List(ctx, r, limit)
}

func (s *AdminService) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

// AdminUserUpdate holds the user fields an administrator may change.
type AdminUserUpdate struct {
	Name       *string `json:"name"`
	FirstName  *string `json:"first_name"`
	LastName   *string `json:"last_name"`
	IsVerified *bool   `json:"is_verified"`
	IsActive   *bool   `json:"is_active"`
}

func (s *AdminService) UpdateUser(ctx context.Context, id string, u AdminUserUpdate) (*models.User, error) {
	upd := models.UserUpdate{
		Name:       u.Name,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		IsVerified: u.IsVerified,
		IsActive:   u.IsActive,
	}
	if upd.IsEmpty() {
		return nil, fmt.Errorf("%w: nothing to update", common.ErrorInvalidArgument)
	}
	return s.users.Update(ctx, id, upd)
}

func (s *AdminService) SetUserRole(ctx context.Context, admin *models.User, id, role string) (*models.User, error) {
	u, err := s.users.SetRole(ctx, id, role)
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "Role changed", "user_id", id, "role", role, "admin_id", admin.ID)
	return u, nil
}

func (s *AdminService) SetUserActive(ctx context.Context, admin *models.User, id string, active bool) (*models.User, error) {
	if id == admin.ID && !active {
		return nil, fmt.Errorf("%w: administrators cannot deactivate themselves", common.ErrorInvalidArgument)
	}
	u, err := s.users.SetActive(ctx, id, active)
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "Account state changed", "user_id", id, "active", active, "admin_id", admin.ID)
	return u, nil
}

// CleanupOTP deletes expired codes now instead of waiting for the sweeper.
func (s *AdminService) CleanupOTP(ctx context.Context) (int, error) {
	return s.otp.SweepExpired(ctx)
}

// SystemInfo summarizes storage health for operators.
type SystemInfo struct {
	DatabaseHealthy bool           `json:"database_healthy"`
	DatabaseError   string         `json:"database_error,omitempty"`
	Tables          map[string]any `json:"tables"`
	Users           int            `json:"users"`
	Repositories    []string       `json:"repositories"`
	BackupEnabled   bool           `json:"backup_enabled"`
	CheckedAt       string         `json:"checked_at"`
}

func (s *AdminService) System(ctx context.Context) SystemInfo {
	t := s.repos.Tables()
	info := SystemInfo{
		DatabaseHealthy: true,
		Tables: map[string]any{
			"users": t.Users, "otp": t.OTP, "tokens": t.Tokens, "token_stats": t.TokenStats,
			"exchanges": t.Exchanges, "exchange_stats": t.ExchangeStats, "token_platform": t.TokenPlatform,
		},
		Repositories:  []string{"users", "otp"},
		BackupEnabled: s.exporter != nil,
		CheckedAt:     common.FormatTime(s.now()),
	}
	for _, sc := range t.MarketSchemas() {
		info.Repositories = append(info.Repositories, sc.Name)
	}
	if err := s.repos.Ping(ctx); err != nil {
		info.DatabaseHealthy = false
		info.DatabaseError = err.Error()
		return info
	}
	if n, err := s.users.Count(ctx); err == nil {
		info.Users = n
	}
	return info
}

func (s *AdminService) resource(name string) (records.Repository, error) {
	t := s.repos.Tables()
	table := map[string]string{
		ResourceTokens:        t.Tokens,
		ResourceTokenStats:    t.TokenStats,
		ResourceExchanges:     t.Exchanges,
		ResourceExchangeStats: t.ExchangeStats,
	}[name]
	if table == "" {
		return nil, fmt.Errorf("%w: resource %q", common.ErrorNotFound, name)
	}
	return s.repos.Records(table)
}

// CreateItem stores rec with audit fields. Client supplied ids and stamps are
// ignored.
func (s *AdminService) CreateItem(ctx context.Context, admin *models.User, resource string, rec models.Record) (models.Record, error) {
	repo, err := s.resource(resource)
	if err != nil {
		return nil, err
	}
	rec = rec.Clone()
	delete(rec, models.FieldID)
	rec[models.FieldIsDeleted] = false
	rec[models.FieldCreatedByAdmin] = admin.ID
	return repo.Create(ctx, rec)
}

// ListItems returns up to limit records that are not soft-deleted.
func (s *AdminService) ListItems(ctx context.Context, resource string, limit int) ([]models.Record, error) {
	repo, err := s.resource(resource)
	if err != nil {
		return nil, err
	}
	recs, err := repo.List(ctx, 0)
	if err != nil {
		return nil, err
	}
	out := make([]models.Record, 0, len(recs))
	for _, r := range recs {
		if r.Deleted() {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// GetItem returns the record even when it was soft-deleted.
func (s *AdminService) GetItem(ctx context.Context, resource, id string) (models.Record, error) {
	repo, err := s.resource(resource)
	if err != nil {
		return nil, err
	}
	return repo.Get(ctx, id)
}

func (s *AdminService) UpdateItem(ctx context.Context, admin *models.User, resource, id string, fields models.Record) (models.Record, error) {
	repo, err := s.resource(resource)
	if err != nil {
		return nil, err
	}
	fields = fields.Clone()
	fields[models.FieldUpdatedByAdmin] = admin.ID
	return repo.Update(ctx, id, fields)
}

// DeleteItem marks the record deleted; it stays readable through GetItem.
func (s *AdminService) DeleteItem(ctx context.Context, admin *models.User, resource, id string) error {
	repo, err := s.resource(resource)
	if err != nil {
		return err
	}
	_, err = repo.Update(ctx, id, models.Record{
		models.FieldIsDeleted: true,
		models.FieldDeletedAt: common.FormatTime(s.now()),
		models.FieldDeletedBy: admin.ID,
	})
	if err != nil {
		return err
	}
	s.logger.Info(ctx, "Record soft-deleted", "resource", resource, "id", id, "admin_id", admin.ID)
	return nil
}

// Backup exports every record of a market table, deleted ones included.
func (s *AdminService) Backup(ctx context.Context, table string) (*backup.Result, error) {
	if s.exporter == nil {
		return nil, fmt.Errorf("%w: backups are not configured", common.ErrorServiceUnavailable)
	}
	repo, err := s.repos.Records(table)
	if err != nil {
		return nil, err
	}
	recs, err := repo.List(ctx, 0)
	if err != nil {
		return nil, errors.Join(common.ErrorServiceUnavailable, err)
	}
	res, err := s.exporter.Export(ctx, table, recs)
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "Table exported", "table", table, "items", res.Items, "key", res.Key)
	return res, nil
}
