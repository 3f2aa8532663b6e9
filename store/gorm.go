package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/BaSui01/flowgraph/internal/database"
	"github.com/BaSui01/flowgraph/types"
)

// workflowRecord is the SQL shape of a workflow. Modules and connections
// are stored as JSON blobs; the engine never queries inside them.
type workflowRecord struct {
	ID             string `gorm:"primaryKey;size:64"`
	Name           string `gorm:"index;size:255"`
	Description    string
	Modules        []byte
	Connections    []byte
	CreatedBy      string `gorm:"index;size:64"`
	IsTemplate     bool
	ParentWorkflow string `gorm:"size:64"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (workflowRecord) TableName() string { return "workflows" }

type credentialRecord struct {
	ID        string `gorm:"primaryKey;size:64"`
	Provider  string `gorm:"index;size:64"`
	APIKey    string
	UserID    string `gorm:"index;size:64"`
	CreatedAt time.Time
}

func (credentialRecord) TableName() string { return "provider_credentials" }

// GormStore persists workflows in a relational database through gorm.
type GormStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// OpenGorm opens a database by driver name and wraps it in a GormStore.
// Supported drivers: sqlite (default), postgres, mysql.
func OpenGorm(driver, dsn string, logger *zap.Logger) (*GormStore, error) {
	var dial gorm.Dialector
	switch driver {
	case "", "sqlite":
		dial = sqlite.Open(dsn)
	case "postgres":
		dial = postgres.Open(dsn)
	case "mysql":
		dial = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dial, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Server databases get pool limits; sqlite keeps the driver default.
	if driver == "postgres" || driver == "mysql" {
		if err := database.Configure(db, database.DefaultPoolConfig(), logger); err != nil {
			return nil, err
		}
	}
	return NewGormStore(db, logger)
}

// NewGormStore wraps an existing gorm handle and migrates the schema.
func NewGormStore(db *gorm.DB, logger *zap.Logger) (*GormStore, error) {
	if err := db.AutoMigrate(&workflowRecord{}, &credentialRecord{}); err != nil {
		return nil, fmt.Errorf("failed to auto migrate: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GormStore{
		db:     db,
		logger: logger.With(zap.String("component", "gorm_store")),
	}, nil
}

func encodeWorkflow(wf *types.Workflow) (*workflowRecord, error) {
	modules, err := json.Marshal(wf.Modules)
	if err != nil {
		return nil, fmt.Errorf("failed to encode modules: %w", err)
	}
	conns, err := json.Marshal(wf.Connections)
	if err != nil {
		return nil, fmt.Errorf("failed to encode connections: %w", err)
	}
	return &workflowRecord{
		ID:             wf.ID,
		Name:           wf.Name,
		Description:    wf.Description,
		Modules:        modules,
		Connections:    conns,
		CreatedBy:      wf.CreatedBy,
		IsTemplate:     wf.IsTemplate,
		ParentWorkflow: wf.ParentWorkflow,
		CreatedAt:      wf.CreatedAt,
		UpdatedAt:      wf.UpdatedAt,
	}, nil
}

func decodeWorkflow(rec *workflowRecord) (*types.Workflow, error) {
	wf := &types.Workflow{
		ID:             rec.ID,
		Name:           rec.Name,
		Description:    rec.Description,
		CreatedBy:      rec.CreatedBy,
		IsTemplate:     rec.IsTemplate,
		ParentWorkflow: rec.ParentWorkflow,
		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      rec.UpdatedAt,
	}
	if len(rec.Modules) > 0 {
		if err := json.Unmarshal(rec.Modules, &wf.Modules); err != nil {
			return nil, fmt.Errorf("failed to decode modules: %w", err)
		}
	}
	if len(rec.Connections) > 0 {
		if err := json.Unmarshal(rec.Connections, &wf.Connections); err != nil {
			return nil, fmt.Errorf("failed to decode connections: %w", err)
		}
	}
	return wf, nil
}

// CreateWorkflow stores a new workflow, assigning an id when absent.
func (s *GormStore) CreateWorkflow(ctx context.Context, wf *types.Workflow) error {
	prepareWorkflow(wf)
	rec, err := encodeWorkflow(wf)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to create workflow: %w", err)
	}
	s.logger.Debug("workflow created", zap.String("workflow_id", wf.ID))
	return nil
}

// GetWorkflow loads one workflow by id.
func (s *GormStore) GetWorkflow(ctx context.Context, id string) (*types.Workflow, error) {
	var rec workflowRecord
	err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow: %w", err)
	}
	return decodeWorkflow(&rec)
}

// ListWorkflows returns all workflows, most recently updated first.
func (s *GormStore) ListWorkflows(ctx context.Context) ([]types.Workflow, error) {
	var recs []workflowRecord
	if err := s.db.WithContext(ctx).Order("updated_at DESC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}
	out := make([]types.Workflow, 0, len(recs))
	for i := range recs {
		wf, err := decodeWorkflow(&recs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *wf)
	}
	return out, nil
}

// UpdateWorkflow replaces a stored workflow.
func (s *GormStore) UpdateWorkflow(ctx context.Context, wf *types.Workflow) error {
	wf.UpdatedAt = time.Now().UTC()
	rec, err := encodeWorkflow(wf)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Model(&workflowRecord{}).Where("id = ?", wf.ID).Updates(map[string]any{
		"name":            rec.Name,
		"description":     rec.Description,
		"modules":         rec.Modules,
		"connections":     rec.Connections,
		"is_template":     rec.IsTemplate,
		"parent_workflow": rec.ParentWorkflow,
		"updated_at":      rec.UpdatedAt,
	})
	if res.Error != nil {
		return fmt.Errorf("failed to update workflow: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound(wf.ID)
	}
	return nil
}

// DeleteWorkflow removes a workflow by id.
func (s *GormStore) DeleteWorkflow(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&workflowRecord{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete workflow: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound(id)
	}
	return nil
}

// CloneWorkflow copies an existing workflow under a new name and links
// the copy back to its parent.
func (s *GormStore) CloneWorkflow(ctx context.Context, id, name string) (*types.Workflow, error) {
	src, err := s.GetWorkflow(ctx, id)
	if err != nil {
		return nil, err
	}
	clone := cloneWorkflow(src, name)
	if err := s.CreateWorkflow(ctx, clone); err != nil {
		return nil, err
	}
	return clone, nil
}

// CreateCredential stores an API key record for a provider.
func (s *GormStore) CreateCredential(ctx context.Context, cred *types.ProviderCredential) error {
	if cred.ID == "" {
		cred.ID = uuid.NewString()
	}
	rec := &credentialRecord{
		ID:        cred.ID,
		Provider:  cred.Provider,
		APIKey:    cred.APIKey,
		UserID:    cred.UserID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to create credential: %w", err)
	}
	return nil
}

// ListCredentials returns every stored credential record.
func (s *GormStore) ListCredentials(ctx context.Context) ([]types.ProviderCredential, error) {
	var recs []credentialRecord
	if err := s.db.WithContext(ctx).Order("created_at").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}
	out := make([]types.ProviderCredential, 0, len(recs))
	for _, rec := range recs {
		out = append(out, types.ProviderCredential{
			ID:       rec.ID,
			Provider: rec.Provider,
			APIKey:   rec.APIKey,
			UserID:   rec.UserID,
		})
	}
	return out, nil
}

// GetCredential returns the newest credential for a provider, scoped to
// the user when a user id is given.
func (s *GormStore) GetCredential(ctx context.Context, provider, userID string) (*types.ProviderCredential, error) {
	q := s.db.WithContext(ctx).Where("provider = ?", provider)
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	var rec credentialRecord
	err := q.Order("created_at DESC").First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NewError(types.ErrMissingCredentials,
			fmt.Sprintf("no credential stored for provider %q", provider))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}
	return &types.ProviderCredential{
		ID:       rec.ID,
		Provider: rec.Provider,
		APIKey:   rec.APIKey,
		UserID:   rec.UserID,
	}, nil
}

// Close releases the underlying connection pool.
func (s *GormStore) Close(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
