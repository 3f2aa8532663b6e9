package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"github.com/BaSui01/flowgraph/types"
)

// workflowDoc is the Mongo shape of a workflow. Modules and connections
// are stored as native arrays so they stay queryable from the shell.
type workflowDoc struct {
	ID             string                 `bson:"_id"`
	Name           string                 `bson:"name"`
	Description    string                 `bson:"description,omitempty"`
	Modules        []types.ModuleInstance `bson:"modules"`
	Connections    []types.Connection     `bson:"connections"`
	CreatedBy      string                 `bson:"created_by,omitempty"`
	IsTemplate     bool                   `bson:"is_template"`
	ParentWorkflow string                 `bson:"parent_workflow,omitempty"`
	CreatedAt      time.Time              `bson:"created_at"`
	UpdatedAt      time.Time              `bson:"updated_at"`
}

type credentialDoc struct {
	ID        string    `bson:"_id"`
	Provider  string    `bson:"name"`
	APIKey    string    `bson:"api_key"`
	UserID    string    `bson:"user_id"`
	CreatedAt time.Time `bson:"created_at"`
}

// MongoStore persists workflows in MongoDB.
type MongoStore struct {
	client      *mongo.Client
	workflows   *mongo.Collection
	credentials *mongo.Collection
	logger      *zap.Logger
}

// OpenMongo connects to MongoDB and wraps the database in a MongoStore.
func OpenMongo(uri, database string, logger *zap.Logger) (*MongoStore, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	db := client.Database(database)
	return &MongoStore{
		client:      client,
		workflows:   db.Collection("workflows"),
		credentials: db.Collection("ai_providers"),
		logger:      logger.With(zap.String("component", "mongo_store")),
	}, nil
}

func toWorkflowDoc(wf *types.Workflow) *workflowDoc {
	return &workflowDoc{
		ID:             wf.ID,
		Name:           wf.Name,
		Description:    wf.Description,
		Modules:        wf.Modules,
		Connections:    wf.Connections,
		CreatedBy:      wf.CreatedBy,
		IsTemplate:     wf.IsTemplate,
		ParentWorkflow: wf.ParentWorkflow,
		CreatedAt:      wf.CreatedAt,
		UpdatedAt:      wf.UpdatedAt,
	}
}

func fromWorkflowDoc(doc *workflowDoc) *types.Workflow {
	return &types.Workflow{
		ID:             doc.ID,
		Name:           doc.Name,
		Description:    doc.Description,
		Modules:        doc.Modules,
		Connections:    doc.Connections,
		CreatedBy:      doc.CreatedBy,
		IsTemplate:     doc.IsTemplate,
		ParentWorkflow: doc.ParentWorkflow,
		CreatedAt:      doc.CreatedAt,
		UpdatedAt:      doc.UpdatedAt,
	}
}

// CreateWorkflow stores a new workflow, assigning an id when absent.
func (s *MongoStore) CreateWorkflow(ctx context.Context, wf *types.Workflow) error {
	prepareWorkflow(wf)
	if _, err := s.workflows.InsertOne(ctx, toWorkflowDoc(wf)); err != nil {
		return fmt.Errorf("failed to create workflow: %w", err)
	}
	s.logger.Debug("workflow created", zap.String("workflow_id", wf.ID))
	return nil
}

// GetWorkflow loads one workflow by id.
func (s *MongoStore) GetWorkflow(ctx context.Context, id string) (*types.Workflow, error) {
	var doc workflowDoc
	err := s.workflows.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow: %w", err)
	}
	return fromWorkflowDoc(&doc), nil
}

// ListWorkflows returns all workflows, most recently updated first.
func (s *MongoStore) ListWorkflows(ctx context.Context) ([]types.Workflow, error) {
	cursor, err := s.workflows.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}
	var docs []workflowDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode workflows: %w", err)
	}
	out := make([]types.Workflow, 0, len(docs))
	for i := range docs {
		out = append(out, *fromWorkflowDoc(&docs[i]))
	}
	return out, nil
}

// UpdateWorkflow replaces a stored workflow.
func (s *MongoStore) UpdateWorkflow(ctx context.Context, wf *types.Workflow) error {
	wf.UpdatedAt = time.Now().UTC()
	res, err := s.workflows.ReplaceOne(ctx, bson.M{"_id": wf.ID}, toWorkflowDoc(wf))
	if err != nil {
		return fmt.Errorf("failed to update workflow: %w", err)
	}
	if res.MatchedCount == 0 {
		return notFound(wf.ID)
	}
	return nil
}

// DeleteWorkflow removes a workflow by id.
func (s *MongoStore) DeleteWorkflow(ctx context.Context, id string) error {
	res, err := s.workflows.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}
	if res.DeletedCount == 0 {
		return notFound(id)
	}
	return nil
}

// CloneWorkflow copies an existing workflow under a new name and links
// the copy back to its parent.
func (s *MongoStore) CloneWorkflow(ctx context.Context, id, name string) (*types.Workflow, error) {
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
func (s *MongoStore) CreateCredential(ctx context.Context, cred *types.ProviderCredential) error {
	if cred.ID == "" {
		cred.ID = uuid.NewString()
	}
	doc := &credentialDoc{
		ID:        cred.ID,
		Provider:  cred.Provider,
		APIKey:    cred.APIKey,
		UserID:    cred.UserID,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.credentials.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to create credential: %w", err)
	}
	return nil
}

// ListCredentials returns every stored credential record.
func (s *MongoStore) ListCredentials(ctx context.Context) ([]types.ProviderCredential, error) {
	cursor, err := s.credentials.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}
	var docs []credentialDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode credentials: %w", err)
	}
	out := make([]types.ProviderCredential, 0, len(docs))
	for _, doc := range docs {
		out = append(out, types.ProviderCredential{
			ID:       doc.ID,
			Provider: doc.Provider,
			APIKey:   doc.APIKey,
			UserID:   doc.UserID,
		})
	}
	return out, nil
}

// GetCredential returns the newest credential for a provider, scoped to
// the user when a user id is given.
func (s *MongoStore) GetCredential(ctx context.Context, provider, userID string) (*types.ProviderCredential, error) {
	filter := bson.M{"name": provider}
	if userID != "" {
		filter["user_id"] = userID
	}
	var doc credentialDoc
	err := s.credentials.FindOne(ctx, filter,
		options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, types.NewError(types.ErrMissingCredentials,
			fmt.Sprintf("no credential stored for provider %q", provider))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}
	return &types.ProviderCredential{
		ID:       doc.ID,
		Provider: doc.Provider,
		APIKey:   doc.APIKey,
		UserID:   doc.UserID,
	}, nil
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
