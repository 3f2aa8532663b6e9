package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/flowgraph/types"
)

type nopExecutor struct {
	category types.Category
}

func (e *nopExecutor) Category() types.Category { return e.category }

func (e *nopExecutor) Execute(ctx context.Context, inv *Invocation) (map[string]any, error) {
	return map[string]any{}, nil
}

func TestRegistry_ResolveKnownType(t *testing.T) {
	t.Parallel()

	r := NewWithCatalog(zap.NewNop())

	mt, err := r.Resolve("openai-text")
	require.NoError(t, err)
	assert.Equal(t, types.CategoryAIModel, mt.Category)
	assert.Equal(t, "OpenAI Text Model", mt.Name)
	assert.Contains(t, mt.ConfigSchema, "temperature")
}

func TestRegistry_ResolveUnknownType(t *testing.T) {
	t.Parallel()

	r := NewWithCatalog(zap.NewNop())

	_, err := r.Resolve("teleporter")
	require.Error(t, err)
	assert.Equal(t, types.ErrUnknownModuleType, types.GetErrorCode(err))
}

func TestRegistry_ExecutorDispatch(t *testing.T) {
	t.Parallel()

	r := New(zap.NewNop())
	r.RegisterExecutor(&nopExecutor{category: types.CategoryInput})
	r.RegisterExecutor(&nopExecutor{category: types.CategoryOutput})

	e, err := r.ExecutorFor(types.CategoryInput)
	require.NoError(t, err)
	assert.Equal(t, types.CategoryInput, e.Category())

	_, err = r.ExecutorFor(types.CategoryLogic)
	assert.Error(t, err)
}

func TestRegistry_TypesSorted(t *testing.T) {
	t.Parallel()

	r := NewWithCatalog(zap.NewNop())
	listed := r.Types()
	require.Equal(t, r.Len(), len(listed))
	for i := 1; i < len(listed); i++ {
		assert.Less(t, listed[i-1].ID, listed[i].ID)
	}
}

func TestCatalog_Complete(t *testing.T) {
	t.Parallel()

	ids := make(map[string]types.Category)
	for _, mt := range Catalog() {
		assert.True(t, mt.Category.Valid(), mt.ID)
		ids[mt.ID] = mt.Category
	}

	expected := map[string]types.Category{
		"text-input":       types.CategoryInput,
		"file-input":       types.CategoryInput,
		"openai-text":      types.CategoryAIModel,
		"anthropic-claude": types.CategoryAIModel,
		"openai-image":     types.CategoryAIModel,
		"text-output":      types.CategoryOutput,
		"image-output":     types.CategoryOutput,
		"conditional":      types.CategoryLogic,
		"transform":        types.CategoryLogic,
	}
	assert.Equal(t, expected, ids)
}

func TestCatalog_SchemaConstraints(t *testing.T) {
	t.Parallel()

	r := NewWithCatalog(zap.NewNop())

	dalle, err := r.Resolve("openai-image")
	require.NoError(t, err)
	assert.Len(t, dalle.ConfigSchema["size"].Enum, 3)

	claude, err := r.Resolve("anthropic-claude")
	require.NoError(t, err)
	require.NotNil(t, claude.ConfigSchema["temperature"].Max)
	assert.Equal(t, 1.0, *claude.ConfigSchema["temperature"].Max)
}
