package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/chatdesk-admin/internal/domain"
	apperrors "github.com/spec-kit/chatdesk-admin/pkg/util/errorutil"
)

func TestFlowExportImport(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	flow := env.createFlow(t, "Welcome")

	exported, err := env.flows.Export(ctx, flow.ID)
	require.NoError(t, err)
	assert.Equal(t, "Welcome", exported.Name)
	assert.False(t, exported.ExportedAt.IsZero())

	imported, err := env.flows.Import(ctx, "", FlowInput{Name: exported.Name, Nodes: exported.Nodes, Edges: exported.Edges})
	require.NoError(t, err)
	assert.NotEqual(t, flow.ID, imported.ID)
	assert.Equal(t, flow.Nodes, imported.Nodes)
	assert.Equal(t, flow.Edges, imported.Edges)

	stored, err := env.flows.Get(ctx, imported.ID)
	require.NoError(t, err)
	assert.Equal(t, flow.Nodes, stored.Nodes)
	assert.Equal(t, flow.Edges, stored.Edges)

	_, err = env.flows.Export(ctx, "missing")
	requireCode(t, err, apperrors.CodeNotFound)
}

func TestFlowCreate_EmptyGraph(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	flow, err := env.flows.Create(ctx, "", FlowInput{Name: "Empty"})
	require.NoError(t, err)
	assert.NotNil(t, flow.Nodes)
	assert.Empty(t, flow.Nodes)
	assert.NotNil(t, flow.Edges)

	_, err = env.flows.Create(ctx, "", FlowInput{Name: " "})
	requireCode(t, err, apperrors.CodeValidationFailed)
}

func TestFlowDelete_BlockedByChannel(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	flow := env.createFlow(t, "Sales")
	channel, err := env.channels.Create(ctx, "", ChannelCreateInput{Name: "Web", Type: domain.ChannelTypeSite, FlowID: &flow.ID})
	require.NoError(t, err)

	view, err := env.flows.Get(ctx, flow.ID)
	require.NoError(t, err)
	assert.True(t, view.InUse)
	require.NotNil(t, view.ChannelName)
	assert.Equal(t, "Web", *view.ChannelName)

	err = env.flows.Delete(ctx, "", flow.ID)
	domainErr := requireCode(t, err, apperrors.CodeResourceInUse)
	assert.Contains(t, domainErr.Message, `"Web"`)
	assert.Equal(t, channel.ID, domainErr.Details["channel_id"])

	_, err = env.channels.Update(ctx, "", channel.ID, ChannelUpdateInput{FlowID: OptionalID{Set: true}})
	require.NoError(t, err)

	require.NoError(t, env.flows.Delete(ctx, "", flow.ID))
	_, err = env.flows.Get(ctx, flow.ID)
	requireCode(t, err, apperrors.CodeNotFound)
}

func TestFlowBulkDelete_SkipsReferenced(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	used := env.createFlow(t, "Used")
	unused := env.createFlow(t, "Unused")
	_, err := env.channels.Create(ctx, "", ChannelCreateInput{Name: "Bot", Type: domain.ChannelTypeTelegram, FlowID: &used.ID})
	require.NoError(t, err)

	result, err := env.flows.BulkDelete(ctx, "", []string{used.ID, unused.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, result.DeletedCount)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, used.ID, result.Skipped[0].ID)
	assert.Contains(t, result.Skipped[0].Reason, "Bot")
}

func TestFlowRename_PropagatesToChannels(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	flow := env.createFlow(t, "Old")
	channel, err := env.channels.Create(ctx, "", ChannelCreateInput{Name: "Web", Type: domain.ChannelTypeSite, FlowID: &flow.ID})
	require.NoError(t, err)
	assert.Equal(t, "Old", channel.FlowName)

	renamed, err := env.flows.Update(ctx, "", flow.ID, FlowUpdateInput{Name: strPtr("New")})
	require.NoError(t, err)
	assert.Equal(t, "New", renamed.Name)
	assert.True(t, renamed.InUse)

	got, err := env.channels.Get(ctx, channel.ID)
	require.NoError(t, err)
	assert.Equal(t, "New", got.FlowName)
}

func TestFlowUpdate_GraphOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	flow := env.createFlow(t, "Graph")
	nodes := []domain.GraphElement{{"id": "only"}}

	updated, err := env.flows.Update(ctx, "", flow.ID, FlowUpdateInput{Nodes: &nodes})
	require.NoError(t, err)
	assert.Equal(t, nodes, updated.Nodes)
	assert.Equal(t, flow.Edges, updated.Edges)
	assert.Equal(t, "Graph", updated.Name)

	_, err = env.flows.Update(ctx, "", "missing", FlowUpdateInput{Nodes: &nodes})
	requireCode(t, err, apperrors.CodeNotFound)
}

func TestFlowDuplicate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	flow := env.createFlow(t, "Welcome")

	copied, err := env.flows.Duplicate(ctx, "", flow.ID)
	require.NoError(t, err)
	assert.NotEqual(t, flow.ID, copied.ID)
	assert.Equal(t, "Welcome (copy)", copied.Name)
	assert.Equal(t, flow.Nodes, copied.Nodes)
	assert.False(t, copied.InUse)

	page, err := env.flows.List(ctx, ListParams{Page: 1, PerPage: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)
	assert.Equal(t, copied.ID, page.Items[0].ID)
}
