package canvas

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pulse-backend/domain/org"
	"pulse-backend/infrastructure/render"
)

type harness struct {
	source   *fakeSource
	renderer *fakeRenderer
	log      *opLog
	bridge   *Bridge
	deps     Deps
}

func newHarness() *harness {
	log := &opLog{}
	h := &harness{
		source:   newFakeSource(),
		renderer: newFakeRenderer(log),
		log:      log,
		bridge:   NewBridge(),
	}
	h.source.set(orgChart())
	h.source.set(workflow())
	h.deps = Deps{
		Fetch:    h.source.Fetch,
		Renderer: h.renderer,
		Resolver: render.NewResolver(),
		Bridge:   h.bridge,
		Logger:   zap.NewNop(),
	}
	return h
}

func (h *harness) mount(t *testing.T, role org.Role) *Canvas {
	t.Helper()
	c := New("11111111-2222-3333-4444-555555555555", org.NewViewer("user-1", role), h.deps)
	t.Cleanup(c.Unmount)
	return c
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func settle(t *testing.T, c *Canvas, settled <-chan struct{}, err error) {
	t.Helper()
	require.NoError(t, err)
	require.NoError(t, c.Await(testContext(t), settled))
}

func load(t *testing.T, c *Canvas, dt org.DiagramType) View {
	t.Helper()
	ctx := testContext(t)
	settled, err := c.Load(ctx, dt)
	settle(t, c, settled, err)
	v, err := c.View(ctx)
	require.NoError(t, err)
	return v
}

func TestCanvas_LoadCompilesAndRenders(t *testing.T) {
	// Arrange
	h := newHarness()
	c := h.mount(t, org.RoleViewer)

	// Act
	v := load(t, c, org.DiagramOrgChart)

	// Assert
	assert.Equal(t, StatusReady, v.Status)
	assert.Equal(t, org.DiagramOrgChart, v.DiagramType)
	assert.Equal(t, "orgClick_11111111222233334444555555555555", v.Callback)
	assert.Contains(t, v.Markup, "click n0 "+v.Callback)
	assert.NotContains(t, v.Markup, "click n1 ")
	assert.NotContains(t, v.Markup, "Board")
	assert.Contains(t, v.Markup, "flowchart-n1-0:node-restricted")
	assert.Empty(t, v.Source)
	assert.False(t, v.CanEdit)
}

func TestCanvas_ClickOpensDetailWithRedactedConnections(t *testing.T) {
	h := newHarness()
	c := h.mount(t, org.RoleViewer)
	load(t, c, org.DiagramOrgChart)
	ctx := testContext(t)

	outcome := h.bridge.Dispatch(ctx, c.Callback(), "user-1", "n0")

	require.Equal(t, ClickSelected, outcome)
	v, err := c.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, "n0", v.Selected)
	require.NotNil(t, v.Detail)
	assert.Equal(t, "CEO", v.Detail.Node.Label)
	require.Len(t, v.Detail.Connections.Outbound, 2)
	assert.Equal(t, org.RestrictedLabel, v.Detail.Connections.Outbound[0].Label)
	assert.Equal(t, "escalates", v.Detail.Connections.Outbound[0].EdgeLabel)
	assert.Equal(t, "Engineering", v.Detail.Connections.Outbound[1].Label)
	assert.Empty(t, v.Detail.Actions)
}

func TestCanvas_AdminDetailOffersActions(t *testing.T) {
	h := newHarness()
	c := h.mount(t, org.RoleAdmin)
	load(t, c, org.DiagramOrgChart)
	ctx := testContext(t)

	require.Equal(t, ClickSelected, c.Click(ctx, "n1"))

	v, err := c.View(ctx)
	require.NoError(t, err)
	assert.True(t, v.CanEdit)
	assert.Equal(t, []string{ActionEdit, ActionDelete}, v.Detail.Actions)
	assert.Equal(t, "Board", v.Detail.Node.Label)
}

func TestCanvas_RestrictedClickLeavesSelection(t *testing.T) {
	h := newHarness()
	c := h.mount(t, org.RoleViewer)
	load(t, c, org.DiagramOrgChart)
	ctx := testContext(t)
	require.Equal(t, ClickSelected, c.Click(ctx, "n2"))

	assert.Equal(t, ClickRestricted, c.Click(ctx, "n1"))
	assert.Equal(t, ClickUnresolved, c.Click(ctx, "n42"))

	v, err := c.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, "n2", v.Selected)
	assert.Equal(t, "Engineering", v.Detail.Node.Label)
}

func TestCanvas_RefreshResetsSelectionEvenIfNodeSurvives(t *testing.T) {
	h := newHarness()
	c := h.mount(t, org.RoleViewer)
	load(t, c, org.DiagramOrgChart)
	ctx := testContext(t)
	require.Equal(t, ClickSelected, c.Click(ctx, "n0"))

	settled, err := c.Refresh(ctx)
	settle(t, c, settled, err)

	v, err := c.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, v.Status)
	assert.Empty(t, v.Selected)
	assert.Nil(t, v.Detail)
	assert.NotContains(t, v.Markup, ClassSelected)
	assert.Equal(t, 2, h.source.callCount())
}

func TestCanvas_RerenderKeepsSelection(t *testing.T) {
	h := newHarness()
	c := h.mount(t, org.RoleViewer)
	load(t, c, org.DiagramOrgChart)
	ctx := testContext(t)
	require.Equal(t, ClickSelected, c.Click(ctx, "n2"))
	before := h.renderer.lastMarkup()

	settled, err := c.Rerender(ctx)
	settle(t, c, settled, err)

	v, err := c.View(ctx)
	require.NoError(t, err)
	after := h.renderer.lastMarkup()
	assert.NotSame(t, before, after)
	assert.Equal(t, "n2", v.Selected)
	assert.NotNil(t, v.Detail)
	assert.Contains(t, v.Markup, "flowchart-n2-0:node-selected")
	assert.Equal(t, 1, h.source.callCount())
}

func TestCanvas_SlowFetchForOldTypeIsDiscarded(t *testing.T) {
	// Arrange
	h := newHarness()
	c := h.mount(t, org.RoleViewer)
	ctx := testContext(t)
	release := h.source.gate(org.DiagramOrgChart)

	// Act
	slow, err := c.Load(ctx, org.DiagramOrgChart)
	require.NoError(t, err)
	fast, err := c.Load(ctx, org.DiagramWorkflow)
	settle(t, c, fast, err)
	close(release)
	settle(t, c, slow, nil)

	// Assert
	v, err := c.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, org.DiagramWorkflow, v.DiagramType)
	assert.Equal(t, StatusReady, v.Status)
	assert.Contains(t, v.Markup, "Workflow start")
	assert.NotContains(t, v.Markup, "CEO")
	assert.Equal(t, 1, h.renderer.callCount())
}

func TestCanvas_SlowRenderOfOldSnapshotIsDiscarded(t *testing.T) {
	h := newHarness()
	c := h.mount(t, org.RoleViewer)
	ctx := testContext(t)
	release := h.renderer.gate("CEO")

	slow, err := c.Load(ctx, org.DiagramOrgChart)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return h.renderer.callCount() == 1 }, time.Second, 5*time.Millisecond)

	renamed := org.NewSnapshot(org.DiagramOrgChart,
		[]org.Node{{ID: "a", Label: "Chief Executive", PermissionLevel: org.PermissionPublic}}, nil)
	h.source.set(renamed)
	fast, err := c.Refresh(ctx)
	settle(t, c, fast, err)
	close(release)
	settle(t, c, slow, nil)

	v, err := c.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, v.Status)
	assert.Contains(t, v.Markup, "Chief Executive")
	assert.NotContains(t, v.Markup, "CEO")
}

func TestCanvas_FetchFailureShowsNoDiagram(t *testing.T) {
	h := newHarness()
	c := h.mount(t, org.RoleViewer)
	load(t, c, org.DiagramOrgChart)
	h.source.fail(errors.New("connection refused"))
	ctx := testContext(t)

	settled, err := c.Refresh(ctx)
	settle(t, c, settled, err)

	v, err := c.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusFetchFailed, v.Status)
	assert.Equal(t, "connection refused", v.Error)
	assert.Empty(t, v.Markup)
	assert.Equal(t, ClickUnresolved, c.Click(ctx, "n0"))
}

func TestCanvas_RenderFailureKeepsRawSource(t *testing.T) {
	h := newHarness()
	h.renderer.fail(&render.EngineError{StatusCode: 400, Message: "Parse error on line 3"})
	c := h.mount(t, org.RoleViewer)

	v := load(t, c, org.DiagramOrgChart)

	assert.Equal(t, StatusRenderFailed, v.Status)
	assert.Contains(t, v.Error, "Parse error on line 3")
	assert.Contains(t, v.Source, "graph TD")
	assert.Contains(t, v.Source, `n0["CEO"]`)
	assert.Empty(t, v.Markup)
}

func TestCanvas_RenderFailureClosesSelection(t *testing.T) {
	// Arrange
	h := newHarness()
	c := h.mount(t, org.RoleViewer)
	load(t, c, org.DiagramOrgChart)
	ctx := testContext(t)
	require.Equal(t, ClickSelected, c.Click(ctx, "n0"))
	h.renderer.fail(&render.EngineError{StatusCode: 400, Message: "Lexical error"})

	// Act
	settled, err := c.Rerender(ctx)
	settle(t, c, settled, err)

	// Assert
	v, err := c.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusRenderFailed, v.Status)
	assert.Empty(t, v.Markup)
	assert.Empty(t, v.Selected)
	assert.Nil(t, v.Detail)
	assert.Equal(t, ClickUnresolved, c.Click(ctx, "n0"))
}

func TestCanvas_AbandonedCallReturnsNoResult(t *testing.T) {
	h := newHarness()
	c := h.mount(t, org.RoleViewer)
	busy := make(chan struct{})
	require.True(t, c.post(func() { <-busy }))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	settled, err := c.Load(ctx, org.DiagramOrgChart)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, settled)

	close(busy)
	require.Eventually(t, func() bool {
		v, err := c.View(testContext(t))
		return err == nil && v.DiagramType == org.DiagramOrgChart
	}, time.Second, 5*time.Millisecond)
}

func TestCanvas_MutateRefetchesOnlyOnSuccess(t *testing.T) {
	h := newHarness()
	c := h.mount(t, org.RoleAdmin)
	load(t, c, org.DiagramOrgChart)
	ctx := testContext(t)

	_, err := c.Mutate(ctx, func(ctx context.Context, dt org.DiagramType) error {
		return errors.New("label is required")
	})
	assert.EqualError(t, err, "label is required")
	assert.Equal(t, 1, h.source.callCount())

	var mutated org.DiagramType
	settled, err := c.Mutate(ctx, func(ctx context.Context, dt org.DiagramType) error {
		mutated = dt
		return nil
	})
	settle(t, c, settled, err)

	assert.Equal(t, org.DiagramOrgChart, mutated)
	assert.Equal(t, 2, h.source.callCount())
}

func TestCanvas_MutateWithoutDiagram(t *testing.T) {
	h := newHarness()
	c := h.mount(t, org.RoleAdmin)

	_, err := c.Mutate(testContext(t), func(context.Context, org.DiagramType) error { return nil })

	assert.ErrorIs(t, err, ErrNoDiagram)
}

func TestCanvas_UnmountDeregistersAndDropsLateCompletions(t *testing.T) {
	h := newHarness()
	c := h.mount(t, org.RoleViewer)
	ctx := testContext(t)
	release := h.source.gate(org.DiagramOrgChart)
	settled, err := c.Load(ctx, org.DiagramOrgChart)
	require.NoError(t, err)
	require.Equal(t, 1, h.bridge.Len())

	c.Unmount()
	close(release)

	assert.Equal(t, 0, h.bridge.Len())
	assert.Equal(t, ClickUnbound, h.bridge.Dispatch(ctx, c.Callback(), "user-1", "n0"))
	assert.ErrorIs(t, c.Await(ctx, settled), ErrUnmounted)
	_, err = c.View(ctx)
	assert.ErrorIs(t, err, ErrUnmounted)
	assert.Equal(t, 0, h.renderer.callCount())
}
