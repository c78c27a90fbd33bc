package terminal

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentdetail/internal/app/detail"
	"rentdetail/internal/domain/listings"
)

type staticCollection []listings.Listing

func (s staticCollection) FetchAll(context.Context) error { return nil }
func (s staticCollection) SelectAll() []listings.Listing { return s }

func sample() staticCollection {
	return staticCollection{
		{ID: "1", Title: "Loft", Price: decimal.NewFromInt(900), Region: "North", City: "X",
			Address: "1 Main", Phone: "555", Email: "a@b.c", Image: "https://cdn/loft.jpg"},
		{ID: "2", Title: "Cabin", Price: decimal.NewFromInt(450), Commission: decimal.NewNullDecimal(decimal.NewFromInt(50))},
	}
}

// settledModel runs the mount command the way the program would and feeds its message back.
func settledModel(t *testing.T, id string) (Model, *detail.Controller) {
	t.Helper()
	ctrl := detail.NewController(sample(), id, nil)
	m := NewModel(context.Background(), ctrl, nil)
	assert.Contains(t, m.View(), m.spinner.View())

	msg := m.mount()()
	require.IsType(t, settledMsg{}, msg)
	next, _ := m.Update(msg)
	next, _ = next.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(Model), ctrl
}

func press(m Model, x, y int) Model {
	next, _ := m.Update(tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	return next.(Model)
}

func key(m Model, k tea.KeyMsg) (Model, tea.Cmd) {
	next, cmd := m.Update(k)
	return next.(Model), cmd
}

func TestViewerReady(t *testing.T) {
	m, ctrl := settledModel(t, "1")
	require.Equal(t, detail.PhaseReady, ctrl.State().Phase)

	view := m.View()
	assert.Contains(t, view, "Loft")
	assert.Contains(t, view, "900 $ / month")
	assert.NotContains(t, view, "Commission:")
	assert.Contains(t, view, "tel:555")
	assert.Contains(t, view, "mailto:a@b.c")
	assert.Equal(t, 2, m.imageRow)
}

func TestViewerCommissionAndNotFound(t *testing.T) {
	m, _ := settledModel(t, "2")
	assert.Contains(t, m.View(), "50 $")
	assert.Equal(t, -1, m.imageRow)

	m, ctrl := settledModel(t, "9")
	assert.Equal(t, detail.PhaseNotFound, ctrl.State().Phase)
	assert.Contains(t, m.View(), "Property not found...")
}

func TestViewerOverlayByKeys(t *testing.T) {
	m, ctrl := settledModel(t, "1")

	m, _ = key(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, ctrl.State().OverlayOpen)
	assert.Contains(t, m.View(), "https://cdn/loft.jpg")

	m, _ = key(m, tea.KeyMsg{Type: tea.KeyEscape})
	assert.False(t, ctrl.State().OverlayOpen)

	m, _ = key(m, tea.KeyMsg{Type: tea.KeyEnter})
	_, _ = key(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	assert.False(t, ctrl.State().OverlayOpen)
}

func TestViewerOverlayByMouse(t *testing.T) {
	m, ctrl := settledModel(t, "1")

	m = press(m, 0, 0)
	assert.False(t, ctrl.State().OverlayOpen, "clicking the title does not open the overlay")

	m = press(m, 3, m.imageRow)
	require.True(t, ctrl.State().OverlayOpen)

	box := m.overlayRect()
	m = press(m, box.x+1, box.y+1)
	assert.True(t, ctrl.State().OverlayOpen, "click inside keeps the overlay open")

	m = press(m, 0, 0)
	assert.False(t, ctrl.State().OverlayOpen, "click outside dismisses")
	assert.Equal(t, 2, m.imageRow)
}

func TestViewerOverlayNeedsImage(t *testing.T) {
	m, ctrl := settledModel(t, "2")
	_, _ = key(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, ctrl.State().OverlayOpen)
}

func TestViewerQuitUnmounts(t *testing.T) {
	m, ctrl := settledModel(t, "1")
	m, cmd := key(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.False(t, ctrl.Mounted())
	assert.Empty(t, m.View())
}

func TestMountReturnsWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ctrl := detail.NewController(blocking{}, "1", nil)
	m := NewModel(ctx, ctrl, nil)
	assert.IsType(t, settledMsg{}, m.mount()())
}

type blocking struct{}

func (blocking) FetchAll(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (blocking) SelectAll() []listings.Listing { return nil }
