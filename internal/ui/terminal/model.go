package terminal

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"rentdetail/internal/app/detail"
	"rentdetail/internal/app/dto"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
	overlayHeight = 7
	overlayMaxW   = 64
)

// settledMsg is sent once the controller leaves Loading or the viewer context ends.
type settledMsg struct{}

// Model is the Bubble Tea model for the listing detail viewer.
//
//nolint:recvcheck // Bubble Tea requires value receivers for Init/Update/View interface methods.
type Model struct {
	ctx      context.Context
	ctrl     *detail.Controller
	imageURL dto.ImageURLFunc
	spinner  spinner.Model

	width  int
	height int

	// imageRow is the screen line holding the image in the last ready view, -1 if none.
	imageRow int
	quitting bool
}

// NewModel builds a viewer around ctrl. The controller is mounted by Init.
func NewModel(ctx context.Context, ctrl *detail.Controller, imageURL dto.ImageURLFunc) Model {
	s := spinner.New(spinner.WithSpinner(spinner.Dot))
	s.Style = lipgloss.NewStyle().Foreground(ColorMuted)
	m := Model{
		ctx:      ctx,
		ctrl:     ctrl,
		imageURL: imageURL,
		spinner:  s,
		width:    defaultWidth,
		height:   defaultHeight,
	}
	m.imageRow = m.locateImageRow()
	return m
}

// Init initializes the model (Bubble Tea interface).
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.mount())
}

func (m Model) mount() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		ctrl.Mount(ctx)
		select {
		case <-ctrl.Settled():
		case <-ctx.Done():
		}
		return settledMsg{}
	}
}

// Update handles messages and updates the model state (Bubble Tea interface).
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case settledMsg:
	case spinner.TickMsg:
		if !m.ctrl.State().Loading() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.MouseMsg:
		m.handleMouse(msg)
	}
	m.imageRow = m.locateImageRow()
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.ctrl.Unmount()
		m.quitting = true
		return m, tea.Quit
	case "enter":
		m.ctrl.ActivateImage()
	case "esc", "x":
		m.ctrl.Dismiss()
	}
	m.imageRow = m.locateImageRow()
	return m, nil
}

func (m Model) handleMouse(msg tea.MouseMsg) {
	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return
	}
	state := m.ctrl.State()
	if state.Phase != detail.PhaseReady {
		return
	}
	if state.OverlayOpen {
		if m.overlayRect().contains(msg.X, msg.Y) {
			m.ctrl.Interact(detail.RegionInside)
			return
		}
		m.ctrl.Interact(detail.RegionOutside)
		return
	}
	if m.imageRow >= 0 && msg.Y == m.imageRow {
		m.ctrl.ActivateImage()
	}
}

type rect struct {
	x, y, w, h int
}

func (r rect) contains(x, y int) bool {
	return x >= r.x && x < r.x+r.w && y >= r.y && y < r.y+r.h
}

// overlayRect is the centered enlarged-image box.
func (m Model) overlayRect() rect {
	w := min(m.width*7/10, overlayMaxW)
	h := min(overlayHeight, m.height)
	return rect{x: (m.width - w) / 2, y: (m.height - h) / 2, w: w, h: h}
}

// View renders the current state (Bubble Tea interface).
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	state := m.ctrl.State()
	switch state.Phase {
	case detail.PhaseLoading:
		return RenderLoading(m.spinner, m.width, m.height)
	case detail.PhaseNotFound:
		return RenderNotFound(m.width, m.height)
	}
	d := dto.MapListingDetail(state.Listing, m.imageURL)
	if state.OverlayOpen && d.Image != nil {
		r := m.overlayRect()
		return RenderOverlay(*d.Image, m.width, m.height, r.w, r.h)
	}
	return RenderDetail(d, m.width)
}

func (m Model) locateImageRow() int {
	state := m.ctrl.State()
	if state.Phase != detail.PhaseReady || state.OverlayOpen || !state.Listing.HasImage() {
		return -1
	}
	view := RenderDetail(dto.MapListingDetail(state.Listing, m.imageURL), m.width)
	for i, line := range strings.Split(view, "\n") {
		if strings.Contains(line, imageMarker) {
			return i
		}
	}
	return -1
}
