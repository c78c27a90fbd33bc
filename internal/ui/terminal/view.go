package terminal

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"

	"rentdetail/internal/app/dto"
)

const imageMarker = "[image]"

var (
	ColorHeader = lipgloss.Color("12")
	ColorLabel  = lipgloss.Color("245")
	ColorMuted  = lipgloss.Color("240")
	ColorLink   = lipgloss.Color("6")

	TitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(ColorHeader)
	HeaderStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	LabelStyle   = lipgloss.NewStyle().Bold(true).Foreground(ColorLabel)
	LinkStyle    = lipgloss.NewStyle().Italic(true).Foreground(ColorLink)
	MutedStyle   = lipgloss.NewStyle().Foreground(ColorMuted)
	OverlayStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func RenderLoading(s spinner.Model, width, height int) string {
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, s.View())
}

func RenderNotFound(width, height int) string {
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, "Property not found...")
}

// RenderDetail draws the ready view one block per line group.
func RenderDetail(d dto.ListingDetail, width int) string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(d.Title))
	b.WriteString("\n\n")
	if d.Image != nil {
		b.WriteString(imageMarker + " " + d.Image.Alt + " " + MutedStyle.Render("(enter or click to enlarge)"))
		b.WriteString("\n\n")
	}

	b.WriteString(HeaderStyle.Render("House description"))
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Width(max(width-2, 20)).Render(d.Description))
	b.WriteString("\n\n")

	b.WriteString(HeaderStyle.Render("Price and Location"))
	b.WriteString("\n")
	writeFact(&b, "Price:", d.PriceLabel)
	if d.CommissionLabel != "" {
		writeFact(&b, "Commission:", d.CommissionLabel)
	}
	writeFact(&b, "Region:", d.Region)
	writeFact(&b, "City:", d.City)
	writeFact(&b, "Address:", d.Address)
	b.WriteString("\n")

	b.WriteString(HeaderStyle.Render("Contact details"))
	b.WriteString("\n")
	b.WriteString("Phone: " + LinkStyle.Render(d.Contact.PhoneHref) + "\n")
	b.WriteString("Email: " + LinkStyle.Render(d.Contact.EmailHref) + "\n\n")

	b.WriteString(MutedStyle.Render("q quit"))
	return b.String()
}

func writeFact(b *strings.Builder, label, value string) {
	b.WriteString(" - " + LabelStyle.Render(label) + " " + value + "\n")
}

// RenderOverlay draws the enlarged image box centered on a blank screen.
func RenderOverlay(img dto.ImageBlock, width, height, boxW, boxH int) string {
	inner := strings.Join([]string{
		lipgloss.PlaceHorizontal(boxW-4, lipgloss.Right, "X"),
		img.Alt,
		img.URL,
		MutedStyle.Render("esc/x close, click outside to dismiss"),
	}, "\n")
	box := OverlayStyle.Width(boxW - 2).Height(boxH - 2).Render(inner)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}
