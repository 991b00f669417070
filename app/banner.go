// Copyright 2025 The R-Server Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package app

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/common-nighthawk/go-figure"
	"golang.org/x/term"

	"github.com/harrison-ifeanyichukwu/r-server/router"
)

// colorWriter downsamples ANSI colors to the terminal's capabilities.
// Production output strips all ANSI sequences.
func (a *App) colorWriter(w io.Writer) *colorprofile.Writer {
	cpw := colorprofile.NewWriter(w, os.Environ())
	if a.settings.production() {
		cpw.Profile = colorprofile.NoTTY
	}
	return cpw
}

// printBanner renders the startup banner: ASCII-art server name, the
// version, environment and bound addresses, and in development the
// routes table.
func (a *App) printBanner() {
	if !a.showBanner {
		return
	}
	w := a.colorWriter(os.Stdout)

	art := figure.NewFigure(a.name, "", false)

	gradient := []string{"12", "14", "10", "11"}
	if a.settings.production() {
		gradient = []string{"10", "11"}
	}

	var styled strings.Builder
	for _, line := range art.Slicify() {
		if strings.TrimSpace(line) == "" {
			_, _ = styled.WriteString("\n")
			continue
		}
		for i, ch := range line {
			style := lipgloss.NewStyle().
				Foreground(lipgloss.Color(gradient[i%len(gradient)])).
				Bold(true)
			_, _ = styled.WriteString(style.Render(string(ch)))
		}
		_, _ = styled.WriteString("\n")
	}

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Width(14).
		PaddingLeft(2).
		Align(lipgloss.Left)
	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("15")).
		Bold(true)

	var info strings.Builder
	_, _ = info.WriteString(labelStyle.Render("Version:") + "  " + valueStyle.Foreground(lipgloss.Color("14")).Render(a.version) + "\n")
	_, _ = info.WriteString(labelStyle.Render("Environment:") + "  " + valueStyle.Foreground(lipgloss.Color("11")).Render(a.settings.Env) + "\n")
	for _, addr := range a.Addrs() {
		_, _ = info.WriteString(labelStyle.Render("Address:") + "  " + valueStyle.Foreground(lipgloss.Color("10")).Render(displayAddr(addr)) + "\n")
	}

	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprint(w, styled.String())
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprint(w, info.String())

	if !a.settings.production() && len(a.allRoutes()) > 0 {
		_, _ = fmt.Fprintln(w)
		a.renderRoutesTable(w, 80)
	}
	_, _ = fmt.Fprintln(w)
}

// displayAddr rewrites wildcard hosts into a dialable form.
func displayAddr(addr string) string {
	return strings.Replace(addr, "[::]", "0.0.0.0", 1)
}

// allRoutes collects the app's own routes followed by every mount's, in
// mount order.
func (a *App) allRoutes() []*router.Route {
	routes := a.router.Routes()
	for _, m := range a.snapshotMounts() {
		routes = append(routes, m.set.Routes()...)
	}
	return routes
}

// PrintRoutes prints all registered routes, the app's own and the
// mounted ones, as a formatted table on stdout. Useful while developing
// to see what the server answers to.
func (a *App) PrintRoutes() {
	if len(a.allRoutes()) == 0 {
		_, _ = fmt.Println("No routes registered")
		return
	}
	a.renderRoutesTable(a.colorWriter(os.Stdout), 120)
}

// renderRoutesTable writes the Method/Path/Id table. width is the
// target table width; the terminal width caps it when detectable.
func (a *App) renderRoutesTable(w io.Writer, width int) {
	routes := a.allRoutes()
	if len(routes) == 0 {
		return
	}

	methodStyles := map[string]lipgloss.Style{
		http.MethodGet:     lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		http.MethodPost:    lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true),
		http.MethodPut:     lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
		http.MethodDelete:  lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		http.MethodHead:    lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true),
		http.MethodOptions: lipgloss.NewStyle().Foreground(lipgloss.Color("7")).Bold(true),
	}
	useColors := !a.settings.production()

	rows := make([][]string, 0, len(routes))
	maxMethod, maxPath := len("Method"), len("Path")
	for _, rt := range routes {
		method := rt.Method()
		if useColors {
			if style, ok := methodStyles[method]; ok {
				method = style.Render(method)
			}
		}
		// Measure the unstyled values; ANSI sequences have no width.
		maxMethod = max(maxMethod, len(rt.Method()))
		maxPath = max(maxPath, len(rt.Pattern()))

		rows = append(rows, []string{method, rt.Pattern(), strconv.FormatUint(rt.ID(), 10)})
	}

	// Borders, separators, per-column padding, then the content widths.
	minWidth := 2 + 2 + 6 + maxMethod + maxPath + len("Id")

	terminalWidth := width
	if file, ok := w.(*os.File); ok {
		if tw, _, err := term.GetSize(int(file.Fd())); err == nil && tw > 0 {
			terminalWidth = tw
		}
	}
	tableWidth := max(minWidth, width)
	if terminalWidth > 0 {
		tableWidth = min(tableWidth, terminalWidth)
	}
	tableWidth = max(60, tableWidth)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(func() lipgloss.Style {
			if useColors {
				return lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
			}
			return lipgloss.NewStyle()
		}()).
		StyleFunc(func(row, _ int) lipgloss.Style {
			style := lipgloss.NewStyle().
				Align(lipgloss.Left).
				Padding(0, 1)
			if row == 0 && useColors {
				style = style.Bold(true).Foreground(lipgloss.Color("230"))
			}
			return style
		}).
		Headers("Method", "Path", "Id").
		Rows(rows...).
		Width(tableWidth)

	_, _ = fmt.Fprintln(w, t.Render())
}
