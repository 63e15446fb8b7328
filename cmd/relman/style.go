package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/ersonp/relman/internal/application/handlers"
	"github.com/ersonp/relman/internal/domain/entities"
)

var (
	colorAccent  = lipgloss.Color("#20B9B4")
	colorMuted   = lipgloss.Color("#6C7A89")
	colorSuccess = lipgloss.Color("#2CD7C7")
	colorWarning = lipgloss.Color("#F4D03F")
)

var styles = struct {
	Header  lipgloss.Style
	Cell    lipgloss.Style
	Border  lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
}{
	Header:  lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Padding(0, 1),
	Cell:    lipgloss.NewStyle().Padding(0, 1),
	Border:  lipgloss.NewStyle().Foreground(colorMuted),
	Muted:   lipgloss.NewStyle().Foreground(colorMuted),
	Success: lipgloss.NewStyle().Foreground(colorSuccess),
	Warning: lipgloss.NewStyle().Foreground(colorWarning),
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(styles.Border).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return styles.Header
			}
			return styles.Cell
		}).
		Headers(headers...)
}

// formatKeyPairs renders key pairs as "parent:child" separated by commas.
func formatKeyPairs(pairs []entities.KeyPair) string {
	parts := make([]string, len(pairs))
	for i, kp := range pairs {
		parts[i] = kp.ParentField + ":" + kp.ChildField
	}
	return strings.Join(parts, ", ")
}

func printRelations(w io.Writer, relations []entities.Relation) {
	if len(relations) == 0 {
		fmt.Fprintln(w, "No relations found.")
		return
	}

	t := newTable("ID", "NAME", "PARENT", "CHILD", "KEYS")
	for _, rel := range relations {
		t.Row(rel.ID, rel.Name, rel.ReferencedLayer, rel.ReferencingLayer, formatKeyPairs(rel.KeyPairs))
	}
	fmt.Fprintln(w, t.String())
}

func printRelationItems(w io.Writer, items []entities.RelationListItem) {
	if len(items) == 0 {
		fmt.Fprintln(w, styles.Muted.Render("No relations."))
		return
	}
	for _, item := range items {
		fmt.Fprintf(w, "  %s\n", item.DisplayName)
	}
}

func printRelation(w io.Writer, rel *entities.Relation) {
	fmt.Fprintf(w, "ID:       %s\n", rel.ID)
	fmt.Fprintf(w, "Name:     %s\n", rel.Name)
	fmt.Fprintf(w, "Parent:   %s\n", rel.ReferencedLayer)
	fmt.Fprintf(w, "Child:    %s\n", rel.ReferencingLayer)
	fmt.Fprintln(w, "Keys:")
	for _, kp := range rel.KeyPairs {
		fmt.Fprintf(w, "  %s -> %s\n", kp.ParentField, kp.ChildField)
	}
	if !rel.CreatedAt.IsZero() {
		fmt.Fprintf(w, "Created:  %s\n", rel.CreatedAt.Format(entities.TimestampLayout))
	}
}

func printLayers(w io.Writer, layers []entities.Layer) {
	if len(layers) == 0 {
		fmt.Fprintln(w, "No layers defined.")
		fmt.Fprintln(w, "Use 'relman layers add NAME --field FIELD' to add one.")
		return
	}

	t := newTable("NAME", "FIELDS")
	for _, layer := range layers {
		t.Row(layer.Name, strings.Join(layer.Fields, ", "))
	}
	fmt.Fprintln(w, t.String())
}

func printHistory(w io.Writer, items []handlers.HistoryItem) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No history entries.")
		return
	}

	for _, item := range items {
		line := fmt.Sprintf("%3d  %s", item.Index, item.Label())
		if !item.Reversible {
			line = styles.Muted.Render(line)
		}
		fmt.Fprintln(w, line)
	}
}

func printImportResult(w io.Writer, result *handlers.ImportResult, dryRun bool) {
	if len(result.Errors) > 0 {
		fmt.Fprintln(w, styles.Warning.Render(fmt.Sprintf("Validation errors (%d):", len(result.Errors))))
		for _, e := range result.Errors {
			fmt.Fprintf(w, "  %s\n", e.Error())
		}
		fmt.Fprintln(w)
	}

	if dryRun {
		fmt.Fprintf(w, "Dry run: %d relations would be imported", result.Imported)
	} else {
		fmt.Fprintf(w, "Imported: %d relations", result.Imported)
	}
	if result.Skipped > 0 {
		fmt.Fprintf(w, ", %d skipped (already exist)", result.Skipped)
	}
	if len(result.Errors) > 0 {
		fmt.Fprintf(w, ", %d errors", len(result.Errors))
	}
	fmt.Fprintln(w)
}

func success(format string, args ...any) string {
	return styles.Success.Render(fmt.Sprintf(format, args...))
}
