package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"

	"github.com/ersonp/relman/internal/application/handlers"
	"github.com/ersonp/relman/internal/domain/entities"
	"github.com/ersonp/relman/internal/domain/services"
)

// errCancelled is returned when the user aborts a form.
var errCancelled = errors.New("cancelled")

// isInteractive reports whether forms can be shown. It is a variable so tests
// can force the non-interactive path.
var isInteractive = func() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func runForm(form *huh.Form) error {
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return errCancelled
		}
		return err
	}
	return nil
}

func layerOptions(layers []entities.Layer) []huh.Option[string] {
	names := make([]string, len(layers))
	for i, l := range layers {
		names[i] = l.Name
	}
	return huh.NewOptions(names...)
}

func findLayer(layers []entities.Layer, name string) *entities.Layer {
	for i := range layers {
		if layers[i].Name == name {
			return &layers[i]
		}
	}
	return nil
}

func notBlank(label string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", label)
		}
		return nil
	}
}

// promptRelation fills in the attributes of in, starting from its current
// values. Layers are picked first so the key pair selects can offer their
// fields.
func promptRelation(title string, layers []entities.Layer, in *services.RelationInput) error {
	if len(layers) == 0 {
		return errors.New("no layers defined (use 'relman layers add' first)")
	}

	err := runForm(huh.NewForm(huh.NewGroup(
		huh.NewInput().Title(title).Description("Relationship name").Value(&in.Name).Validate(notBlank("name")),
		huh.NewSelect[string]().Title("Parent layer").Options(layerOptions(layers)...).Value(&in.ParentLayer),
		huh.NewSelect[string]().Title("Child layer").Options(layerOptions(layers)...).Value(&in.ChildLayer),
	)))
	if err != nil {
		return err
	}

	parent := findLayer(layers, in.ParentLayer)
	child := findLayer(layers, in.ChildLayer)
	if parent == nil || child == nil {
		return entities.ErrLayerNotFound
	}

	if len(in.KeyPairs) > 0 {
		keep := true
		err := runForm(huh.NewForm(huh.NewGroup(
			huh.NewConfirm().
				Title("Keep key fields " + formatKeyPairs(in.KeyPairs) + "?").
				Affirmative("Keep").
				Negative("Choose again").
				Value(&keep),
		)))
		if err != nil {
			return err
		}
		if keep {
			return nil
		}
	}

	pairs, err := promptKeyPairs(parent, child)
	if err != nil {
		return err
	}
	in.KeyPairs = pairs
	return nil
}

func promptKeyPairs(parent, child *entities.Layer) ([]entities.KeyPair, error) {
	var pairs []entities.KeyPair
	for {
		var kp entities.KeyPair
		another := false
		err := runForm(huh.NewForm(huh.NewGroup(
			huh.NewSelect[string]().Title("Parent field").Options(huh.NewOptions(parent.Fields...)...).Value(&kp.ParentField),
			huh.NewSelect[string]().Title("Child field").Options(huh.NewOptions(child.Fields...)...).Value(&kp.ChildField),
			huh.NewConfirm().Title("Add another key pair?").Value(&another),
		)))
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, kp)
		if !another {
			return pairs, nil
		}
	}
}

func promptName(title, initial string) (string, error) {
	name := initial
	err := runForm(huh.NewForm(huh.NewGroup(
		huh.NewInput().Title(title).Value(&name).Validate(notBlank("name")),
	)))
	return name, err
}

func promptRelationID(title string, items []entities.RelationListItem) (string, error) {
	if len(items) == 0 {
		return "", errors.New("no relations found")
	}

	options := make([]huh.Option[string], len(items))
	for i, item := range items {
		options[i] = huh.NewOption(item.DisplayName, item.ID)
	}

	var id string
	err := runForm(huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().Title(title).Options(options...).Value(&id),
	)))
	return id, err
}

func promptHistoryIndex(items []handlers.HistoryItem) (int, error) {
	var options []huh.Option[int]
	for _, item := range items {
		if item.Reversible {
			options = append(options, huh.NewOption(item.Label(), item.Index))
		}
	}
	if len(options) == 0 {
		return 0, errors.New("no reversible history entries")
	}

	var index int
	err := runForm(huh.NewForm(huh.NewGroup(
		huh.NewSelect[int]().Title("Roll back").Options(options...).Value(&index),
	)))
	return index, err
}

func confirmAction(prompt string) (bool, error) {
	confirmed := false
	err := runForm(huh.NewForm(huh.NewGroup(
		huh.NewConfirm().Title(prompt).Affirmative("Yes").Negative("No").Value(&confirmed),
	)))
	return confirmed, err
}
