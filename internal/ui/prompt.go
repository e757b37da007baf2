package ui

import (
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"golang.org/x/term"
)

// Action represents the user's choice after a ranking
type Action int

const (
	ActionOpen Action = iota
	ActionCopy
	ActionDone
)

// IsInteractive reports whether stdin and stdout are terminals
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// ShowMenu asks the user to pick one option and returns its index
func ShowMenu(message string, options []string) (int, error) {
	var selected int
	prompt := &survey.Select{
		Message: message,
		Options: options,
	}

	if err := survey.AskOne(prompt, &selected); err != nil {
		return -1, err
	}

	return selected, nil
}

// PromptYesNo asks a yes/no question
func PromptYesNo(message string, def bool) (bool, error) {
	answer := def
	prompt := &survey.Confirm{
		Message: message,
		Default: def,
	}

	if err := survey.AskOne(prompt, &answer); err != nil {
		return false, err
	}

	return answer, nil
}

// PromptInput asks for a free text value
func PromptInput(message, def string, required bool) (string, error) {
	var value string
	prompt := &survey.Input{
		Message: message,
		Default: def,
	}

	var opts []survey.AskOpt
	if required {
		opts = append(opts, survey.WithValidator(survey.Required))
	}
	if err := survey.AskOne(prompt, &value, opts...); err != nil {
		return "", err
	}

	return value, nil
}

// PromptBackend asks which catalog store to use
func PromptBackend(current string) (string, error) {
	var backend string
	prompt := &survey.Select{
		Message: "Select a catalog store:",
		Options: []string{"sqlite", "redis", "memory"},
		Default: current,
		Description: func(value string, index int) string {
			switch value {
			case "sqlite":
				return "local file, no server needed"
			case "redis":
				return "shared catalog on a redis server"
			default:
				return "not persisted, for the API server only"
			}
		},
	}

	if err := survey.AskOne(prompt, &backend); err != nil {
		return "", err
	}

	return backend, nil
}

// ChooseResultAction asks what to do with a ranking. For ActionOpen and
// ActionCopy the chosen item id is returned as well.
func ChooseResultAction(itemIDs []string) (Action, string, error) {
	if len(itemIDs) == 0 {
		return ActionDone, "", nil
	}

	choice, err := ShowMenu("What would you like to do?", []string{
		"Open an item in the viewer",
		"Copy an item id",
		"Done",
	})
	if err != nil {
		return ActionDone, "", err
	}

	action := Action(choice)
	if action == ActionDone {
		return ActionDone, "", nil
	}

	idx, err := ShowMenu("Which item?", itemIDs)
	if err != nil {
		return ActionDone, "", err
	}
	return action, itemIDs[idx], nil
}

// ShowSuccess displays a success message
func ShowSuccess(message string) {
	green := color.New(color.FgGreen, color.Bold)
	green.Printf("✓ %s\n", message)
}

// ShowError displays an error message
func ShowError(message string) {
	red := color.New(color.FgRed, color.Bold)
	red.Printf("✗ %s\n", message)
}

// ShowWarning displays a warning message
func ShowWarning(message string) {
	yellow := color.New(color.FgYellow)
	yellow.Printf("! %s\n", message)
}

// ShowInfo displays an info message
func ShowInfo(message string) {
	blue := color.New(color.FgBlue)
	blue.Println(message)
}

// ShowSection displays a section header
func ShowSection(title string) {
	cyan := color.New(color.FgCyan, color.Bold)
	fmt.Println()
	cyan.Printf("=== %s ===\n", title)
}
