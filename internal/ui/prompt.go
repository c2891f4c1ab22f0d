package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/manifoldco/promptui"
)

// Prompter asks the user to confirm a destructive operation. The registry
// and cleanup paths take it as an interface so automated callers (a build
// pipeline marking its own installation broken) run without a terminal.
type Prompter interface {
	Confirm(label string) (bool, error)
}

// ConsolePrompter implements Prompter over promptui
type ConsolePrompter struct{}

// Confirm asks a yes/no confirmation question
func (ConsolePrompter) Confirm(label string) (bool, error) {
	return ConfirmPrompt(label)
}

// ConfirmPrompt asks a yes/no confirmation question
func ConfirmPrompt(label string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}

	result, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		return false, err
	}

	// promptui returns "y" for yes
	return result == "y", nil
}

// SelectPrompt presents a list of options with fuzzy filtering
func SelectPrompt(label string, items []string) (int, string, error) {
	prompt := promptui.Select{
		Label: label,
		Items: items,
		Size:  minInt(10, len(items)),
		Searcher: func(input string, index int) bool {
			if index < 0 || index >= len(items) {
				return false
			}
			if input == "" {
				return true
			}
			return fuzzy.MatchNormalizedFold(strings.TrimSpace(input), items[index])
		},
	}

	index, result, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return -1, "", fmt.Errorf("selection cancelled by user")
		}
		return -1, "", err
	}

	return index, result, nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
