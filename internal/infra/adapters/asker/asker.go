// asker implements the ports.ForAsking interface on top of survey
// prompts. Questions are only ever asked in a terminal.
package asker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/serialforbreakfast/tsds/internal/app/ports"
	"github.com/serialforbreakfast/tsds/internal/infra/adapters/logger"
	"golang.org/x/term"
)

var ErrNotTerminal = errors.New("stdout is not a terminal")

type forAsking struct {
	dryrun bool
	force  bool
}

func New(dryrun, force bool) ports.ForAsking {
	return &forAsking{
		dryrun: dryrun,
		force:  force,
	}
}

func (p *forAsking) Ask(ctx context.Context, format string, a ...any) bool {
	l := logger.FromContext(ctx)
	if p.dryrun {
		l.Info(fmt.Sprintf("%s No", fmt.Sprintf(format, a...)))
		return false
	}
	if p.force {
		l.Info(fmt.Sprintf("%s Yes", fmt.Sprintf(format, a...)))
		return true
	}
	return p.yes(ctx, format, a...)
}

func (p *forAsking) yes(ctx context.Context, format string, a ...any) bool {
	l := logger.FromContext(ctx)
	if !p.isTerminal() {
		l.Warn("Stdout is not a terminal, will answer no", "question", fmt.Sprintf(format, a...))
		return false
	}
	choice := ""
	prompt := &survey.Select{
		Message: fmt.Sprintf(format, a...),
		Options: []string{"No", "Yes", "Exit program"},
		Default: "Yes",
	}
	survey.AskOne(prompt, &choice)
	switch choice {
	case "", "No":
		return false
	case "Yes":
		return true
	case "Exit program":
		l.Warn("Exiting")
		os.Exit(0)
	}
	return false
}

func (p *forAsking) Input(ctx context.Context, message, help string, secret bool) (string, error) {
	if !p.isTerminal() {
		logger.FromContext(ctx).Warn("Stdout is not a terminal, unable to prompt", "prompt", message)
		return "", ErrNotTerminal
	}
	var prompt survey.Prompt
	if secret {
		prompt = &survey.Password{Message: message, Help: help}
	} else {
		prompt = &survey.Input{Message: message, Help: help}
	}
	answer := ""
	if err := survey.AskOne(prompt, &answer); err != nil {
		return "", err
	}
	return strings.TrimSpace(answer), nil
}

func (p *forAsking) isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
