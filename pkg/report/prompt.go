package report

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// Prompter asks the user. Answers are trimmed.
type Prompter interface {
	Line(prompt string) (string, error)
	// Select returns the index of the chosen label. def is the index
	// chosen by an empty answer, or -1 when an answer is required.
	Select(prompt string, labels []string, def int) (int, error)
	// Confirm asks a yes or no question. A nil def requires an answer
	// where the prompter can tell an empty answer apart.
	Confirm(prompt string, def *bool) (bool, error)
}

// SurveyPrompter asks on the terminal with line editing and arrow key
// menus.
type SurveyPrompter struct{}

// surveyErr maps a terminal interrupt to ErrInterrupted.
func surveyErr(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return ErrInterrupted
	}
	return err
}

func (SurveyPrompter) Line(prompt string) (string, error) {
	var answer string
	if err := survey.AskOne(&survey.Input{Message: prompt}, &answer); err != nil {
		return "", surveyErr(err)
	}
	return strings.TrimSpace(answer), nil
}

func (SurveyPrompter) Select(prompt string, labels []string, def int) (int, error) {
	q := &survey.Select{Message: prompt, Options: labels}
	if def >= 0 && def < len(labels) {
		q.Default = labels[def]
	}
	var idx int
	if err := survey.AskOne(q, &idx); err != nil {
		return 0, surveyErr(err)
	}
	return idx, nil
}

func (SurveyPrompter) Confirm(prompt string, def *bool) (bool, error) {
	q := &survey.Confirm{Message: prompt}
	if def != nil {
		q.Default = *def
	}
	var answer bool
	if err := survey.AskOne(q, &answer); err != nil {
		return false, surveyErr(err)
	}
	return answer, nil
}

// LinePrompter reads answers line by line from a plain stream, such as a
// pipe. Menus are numbered and asked again until the answer is valid.
type LinePrompter struct {
	out io.Writer
	in  *bufio.Reader
}

func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{out: out, in: bufio.NewReader(in)}
}

func (p *LinePrompter) Line(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	line, err := p.in.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		fmt.Fprintln(p.out)
		return "", fmt.Errorf("read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func (p *LinePrompter) Select(prompt string, labels []string, def int) (int, error) {
	fmt.Fprintln(p.out, prompt)
	for i, l := range labels {
		fmt.Fprintf(p.out, "%d) %s\n", i+1, l)
	}
	line := fmt.Sprintf("1-%d> ", len(labels))
	if def >= 0 {
		line = fmt.Sprintf("1-%d [%d]> ", len(labels), def+1)
	}

	for {
		answer, err := p.Line(line)
		if err != nil {
			return 0, err
		}
		n := def + 1
		if answer != "" {
			if n, err = strconv.Atoi(answer); err != nil {
				continue
			}
		}
		if n < 1 || n > len(labels) {
			continue
		}
		return n - 1, nil
	}
}

func (p *LinePrompter) Confirm(prompt string, def *bool) (bool, error) {
	line := prompt + " yes/no> "
	if def != nil {
		line = fmt.Sprintf("%s yes/no [%s]> ", prompt, yesNo(*def))
	}
	for {
		answer, err := p.Line(line)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(answer) {
		case "yes", "y":
			return true, nil
		case "no", "n":
			return false, nil
		case "":
			if def != nil {
				return *def, nil
			}
		}
	}
}
