// Package agent implements an assistant, backed by Gemini, that answers
// questions about the PnL of the tracked wallet.
//
// A Facilitator chats with the user and delegates to experts: the Accountant
// reads the PnL reports through function calls, the Trader searches the web
// for news about the traded tokens.
package agent

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"google.golang.org/genai"
)

// Agent is the AI assistant that handles the chat session.
type Agent struct {
	w           io.Writer
	r           *bufio.Reader
	Facilitator *Expert
	Experts     []*Expert

	// Render formats the markdown answers before printing, nil prints them
	// as is.
	Render func(markdown string) string
}

// New creates a new Agent writing answers to w and reading questions from r.
func New(w io.Writer, r io.Reader, experts ...*Expert) *Agent {
	return &Agent{
		w:           w,
		r:           bufio.NewReader(r),
		Experts:     experts,
		Facilitator: newFacilitator(experts...),
	}
}

// Start creates the chat sessions of the facilitator and every expert.
func (a *Agent) Start(ctx context.Context, client *genai.Client) error {
	for _, e := range append(a.Experts, a.Facilitator) {
		if err := e.Start(ctx, client); err != nil {
			return fmt.Errorf("cannot start %s: %w", e.Name, err)
		}
	}
	return nil
}

const prompt = "assist> "

// Run starts the interactive session. prompts are asked first, as if typed
// by the user. It returns on "bye" or at the end of the input.
func (a *Agent) Run(ctx context.Context, client *genai.Client, prompts ...string) error {
	if a.Facilitator.chat == nil {
		if err := a.Start(ctx, client); err != nil {
			return err
		}
	}

	fmt.Fprintln(a.w, "Ask anything about the PnL of your wallet. Type 'bye' to exit.")

	for {
		fmt.Fprint(a.w, prompt)
		var input string

		if len(prompts) > 0 {
			input, prompts = strings.TrimSpace(prompts[0]), prompts[1:]
			if input == "" {
				continue
			}
			fmt.Fprintln(a.w, input)
		} else {
			var err error
			input, err = a.r.ReadString('\n')
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
		}

		if strings.TrimSpace(input) == "bye" {
			return nil
		}

		answer, err := a.Ask(ctx, input)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.w, answer)
	}
}

// Ask sends a single question to the facilitator and returns the rendered
// answer. Start must have been called.
func (a *Agent) Ask(ctx context.Context, question string) (string, error) {
	content, err := a.Facilitator.Ask(ctx, &genai.Part{Text: question})
	if err != nil {
		return "", err
	}
	answer := text(content)
	if a.Render != nil {
		answer = a.Render(answer)
	}
	return answer, nil
}

// text concatenates the text parts of c.
func text(c *genai.Content) string {
	var b strings.Builder
	for _, p := range c.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}
