package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"

	"github.com/etnz/pnl"
	"github.com/etnz/pnl/date"
	"github.com/etnz/pnl/docs"
	"github.com/etnz/pnl/renderer"
)

const model = "gemini-2.5-pro"

// ReportSource returns the latest PnL report of the wallet.
type ReportSource func(ctx context.Context) (*pnl.PortfolioReport, error)

func newFacilitator(experts ...*Expert) *Expert {
	return &Expert{
		Name:      "Facilitator",
		ModelName: model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{FunctionDeclarations: NewDeclaration(experts)},
			},
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: `
			As a facilitator you are in charge of the conversation and solving the user's request.

			The user trades tokens from a single wallet and wants to understand how much they
			made or lost. Learn about the expert's skill that you can get from the Tools to ask
			them questions. They keep context of your previous questions.

			Devise a plan of questions to ask to each expert and come up with the best response
			to the user's request. Figures always come from the Accountant, never guess them.
			Answer in markdown.
		`}}},
		},
		Library: NewLibrary(experts),
	}
}

// NewTrader creates an expert that searches the web for news about tokens.
func NewTrader() *Expert {
	return &Expert{
		Name: "Trader",
		Description: `This is an expert trader of on-chain tokens.
		Ask the Trader whenever you need recent news about a token or the market.`,
		ModelName: model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{GoogleSearch: &genai.GoogleSearch{}},
			},
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: `
			You are an expert in on-chain token trading. Tokens are identified by their
			contract (mint) address. Use Google Search to ground your assertions and find the
			latest news about a token, its liquidity and its community.
			`}}},
		},
	}
}

// NewAccountant creates an expert that reads the PnL reports from source.
func NewAccountant(source ReportSource) *Expert {
	lib := Functions(source)
	return &Expert{
		Name: "Accountant",
		Description: `This is the Accountant. They compute the realized and unrealized PnL
		of the wallet, per token and per day or week.`,
		ModelName: model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{FunctionDeclarations: NewDeclaration(lib)},
			},
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: `
			You are the accountant of a trading wallet. Use the Tools to read the PnL report,
			the details of a position, and the daily or weekly summaries.
			Unrealized PnL is left out for tokens without price, say so when it happens.
			`}, {Text: docs.MustGetTopic("pnl")}}},
		},
		Library: NewLibrary(lib),
	}
}

// Functions returns the tools reading the reports from source.
func Functions(source ReportSource) []*Func {
	return []*Func{
		{
			Decl: &genai.FunctionDeclaration{
				Name:        "Report",
				Description: "Report returns the PnL report of the wallet: totals, active and closed positions, and anomalies.",
				Response: &genai.Schema{
					Type:        genai.TypeString,
					Description: "A markdown report.",
				},
			},
			Func: func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
				r, err := source(ctx)
				if err != nil {
					return failure(id, "Report", err)
				}
				return success(id, "Report", renderer.ReportMarkdown(r, renderer.ReportOptions{FullAddress: true})+renderer.StatsMarkdown(r.Stats()))
			},
		},
		{
			Decl: &genai.FunctionDeclaration{
				Name:        "Position",
				Description: "Position returns every figure about the position of a single token.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"token": {Type: genai.TypeString, Description: "The token contract address."},
					},
					Required: []string{"token"},
				},
				Response: &genai.Schema{
					Type:        genai.TypeString,
					Description: "The position as a JSON object.",
				},
			},
			Func: func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
				token, err := stringArg(args, "token")
				if err != nil {
					return failure(id, "Position", err)
				}
				r, err := source(ctx)
				if err != nil {
					return failure(id, "Position", err)
				}
				p, ok := r.Position(token)
				if !ok {
					return failure(id, "Position", fmt.Errorf("the wallet never traded %s", token))
				}
				data, err := json.Marshal(p)
				if err != nil {
					return failure(id, "Position", err)
				}
				return success(id, "Position", string(data))
			},
		},
		{
			Decl: &genai.FunctionDeclaration{
				Name:        "Window",
				Description: "Window returns the realized PnL and the trades of a UTC day or of a week, Monday to Sunday.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"period": {Type: genai.TypeString, Enum: []string{"daily", "weekly"}},
						"date": {Type: genai.TypeString, Description: "A day in the window, today by default.\n" + docs.MustGetTopic("dates")},
					},
					Required: []string{"period"},
				},
				Response: &genai.Schema{
					Type:        genai.TypeString,
					Description: "A markdown summary of the window.",
				},
			},
			Func: func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
				rg, err := window(args)
				if err != nil {
					return failure(id, "Window", err)
				}
				r, err := source(ctx)
				if err != nil {
					return failure(id, "Window", err)
				}
				return success(id, "Window", renderer.WindowMarkdown(rg, r.Range(rg), r.Events))
			},
		},
	}
}

func window(args map[string]any) (date.Range, error) {
	p, err := stringArg(args, "period")
	if err != nil {
		return date.Range{}, err
	}
	period, err := date.ParsePeriod(p)
	if err != nil {
		return date.Range{}, fmt.Errorf("argument 'period' must be daily or weekly, got %q", p)
	}
	day := date.Today()
	if _, ok := args["date"]; ok {
		s, err := stringArg(args, "date")
		if err != nil {
			return date.Range{}, err
		}
		if day, err = date.Parse(s); err != nil {
			return date.Range{}, fmt.Errorf("argument 'date' must be a valid date: %w", err)
		}
	}
	return date.NewRange(day, period), nil
}
