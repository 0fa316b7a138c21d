package agents

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/tradelens/tradelens/internal/config"
	"github.com/tradelens/tradelens/internal/models"
)

// CrewReport is what a crew run adds on top of the deterministic advice. The
// crew never replaces the advice, it annotates it.
type CrewReport struct {
	ClassifierReport  string                `json:"classifier_report"`
	RecommenderReport string                `json:"recommender_report"`
	ResearchReport    string                `json:"research_report"`
	Signal            models.Recommendation `json:"signal"`
}

// Insights joins the individual reports for display.
func (r *CrewReport) Insights() string {
	sections := []struct {
		title string
		body  string
	}{
		{"Trend Classification", r.ClassifierReport},
		{"Recommendation", r.RecommenderReport},
		{"Research Notes", r.ResearchReport},
	}
	var b strings.Builder
	for _, s := range sections {
		if s.body == "" {
			continue
		}
		fmt.Fprintf(&b, "## %s\n%s\n\n", s.title, s.body)
	}
	return strings.TrimSpace(b.String())
}

func crewHandOff(ctx context.Context, input string) (next string, err error) {
	_ = compose.ProcessState[*CrewState](ctx, func(_ context.Context, state *CrewState) error {
		next = state.Goto
		return nil
	})
	return next, nil
}

func loadClassifierMessages(ctx context.Context, name string, opts ...any) (output []*schema.Message, err error) {
	err = compose.ProcessState[*CrewState](ctx, func(_ context.Context, state *CrewState) error {
		systemPrompt := `You are a market trend classifier.

Your responsibilities:
1. Read the intraday price summary and the scored news digest
2. Judge whether the price direction and the news tone agree
3. State the trend as UP, DOWN or FLAT with a short justification

Keep the report under 150 words.`

		userPrompt := fmt.Sprintf(`Symbol: %s
Price action: %s
Mean news sentiment: %+.2f
News digest:
%s`,
			state.Symbol, state.PriceSummary, state.MeanSentiment, state.NewsDigest)

		output = []*schema.Message{
			schema.SystemMessage(systemPrompt),
			schema.UserMessage(userPrompt),
		}
		return nil
	})
	return output, err
}

func classifierRouter(ctx context.Context, input *schema.Message, opts ...any) (output string, err error) {
	err = compose.ProcessState[*CrewState](ctx, func(_ context.Context, state *CrewState) error {
		state.ClassifierReport = input.Content
		state.Goto = NodeRecommender
		output = state.Goto
		return nil
	})
	return output, err
}

func loadRecommenderMessages(ctx context.Context, name string, opts ...any) (output []*schema.Message, err error) {
	err = compose.ProcessState[*CrewState](ctx, func(_ context.Context, state *CrewState) error {
		systemPrompt := `You are an investment recommender.

Your responsibilities:
1. Weigh the trend classification against the baseline rule-based call
2. Issue exactly one of BUY, SELL or HOLD
3. End your report with a line of the form "RECOMMENDATION: <BUY|SELL|HOLD>"

Keep the report under 150 words.`

		userPrompt := fmt.Sprintf(`Symbol: %s
Baseline call: %s
Trend classification:
%s`,
			state.Symbol, state.BaselineCall, state.ClassifierReport)

		output = []*schema.Message{
			schema.SystemMessage(systemPrompt),
			schema.UserMessage(userPrompt),
		}
		return nil
	})
	return output, err
}

func recommenderRouter(ctx context.Context, input *schema.Message, opts ...any) (output string, err error) {
	err = compose.ProcessState[*CrewState](ctx, func(_ context.Context, state *CrewState) error {
		state.RecommenderReport = input.Content
		state.Goto = NodeResearcher
		output = state.Goto
		return nil
	})
	return output, err
}

func loadResearcherMessages(ctx context.Context, name string, opts ...any) (output []*schema.Message, err error) {
	err = compose.ProcessState[*CrewState](ctx, func(_ context.Context, state *CrewState) error {
		systemPrompt := `You are an equity researcher writing a short brief for a retail investor.

Your responsibilities:
1. Summarize what is driving the stock today based on the news digest
2. Note the main risk that could invalidate the recommendation
3. Do not change the recommendation, only contextualize it

Keep the brief under 200 words.`

		userPrompt := fmt.Sprintf(`Symbol: %s
Recommendation report:
%s
News digest:
%s`,
			state.Symbol, state.RecommenderReport, state.NewsDigest)

		output = []*schema.Message{
			schema.SystemMessage(systemPrompt),
			schema.UserMessage(userPrompt),
		}
		return nil
	})
	return output, err
}

func researcherRouter(ctx context.Context, input *schema.Message, opts ...any) (output string, err error) {
	err = compose.ProcessState[*CrewState](ctx, func(_ context.Context, state *CrewState) error {
		state.ResearchReport = input.Content
		state.Goto = compose.END
		output = state.Goto
		return nil
	})
	return output, err
}

func newAgentNode[I, O any](
	ctx context.Context,
	chatModel model.ToolCallingChatModel,
	loader func(context.Context, string, ...any) ([]*schema.Message, error),
	router func(context.Context, *schema.Message, ...any) (string, error),
) *compose.Graph[I, O] {
	g := compose.NewGraph[I, O]()

	_ = g.AddLambdaNode("load", compose.InvokableLambdaWithOption(loader))
	_ = g.AddChatModelNode("agent", chatModel)
	_ = g.AddLambdaNode("router", compose.InvokableLambdaWithOption(router))

	_ = g.AddEdge(compose.START, "load")
	_ = g.AddEdge("load", "agent")
	_ = g.AddEdge("agent", "router")
	_ = g.AddEdge("router", compose.END)

	return g
}

// NewCrewOrchestrator compiles the classifier -> recommender -> researcher
// graph. Routing goes through the shared state's Goto field.
func NewCrewOrchestrator[I, O, S any](ctx context.Context, genFunc compose.GenLocalState[S], chatModel model.ToolCallingChatModel) (compose.Runnable[I, O], error) {
	g := compose.NewGraph[I, O](
		compose.WithGenLocalState(genFunc),
	)

	outMap := map[string]bool{
		NodeRecommender: true,
		NodeResearcher:  true,
		compose.END:     true,
	}

	classifierGraph := newAgentNode[I, O](ctx, chatModel, loadClassifierMessages, classifierRouter)
	recommenderGraph := newAgentNode[I, O](ctx, chatModel, loadRecommenderMessages, recommenderRouter)
	researcherGraph := newAgentNode[I, O](ctx, chatModel, loadResearcherMessages, researcherRouter)

	_ = g.AddGraphNode(NodeClassifier, classifierGraph, compose.WithNodeName(NodeClassifier))
	_ = g.AddGraphNode(NodeRecommender, recommenderGraph, compose.WithNodeName(NodeRecommender))
	_ = g.AddGraphNode(NodeResearcher, researcherGraph, compose.WithNodeName(NodeResearcher))

	_ = g.AddBranch(NodeClassifier, compose.NewGraphBranch(crewHandOff, outMap))
	_ = g.AddBranch(NodeRecommender, compose.NewGraphBranch(crewHandOff, outMap))
	_ = g.AddBranch(NodeResearcher, compose.NewGraphBranch(crewHandOff, outMap))

	_ = g.AddEdge(compose.START, NodeClassifier)

	return g.Compile(ctx,
		compose.WithGraphName("TradeLens-InsightCrew"),
		compose.WithNodeTriggerMode(compose.AnyPredecessor),
	)
}

// Crew runs the LLM agents over a finished analysis.
type Crew struct {
	cfg *config.Config
}

func NewCrew(cfg *config.Config) *Crew {
	return &Crew{cfg: cfg}
}

// Enabled reports whether the crew can run with the current configuration.
func (c *Crew) Enabled() bool {
	return c.cfg.AgentsEnabled && c.cfg.LLMAPIKey() != ""
}

// Run executes the crew over one analysis result and returns its reports.
// The deterministic advice in the result is never modified here.
func (c *Crew) Run(ctx context.Context, result *models.AnalysisResult) (*CrewReport, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("agent crew is not enabled")
	}

	chatModel, err := NewChatModel(ctx, c.cfg)
	if err != nil {
		return nil, fmt.Errorf("init chat model: %w", err)
	}

	state := NewCrewState(result)
	genFunc := func(ctx context.Context) *CrewState { return state }

	orchestrator, err := NewCrewOrchestrator[string, string, *CrewState](ctx, genFunc, chatModel)
	if err != nil {
		return nil, fmt.Errorf("compile crew graph: %w", err)
	}

	prompt := fmt.Sprintf("Review the %s analysis and produce an independent recommendation.", result.Symbol)
	if _, err := orchestrator.Invoke(ctx, prompt); err != nil {
		return nil, fmt.Errorf("run crew for %s: %w", result.Symbol, err)
	}

	report := &CrewReport{
		ClassifierReport:  state.ClassifierReport,
		RecommenderReport: state.RecommenderReport,
		ResearchReport:    state.ResearchReport,
	}
	report.Signal = ExtractSignal(state.RecommenderReport)
	return report, nil
}

var (
	recommendationLineRe = regexp.MustCompile(`(?im)^\s*RECOMMENDATION\s*[:\-]\s*\**\s*(BUY|SELL|HOLD)`)
	signalWordRe         = regexp.MustCompile(`(?i)\b(BUY|SELL|HOLD)\b`)
)

// ExtractSignal pulls the BUY/SELL/HOLD label out of a recommender report.
// It prefers the explicit "RECOMMENDATION:" line, then falls back to the last
// standalone signal word. Returns an empty recommendation when no signal is
// found.
func ExtractSignal(report string) models.Recommendation {
	if m := recommendationLineRe.FindStringSubmatch(report); len(m) > 1 {
		return models.Recommendation(strings.ToUpper(m[1]))
	}
	matches := signalWordRe.FindAllStringSubmatch(report, -1)
	if len(matches) == 0 {
		return ""
	}
	return models.Recommendation(strings.ToUpper(matches[len(matches)-1][1]))
}
