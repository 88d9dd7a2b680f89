package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"erwpulse/internal/analytics"
	"erwpulse/internal/infrastructure"
	"erwpulse/internal/store"
	"erwpulse/pkg/contracts/domain"
)

// Limits on what goes into a chat context.
const (
	chatSummaryLimit   = 100
	chatFeedstockLimit = 50
)

// ChatContext is the grounding text handed to a chat model, plus the facts
// it was built from.
type ChatContext struct {
	Context      string   `json:"context"`
	TotalSamples int      `json:"total_samples"`
	Regions      []string `json:"regions"`
	States       []string `json:"states"`
	Feedstocks   []string `json:"feedstocks"`
	Summaries    int      `json:"summaries"`
}

// ChatContextBuilder assembles the data context of the assistant panel.
type ChatContextBuilder struct {
	reader guardedReader
	logger *slog.Logger
}

// NewChatContextBuilder creates a builder reading from reader.
func NewChatContextBuilder(reader store.SampleReader, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *ChatContextBuilder {
	return &ChatContextBuilder{
		reader: guardedReader{reader: reader, metrics: metrics},
		logger: infrastructure.WithComponent(logger, "chat_context"),
	}
}

// Build summarizes everything loaded, across feedstocks and thresholds.
func (b *ChatContextBuilder) Build(ctx context.Context) (ChatContext, error) {
	all := domain.Filter{}

	total, err := b.reader.CountSamples(ctx, all)
	if err != nil {
		return ChatContext{}, err
	}
	regions, err := b.reader.Distinct(ctx, domain.FieldRegion, all)
	if err != nil {
		return ChatContext{}, err
	}
	states, err := b.reader.Distinct(ctx, domain.FieldState, all)
	if err != nil {
		return ChatContext{}, err
	}
	feedstocks, err := b.reader.ListFeedstocks(ctx)
	if err != nil {
		return ChatContext{}, err
	}
	summaries, err := b.reader.FindSummaries(ctx, domain.SummaryFilter{})
	if err != nil {
		return ChatContext{}, err
	}
	if len(summaries) > chatSummaryLimit {
		summaries = summaries[:chatSummaryLimit]
	}
	if summaries == nil {
		summaries = []domain.SummaryRecord{}
	}

	names := make([]string, 0, len(feedstocks))
	for i, f := range feedstocks {
		if i == chatFeedstockLimit {
			break
		}
		names = append(names, f.Name)
	}

	filters := analytics.FiltersFrom(regions, states)
	summaryJSON, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return ChatContext{}, fmt.Errorf("encode summaries: %w", err)
	}
	namesJSON, err := json.Marshal(names)
	if err != nil {
		return ChatContext{}, fmt.Errorf("encode feedstocks: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("You are an expert in Enhanced Rock Weathering (ERW) and carbon dioxide removal (CDR) in rivers.\n")
	fmt.Fprintf(&sb, "Available data: %d samples across regions: %s\n", total, strings.Join(filters.Regions, ", "))
	fmt.Fprintf(&sb, "States: %s\n", strings.Join(filters.States, ", "))
	fmt.Fprintf(&sb, "Feedstocks: %s\n", namesJSON)
	fmt.Fprintf(&sb, "Summary stats: %s\n", summaryJSON)
	sb.WriteString("Units: CDR in t CO2/yr, omega is calcite saturation, rock addition in mol/kg.\n")
	sb.WriteString("Answer from the data above and say so when it does not cover the question.")

	b.logger.DebugContext(ctx, "chat context built",
		slog.Int("samples", total),
		slog.Int("summaries", len(summaries)),
		slog.Int("bytes", sb.Len()))

	return ChatContext{
		Context:      sb.String(),
		TotalSamples: total,
		Regions:      filters.Regions,
		States:       filters.States,
		Feedstocks:   names,
		Summaries:    len(summaries),
	}, nil
}
