// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package newsroom

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kadirpekel/newsmind/pkg/agent"
	"github.com/kadirpekel/newsmind/pkg/agent/llmagent"
	"github.com/kadirpekel/newsmind/pkg/agent/workflowagent"
	"github.com/kadirpekel/newsmind/pkg/config"
	"github.com/kadirpekel/newsmind/pkg/model"
	"github.com/kadirpekel/newsmind/pkg/observability"
	"github.com/kadirpekel/newsmind/pkg/schema"
	"github.com/kadirpekel/newsmind/pkg/tool"
)

// OrchestratorName is the name of the root agent and of the pipeline trace.
const OrchestratorName = "News Mind AI Main Orchestrator"

// PipelineName names the root trace span of a run.
const PipelineName = "News Mind AI Pipeline"

// Agent ids used as keys in the pipeline file.
const (
	ResearchAnalystID        = "research_analyst"
	SourceScrapperID         = "source_scrapper"
	ArticleSummarizerID      = "article_summarizer"
	TitleKeywordsGeneratorID = "title_keywords_generator"
	ArticleFormatterID       = "news_article_formatter"
)

// State keys holding each role's output.
const (
	StateKeySources       = "sources"
	StateKeyScraped       = "scraped_content"
	StateKeySummary       = "summary"
	StateKeyTitleKeywords = "title_keywords"
	StateKeyArticle       = "article"
)

// Role describes one step of the chain.
type Role struct {
	ID          string
	Name        string
	Description string
	Instruction string

	// InputKey is the state key of the previous role's output.
	InputKey  string
	OutputKey string

	// Tool is the name of the tool the role needs, if any.
	Tool string

	outputSchema func() (map[string]any, error)
}

// Roles returns the five roles in execution order.
func Roles() []Role {
	return []Role{
		{
			ID:           ResearchAnalystID,
			Name:         "Research Analyst",
			Description:  "Finds relevant news sources for the query",
			Instruction:  researchAnalystInstruction,
			OutputKey:    StateKeySources,
			Tool:         "search_web",
			outputSchema: schema.ForOutput[SourceOutput],
		},
		{
			ID:           SourceScrapperID,
			Name:         "Source Scrapper",
			Description:  "Scrapes the sources and combines their content",
			Instruction:  sourceScrapperInstruction,
			InputKey:     StateKeySources,
			OutputKey:    StateKeyScraped,
			Tool:         "scrape_web",
			outputSchema: schema.ForOutput[ScrapedContentOutput],
		},
		{
			ID:           ArticleSummarizerID,
			Name:         "Article Summarizer",
			Description:  "Summarizes the scraped content",
			Instruction:  articleSummarizerInstruction,
			InputKey:     StateKeyScraped,
			OutputKey:    StateKeySummary,
			outputSchema: schema.ForOutput[SummaryOutput],
		},
		{
			ID:           TitleKeywordsGeneratorID,
			Name:         "Article Title and Keywords Generator",
			Description:  "Generates a title and keywords for the summary",
			Instruction:  titleKeywordsInstruction,
			InputKey:     StateKeySummary,
			OutputKey:    StateKeyTitleKeywords,
			outputSchema: schema.ForOutput[TitleKeywordsOutput],
		},
		{
			ID:           ArticleFormatterID,
			Name:         "News Article Formatter",
			Description:  "Formats the final article",
			Instruction:  articleFormatterInstruction,
			InputKey:     StateKeyTitleKeywords,
			OutputKey:    StateKeyArticle,
			outputSchema: schema.ForOutput[ArticleOutput],
		},
	}
}

// ModelFactory returns the LLM for a model name.
type ModelFactory func(name string) (model.LLM, error)

// TeamConfig configures the agent tree.
type TeamConfig struct {
	// ModelName is used by every role without an override.
	ModelName string

	NewModel ModelFactory

	// Tools must contain search_web and scrape_web.
	Tools []tool.CallableTool

	// Overrides come from the pipeline file; nil keeps the defaults.
	Overrides *config.PipelineFile

	Tracer  *observability.Tracer
	Metrics *observability.Metrics
}

// NewTeam builds the orchestrator with the five roles as sequential
// sub-agents.
func NewTeam(cfg TeamConfig) (agent.Agent, error) {
	if cfg.NewModel == nil {
		return nil, fmt.Errorf("model factory is required")
	}

	overrides := cfg.Overrides
	if overrides == nil {
		overrides = &config.PipelineFile{}
	}
	if err := validateOverrides(overrides); err != nil {
		return nil, err
	}

	tools := make(map[string]tool.CallableTool, len(cfg.Tools))
	for _, t := range cfg.Tools {
		tools[t.Name()] = t
	}

	// Roles sharing a model name share the client.
	models := make(map[string]model.LLM)

	roles := Roles()
	subAgents := make([]agent.Agent, 0, len(roles))
	for _, role := range roles {
		override := overrides.Agents[role.ID]

		modelName := firstNonEmpty(override.Model, overrides.Model, cfg.ModelName)
		llm, ok := models[modelName]
		if !ok {
			var err error
			llm, err = cfg.NewModel(modelName)
			if err != nil {
				return nil, fmt.Errorf("%s: failed to create model %q: %w", role.Name, modelName, err)
			}
			models[modelName] = llm
		}

		var roleTools []tool.CallableTool
		if role.Tool != "" {
			t, ok := tools[role.Tool]
			if !ok {
				return nil, fmt.Errorf("%s: tool %q is not configured", role.Name, role.Tool)
			}
			roleTools = append(roleTools, t)
		}

		outputSchema, err := role.outputSchema()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", role.Name, err)
		}

		var genCfg *model.GenerateConfig
		if temp := firstTemperature(override.Temperature, overrides.Temperature); temp != nil {
			genCfg = &model.GenerateConfig{Temperature: temp}
		}

		a, err := llmagent.New(llmagent.Config{
			Name:           role.Name,
			Description:    role.Description,
			Model:          llm,
			Instruction:    firstNonEmpty(strings.TrimSpace(override.Instruction), role.Instruction),
			GenerateConfig: genCfg,
			Tools:          roleTools,
			InputKey:       role.InputKey,
			OutputKey:      role.OutputKey,
			OutputSchema:   outputSchema,
			MaxIterations:  override.MaxIterations,
			Tracer:         cfg.Tracer,
			Metrics:        cfg.Metrics,
		})
		if err != nil {
			return nil, err
		}
		subAgents = append(subAgents, a)
	}

	return workflowagent.NewSequential(workflowagent.SequentialConfig{
		Name:        OrchestratorName,
		Description: "Runs research, scraping, summarization, titling and formatting in order",
		SubAgents:   subAgents,
	})
}

func validateOverrides(pf *config.PipelineFile) error {
	known := make(map[string]bool)
	for _, r := range Roles() {
		known[r.ID] = true
	}
	var unknown []string
	for id := range pf.Agents {
		if !known[id] {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("unknown agents in pipeline file: %s", strings.Join(unknown, ", "))
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstTemperature(values ...*float64) *float64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
