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


// Package newsmind turns a news query into a structured article.
//
// A fixed chain of five LLM agents does the work, each one reading the
// previous agent's output from shared session state:
//
//	research_analyst          search_web  -> sources
//	source_scrapper           scrape_web  -> scraped_content
//	article_summarizer                    -> summary
//	title_keywords_generator              -> title_keywords
//	news_article_formatter                -> article
//
// Start the API:
//
//	newsmind serve --port 8000
//
// and request an article:
//
//	curl -X POST localhost:8000/generate-article -d '{"query":"central bank rates"}'
//
// # Configuration
//
// Settings come from the environment, optionally loaded from .env.local
// and .env. OPENAI_API_KEY and SERPER_API_KEY are required with the
// default provider. A YAML pipeline file can override the instruction,
// model and temperature of each agent:
//
//	model: gpt-4o
//	agents:
//	  article_summarizer:
//	    temperature: 0.2
//	    instruction: |
//	      Summarize ${REGION:-global} coverage in five sentences.
//
// # Packages
//
//	pkg/newsroom   the agent team, pipeline and service
//	pkg/server     HTTP API
//	pkg/agent      agent runtime (llmagent, workflowagent)
//	pkg/model      LLM providers (openai, gemini, ollama)
//	pkg/tool       tool interface, search_web and scrape_web
//	pkg/store      article history (memory, sqlite, postgres, mysql)
package newsmind
