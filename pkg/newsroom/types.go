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

// SourceOutput is produced by the Research Analyst.
type SourceOutput struct {
	NewsLinks []string `json:"news_links" jsonschema:"description=URLs of relevant news articles"`
}

// ScrapedContentOutput is produced by the Source Scrapper.
type ScrapedContentOutput struct {
	Content string   `json:"content" jsonschema:"description=Combined readable content of the scraped pages"`
	Sources []string `json:"sources" jsonschema:"description=URLs the content was taken from"`
}

// SummaryOutput is produced by the Article Summarizer.
type SummaryOutput struct {
	Summary string   `json:"summary" jsonschema:"description=Detailed summary that answers the user query"`
	Sources []string `json:"sources"`
}

// TitleKeywordsOutput is produced by the Article Title and Keywords Generator.
type TitleKeywordsOutput struct {
	Title    string   `json:"title"`
	Content  string   `json:"content" jsonschema:"description=The summarized article, passed through unchanged"`
	Summary  string   `json:"summary"`
	Keywords []string `json:"keywords"`
	Sources  []string `json:"sources"`
}

// ArticleOutput is the final article returned to clients.
type ArticleOutput struct {
	Title    string   `json:"title"`
	Summary  string   `json:"summary"`
	Keywords []string `json:"keywords"`
	Article  string   `json:"article" jsonschema:"description=Full article body in plain text"`
	Sources  []string `json:"sources"`
}
