package summarize

import (
	"fmt"
	"strings"

	"github.com/kalambet/ytbrief/internal/ollama"
)

const analyzeSystemPrompt = `You analyze AI industry video transcripts. Your output must be ONLY a single valid JSON object with the keys "summary", "keyTopics", "mainInsights" and "industryTrends". Do not include any other text or markdown.`

const analyzeTemplate = `Analyze this AI industry video transcript and provide:
1. A concise summary (2-3 sentences)
2. Key topics discussed (3-5 topics)
3. Main insights and takeaways (3-5 points)
4. Industry trends mentioned (if any)

Video Title: %s

Transcript:
%s

Please format your response as JSON with the following structure:
{
  "summary": "...",
  "keyTopics": ["topic1", "topic2", ...],
  "mainInsights": ["insight1", "insight2", ...],
  "industryTrends": ["trend1", "trend2", ...]
}`

const trendTemplate = `Based on these recent AI industry video transcripts, generate a comprehensive trend report that identifies:

1. **Emerging Trends**: What new developments or themes are appearing
2. **Recurring Topics**: What subjects are being discussed consistently
3. **Key Players & Companies**: Which organizations are being mentioned frequently
4. **Technology Shifts**: Any notable changes in tools, platforms, or approaches
5. **Industry Sentiment**: Overall tone and direction of the AI industry

Recent transcripts:
%s

Please provide a well-structured markdown report that would be valuable for a team tracking AI industry developments.`

func buildAnalyzePrompt(transcript, title string) []ollama.Message {
	return []ollama.Message{
		{Role: "system", Content: analyzeSystemPrompt},
		{Role: "user", Content: fmt.Sprintf(analyzeTemplate, title, transcript)},
	}
}

func buildTrendPrompt(inputs []TrendInput) []ollama.Message {
	parts := make([]string, len(inputs))
	for i, in := range inputs {
		parts[i] = fmt.Sprintf("Video %d (%s): %s\n%s...",
			i+1, in.Date.Format("1/2/2006"), in.Title, excerpt(in.Transcript, trendExcerptLen))
	}
	return []ollama.Message{
		{Role: "user", Content: fmt.Sprintf(trendTemplate, strings.Join(parts, "\n\n---\n\n"))},
	}
}
