package analysis_test

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"inmovc/internal/analysis"
	"inmovc/internal/llm"
)

// Example demonstrates analyzing listing text with OpenAI first and Gemini as fallback.
func Example() {
	var providers []llm.Provider
	if p, err := llm.NewOpenAIProvider(llm.DefaultOpenAIConfig(os.Getenv("OPENAI_API_KEY"))); err == nil {
		providers = append(providers, p)
	}
	if p, err := llm.NewGeminiProvider(llm.GeminiConfig{APIKey: os.Getenv("GEMINI_API_KEY")}); err == nil {
		providers = append(providers, p)
	}

	analyzer := analysis.NewAnalyzer(providers...)
	result, err := analyzer.Analyze(context.Background(), analysis.Request{
		ExtractedText: "Moradia V4 em Cascais, piscina, jardim, garagem para 2 carros.",
		Filename:      "moradia.pdf",
	})
	if err != nil {
		var failure *analysis.LLMFailureError
		if errors.As(err, &failure) {
			for _, a := range failure.Attempts {
				log.Printf("%s: %s", a.Provider, a.Reason)
			}
		}
		log.Fatalf("Analysis failed: %v", err)
	}

	fmt.Println(result.AnnouncementTitle)
	for _, feature := range result.KeyFeatures {
		fmt.Println("-", feature)
	}
}
