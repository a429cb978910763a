package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/supportflow/support-agent/internal/ai"
)

func main() {
	// Parse command line flags
	apiKey := flag.String("key", "", "OpenAI API key (or set OPENAI_API_KEY env var)")
	model := flag.String("model", openai.GPT4oMini, "Model to use")
	timeout := flag.Duration("timeout", 30*time.Second, "API call timeout")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	// Initialize logger
	var logger *zap.Logger
	var err error
	if *verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Get API key from flag or environment
	if *apiKey == "" {
		*apiKey = os.Getenv("OPENAI_API_KEY")
	}

	if *apiKey == "" {
		fmt.Fprintf(os.Stderr, "ERROR: OPENAI_API_KEY not set and no --key flag provided\n")
		fmt.Fprintf(os.Stderr, "Usage: test-openai-connection --key sk-... [--model gpt-4o-mini] [--timeout 30s]\n")
		os.Exit(1)
	}

	fmt.Println("=== OpenAI Connection Test ===")
	fmt.Println("Configuration:")
	fmt.Printf("  Model: %s\n", *model)
	fmt.Printf("  API key length: %d chars\n", len(*apiKey))
	if len(*apiKey) >= 4 {
		fmt.Printf("  API key prefix: %s...\n", (*apiKey)[:4])
	}
	fmt.Printf("  Timeout: %v\n", *timeout)
	fmt.Println()

	classifier := ai.NewClassifier(openai.NewClient(*apiKey), *model, 0.2, logger)
	fmt.Println("✓ Classifier initialized")

	testText := "My package arrived with a shattered screen, order ORD12345. I want a replacement."
	fmt.Println("Test ticket text:")
	fmt.Printf("  %s\n\n", testText)

	fmt.Println("Sending request to OpenAI chat completions API...")
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	startTime := time.Now()
	result, err := classifier.Classify(ctx, testText,
		"Decide whether this message is a customer support ticket about an order.",
		[]string{"support-ticket", "not-support-ticket"})
	duration := time.Since(startTime)

	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ ERROR: OpenAI API call failed\n")
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		fmt.Fprintf(os.Stderr, "Possible causes:\n")
		fmt.Fprintf(os.Stderr, "  1. Invalid or expired OPENAI_API_KEY\n")
		fmt.Fprintf(os.Stderr, "  2. Network connectivity issue\n")
		fmt.Fprintf(os.Stderr, "  3. API quota exceeded\n")
		fmt.Fprintf(os.Stderr, "  4. API service unavailable\n")
		fmt.Fprintf(os.Stderr, "  5. Wrong API key format (should start with 'sk-')\n")
		os.Exit(1)
	}

	fmt.Println("✓ Received response!")
	fmt.Printf("API Response Time: %v\n", duration)
	fmt.Printf("Label: %s\n", result.Label)
	fmt.Printf("Reasoning: %s\n", result.Reasoning)
	fmt.Println()
	fmt.Println("=== Connection test passed ===")
}
