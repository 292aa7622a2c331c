package agent

import (
	"fmt"
	"strings"

	"github.com/cartly-ai/shopsearch/internal/domain/search/result"
)

// conversationFollowUps suggests next steps keyed on what the user asked.
func conversationFollowUps(message string) []string {
	lower := strings.ToLower(message)

	if containsAny(lower, "name", "who", "what are you") {
		return []string{
			"What products are you shopping for today?",
			"Would you like to upload an image to find similar products?",
			"What categories interest you most?",
		}
	}
	if containsAny(lower, "help", "can you", "what can") {
		return []string{
			"Try asking: 'Find me wireless headphones'",
			"Upload a product image for visual search",
			"Ask about specific categories like electronics or clothing",
		}
	}
	return []string{
		"What can I help you find today?",
		"Would you like product recommendations?",
		"Need help with a specific category?",
	}
}

// productFollowUps suggests next steps after a product search.
func productFollowUps(results []result.Result) []string {
	if len(results) == 0 {
		return []string{
			"Try different keywords",
			"Upload an image of what you're looking for",
			"Ask about our available categories",
		}
	}

	first := "See more similar products?"
	if c := results[0].Product.Category; c != "" {
		first = fmt.Sprintf("Want to see more %s products?", c)
	}
	return []string{
		first,
		"Need help comparing these options?",
		"Looking for a specific price range?",
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
