// Package agent orchestrates the conversational surface: it routes classified
// intents to the query engine or the conversation path and shapes every
// outcome, including failures, into one structured response.
package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cartly-ai/shopsearch/internal/catalog"
	"github.com/cartly-ai/shopsearch/internal/domain"
	"github.com/cartly-ai/shopsearch/internal/domain/search/filter"
	"github.com/cartly-ai/shopsearch/internal/domain/search/request"
	"github.com/cartly-ai/shopsearch/internal/domain/search/result"
	"github.com/cartly-ai/shopsearch/internal/engine"
)

// Response types.
const (
	TypeConversation  = "conversation"
	TypeProductSearch = "product_search"
	TypeImageSearch   = "image_search"
	TypeError         = "error"
)

const (
	defaultName        = "Cartly"
	defaultDescription = "AI Shopping Assistant"
	defaultSearchTopK  = 3
	categorySuggestLim = 5
)

// Config holds the agent identity and chat search parameters.
type Config struct {
	Name        string
	Description string
	SearchTopK  int
}

// Agent is the conversational orchestrator. The responder is optional; the
// classifier is required, the captioner only for image queries.
type Agent struct {
	engine     *engine.Engine
	classifier Classifier
	captioner  Captioner
	responder  Responder
	catalog    *catalog.Store
	cfg        Config
	logger     *zap.Logger
}

// New creates an agent.
func New(eng *engine.Engine, cls Classifier, capt Captioner, rsp Responder,
	store *catalog.Store, cfg Config, logger *zap.Logger) *Agent {

	if cfg.Name == "" {
		cfg.Name = defaultName
	}
	if cfg.Description == "" {
		cfg.Description = defaultDescription
	}
	if cfg.SearchTopK <= 0 {
		cfg.SearchTopK = defaultSearchTopK
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Agent{
		engine:     eng,
		classifier: cls,
		captioner:  capt,
		responder:  rsp,
		catalog:    store,
		cfg:        cfg,
		logger:     logger,
	}
}

// ChatRequest is one user turn.
type ChatRequest struct {
	SessionID string
	Message   string
	Image     []byte
	Filters   filter.Filters
}

// ErrorInfo is the structured failure surfaced instead of a raw error.
type ErrorInfo struct {
	Message   string `json:"message"`
	Retriable bool   `json:"retriable"`
}

// ChatResponse is the agent's answer to one turn. Failures come back as
// Type "error" with ErrorInfo set; the agent never propagates raw errors.
type ChatResponse struct {
	Type              string          `json:"type"`
	SessionID         string          `json:"session_id,omitempty"`
	AgentName         string          `json:"agent_name,omitempty"`
	Message           string          `json:"message"`
	Products          []result.Result `json:"products"`
	FollowUpQuestions []string        `json:"follow_up_questions,omitempty"`
	QueryRefined      string          `json:"query_refined,omitempty"`
	SearchQuery       string          `json:"search_query,omitempty"`
	ImageDescription  string          `json:"image_description,omitempty"`
	TotalFound        int             `json:"total_found,omitempty"`
	Error             *ErrorInfo      `json:"error,omitempty"`
}

// Process handles one user turn: caption the image if present, classify the
// intent, and route. Classifier filter hints merge under caller filters
// (caller wins per key).
func (a *Agent) Process(ctx context.Context, req ChatRequest) ChatResponse {
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	hasImage := len(req.Image) > 0
	var caption string
	if hasImage {
		var err error
		caption, err = a.captioner.Caption(ctx, req.Image)
		if err != nil {
			a.logger.Warn("image captioning failed", zap.Error(err))
			return a.errorResponse(sessionID, err,
				"I had trouble analyzing your image. Please try uploading a clear product image.")
		}
	}

	directive, err := a.classifier.Classify(ctx, req.Message, hasImage, caption)
	if err != nil {
		a.logger.Warn("intent classification failed", zap.Error(err))
		return a.errorResponse(sessionID, err,
			fmt.Sprintf("I encountered an error: %v. Please try again.", err))
	}

	a.logger.Info("intent classified",
		zap.String("session_id", sessionID),
		zap.String("intent", string(directive.Intent)))

	filters := filter.Merge(hintFilters(directive), req.Filters)

	switch directive.Intent {
	case domain.IntentGeneral:
		return a.handleConversation(sessionID, req.Message, directive)
	case domain.IntentImageSearch:
		return a.handleImageSearch(ctx, sessionID, req.Message, directive, caption)
	default:
		return a.handleProductSearch(ctx, sessionID, req.Message, directive, filters)
	}
}

func (a *Agent) handleConversation(sessionID, message string, d domain.ClassifierDirective) ChatResponse {
	reply := d.Reply
	if reply == "" {
		reply = fmt.Sprintf("Hi! I'm %s, your AI shopping assistant. I can help you find products, "+
			"analyze images, or just chat about shopping. What would you like to do?", a.cfg.Name)
	}
	return ChatResponse{
		Type:              TypeConversation,
		SessionID:         sessionID,
		AgentName:         a.cfg.Name,
		Message:           reply,
		Products:          []result.Result{},
		FollowUpQuestions: conversationFollowUps(message),
	}
}

func (a *Agent) handleProductSearch(ctx context.Context, sessionID, message string,
	d domain.ClassifierDirective, filters filter.Filters) ChatResponse {

	query := d.RefinedQuery
	if query == "" {
		query = message
	}

	req, err := request.New(query, filters, a.cfg.SearchTopK, nil)
	if err != nil {
		return a.errorResponse(sessionID, err,
			"I had trouble searching for products. Please try again with different keywords.")
	}

	resp, err := a.engine.Search(ctx, req)
	if err != nil {
		return a.errorResponse(sessionID, err,
			"I had trouble searching for products. Please try again with different keywords.")
	}

	message = a.recommendMessage(ctx, query, resp)

	return ChatResponse{
		Type:              TypeProductSearch,
		SessionID:         sessionID,
		AgentName:         a.cfg.Name,
		Message:           message,
		Products:          resp.Results,
		QueryRefined:      resp.RefinedQuery,
		TotalFound:        resp.TotalFound,
		FollowUpQuestions: productFollowUps(resp.Results),
	}
}

func (a *Agent) handleImageSearch(ctx context.Context, sessionID, message string,
	d domain.ClassifierDirective, caption string) ChatResponse {

	query := d.RefinedQuery
	if query == "" {
		query = BuildImageQuery(ParseCaption(caption))
	}

	// Image searches run unfiltered with a loose similarity gate: captions
	// are lossy queries and metadata hints from them are unreliable.
	minSim := request.ImageMinSimilarity
	req, err := request.New(query, filter.Filters{}, a.cfg.SearchTopK, &minSim)
	if err != nil {
		return a.errorResponse(sessionID, err,
			"I had trouble analyzing your image. Please try uploading a clear product image.")
	}

	resp, err := a.engine.Search(ctx, req)
	if err != nil {
		return a.errorResponse(sessionID, err,
			"I had trouble searching for products similar to your image. Please try again.")
	}

	respMessage := "I couldn't find products similar to your image."
	if n := len(resp.Results); n == 1 {
		respMessage = "I found 1 product for you."
	} else if n > 1 {
		respMessage = fmt.Sprintf("I found %d products for you.", n)
	}

	return ChatResponse{
		Type:             TypeImageSearch,
		SessionID:        sessionID,
		AgentName:        a.cfg.Name,
		Message:          respMessage,
		Products:         resp.Results,
		SearchQuery:      query,
		ImageDescription: caption,
		TotalFound:       resp.TotalFound,
		FollowUpQuestions: []string{
			"Would you like to see more similar products?",
			"Are you looking for a specific price range?",
			"Do you need help with product details?",
		},
	}
}

// recommendMessage asks the responder for a contextual reply over the
// retrieved products; without a responder (or when it fails) it degrades to
// the engine's count message, and to a category-suggesting message when
// nothing matched.
func (a *Agent) recommendMessage(ctx context.Context, query string, resp result.Response) string {
	if len(resp.Results) == 0 {
		return a.noResultsMessage(query)
	}
	if a.responder == nil {
		return resp.Message
	}

	reply, err := a.responder.Recommend(ctx, query, productsContext(resp.Results))
	if err != nil {
		a.logger.Warn("responder failed, using fallback message", zap.Error(err))
		return resp.Message
	}
	return reply
}

// productsContext formats retrieved products as numbered context lines for
// the responder prompt.
func productsContext(results []result.Result) string {
	lines := make([]string, 0, len(results))
	for i, r := range results {
		p := r.Product
		line := fmt.Sprintf("%d. %s", i+1, p.Title)
		if p.Description != "" {
			desc := p.Description
			if len(desc) > 200 {
				desc = desc[:200]
			}
			line += " - " + desc
		}
		var price, rating float64
		if p.Price != nil {
			price = *p.Price
		}
		if p.Rating != nil {
			rating = *p.Rating
		}
		line += fmt.Sprintf(" (Price: $%.2f, Rating: %g/5)", price, rating)
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (a *Agent) noResultsMessage(query string) string {
	msg := fmt.Sprintf("I couldn't find any products matching '%s'. ", query)
	if cats := a.catalog.Categories(); len(cats) > 0 {
		if len(cats) > categorySuggestLim {
			cats = cats[:categorySuggestLim]
		}
		msg += fmt.Sprintf("However, I have products in these categories: %s. ", strings.Join(cats, ", "))
	}
	msg += "Try being more general (e.g., 'shirt' instead of 'red shirt'), or ask about a different product category."
	return msg
}

func (a *Agent) errorResponse(sessionID string, err error, userMessage string) ChatResponse {
	return ChatResponse{
		Type:      TypeError,
		SessionID: sessionID,
		AgentName: a.cfg.Name,
		Message:   userMessage,
		Products:  []result.Result{},
		Error: &ErrorInfo{
			Message:   err.Error(),
			Retriable: domain.Retriable(err),
		},
	}
}

// hintFilters lifts the classifier's optional filter hints into Filters.
func hintFilters(d domain.ClassifierDirective) filter.Filters {
	return filter.Filters{
		Category:  d.Category,
		MinPrice:  d.MinPrice,
		MaxPrice:  d.MaxPrice,
		MinRating: d.MinRating,
	}
}

// Info describes the agent to clients.
type Info struct {
	Name                string   `json:"name"`
	Description         string   `json:"description"`
	Capabilities        []string `json:"capabilities"`
	AvailableCategories []string `json:"available_categories"`
	TotalProducts       int      `json:"total_products"`
}

// GetInfo returns the agent identity and catalog coverage.
func (a *Agent) GetInfo() Info {
	return Info{
		Name:        a.cfg.Name,
		Description: a.cfg.Description,
		Capabilities: []string{
			"General conversation about shopping",
			"Text-based product recommendations",
			"Image-based product search",
		},
		AvailableCategories: a.catalog.Categories(),
		TotalProducts:       a.catalog.Len(),
	}
}
