package llm

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

// TestWrapClient tests the WrapClient helper function.
func TestWrapClient(t *testing.T) {
	completeCalled := false
	modelNameCalled := false

	client := WrapClient(
		func(_ context.Context, _ CompletionRequest) (CompletionResponse, error) {
			completeCalled = true
			return CompletionResponse{Content: "wrapped"}, nil
		},
		func() string {
			modelNameCalled = true
			return "wrapped-model"
		},
	)

	resp, err := client.Complete(context.Background(), NewCompletionRequest([]CompletionMessage{NewUserMessage("test")}))
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !completeCalled {
		t.Error("Complete function was not called")
	}
	if resp.Content != "wrapped" {
		t.Errorf("expected 'wrapped', got %q", resp.Content)
	}

	if client.GetModelName() != "wrapped-model" || !modelNameCalled {
		t.Error("GetModelName was not delegated")
	}
}

func tagMiddleware(tag string, order *[]string) Middleware {
	return func(next LLMClient) LLMClient {
		return WrapClient(
			func(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
				*order = append(*order, tag)
				resp, err := next.Complete(ctx, req)
				resp.Content = tag + "(" + resp.Content + ")"
				return resp, err
			},
			next.GetModelName,
		)
	}
}

// TestChainMultipleMiddlewares checks that the first middleware is outermost.
func TestChainMultipleMiddlewares(t *testing.T) {
	var order []string
	base := &mockLLMClient{
		completeFunc: func(_ context.Context, _ CompletionRequest) (CompletionResponse, error) {
			order = append(order, "base")
			return CompletionResponse{Content: "base"}, nil
		},
	}

	client := Chain(base, tagMiddleware("a", &order), tagMiddleware("b", &order))
	resp, err := client.Complete(context.Background(), CompletionRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if strings.Join(order, ",") != "a,b,base" {
		t.Errorf("unexpected call order %v", order)
	}
	if resp.Content != "a(b(base))" {
		t.Errorf("unexpected content %q", resp.Content)
	}
}

func TestChainRequestModification(t *testing.T) {
	var seenTokens int
	base := &mockLLMClient{
		completeFunc: func(_ context.Context, req CompletionRequest) (CompletionResponse, error) {
			seenTokens = req.MaxTokens
			return CompletionResponse{}, nil
		},
	}
	capTokens := func(next LLMClient) LLMClient {
		return WrapClient(
			func(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
				req.MaxTokens = 256
				return next.Complete(ctx, req)
			},
			next.GetModelName,
		)
	}

	_, _ = Chain(base, capTokens).Complete(context.Background(), NewCompletionRequest(nil))
	if seenTokens != 256 {
		t.Errorf("expected 256 tokens at base, got %d", seenTokens)
	}
}

func TestChainErrorHandling(t *testing.T) {
	base := &mockLLMClient{
		completeFunc: func(_ context.Context, _ CompletionRequest) (CompletionResponse, error) {
			return CompletionResponse{}, fmt.Errorf("base error")
		},
	}
	wrapErr := func(next LLMClient) LLMClient {
		return WrapClient(
			func(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
				resp, err := next.Complete(ctx, req)
				if err != nil {
					return resp, fmt.Errorf("wrapped: %w", err)
				}
				return resp, nil
			},
			next.GetModelName,
		)
	}

	_, err := Chain(base, wrapErr).Complete(context.Background(), CompletionRequest{})
	if err == nil || err.Error() != "wrapped: base error" {
		t.Errorf("unexpected error %v", err)
	}
}

func TestChainShortCircuit(t *testing.T) {
	baseCalled := false
	base := &mockLLMClient{
		completeFunc: func(_ context.Context, _ CompletionRequest) (CompletionResponse, error) {
			baseCalled = true
			return CompletionResponse{}, nil
		},
	}
	cached := func(next LLMClient) LLMClient {
		return WrapClient(
			func(_ context.Context, _ CompletionRequest) (CompletionResponse, error) {
				return CompletionResponse{Content: "cached"}, nil
			},
			next.GetModelName,
		)
	}

	resp, _ := Chain(base, cached).Complete(context.Background(), CompletionRequest{})
	if baseCalled {
		t.Error("base client should not be called")
	}
	if resp.Content != "cached" {
		t.Errorf("expected cached, got %q", resp.Content)
	}
}

func TestChainModelNamePropagation(t *testing.T) {
	var order []string
	base := &mockLLMClient{getModelNameFunc: func() string { return "gpt-4o-mini" }}
	client := Chain(base, tagMiddleware("a", &order), tagMiddleware("b", &order))
	if client.GetModelName() != "gpt-4o-mini" {
		t.Errorf("expected model name to propagate, got %q", client.GetModelName())
	}
}

func TestChainNoMiddlewares(t *testing.T) {
	base := &mockLLMClient{}
	if Chain(base) != LLMClient(base) {
		t.Error("Chain with no middlewares should return the base client")
	}
}
