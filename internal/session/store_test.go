package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/studybuddy/studybuddy/internal/llm/scripted"
	"github.com/studybuddy/studybuddy/internal/testutil"
)

// TestEnsureCreatesOnce verifies the chat is created lazily and reused.
func TestEnsureCreatesOnce(testingHandle *testing.T) {
	// Arrange.
	provider := scripted.NewProvider()
	store := NewStore(provider, "persona", "gemini-2.5-flash")
	current, _ := store.Current()
	testutil.RequireTrue(testingHandle, current == nil, "no chat before first use")

	// Act.
	first, err := store.Ensure(context.Background())
	testutil.RequireNoError(testingHandle, err, "first ensure")
	second, err := store.Ensure(context.Background())
	testutil.RequireNoError(testingHandle, err, "second ensure")

	// Assert.
	testutil.RequireTrue(testingHandle, first == second, "same handle on repeat")
	testutil.RequireEqual(testingHandle, provider.Sessions(), 1, "single creation")
	testutil.RequireEqual(testingHandle, provider.SessionArgs(), []scripted.SessionArgs{
		{SystemInstruction: "persona", Model: "gemini-2.5-flash"},
	}, "session configuration")
	_, generation := store.Current()
	testutil.RequireTrue(testingHandle, generation != "", "generation id assigned")
}

// TestInvalidateIsIdempotent verifies double invalidation equals one.
func TestInvalidateIsIdempotent(testingHandle *testing.T) {
	provider := scripted.NewProvider()
	store := NewStore(provider, "persona", "m")
	_, err := store.Ensure(context.Background())
	testutil.RequireNoError(testingHandle, err, "ensure")

	store.Invalidate()
	store.Invalidate()

	current, generation := store.Current()
	testutil.RequireTrue(testingHandle, current == nil, "chat dropped")
	testutil.RequireEqual(testingHandle, generation, "", "generation cleared")

	_, err = store.Ensure(context.Background())
	testutil.RequireNoError(testingHandle, err, "ensure after reset")
	testutil.RequireEqual(testingHandle, provider.Sessions(), 2, "fresh chat after reset")
}

// TestInvalidateWithoutSession verifies reset on an empty store is harmless.
func TestInvalidateWithoutSession(testingHandle *testing.T) {
	store := NewStore(scripted.NewProvider(), "", "m")
	store.Invalidate()
	current, _ := store.Current()
	testutil.RequireTrue(testingHandle, current == nil, "still empty")
}

// TestEnsurePropagatesCreateError verifies creation failures are wrapped and not cached.
func TestEnsurePropagatesCreateError(testingHandle *testing.T) {
	boom := errors.New("no credential")
	store := NewStore(scripted.NewProvider(scripted.WithCreateError(boom)), "", "m")

	_, err := store.Ensure(context.Background())

	testutil.RequireErrorIs(testingHandle, err, boom, "wrapped create error")
	current, _ := store.Current()
	testutil.RequireTrue(testingHandle, current == nil, "failed creation not stored")
}

// TestEnsureConcurrent verifies concurrent callers share one chat.
func TestEnsureConcurrent(testingHandle *testing.T) {
	provider := scripted.NewProvider()
	store := NewStore(provider, "", "m")

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.Ensure(context.Background())
		}()
	}
	wg.Wait()

	testutil.RequireEqual(testingHandle, provider.Sessions(), 1, "single creation under contention")
}
