package pipeline

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedEnhancer struct {
	verdicts     []Verdict
	enhanceCalls int
	verifyCalls  int
}

func (e *scriptedEnhancer) Structure(ctx context.Context, state State) (State, error) {
	state.Response = "structured: " + state.Input
	return state, nil
}

func (e *scriptedEnhancer) Enhance(ctx context.Context, state State) (State, error) {
	e.enhanceCalls++
	state.Response = state.Response + " +"
	return state, nil
}

func (e *scriptedEnhancer) Verify(ctx context.Context, state State) (Verdict, error) {
	verdict := VerdictOK
	if e.verifyCalls < len(e.verdicts) {
		verdict = e.verdicts[e.verifyCalls]
	}
	e.verifyCalls++
	return verdict, nil
}

type staticExtractor struct {
	text string
	err  error
}

func (e *staticExtractor) ExtractText(ctx context.Context, dir string) (string, error) {
	return e.text, e.err
}

func TestRunnerHappyPath(t *testing.T) {
	enhancer := &scriptedEnhancer{}
	runner, err := NewRunner(&staticExtractor{text: "raw notes"}, enhancer, 3, nil)
	require.NoError(t, err)

	result, err := runner.Run(context.Background(), "/uploads/bot-1")
	require.NoError(t, err)
	assert.Equal(t, "bot-1", result.Title)
	assert.Equal(t, "structured: raw notes +", result.Content)
	assert.Equal(t, 1, enhancer.enhanceCalls)
	assert.Equal(t, 1, enhancer.verifyCalls)
}

func TestRunnerRetriesOnKO(t *testing.T) {
	enhancer := &scriptedEnhancer{verdicts: []Verdict{VerdictKO, VerdictOK}}
	runner, err := NewRunner(&staticExtractor{text: "raw"}, enhancer, 3, nil)
	require.NoError(t, err)

	result, err := runner.Run(context.Background(), "/uploads/bot-1")
	require.NoError(t, err)
	assert.Equal(t, 2, enhancer.enhanceCalls)
	assert.Equal(t, "structured: raw + +", result.Content)
}

func TestRunnerForceAcceptsAfterRetryCap(t *testing.T) {
	enhancer := &scriptedEnhancer{verdicts: []Verdict{VerdictKO, VerdictKO, VerdictKO, VerdictKO}}
	runner, err := NewRunner(&staticExtractor{text: "raw"}, enhancer, 3, nil)
	require.NoError(t, err)

	result, err := runner.Run(context.Background(), "/uploads/bot-1")
	require.NoError(t, err)
	assert.Equal(t, 3, enhancer.enhanceCalls)
	assert.Equal(t, 3, enhancer.verifyCalls)
	assert.NotEmpty(t, result.Content)
}

func TestRunnerPropagatesExtractError(t *testing.T) {
	runner, err := NewRunner(&staticExtractor{err: errors.New("camera broke")}, &scriptedEnhancer{}, 3, nil)
	require.NoError(t, err)

	_, err = runner.Run(context.Background(), "/uploads/bot-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "camera broke")
}

func TestListImageFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.png", "b.JPG", "notes.txt", ".gitkeep"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	paths, err := ListImageFiles(dir)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	for _, path := range paths {
		ext := strings.ToLower(filepath.Ext(path))
		assert.Contains(t, []string{".png", ".jpg"}, ext)
	}
}

func TestListImageFilesMissingDir(t *testing.T) {
	paths, err := ListImageFiles("/does/not/exist")
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestMockExtractorShape(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), []byte("x"), 0o644))

	extractor := NewMockExtractor(rand.New(rand.NewSource(42)))
	text, err := extractor.ExtractText(context.Background(), dir)
	require.NoError(t, err)

	assert.Contains(t, text, "1. Introduction")
	assert.Contains(t, text, "- ")
	assert.Contains(t, text, "1 image(s)")
}

func TestMockEnhancerPassesThrough(t *testing.T) {
	enhancer := NewMockEnhancer()
	ctx := context.Background()

	state, err := enhancer.Structure(ctx, State{Input: "draft"})
	require.NoError(t, err)
	assert.Equal(t, "draft", state.Response)

	state, err = enhancer.Enhance(ctx, state)
	require.NoError(t, err)
	assert.Equal(t, "draft", state.Response)

	verdict, err := enhancer.Verify(ctx, state)
	require.NoError(t, err)
	assert.Equal(t, VerdictOK, verdict)
}
