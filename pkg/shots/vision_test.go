package shots

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotkeep/dotkeep/pkg/runner"
)

// stubCategorize registers the model's answer for one image
func stubCategorize(fake *runner.FakeRunner, model, path string, categories []string, answer string) {
	prompt := fmt.Sprintf(categorizePrompt, strings.Join(categories, ", "))
	key := strings.Join([]string{"ollama", "run", model, prompt, path}, " ")
	fake.Stub(key, answer)
}

func TestAnalyzerTags(t *testing.T) {
	fake := runner.NewFake()
	a := NewAnalyzer(fake, "")

	path := "/tmp/shot.png"
	key := strings.Join([]string{"ollama", "run", DefaultModel, tagPrompt, path}, " ")
	fake.Stub(key, "Two people, dog, beach sunset, hiking\n")

	tags, err := a.Tags(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"two", "people", "dog", "beach", "sunset", "hiking"}, tags)
}

func TestAnalyzerTagsModelFailure(t *testing.T) {
	fake := runner.NewFake()
	a := NewAnalyzer(fake, "")

	// Nothing stubbed: the model call fails
	_, err := a.Tags(context.Background(), "/tmp/shot.png")
	require.Error(t, err)
}

func TestParseCategory(t *testing.T) {
	allowed := []string{"pets", "nature", "food"}

	tests := []struct {
		name     string
		out      string
		expected Category
	}{
		{
			name: "well formed",
			out:  "category: pets\nconfidence: high\ndescription: a cat on a sofa\n",
			expected: Category{
				Name: "pets", Confidence: "high", Description: "a cat on a sofa",
			},
		},
		{
			name:     "fuzzy category match",
			out:      "Category: Nature scenery\nconfidence: medium\n",
			expected: Category{Name: "nature", Confidence: "medium"},
		},
		{
			name:     "unknown category",
			out:      "category: spaceships\nconfidence: low\n",
			expected: Category{Name: "other", Confidence: "low"},
		},
		{
			name:     "model ignores the format",
			out:      "This image shows a bowl of pasta.\n",
			expected: Category{Name: "other", Confidence: "unknown"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseCategory(tt.out, allowed))
		})
	}
}

func TestOrganize(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cat.png"), []byte("img1"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lake.jpg"), []byte("img2"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0644))

	categories := []string{"pets", "nature"}
	fake := runner.NewFake()
	stubCategorize(fake, DefaultModel, filepath.Join(dir, "cat.png"), categories,
		"category: pets\nconfidence: high\ndescription: a cat\n")
	stubCategorize(fake, DefaultModel, filepath.Join(dir, "lake.jpg"), categories,
		"category: nature\nconfidence: medium\ndescription: a lake\n")

	a := NewAnalyzer(fake, "")
	moves, err := a.Organize(context.Background(), dir, OrganizeOptions{Categories: categories})
	require.NoError(t, err)
	require.Len(t, moves, 2)

	// Copied into category folders, originals untouched
	assert.FileExists(t, filepath.Join(dir, "organized", "pets", "cat.png"))
	assert.FileExists(t, filepath.Join(dir, "organized", "nature", "lake.jpg"))
	assert.FileExists(t, filepath.Join(dir, "cat.png"))
	assert.FileExists(t, filepath.Join(dir, "lake.jpg"))

	content, err := os.ReadFile(filepath.Join(dir, "organized", "pets", "cat.png"))
	require.NoError(t, err)
	assert.Equal(t, "img1", string(content))
}

func TestOrganizeMove(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cat.png"), []byte("img"), 0644))

	categories := []string{"pets"}
	fake := runner.NewFake()
	stubCategorize(fake, DefaultModel, filepath.Join(dir, "cat.png"), categories,
		"category: pets\nconfidence: high\n")

	a := NewAnalyzer(fake, "")
	moves, err := a.Organize(context.Background(), dir, OrganizeOptions{
		Categories: categories,
		Move:       true,
	})
	require.NoError(t, err)
	require.Len(t, moves, 1)

	assert.FileExists(t, filepath.Join(dir, "organized", "pets", "cat.png"))
	assert.NoFileExists(t, filepath.Join(dir, "cat.png"))
}

func TestOrganizeDryRun(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cat.png"), []byte("img"), 0644))

	categories := []string{"pets"}
	fake := runner.NewFake()
	stubCategorize(fake, DefaultModel, filepath.Join(dir, "cat.png"), categories,
		"category: pets\nconfidence: high\n")

	a := NewAnalyzer(fake, "")
	moves, err := a.Organize(context.Background(), dir, OrganizeOptions{
		Categories: categories,
		DryRun:     true,
	})
	require.NoError(t, err)
	require.Len(t, moves, 1)
	assert.Equal(t, "pets", moves[0].Category.Name)

	// Nothing written
	assert.NoDirExists(t, filepath.Join(dir, "organized"))
}

func TestOrganizeSkipsUnreadableImages(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.png"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "good.png"), []byte("y"), 0644))

	categories := []string{"pets"}
	fake := runner.NewFake()
	// bad.png stays unstubbed so the model call fails for it
	stubCategorize(fake, DefaultModel, filepath.Join(dir, "good.png"), categories,
		"category: pets\nconfidence: high\n")

	a := NewAnalyzer(fake, "")
	moves, err := a.Organize(context.Background(), dir, OrganizeOptions{Categories: categories})
	require.NoError(t, err)
	require.Len(t, moves, 1)
	assert.Equal(t, filepath.Join(dir, "good.png"), moves[0].From)
}

func TestCategoryCounts(t *testing.T) {
	moves := []Move{
		{Category: Category{Name: "pets"}},
		{Category: Category{Name: "nature"}},
		{Category: Category{Name: "pets"}},
	}

	assert.Equal(t, []string{"pets: 2", "nature: 1"}, CategoryCounts(moves))
}
