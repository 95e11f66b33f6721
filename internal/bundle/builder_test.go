package bundle

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/tierloop/internal/cache"
	"github.com/abhisek/tierloop/internal/curriculum"
	"github.com/abhisek/tierloop/internal/itembank"
	"github.com/abhisek/tierloop/internal/llm"
	"github.com/abhisek/tierloop/internal/problemgen"
)

var testLessons = []curriculum.Lesson{
	{ID: "place-value", Name: "Place value"},
	{ID: "add-sub", Name: "Addition and subtraction"},
	{ID: "multiplication", Name: "Multiplication"},
	{ID: "fractions", Name: "Fractions"},
	{ID: "measurement", Name: "Measurement"},
}

// testBank holds per lessons questions for every tier, skipping the cells
// listed in empty ("lesson/tier").
func testBank(per int, empty ...string) *itembank.Bank {
	var qs []problemgen.Question
	for _, l := range testLessons {
		for _, tier := range curriculum.AllTiers() {
			if slices.Contains(empty, l.ID+"/"+tier.String()) {
				continue
			}
			qs = append(qs, problemgen.SyntheticQuestions(l.ID, tier, "bank", per)...)
		}
	}
	return itembank.New(testLessons, qs)
}

func first(int) int { return 0 }

func assertBundleShape(t *testing.T, qs []problemgen.Question, tier curriculum.Tier) {
	t.Helper()
	require.Len(t, qs, len(testLessons))
	for i, q := range qs {
		assert.Equal(t, testLessons[i].ID, q.LessonID, "catalog order")
		assert.Equal(t, tier, q.Tier)
		assert.Len(t, q.Choices, problemgen.ChoiceCount)
		assert.GreaterOrEqual(t, q.CorrectIndex, 0)
		assert.Less(t, q.CorrectIndex, problemgen.ChoiceCount)
	}
}

func TestBuild_FromBank(t *testing.T) {
	b := New(testBank(3), testLessons)
	for _, tier := range curriculum.AllTiers() {
		qs, err := b.Build(context.Background(), tier, nil)
		require.NoError(t, err)
		assertBundleShape(t, qs, tier)
		for _, q := range qs {
			assert.Equal(t, problemgen.OriginBank, q.Origin)
		}
	}
	assert.Equal(t, 5, b.Size())
}

func TestBuild_RespectsExclusion(t *testing.T) {
	b := New(testBank(2), testLessons, WithRand(first))
	tier := curriculum.TierComprehension

	var exclude []string
	for _, l := range testLessons {
		exclude = append(exclude, fmt.Sprintf("bank-%s-%s-1", l.ID, tier))
	}
	qs, err := b.Build(context.Background(), tier, exclude)
	require.NoError(t, err)
	for _, q := range qs {
		assert.NotContains(t, exclude, q.ID)
		assert.Equal(t, fmt.Sprintf("bank-%s-%s-2", q.LessonID, tier), q.ID)
	}
}

func TestBuild_GeneratorFillsEmptyCell(t *testing.T) {
	gen := &problemgen.StubGenerator{}
	b := New(testBank(2, "fractions/recognition"), testLessons, WithGenerator(problemgen.NewAdapter(gen)))

	qs, err := b.Build(context.Background(), curriculum.TierRecognition, nil)
	require.NoError(t, err)
	assertBundleShape(t, qs, curriculum.TierRecognition)
	assert.Equal(t, problemgen.OriginGenerated, qs[3].Origin)
	assert.Equal(t, 1, gen.Calls("topic"))
}

func TestBuild_DegradesToPlaceholder(t *testing.T) {
	gen := problemgen.NewFailingGenerator(errors.New("upstream down"))
	b := New(testBank(2, "measurement/application"), testLessons, WithGenerator(problemgen.NewAdapter(gen)))

	qs, err := b.Build(context.Background(), curriculum.TierApplication, nil)
	require.NoError(t, err)
	assertBundleShape(t, qs, curriculum.TierApplication)
	assert.True(t, qs[4].Placeholder)
	assert.Equal(t, problemgen.OriginPlaceholder, qs[4].Origin)
	assert.True(t, qs[4].Valid())
	for _, q := range qs[:4] {
		assert.False(t, q.Placeholder)
	}
}

func TestBuild_SlowGeneratorTimesOut(t *testing.T) {
	gen := &problemgen.StubGenerator{
		TopicFunc: func(context.Context, curriculum.Lesson, curriculum.Tier, int) ([]problemgen.Question, error) {
			time.Sleep(time.Second)
			return nil, nil
		},
	}
	adapter := problemgen.NewAdapter(gen, problemgen.WithTimeout(20*time.Millisecond))
	b := New(testBank(1, "add-sub/recognition"), testLessons, WithGenerator(adapter))

	start := time.Now()
	qs, err := b.Build(context.Background(), curriculum.TierRecognition, nil)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.True(t, qs[1].Placeholder)
}

func TestBuild_EmptyBankNoGenerator(t *testing.T) {
	b := New(itembank.New(testLessons, nil), testLessons)
	qs, err := b.Build(context.Background(), curriculum.TierRecognition, nil)
	require.NoError(t, err)
	assertBundleShape(t, qs, curriculum.TierRecognition)
	ids := problemgen.IDs(qs)
	assert.Len(t, slices.Compact(slices.Sorted(slices.Values(ids))), len(ids), "ids are distinct")
}

func TestBuild_ContentUnavailable(t *testing.T) {
	b := New(testBank(1, "place-value/comprehension"), testLessons, WithPlaceholders(false))
	_, err := b.Build(context.Background(), curriculum.TierComprehension, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, problemgen.ErrContentUnavailable)
}

func TestBuild_FingerprintCache(t *testing.T) {
	gen := &problemgen.StubGenerator{}
	bank := testBank(1, "fractions/recognition")
	b := New(bank, testLessons, WithGenerator(problemgen.NewAdapter(gen)), WithCache(cache.NewLRU(16, 0), time.Minute))
	ctx := context.Background()

	a, err := b.Build(ctx, curriculum.TierRecognition, []string{"x", "y"})
	require.NoError(t, err)
	again, err := b.Build(ctx, curriculum.TierRecognition, []string{"y", "x", "x"})
	require.NoError(t, err)
	assert.Equal(t, a, again)
	assert.Equal(t, 1, gen.Calls("topic"), "second build served from cache")

	_, err = b.Build(ctx, curriculum.TierRecognition, []string{"x"})
	require.NoError(t, err)
	assert.Equal(t, 2, gen.Calls("topic"), "different exclusion set is a different key")
}

func TestBuild_SharedBuildCarriesNoSessionTag(t *testing.T) {
	var seen []string
	gen := &problemgen.StubGenerator{
		TopicFunc: func(ctx context.Context, l curriculum.Lesson, tier curriculum.Tier, n int) ([]problemgen.Question, error) {
			seen = append(seen, llm.SessionFrom(ctx))
			return problemgen.SyntheticQuestions(l.ID, tier, "gen", n), nil
		},
	}
	b := New(testBank(1, "fractions/recognition"), testLessons,
		WithGenerator(problemgen.NewAdapter(gen)), WithCache(cache.NewLRU(16, 0), time.Minute))

	ctx := llm.WithSession(context.Background(), "s-1")
	_, err := b.Build(ctx, curriculum.TierRecognition, nil)
	require.NoError(t, err)
	require.Equal(t, []string{""}, seen)
}

func TestBuild_PlaceholderBundlesNotCached(t *testing.T) {
	gen := problemgen.NewFailingGenerator(errors.New("down"))
	b := New(testBank(1, "fractions/recognition"), testLessons,
		WithGenerator(problemgen.NewAdapter(gen)), WithCache(cache.NewLRU(16, 0), time.Minute))

	for range 2 {
		_, err := b.Build(context.Background(), curriculum.TierRecognition, nil)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, gen.Calls("topic"))
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint(curriculum.TierRecognition, []string{"b", "a"})
	assert.Equal(t, a, Fingerprint(curriculum.TierRecognition, []string{"a", "b", "a"}))
	assert.NotEqual(t, a, Fingerprint(curriculum.TierComprehension, []string{"a", "b"}))
	assert.NotEqual(t, a, Fingerprint(curriculum.TierRecognition, []string{"a"}))
}
